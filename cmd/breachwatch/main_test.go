package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func offlineConfigFile(t *testing.T) string {
	t.Helper()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	var b strings.Builder
	b.WriteString("providers:\n  timeout: 1s\n  base_urls:\n")
	for _, name := range []string{"hibp", "dehashed", "leakcheck", "abuseipdb", "ipqs", "virustotal", "ipapi", "ghostproject"} {
		b.WriteString("    " + name + ": " + down.URL + "\n")
	}
	b.WriteString("alerts:\n  email:\n    enabled: false\n")

	path := filepath.Join(t.TempDir(), "breachwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestGeneratePIN(t *testing.T) {
	out, err := execute(t, "", "generate", "pin", "--length", "8")
	require.NoError(t, err)

	var pin struct {
		PIN    string `json:"pin"`
		Length int    `json:"length"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pin))
	assert.Equal(t, 8, pin.Length)
	assert.Regexp(t, `^[0-9]{8}$`, pin.PIN)
}

func TestGeneratePasskeyNoSymbols(t *testing.T) {
	out, err := execute(t, "", "generate", "passkey", "--length", "20", "--no-symbols")
	require.NoError(t, err)

	var pk struct {
		Passkey string `json:"passkey"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pk))
	assert.Regexp(t, `^[A-Za-z0-9]{20}$`, pk.Passkey)
}

func TestGenerateRejectsBounds(t *testing.T) {
	_, err := execute(t, "", "generate", "backup-codes", "--count", "2")
	assert.Error(t, err)
}

func TestCheckIPOffline(t *testing.T) {
	cfg := offlineConfigFile(t)

	out, err := execute(t, "", "--config", cfg, "check", "ip", "192.0.2.5")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "192.0.2.5", v["ip"])
	assert.Equal(t, false, v["suspicious"])

	_, err = execute(t, "", "--config", cfg, "check", "ip", "nonsense")
	assert.Error(t, err)
}

func TestCheckPasswordFromStdin(t *testing.T) {
	cfg := offlineConfigFile(t)

	out, err := execute(t, "correct horse battery staple\n", "--config", cfg, "check", "password")
	require.NoError(t, err)
	assert.NotContains(t, out, "correct horse")
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, false, v["compromised"])
}

func TestReadSecret(t *testing.T) {
	s, err := readSecret(strings.NewReader("s3cret\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", s)

	s, err = readSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", s)
}
