package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachwatch/internal/common"
	"breachwatch/internal/config"
)

// offlineConfig points every provider at a server that always fails.
func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	cfg := config.Default()
	cfg.Providers.Timeout = time.Second
	cfg.Providers.BaseURLs = map[string]string{}
	for _, name := range []string{"hibp", "dehashed", "leakcheck", "abuseipdb", "ipqs", "virustotal", "ipapi", "ghostproject"} {
		cfg.Providers.BaseURLs[name] = down.URL
	}
	cfg.Alerts.Email.Enabled = false
	return cfg
}

func TestBuildDegradesToNotFound(t *testing.T) {
	rt, err := Build(context.Background(), offlineConfig(t), nil)
	require.NoError(t, err)
	defer rt.Close()

	pw, err := rt.Service.CheckPassword(context.Background(), "password123")
	require.NoError(t, err)
	assert.False(t, pw.Compromised)
	assert.Zero(t, pw.BreachCount)

	ip, err := rt.Service.CheckIP(context.Background(), "192.0.2.10")
	require.NoError(t, err)
	assert.False(t, ip.Suspicious)
	assert.Nil(t, ip.Location)
	assert.Equal(t, "clean", ip.Tier)

	dw, err := rt.Service.SearchDarkWeb(context.Background(), "example.com", "domain")
	require.NoError(t, err)
	assert.False(t, dw.Found)
}

func TestBuildSQLiteWithAuditAndBlocklist(t *testing.T) {
	dir := t.TempDir()
	blocklist := filepath.Join(dir, "blocklist.txt")
	require.NoError(t, os.WriteFile(blocklist, []byte("203.0.113.0/24 # feed\n"), 0o600))

	cfg := offlineConfig(t)
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.Path = filepath.Join(dir, "bw.db")
	cfg.Audit.Enabled = true
	cfg.Audit.Path = cfg.Cache.Path
	cfg.IPReputation.BlocklistPath = blocklist
	cfg.IPReputation.SuspiciousThreshold = 50

	rt, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer rt.Close()

	v, err := rt.Service.CheckIP(context.Background(), "203.0.113.44")
	require.NoError(t, err)
	assert.True(t, v.Suspicious)
	assert.Equal(t, 50, v.RiskScore)
	assert.Equal(t, []string{"Blocklist"}, v.Sources)

	records, err := rt.Service.Recent(context.Background(), common.CheckIP, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Positive)
	assert.Equal(t, "ip_reputation:203.0.113.44", records[0].QueryKey)
}

func TestBuildBadSQLitePath(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.Path = ""
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
