package password

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachwatch/internal/common"
)

func TestPasskeyDefaults(t *testing.T) {
	g := NewGenerator()
	pk, err := g.Passkey(32, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, pk.Passkey, 32)
	assert.Equal(t, 32, pk.Length)
	assert.False(t, strings.ContainsAny(pk.Passkey, similar))
	assert.NotEmpty(t, pk.Strength.Level)
}

func TestPasskeyExcludeAmbiguous(t *testing.T) {
	g := NewGenerator()
	opts := DefaultOptions()
	opts.ExcludeAmbiguous = true
	for i := 0; i < 20; i++ {
		pk, err := g.Passkey(64, opts)
		require.NoError(t, err)
		assert.False(t, strings.ContainsAny(pk.Passkey, ambiguous))
	}
}

func TestPasskeySingleClass(t *testing.T) {
	g := NewGenerator()
	pk, err := g.Passkey(16, Options{Numbers: true, ExcludeSimilar: true})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[2-9]{16}$`), pk.Passkey)
}

func TestPasskeyValidation(t *testing.T) {
	g := NewGenerator()
	_, err := g.Passkey(7, DefaultOptions())
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = g.Passkey(129, DefaultOptions())
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = g.Passkey(16, Options{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPassphrase(t *testing.T) {
	g := NewGenerator()
	pp, err := g.Passphrase(4, "-")
	require.NoError(t, err)
	words := strings.Split(pp.Passphrase, "-")
	assert.Len(t, words, 4)
	for _, w := range words {
		assert.Contains(t, wordList, w)
	}

	_, err = g.Passphrase(2, "-")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = g.Passphrase(4, "------")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPIN(t *testing.T) {
	g := NewGenerator()
	pin, err := g.PIN(6)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), pin.PIN)

	_, err = g.PIN(3)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBackupCodes(t *testing.T) {
	g := NewGenerator()
	bc, err := g.BackupCodes(10)
	require.NoError(t, err)
	assert.Equal(t, 10, bc.Count)
	require.Len(t, bc.Codes, 10)
	for _, c := range bc.Codes {
		assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), c)
	}
	assert.False(t, bc.GeneratedAt.IsZero())

	_, err = g.BackupCodes(21)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestTwoFactorRecommendations(t *testing.T) {
	recs := TwoFactorRecommendations()
	assert.Len(t, recs, 4)
	assert.Equal(t, "very_high", recs["hardware_keys"].SecurityLevel)
	assert.NotEmpty(t, recs["sms_2fa"].Warning)
}
