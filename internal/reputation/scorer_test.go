package reputation

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachwatch/internal/cache"
	"breachwatch/internal/common"
	"breachwatch/internal/config"
	"breachwatch/internal/policy"
	"breachwatch/internal/provider"
)

type fakeSource struct {
	name  string
	score float64
	fired bool
	tags  []string
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) CheckIP(context.Context, netip.Addr) (provider.Finding, error) {
	f.calls.Add(1)
	if f.err != nil {
		return provider.Finding{}, f.err
	}
	return provider.Finding{RawScore: provider.Score(f.score), Suspicious: f.fired, Found: f.fired, Tags: f.tags}, nil
}

type fakeLocator struct {
	loc *provider.Location
	err error
}

func (f fakeLocator) Locate(context.Context, netip.Addr) (*provider.Location, error) {
	return f.loc, f.err
}

func newScorer(t *testing.T, cfg ScorerConfig) *Scorer {
	t.Helper()
	if cfg.Cache == nil {
		m := cache.NewMemory(cache.MemoryOptions{})
		t.Cleanup(func() { _ = m.Close() })
		cfg.Cache = m
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	return NewScorer(cfg)
}

func TestCleanIP(t *testing.T) {
	s := newScorer(t, ScorerConfig{
		Sources: []Source{
			&fakeSource{name: "AbuseIPDB"},
			&fakeSource{name: "IPQS"},
			&fakeSource{name: "VirusTotal"},
		},
		Locator: fakeLocator{loc: &provider.Location{CountryCode: "US", City: "Mountain View"}},
	})

	v, err := s.Check(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "8.8.8.8", v.IP)
	assert.Zero(t, v.RiskScore)
	assert.False(t, v.Suspicious)
	assert.Equal(t, TierClean, v.Tier)
	assert.Empty(t, v.Threats)
	assert.Empty(t, v.Sources)
	require.NotNil(t, v.Location)
	assert.Equal(t, "Mountain View", v.Location.City)
}

func TestProviderThresholdFires(t *testing.T) {
	s := newScorer(t, ScorerConfig{
		Sources: []Source{
			&fakeSource{name: "AbuseIPDB", score: 10},
			&fakeSource{name: "IPQS", score: 30, fired: true, tags: []string{"VPN detected"}},
			&fakeSource{name: "VirusTotal", err: errors.New("quota")},
		},
	})

	v, err := s.Check(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, v.Suspicious)
	assert.Equal(t, 30, v.RiskScore)
	assert.Equal(t, TierLowRisk, v.Tier)
	assert.Equal(t, []string{"IPQS"}, v.Sources)
	assert.Equal(t, []string{"VPN detected"}, v.Threats)
	assert.Nil(t, v.Location)
}

func TestGlobalThreshold(t *testing.T) {
	s := newScorer(t, ScorerConfig{
		Sources: []Source{
			&fakeSource{name: "AbuseIPDB", score: 30, fired: true},
			&fakeSource{name: "IPQS", score: 50, fired: true},
		},
	})
	v, err := s.Check(context.Background(), "203.0.113.8")
	require.NoError(t, err)
	assert.True(t, v.Suspicious)
	assert.Equal(t, 80, v.RiskScore)
	assert.Equal(t, TierHighRisk, v.Tier)
	assert.Equal(t, []string{"AbuseIPDB", "IPQS"}, v.Sources)
}

func TestBelowThresholdProvidersAddNothing(t *testing.T) {
	s := newScorer(t, ScorerConfig{
		Sources: []Source{
			&fakeSource{name: "AbuseIPDB", score: 20},
			&fakeSource{name: "IPQS", score: 40},
		},
	})
	v, err := s.Check(context.Background(), "203.0.113.10")
	require.NoError(t, err)
	assert.Zero(t, v.RiskScore)
	assert.Equal(t, TierClean, v.Tier)
	assert.False(t, v.Suspicious)
	assert.Empty(t, v.Sources)
	assert.Empty(t, v.Threats)
}

func TestGeoRestriction(t *testing.T) {
	geo := policy.NewGeoPolicy(config.GeoRestrictionConfig{Enabled: true, BlockedCountries: []string{"KP"}})

	s := newScorer(t, ScorerConfig{
		Sources: []Source{&fakeSource{name: "AbuseIPDB"}},
		Locator: fakeLocator{loc: &provider.Location{CountryCode: "KP"}},
		Geo:     geo,
	})
	v, err := s.Check(context.Background(), "175.45.176.1")
	require.NoError(t, err)
	assert.True(t, v.Suspicious)
	assert.Equal(t, []string{"Geographic restriction"}, v.Threats)
	assert.Zero(t, v.RiskScore)
	assert.Equal(t, TierClean, v.Tier)

	// geolocation failure never blocks
	s = newScorer(t, ScorerConfig{
		Sources: []Source{&fakeSource{name: "AbuseIPDB"}},
		Locator: fakeLocator{err: errors.New("rate limited")},
		Geo:     geo,
	})
	v, err = s.Check(context.Background(), "175.45.176.1")
	require.NoError(t, err)
	assert.False(t, v.Suspicious)
	assert.Nil(t, v.Location)
}

func TestInvalidIP(t *testing.T) {
	src := &fakeSource{name: "AbuseIPDB"}
	s := newScorer(t, ScorerConfig{Sources: []Source{src}})

	for _, raw := range []string{"", "999.1.1.1", "not-an-ip", "fe80::1%eth0", "1.2.3"} {
		_, err := s.Check(context.Background(), raw)
		assert.ErrorIs(t, err, common.ErrValidation, raw)
	}
	assert.Zero(t, src.calls.Load())
}

func TestCachedByIP(t *testing.T) {
	src := &fakeSource{name: "AbuseIPDB", score: 55, fired: true, tags: []string{"High abuse confidence"}}
	mem := cache.NewMemory(cache.MemoryOptions{})
	defer mem.Close()
	s := newScorer(t, ScorerConfig{Sources: []Source{src}, Cache: mem})

	first, err := s.Check(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	second, err := s.Check(context.Background(), " 203.0.113.9 ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())

	_, ok, _ := mem.Get(context.Background(), "ip_reputation:203.0.113.9")
	assert.True(t, ok)
}

func TestTierStepFunction(t *testing.T) {
	cases := map[int]string{
		0: TierClean, 19: TierClean,
		20: TierLowRisk, 49: TierLowRisk,
		50: TierMediumRisk, 79: TierMediumRisk,
		80: TierHighRisk, 500: TierHighRisk,
	}
	for score, want := range cases {
		assert.Equal(t, want, Tier(score), score)
	}
}

func TestRiskScoreNeverNegative(t *testing.T) {
	s := newScorer(t, ScorerConfig{Sources: []Source{&fakeSource{name: "odd", score: -40, fired: true}}})
	v, err := s.Check(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.RiskScore, 0)
}
