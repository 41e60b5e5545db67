// Package reputation scores an IP address from several reputation providers,
// geolocation and the geographic policy.
package reputation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/netip"
	"strings"
	"time"

	"breachwatch/internal/cache"
	"breachwatch/internal/common"
	"breachwatch/internal/logging"
	"breachwatch/internal/policy"
	"breachwatch/internal/provider"
)

const (
	TierClean      = "clean"
	TierLowRisk    = "low_risk"
	TierMediumRisk = "medium_risk"
	TierHighRisk   = "high_risk"

	DefaultThreshold = 80
	geoThreat        = "Geographic restriction"
	locationCall     = "geolocation"
)

// Source is a reputation provider.
type Source interface {
	Name() string
	CheckIP(ctx context.Context, ip netip.Addr) (provider.Finding, error)
}

// Locator resolves geolocation.
type Locator interface {
	Locate(ctx context.Context, ip netip.Addr) (*provider.Location, error)
}

// Verdict is the merged reputation of one address.
type Verdict struct {
	IP         string             `json:"ip"`
	Suspicious bool               `json:"suspicious"`
	RiskScore  int                `json:"risk_score"`
	Threats    []string           `json:"threats"`
	Location   *provider.Location `json:"location"`
	Tier       string             `json:"reputation_tier"`
	Sources    []string           `json:"sources"`
	CheckedAt  time.Time          `json:"checked_at"`
}

// Tier maps a risk score to its reputation tier.
func Tier(score int) string {
	switch {
	case score >= 80:
		return TierHighRisk
	case score >= 50:
		return TierMediumRisk
	case score >= 20:
		return TierLowRisk
	default:
		return TierClean
	}
}

type ScorerConfig struct {
	Sources []Source
	Locator Locator
	Geo     *policy.GeoPolicy
	// Threshold is the summed score at which an address is suspicious
	// regardless of individual providers.
	Threshold int
	Cache     cache.Cache
	TTL       time.Duration
	Timeout   time.Duration
	Breakers  *provider.Breakers
	Logger    *slog.Logger
}

type Scorer struct {
	sources   []Source
	locator   Locator
	geo       *policy.GeoPolicy
	threshold int
	cache     cache.Cache
	ttl       time.Duration
	timeout   time.Duration
	breakers  *provider.Breakers
	log       *slog.Logger
	now       func() time.Time
}

func NewScorer(cfg ScorerConfig) *Scorer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Scorer{
		sources:   cfg.Sources,
		locator:   cfg.Locator,
		geo:       cfg.Geo,
		threshold: cfg.Threshold,
		cache:     cfg.Cache,
		ttl:       cfg.TTL,
		timeout:   cfg.Timeout,
		breakers:  cfg.Breakers,
		log:       logging.OrDiscard(cfg.Logger),
		now:       time.Now,
	}
}

// ParseIP validates raw and returns its canonical form.
func ParseIP(raw string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || ip.Zone() != "" {
		return netip.Addr{}, common.Invalid("ip", "not a valid IP address")
	}
	return ip.Unmap(), nil
}

// Check scores raw. Only a malformed address or a cache failure is an error.
func (s *Scorer) Check(ctx context.Context, raw string) (Verdict, error) {
	ip, err := ParseIP(raw)
	if err != nil {
		return Verdict{}, err
	}
	key := cache.IPKey(ip.String())

	if s.cache != nil {
		v, ok, err := cache.GetJSON[Verdict](ctx, s.cache, key)
		if err != nil {
			return Verdict{}, fmt.Errorf("reputation: cache lookup: %w", err)
		}
		if ok {
			return v, nil
		}
	}

	calls := make([]provider.Call, 0, len(s.sources)+1)
	for _, src := range s.sources {
		src := src
		calls = append(calls, provider.Call{Name: src.Name(), Fn: func(ctx context.Context) (provider.Finding, error) {
			return src.CheckIP(ctx, ip)
		}})
	}
	calls = s.breakers.Wrap(calls)

	locIdx := -1
	located := make(chan *provider.Location, 1)
	if s.locator != nil {
		locIdx = len(calls)
		calls = append(calls, provider.Call{Name: locationCall, Fn: func(ctx context.Context) (provider.Finding, error) {
			loc, err := s.locator.Locate(ctx, ip)
			if err == nil {
				located <- loc
			}
			return provider.Finding{}, err
		}})
	}

	results := provider.Run(ctx, s.timeout, calls)

	var loc *provider.Location
	if locIdx >= 0 {
		if results[locIdx].Err == nil {
			select {
			case loc = <-located:
			default:
			}
		} else {
			s.log.Debug("geolocation unavailable", "ip", ip.String(), "err", results[locIdx].Err)
		}
		results = results[:locIdx]
	}

	v := s.merge(results)
	v.IP = ip.String()
	v.Location = loc
	v.Tier = Tier(v.RiskScore)

	if d := s.geo.Evaluate(loc); d.Blocked() {
		v.Suspicious = true
		v.Threats = append(v.Threats, geoThreat)
	}
	v.CheckedAt = s.now().UTC()

	if s.cache != nil {
		stored, err := cache.PutSettled(ctx, s.cache, key, v, s.ttl)
		if err != nil {
			return Verdict{}, fmt.Errorf("reputation: cache store: %w", err)
		}
		if !stored {
			s.log.Debug("verdict not cached, caller context done", "err", ctx.Err())
		}
	}

	if v.Suspicious {
		s.log.Warn("suspicious ip detected",
			"ip", v.IP,
			"risk_score", v.RiskScore,
			"threats", v.Threats,
			"sources", v.Sources,
		)
	}
	return v, nil
}

// merge sums the scores of providers whose own threshold fired. Only those
// are listed as sources and contribute threat tags; a provider that answered
// below its threshold adds nothing.
func (s *Scorer) merge(results []provider.Result) Verdict {
	v := Verdict{Threats: []string{}, Sources: []string{}}
	for _, r := range results {
		if r.Err != nil {
			s.log.Debug("provider unavailable", "provider", r.Finding.Provider, "err", r.Err)
			continue
		}
		f := r.Finding
		if !f.Suspicious {
			continue
		}
		v.Suspicious = true
		if f.RawScore != nil {
			v.RiskScore += max(int(math.Round(*f.RawScore)), 0)
		}
		v.Sources = append(v.Sources, f.Provider)
		v.Threats = append(v.Threats, f.Tags...)
	}
	if v.RiskScore >= s.threshold {
		v.Suspicious = true
	}
	return v
}
