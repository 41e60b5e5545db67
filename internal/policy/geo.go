// Package policy evaluates geographic restrictions against a resolved IP
// location.
package policy

import (
	"strings"

	"breachwatch/internal/config"
	"breachwatch/internal/provider"
)

// ActionType is the outcome of a policy evaluation.
type ActionType string

const (
	ActionAllow ActionType = "allow"
	ActionBlock ActionType = "block"
)

// Decision explains a policy outcome. Reason is empty on allow.
type Decision struct {
	Action ActionType
	Reason string
}

func (d Decision) Blocked() bool { return d.Action == ActionBlock }

// GeoPolicy holds country allow and block lists (ISO 3166-1 alpha-2).
type GeoPolicy struct {
	enabled bool
	allowed map[string]struct{}
	blocked map[string]struct{}
}

func NewGeoPolicy(cfg config.GeoRestrictionConfig) *GeoPolicy {
	return &GeoPolicy{
		enabled: cfg.Enabled,
		allowed: countrySet(cfg.AllowedCountries),
		blocked: countrySet(cfg.BlockedCountries),
	}
}

func (p *GeoPolicy) Enabled() bool { return p != nil && p.enabled }

// Evaluate applies the lists. A disabled policy, an unknown location or a
// missing country code always allows. A non-empty allow list requires
// membership; the block list applies on top of it.
func (p *GeoPolicy) Evaluate(loc *provider.Location) Decision {
	allow := Decision{Action: ActionAllow}
	if !p.Enabled() || loc == nil {
		return allow
	}
	code := strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	if code == "" {
		return allow
	}
	if _, ok := p.blocked[code]; ok {
		return Decision{Action: ActionBlock, Reason: "Country in blocked list"}
	}
	if len(p.allowed) > 0 {
		if _, ok := p.allowed[code]; !ok {
			return Decision{Action: ActionBlock, Reason: "Country not in allowed list"}
		}
	}
	return allow
}

func countrySet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}
