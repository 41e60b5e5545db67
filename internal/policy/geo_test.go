package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"breachwatch/internal/config"
	"breachwatch/internal/provider"
)

func TestGeoPolicy(t *testing.T) {
	us := &provider.Location{CountryCode: "US"}
	de := &provider.Location{CountryCode: "de"}
	kp := &provider.Location{CountryCode: "KP"}
	none := &provider.Location{}

	cases := []struct {
		name    string
		cfg     config.GeoRestrictionConfig
		loc     *provider.Location
		blocked bool
		reason  string
	}{
		{"disabled", config.GeoRestrictionConfig{AllowedCountries: []string{"US"}}, de, false, ""},
		{"nil location", config.GeoRestrictionConfig{Enabled: true, AllowedCountries: []string{"US"}}, nil, false, ""},
		{"missing country", config.GeoRestrictionConfig{Enabled: true, AllowedCountries: []string{"US"}}, none, false, ""},
		{"allowed member", config.GeoRestrictionConfig{Enabled: true, AllowedCountries: []string{"US"}}, us, false, ""},
		{"not allowed", config.GeoRestrictionConfig{Enabled: true, AllowedCountries: []string{"us"}}, de, true, "Country not in allowed list"},
		{"empty allow list", config.GeoRestrictionConfig{Enabled: true}, de, false, ""},
		{"blocked", config.GeoRestrictionConfig{Enabled: true, BlockedCountries: []string{"KP"}}, kp, true, "Country in blocked list"},
		{"block overrides allow", config.GeoRestrictionConfig{Enabled: true, AllowedCountries: []string{"KP"}, BlockedCountries: []string{"KP"}}, kp, true, "Country in blocked list"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewGeoPolicy(tc.cfg).Evaluate(tc.loc)
			assert.Equal(t, tc.blocked, d.Blocked())
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestNilPolicyAllows(t *testing.T) {
	var p *GeoPolicy
	assert.False(t, p.Enabled())
	assert.False(t, p.Evaluate(&provider.Location{CountryCode: "KP"}).Blocked())
}
