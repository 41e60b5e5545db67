package sources

import (
	"context"
	"net/http"
	"net/netip"
	"net/url"

	"breachwatch/internal/provider"
)

const (
	defaultAbuseIPDBBaseURL = "https://api.abuseipdb.com"
	abuseConfidenceFloor    = 25
)

// AbuseIPDB contributes its abuse confidence score (0-100). It fires above
// 25 or for non-public addresses.
type AbuseIPDB struct {
	opts Options
}

func NewAbuseIPDB(opts Options) *AbuseIPDB {
	return &AbuseIPDB{opts: opts.withDefaults(defaultAbuseIPDBBaseURL)}
}

func (a *AbuseIPDB) Name() string { return NameAbuseIPDB }

type abuseIPDBResponse struct {
	Data struct {
		AbuseConfidenceScore int  `json:"abuseConfidenceScore"`
		IsPublic             bool `json:"isPublic"`
		IsWhitelisted        bool `json:"isWhitelisted"`
	} `json:"data"`
}

func (a *AbuseIPDB) CheckIP(ctx context.Context, ip netip.Addr) (provider.Finding, error) {
	if a.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameAbuseIPDB)
	}
	q := url.Values{"ipAddress": {ip.String()}, "maxAgeInDays": {"90"}}
	var resp abuseIPDBResponse
	err := a.opts.Client.GetJSON(ctx, NameAbuseIPDB, a.opts.BaseURL+"/api/v2/check?"+q.Encode(),
		http.Header{"Key": {a.opts.APIKey}}, &resp)
	if err != nil {
		return provider.Finding{}, err
	}

	score := max(resp.Data.AbuseConfidenceScore, 0)
	var tags []string
	if score > abuseConfidenceFloor {
		tags = append(tags, "High abuse confidence")
	}
	if !resp.Data.IsPublic {
		tags = append(tags, "Private IP range")
	}
	fired := score > abuseConfidenceFloor || !resp.Data.IsPublic
	return provider.Finding{
		Provider:   NameAbuseIPDB,
		Found:      fired,
		RawScore:   provider.Score(float64(score)),
		Tags:       tags,
		Suspicious: fired,
	}, nil
}
