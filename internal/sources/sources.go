// Package sources adapts each external threat-intel service to a
// provider.Finding.
package sources

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"breachwatch/internal/provider"
)

// Provider names as they appear in verdict source lists.
const (
	NameHIBP         = "HIBP"
	NameDeHashed     = "DeHashed"
	NameLeakCheck    = "LeakCheck"
	NameAbuseIPDB    = "AbuseIPDB"
	NameIPQS         = "IPQS"
	NameVirusTotal   = "VirusTotal"
	NameIPAPI        = "ip-api"
	NameGhostProject = "GhostProject"
	NameBlocklist    = "Blocklist"
)

// Options is shared by every HTTP adapter.
type Options struct {
	APIKey  string
	BaseURL string
	Client  *provider.HTTPClient
}

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Client == nil {
		o.Client = provider.NewHTTPClient(10 * time.Second)
	}
	return o
}

func missingKey(name string) error {
	return fmt.Errorf("%s: %w", name, provider.ErrMissingCredential)
}

func bearer(key string) http.Header {
	return http.Header{"Authorization": {"Bearer " + key}}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseDate accepts the date shapes leak indexes return; anything else is nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// latest returns the newest record date, or nil.
func latest(records []provider.BreachRecord) *time.Time {
	var out *time.Time
	for _, r := range records {
		if r.Date != nil && (out == nil || r.Date.After(*out)) {
			d := *r.Date
			out = &d
		}
	}
	return out
}
