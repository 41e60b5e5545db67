package sources

import (
	"context"
	"net/url"
	"strconv"

	"breachwatch/internal/provider"
)

const defaultDeHashedBaseURL = "https://api.dehashed.com"

// DeHashed serves both the password full query and dark-web searches.
type DeHashed struct {
	opts Options
}

func NewDeHashed(opts Options) *DeHashed {
	return &DeHashed{opts: opts.withDefaults(defaultDeHashedBaseURL)}
}

func (d *DeHashed) Name() string { return NameDeHashed }

type dehashedResponse struct {
	Total   int             `json:"total"`
	Entries []dehashedEntry `json:"entries"`
}

type dehashedEntry struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Hash         string `json:"hash"`
	DatabaseName string `json:"database_name"`
	Date         string `json:"date"`
}

// CheckPassword sends the cleartext secret; this is the low-privacy fallback.
func (d *DeHashed) CheckPassword(ctx context.Context, secret string) (provider.Finding, error) {
	resp, err := d.query(ctx, url.Values{"query": {secret}})
	if err != nil {
		return provider.Finding{}, err
	}
	return provider.Finding{Provider: NameDeHashed, Found: resp.Total > 0, Count: max(resp.Total, 0)}, nil
}

// Search looks up an email or domain, returning at most limit records.
func (d *DeHashed) Search(ctx context.Context, target, _ string, limit int) (provider.Finding, error) {
	q := url.Values{"query": {target}}
	if limit > 0 {
		q.Set("size", strconv.Itoa(limit))
	}
	resp, err := d.query(ctx, q)
	if err != nil {
		return provider.Finding{}, err
	}

	records := make([]provider.BreachRecord, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		records = append(records, provider.BreachRecord{
			Source:      NameDeHashed,
			Email:       e.Email,
			Hash:        e.Hash,
			Database:    e.DatabaseName,
			Date:        parseDate(e.Date),
			HasPassword: e.Password != "",
		})
	}
	total := max(resp.Total, 0)
	return provider.Finding{
		Provider:   NameDeHashed,
		Found:      total > 0,
		Count:      total,
		Records:    records,
		OccurredAt: latest(records),
	}, nil
}

func (d *DeHashed) query(ctx context.Context, q url.Values) (dehashedResponse, error) {
	var resp dehashedResponse
	if d.opts.APIKey == "" {
		return resp, missingKey(NameDeHashed)
	}
	err := d.opts.Client.GetJSON(ctx, NameDeHashed, d.opts.BaseURL+"/search?"+q.Encode(), bearer(d.opts.APIKey), &resp)
	return resp, err
}
