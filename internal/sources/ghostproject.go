package sources

import (
	"context"
	"net/url"
	"strconv"

	"breachwatch/internal/provider"
)

const defaultGhostProjectBaseURL = "https://ghostproject.fr"

// GhostProject is a leak index that reports records only, so its count is
// the number of records returned.
type GhostProject struct {
	opts Options
}

func NewGhostProject(opts Options) *GhostProject {
	return &GhostProject{opts: opts.withDefaults(defaultGhostProjectBaseURL)}
}

func (g *GhostProject) Name() string { return NameGhostProject }

type ghostProjectResponse struct {
	Data []struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Hash     string `json:"hash"`
		Source   string `json:"source"`
		Date     string `json:"date"`
	} `json:"data"`
}

func (g *GhostProject) Search(ctx context.Context, target, _ string, limit int) (provider.Finding, error) {
	if g.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameGhostProject)
	}
	q := url.Values{"q": {target}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp ghostProjectResponse
	if err := g.opts.Client.GetJSON(ctx, NameGhostProject, g.opts.BaseURL+"/api/v1/search?"+q.Encode(), bearer(g.opts.APIKey), &resp); err != nil {
		return provider.Finding{}, err
	}

	records := make([]provider.BreachRecord, 0, len(resp.Data))
	for _, e := range resp.Data {
		records = append(records, provider.BreachRecord{
			Source:      NameGhostProject,
			Email:       e.Email,
			Hash:        e.Hash,
			Database:    e.Source,
			Date:        parseDate(e.Date),
			HasPassword: e.Password != "",
		})
	}
	return provider.Finding{
		Provider:   NameGhostProject,
		Found:      len(records) > 0,
		Count:      len(records),
		Records:    records,
		OccurredAt: latest(records),
	}, nil
}
