package sources

import (
	"context"

	"breachwatch/internal/provider"
)

const defaultLeakCheckBaseURL = "https://leakcheck.io"

// LeakCheck is a password full-query provider.
type LeakCheck struct {
	opts Options
}

func NewLeakCheck(opts Options) *LeakCheck {
	return &LeakCheck{opts: opts.withDefaults(defaultLeakCheckBaseURL)}
}

func (l *LeakCheck) Name() string { return NameLeakCheck }

type leakCheckRequest struct {
	Key   string `json:"key"`
	Check string `json:"check"`
	Type  string `json:"type"`
}

type leakCheckResponse struct {
	Found bool `json:"found"`
	Count int  `json:"count"`
}

func (l *LeakCheck) CheckPassword(ctx context.Context, secret string) (provider.Finding, error) {
	if l.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameLeakCheck)
	}
	var resp leakCheckResponse
	req := leakCheckRequest{Key: l.opts.APIKey, Check: secret, Type: "password"}
	if err := l.opts.Client.PostJSON(ctx, NameLeakCheck, l.opts.BaseURL+"/api/public", nil, req, &resp); err != nil {
		return provider.Finding{}, err
	}
	return provider.Finding{Provider: NameLeakCheck, Found: resp.Found, Count: max(resp.Count, 0)}, nil
}
