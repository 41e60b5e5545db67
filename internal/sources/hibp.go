package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"breachwatch/internal/provider"
)

const defaultHIBPBaseURL = "https://api.pwnedpasswords.com"

// HIBPRange runs the k-anonymity range query: only the five character digest
// prefix leaves the process, the suffix is matched locally.
type HIBPRange struct {
	opts       Options
	requireKey bool
}

// NewHIBPRange builds the range adapter. The public range endpoint needs no
// key; requireKey makes an empty key count as a missing credential.
func NewHIBPRange(opts Options, requireKey bool) *HIBPRange {
	return &HIBPRange{opts: opts.withDefaults(defaultHIBPBaseURL), requireKey: requireKey}
}

func (h *HIBPRange) Name() string { return NameHIBP }

func (h *HIBPRange) Range(ctx context.Context, prefix, suffix string) (provider.Finding, error) {
	if h.requireKey && h.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameHIBP)
	}
	if len(prefix) != 5 {
		return provider.Finding{}, fmt.Errorf("%s: prefix must be 5 hex characters", NameHIBP)
	}

	header := http.Header{"Accept": {"text/plain"}}
	if h.opts.APIKey != "" {
		header.Set("hibp-api-key", h.opts.APIKey)
	}
	body, err := h.opts.Client.GetText(ctx, NameHIBP, h.opts.BaseURL+"/range/"+strings.ToUpper(prefix), header)
	if err != nil {
		return provider.Finding{}, err
	}

	count := matchSuffix(body, suffix)
	return provider.Finding{Provider: NameHIBP, Found: count > 0, Count: count}, nil
}

// matchSuffix scans SUFFIX:COUNT lines for suffix. Padding rows with a zero
// count are not matches.
func matchSuffix(body, suffix string) int {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		s, c, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(s, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}
