package sources

import (
	"context"
	"net/netip"
	"net/url"

	"breachwatch/internal/provider"
)

const (
	defaultIPQSBaseURL = "https://www.ipqualityscore.com"
	fraudScoreFloor    = 75
)

// IPQSChecks selects which IPQS flags can fire on their own.
type IPQSChecks struct {
	Proxy bool
	VPN   bool
	Tor   bool
	Bot   bool
}

// IPQS contributes its fraud score (0-100) and fires above 75 or on any
// enabled proxy/VPN/Tor/bot flag.
type IPQS struct {
	opts   Options
	checks IPQSChecks
}

func NewIPQS(opts Options, checks IPQSChecks) *IPQS {
	return &IPQS{opts: opts.withDefaults(defaultIPQSBaseURL), checks: checks}
}

func (q *IPQS) Name() string { return NameIPQS }

type ipqsResponse struct {
	FraudScore int  `json:"fraud_score"`
	Proxy      bool `json:"proxy"`
	VPN        bool `json:"vpn"`
	Tor        bool `json:"tor"`
	BotStatus  bool `json:"bot_status"`
}

func (q *IPQS) CheckIP(ctx context.Context, ip netip.Addr) (provider.Finding, error) {
	if q.opts.APIKey == "" {
		return provider.Finding{}, missingKey(NameIPQS)
	}
	endpoint := q.opts.BaseURL + "/api/json/ip/" + url.PathEscape(q.opts.APIKey) + "/" + url.PathEscape(ip.String())
	var resp ipqsResponse
	if err := q.opts.Client.GetJSON(ctx, NameIPQS, endpoint, nil, &resp); err != nil {
		return provider.Finding{}, err
	}

	var tags []string
	flagged := false
	flag := func(enabled, set bool, tag string) {
		if enabled && set {
			tags = append(tags, tag)
			flagged = true
		}
	}
	flag(q.checks.Proxy, resp.Proxy, "Proxy detected")
	flag(q.checks.VPN, resp.VPN, "VPN detected")
	flag(q.checks.Tor, resp.Tor, "Tor exit node")
	flag(q.checks.Bot, resp.BotStatus, "Bot activity")

	score := max(resp.FraudScore, 0)
	fired := score > fraudScoreFloor || flagged
	return provider.Finding{
		Provider:   NameIPQS,
		Found:      fired,
		RawScore:   provider.Score(float64(score)),
		Tags:       tags,
		Suspicious: fired,
	}, nil
}
