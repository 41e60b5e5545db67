package darkweb

import (
	"context"
	"time"
)

// Monitoring recommendations.
const (
	RecommendSafe            = "safe"
	RecommendMonitor         = "monitor"
	RecommendImmediateAction = "immediate_action"
)

// recentWindow is how recent a breach must be to require immediate action.
const recentWindow = 365 * 24 * time.Hour

// Monitoring wraps a verdict with a recommendation and follow-up actions.
type Monitoring struct {
	Verdict        Verdict  `json:"result"`
	Recommendation string   `json:"recommendation"`
	ActionItems    []string `json:"action_items"`
}

func (a *Aggregator) MonitorEmail(ctx context.Context, email string) (Monitoring, error) {
	return a.monitor(ctx, email, TypeEmail)
}

func (a *Aggregator) MonitorDomain(ctx context.Context, domain string) (Monitoring, error) {
	return a.monitor(ctx, domain, TypeDomain)
}

func (a *Aggregator) monitor(ctx context.Context, target, typ string) (Monitoring, error) {
	v, err := a.Search(ctx, target, typ)
	if err != nil {
		return Monitoring{}, err
	}
	rec := Recommend(v, a.now())
	return Monitoring{Verdict: v, Recommendation: rec, ActionItems: actionItems(rec, typ)}, nil
}

// Recommend grades a verdict: nothing found is safe; a breach dated within
// the last year, or one carrying a leaked password, needs immediate action;
// anything else is worth monitoring.
func Recommend(v Verdict, now time.Time) string {
	if !v.Found {
		return RecommendSafe
	}
	if v.LastBreachDate != nil && now.Sub(*v.LastBreachDate) <= recentWindow {
		return RecommendImmediateAction
	}
	for _, b := range v.Breaches {
		if b.HasPassword {
			return RecommendImmediateAction
		}
	}
	return RecommendMonitor
}

func actionItems(rec, typ string) []string {
	switch rec {
	case RecommendImmediateAction:
		items := []string{
			"Change passwords for all affected accounts immediately.",
			"Enable two-factor authentication on affected accounts.",
			"Review recent account activity for unauthorized access.",
		}
		if typ == TypeDomain {
			items = append(items, "Force a credential reset for users on this domain.")
		}
		return items
	case RecommendMonitor:
		return []string{
			"Rotate passwords that may have been reused.",
			"Watch for phishing attempts referencing the exposed data.",
		}
	default:
		return []string{"No exposure found. Keep monitoring periodically."}
	}
}
