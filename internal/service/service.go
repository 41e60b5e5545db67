// Package service ties the checkers to the audit trail and the alert pool.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"breachwatch/internal/alert"
	"breachwatch/internal/audit"
	"breachwatch/internal/cache"
	"breachwatch/internal/common"
	"breachwatch/internal/darkweb"
	"breachwatch/internal/logging"
	"breachwatch/internal/metrics"
	"breachwatch/internal/password"
	"breachwatch/internal/provider"
	"breachwatch/internal/redact"
	"breachwatch/internal/reputation"
)

type PasswordChecker interface {
	Check(ctx context.Context, secret string) (password.BreachVerdict, error)
}

type IPChecker interface {
	Check(ctx context.Context, ip string) (reputation.Verdict, error)
}

type DarkWebSearcher interface {
	Search(ctx context.Context, target, typ string) (darkweb.Verdict, error)
	MonitorEmail(ctx context.Context, email string) (darkweb.Monitoring, error)
	MonitorDomain(ctx context.Context, domain string) (darkweb.Monitoring, error)
}

// Alerter accepts events without blocking.
type Alerter interface {
	Submit(e alert.Event) bool
}

type Config struct {
	Passwords PasswordChecker
	IPs       IPChecker
	DarkWeb   DarkWebSearcher
	Audit     audit.Recorder
	Alerts    Alerter
	Logger    *slog.Logger
}

// Service runs checks, records them and raises alerts for positive verdicts.
// Audit and alert failures never fail a check.
type Service struct {
	passwords PasswordChecker
	ips       IPChecker
	darkweb   DarkWebSearcher
	audit     audit.Recorder
	alerts    Alerter
	log       *slog.Logger
}

func New(cfg Config) *Service {
	rec := cfg.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Service{
		passwords: cfg.Passwords,
		ips:       cfg.IPs,
		darkweb:   cfg.DarkWeb,
		audit:     rec,
		alerts:    cfg.Alerts,
		log:       logging.OrDiscard(cfg.Logger),
	}
}

// CheckPassword checks secret against the breach sources. The secret itself
// never reaches the audit trail, the logs or an alert.
func (s *Service) CheckPassword(ctx context.Context, secret string) (password.BreachVerdict, error) {
	ctx, finish := s.begin(ctx, common.CheckPassword)
	v, err := s.passwords.Check(ctx, secret)
	finish(v.Compromised, err)
	if err != nil {
		return v, err
	}

	_, prefix, _ := password.Digest(secret)
	s.record(ctx, audit.NewRecord(common.CheckPassword, password.CacheKey(secret), v.Compromised, map[string]any{
		"breach_count": v.BreachCount,
		"sources":      v.Sources,
		"strength":     v.Strength.Level,
	}))
	if v.Compromised {
		s.raise(alert.NewEvent(common.AlertPasswordBreach, map[string]any{
			alert.KeyDigestPrefix: prefix + "...",
			alert.KeyBreachCount:  v.BreachCount,
			alert.KeySources:      v.Sources,
			alert.KeyStrength:     v.Strength.Level,
		}))
	}
	return v, nil
}

func (s *Service) CheckIP(ctx context.Context, ip string) (reputation.Verdict, error) {
	ctx, finish := s.begin(ctx, common.CheckIP)
	v, err := s.ips.Check(ctx, ip)
	finish(v.Suspicious, err)
	if err != nil {
		return v, err
	}

	s.record(ctx, audit.NewRecord(common.CheckIP, cache.IPKey(v.IP), v.Suspicious, map[string]any{
		"risk_score":      v.RiskScore,
		"reputation_tier": v.Tier,
		"threats":         v.Threats,
		"sources":         v.Sources,
	}))
	if v.Suspicious {
		s.raise(alert.NewEvent(common.AlertSuspiciousIP, map[string]any{
			alert.KeyIP:        v.IP,
			alert.KeyRiskScore: v.RiskScore,
			alert.KeyThreats:   v.Threats,
			alert.KeyLocation:  v.Location,
		}))
	}
	return v, nil
}

func (s *Service) SearchDarkWeb(ctx context.Context, target, typ string) (darkweb.Verdict, error) {
	ctx, finish := s.begin(ctx, common.CheckDarkWeb)
	v, err := s.darkweb.Search(ctx, target, typ)
	finish(v.Found, err)
	if err != nil {
		return v, err
	}
	s.afterDarkWeb(ctx, v)
	return v, nil
}

func (s *Service) MonitorEmail(ctx context.Context, email string) (darkweb.Monitoring, error) {
	return s.monitor(ctx, func(ctx context.Context) (darkweb.Monitoring, error) {
		return s.darkweb.MonitorEmail(ctx, email)
	})
}

func (s *Service) MonitorDomain(ctx context.Context, domain string) (darkweb.Monitoring, error) {
	return s.monitor(ctx, func(ctx context.Context) (darkweb.Monitoring, error) {
		return s.darkweb.MonitorDomain(ctx, domain)
	})
}

func (s *Service) monitor(ctx context.Context, fn func(context.Context) (darkweb.Monitoring, error)) (darkweb.Monitoring, error) {
	ctx, finish := s.begin(ctx, common.CheckDarkWeb)
	m, err := fn(ctx)
	finish(m.Verdict.Found, err)
	if err != nil {
		return m, err
	}
	s.afterDarkWeb(ctx, m.Verdict)
	return m, nil
}

func (s *Service) afterDarkWeb(ctx context.Context, v darkweb.Verdict) {
	s.record(ctx, audit.NewRecord(common.CheckDarkWeb, cache.DarkWebKey(v.Target, v.Type), v.Found, map[string]any{
		"type":           v.Type,
		"total_breaches": v.TotalBreaches,
		"sources":        v.Sources,
	}))
	if v.Found {
		s.raise(alert.NewEvent(common.AlertDarkWebBreach, map[string]any{
			alert.KeyQuery:         redact.Target(v.Target, v.Type),
			alert.KeyTotalBreaches: v.TotalBreaches,
			alert.KeySources:       v.Sources,
		}))
	}
}

// Recent returns recorded checks when the audit backend can be queried.
func (s *Service) Recent(ctx context.Context, kind common.CheckKind, limit int) ([]audit.Record, error) {
	store, ok := s.audit.(audit.Store)
	if !ok {
		return []audit.Record{}, nil
	}
	return store.Recent(ctx, kind, limit)
}

// begin starts the span and timer for a check. The returned func closes them
// and counts the outcome.
func (s *Service) begin(ctx context.Context, kind common.CheckKind) (context.Context, func(positive bool, err error)) {
	ctx, span := otel.Tracer(provider.TracerName).Start(ctx, "check."+string(kind),
		trace.WithAttributes(attribute.String("check.kind", string(kind))))
	start := time.Now()

	return ctx, func(positive bool, err error) {
		metrics.CheckDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		outcome := "negative"
		switch {
		case errors.Is(err, common.ErrValidation):
			outcome = "invalid"
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case positive:
			outcome = "positive"
		}
		metrics.ChecksTotal.WithLabelValues(string(kind), outcome).Inc()
		span.SetAttributes(attribute.String("check.outcome", outcome))
		span.End()
	}
}

func (s *Service) record(ctx context.Context, r audit.Record) {
	if err := s.audit.Record(ctx, r); err != nil {
		s.log.Error("audit record failed", "kind", r.Kind, "err", err)
	}
}

func (s *Service) raise(e alert.Event) {
	if s.alerts == nil {
		return
	}
	if !s.alerts.Submit(e) {
		s.log.Warn("alert dropped", "type", e.Type, "alert_id", e.ID)
	}
}
