// Package darkweb searches leak indexes for an email address or domain.
package darkweb

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"breachwatch/internal/cache"
	"breachwatch/internal/common"
	"breachwatch/internal/logging"
	"breachwatch/internal/provider"
	"breachwatch/internal/redact"
)

const (
	TypeEmail  = "email"
	TypeDomain = "domain"
)

// Source is a leak index.
type Source interface {
	Name() string
	Search(ctx context.Context, target, typ string, limit int) (provider.Finding, error)
}

// Verdict is the merged search result. TotalBreaches sums the providers'
// reported counts and is not tied to len(Breaches).
type Verdict struct {
	Target         string                  `json:"query"`
	Type           string                  `json:"type"`
	Found          bool                    `json:"found"`
	Breaches       []provider.BreachRecord `json:"breaches"`
	TotalBreaches  int                     `json:"total_breaches"`
	LastBreachDate *time.Time              `json:"last_breach_date"`
	Sources        []string                `json:"sources"`
	CheckedAt      time.Time               `json:"checked_at"`
}

type AggregatorConfig struct {
	Sources    []Source
	MaxResults int
	Cache      cache.Cache
	TTL        time.Duration
	Timeout    time.Duration
	Breakers   *provider.Breakers
	Logger     *slog.Logger
}

type Aggregator struct {
	sources    []Source
	maxResults int
	cache      cache.Cache
	ttl        time.Duration
	timeout    time.Duration
	breakers   *provider.Breakers
	log        *slog.Logger
	now        func() time.Time
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Aggregator{
		sources:    cfg.Sources,
		maxResults: cfg.MaxResults,
		cache:      cfg.Cache,
		ttl:        cfg.TTL,
		timeout:    cfg.Timeout,
		breakers:   cfg.Breakers,
		log:        logging.OrDiscard(cfg.Logger),
		now:        time.Now,
	}
}

// Normalize validates target for typ (empty typ means email) and returns the
// canonical target and type used for lookups and cache keys.
func Normalize(target, typ string) (string, string, error) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = TypeEmail
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", common.Invalid("query", "must not be empty")
	}

	switch typ {
	case TypeEmail:
		addr, err := mail.ParseAddress(target)
		if err != nil || addr.Address != target {
			return "", "", common.Invalid("email", "not a valid email address")
		}
		return strings.ToLower(addr.Address), typ, nil
	case TypeDomain:
		d, err := normalizeDomain(target)
		if err != nil {
			return "", "", err
		}
		return d, typ, nil
	default:
		return "", "", common.Invalid("type", "must be email or domain")
	}
}

// normalizeDomain reduces a host or URL to its registrable domain, falling
// back to the host itself when the public suffix list has no answer.
func normalizeDomain(raw string) (string, error) {
	host := strings.ToLower(raw)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", common.Invalid("domain", "not a valid domain")
		}
		host = u.Hostname()
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || strings.ContainsAny(host, " /@:") || !strings.Contains(host, ".") {
		return "", common.Invalid("domain", "not a valid domain")
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	return registrable, nil
}

// Search queries every leak index for target. Only validation and cache
// errors are returned.
func (a *Aggregator) Search(ctx context.Context, target, typ string) (Verdict, error) {
	target, typ, err := Normalize(target, typ)
	if err != nil {
		return Verdict{}, err
	}
	key := cache.DarkWebKey(target, typ)

	if a.cache != nil {
		v, ok, err := cache.GetJSON[Verdict](ctx, a.cache, key)
		if err != nil {
			return Verdict{}, fmt.Errorf("darkweb: cache lookup: %w", err)
		}
		if ok {
			return v, nil
		}
	}

	calls := make([]provider.Call, 0, len(a.sources))
	for _, src := range a.sources {
		src := src
		calls = append(calls, provider.Call{Name: src.Name(), Fn: func(ctx context.Context) (provider.Finding, error) {
			return src.Search(ctx, target, typ, a.maxResults)
		}})
	}

	results := provider.Run(ctx, a.timeout, a.breakers.Wrap(calls))
	v := a.merge(results)
	v.Target = target
	v.Type = typ
	v.CheckedAt = a.now().UTC()

	if a.cache != nil {
		stored, err := cache.PutSettled(ctx, a.cache, key, v, a.ttl)
		if err != nil {
			return Verdict{}, fmt.Errorf("darkweb: cache store: %w", err)
		}
		if !stored {
			a.log.Debug("verdict not cached, caller context done", "err", ctx.Err())
		}
	}

	if v.Found {
		a.log.Warn("dark web exposure found",
			"target", redact.Target(v.Target, v.Type),
			"type", v.Type,
			"total_breaches", v.TotalBreaches,
			"sources", v.Sources,
		)
	}
	return v, nil
}

func (a *Aggregator) merge(results []provider.Result) Verdict {
	v := Verdict{Breaches: []provider.BreachRecord{}, Sources: []string{}}
	for _, r := range results {
		if r.Err != nil {
			a.log.Debug("provider unavailable", "provider", r.Finding.Provider, "err", r.Err)
			continue
		}
		f := r.Finding
		if !f.Found {
			continue
		}
		v.Found = true
		v.Breaches = append(v.Breaches, f.Records...)
		v.TotalBreaches += max(f.Count, 0)
		v.Sources = append(v.Sources, f.Provider)
		v.LastBreachDate = later(v.LastBreachDate, f.OccurredAt)
		for _, b := range f.Records {
			v.LastBreachDate = later(v.LastBreachDate, b.Date)
		}
	}
	return v
}

// later returns a copy of the later of two optional dates.
func later(cur, t *time.Time) *time.Time {
	if t == nil || (cur != nil && !t.After(*cur)) {
		return cur
	}
	d := *t
	return &d
}
