// Package password checks secrets against breach corpora and scores their
// strength. The secret itself never leaves this package except to the
// full-query providers, and is never logged or cached.
package password

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"breachwatch/internal/cache"
	"breachwatch/internal/common"
	"breachwatch/internal/logging"
	"breachwatch/internal/provider"
)

// RangeSource answers the k-anonymity range query for a digest prefix.
type RangeSource interface {
	Name() string
	Range(ctx context.Context, prefix, suffix string) (provider.Finding, error)
}

// FullQuerySource receives the cleartext secret.
type FullQuerySource interface {
	Name() string
	CheckPassword(ctx context.Context, secret string) (provider.Finding, error)
}

// BreachVerdict is the merged result of a password check.
type BreachVerdict struct {
	Compromised     bool               `json:"compromised"`
	BreachCount     int                `json:"breach_count"`
	Sources         []string           `json:"sources"`
	Strength        StrengthAssessment `json:"strength"`
	Recommendations []string           `json:"recommendations"`
	CheckedAt       time.Time          `json:"checked_at"`
}

type CheckerConfig struct {
	Range    RangeSource
	Full     []FullQuerySource
	Cache    cache.Cache
	TTL      time.Duration
	Timeout  time.Duration
	Breakers *provider.Breakers
	Logger   *slog.Logger
}

// Checker runs password breach checks.
type Checker struct {
	rng      RangeSource
	full     []FullQuerySource
	cache    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	breakers *provider.Breakers
	log      *slog.Logger
	now      func() time.Time
}

func NewChecker(cfg CheckerConfig) *Checker {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Checker{
		rng:      cfg.Range,
		full:     cfg.Full,
		cache:    cfg.Cache,
		ttl:      cfg.TTL,
		timeout:  cfg.Timeout,
		breakers: cfg.Breakers,
		log:      logging.OrDiscard(cfg.Logger),
		now:      time.Now,
	}
}

// Digest returns the uppercase hex SHA-1 of secret with its 5 character
// range prefix and the remaining suffix.
func Digest(secret string) (full, prefix, suffix string) {
	sum := sha1.Sum([]byte(secret))
	full = strings.ToUpper(hex.EncodeToString(sum[:]))
	return full, full[:5], full[5:]
}

// CacheKey is the non-secret key a check for secret is stored under.
func CacheKey(secret string) string {
	full, _, _ := Digest(secret)
	return cache.PasswordKey(full)
}

// Check returns the verdict for secret, from cache when fresh. Provider
// failures count as not found; only validation and cache errors are returned.
func (c *Checker) Check(ctx context.Context, secret string) (BreachVerdict, error) {
	if secret == "" {
		return BreachVerdict{}, common.Invalid("password", "must not be empty")
	}

	full, prefix, suffix := Digest(secret)
	key := cache.PasswordKey(full)

	if c.cache != nil {
		v, ok, err := cache.GetJSON[BreachVerdict](ctx, c.cache, key)
		if err != nil {
			return BreachVerdict{}, fmt.Errorf("password: cache lookup: %w", err)
		}
		if ok {
			return v, nil
		}
	}

	var calls []provider.Call
	if c.rng != nil {
		rng := c.rng
		calls = append(calls, provider.Call{Name: rng.Name(), Fn: func(ctx context.Context) (provider.Finding, error) {
			return rng.Range(ctx, prefix, suffix)
		}})
	}
	for _, src := range c.full {
		src := src
		calls = append(calls, provider.Call{Name: src.Name(), Fn: func(ctx context.Context) (provider.Finding, error) {
			return src.CheckPassword(ctx, secret)
		}})
	}

	results := provider.Run(ctx, c.timeout, c.breakers.Wrap(calls))
	v := c.merge(results)
	v.Strength = AnalyzeStrength(secret)
	v.Recommendations = Recommendations(v.Compromised, v.Strength)
	v.CheckedAt = c.now().UTC()

	if c.cache != nil {
		stored, err := cache.PutSettled(ctx, c.cache, key, v, c.ttl)
		if err != nil {
			return BreachVerdict{}, fmt.Errorf("password: cache store: %w", err)
		}
		if !stored {
			c.log.Debug("verdict not cached, caller context done", "err", ctx.Err())
		}
	}

	if v.Compromised {
		c.log.Warn("password breach detected",
			"breach_count", v.BreachCount,
			"sources", v.Sources,
			"strength", v.Strength.Score,
		)
	}
	return v, nil
}

func (c *Checker) merge(results []provider.Result) BreachVerdict {
	v := BreachVerdict{Sources: []string{}}
	for _, r := range results {
		if r.Err != nil {
			c.log.Debug("provider unavailable", "provider", r.Finding.Provider, "err", r.Err)
			continue
		}
		f := r.Finding
		if !f.Found {
			continue
		}
		v.Compromised = true
		v.BreachCount += max(f.Count, 0)
		v.Sources = append(v.Sources, f.Provider)
	}
	return v
}
