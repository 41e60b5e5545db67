package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"breachwatch/internal/alert"
	"breachwatch/internal/audit"
	"breachwatch/internal/cache"
	"breachwatch/internal/config"
	"breachwatch/internal/darkweb"
	"breachwatch/internal/logging"
	"breachwatch/internal/password"
	"breachwatch/internal/policy"
	"breachwatch/internal/provider"
	"breachwatch/internal/reputation"
	"breachwatch/internal/sources"
	"breachwatch/internal/sqlite"
	"breachwatch/internal/threat"
)

// Runtime is a fully wired Service plus the resources it owns.
type Runtime struct {
	Service *Service
	Pool    *alert.Pool
	closers []func() error
}

// Close drains pending alerts and releases caches and databases.
func (r *Runtime) Close() error {
	if r.Pool != nil {
		r.Pool.Close()
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// Build assembles the sources, cache, checkers, audit store and alert pool
// described by cfg.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Runtime, error) {
	log = logging.OrDiscard(log)
	rt := &Runtime{}

	client := provider.NewHTTPClient(cfg.Providers.Timeout)
	breakers := provider.NewBreakers(cfg.Providers.BreakerFailures, cfg.Providers.BreakerCooldown)

	var db *sqlite.DB
	openDB := func(path string) (*sqlite.DB, error) {
		if db != nil {
			return db, nil
		}
		d, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		db = d
		rt.closers = append(rt.closers, d.Close)
		return d, nil
	}

	var store cache.Cache
	switch cfg.Cache.Backend {
	case "sqlite":
		d, err := openDB(cfg.Cache.Path)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("service: cache: %w", err)
		}
		if n, err := d.PurgeExpired(ctx); err != nil {
			log.Warn("cache purge failed", "err", err)
		} else if n > 0 {
			log.Info("purged expired cache entries", "count", n)
		}
		store = d
	default:
		m := cache.NewMemory(cache.MemoryOptions{MaxEntries: cfg.Cache.MaxEntries})
		rt.closers = append(rt.closers, m.Close)
		store = m
	}
	store = cache.NewInstrumented(store)

	var rec audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		if db != nil && cfg.Audit.Path != cfg.Cache.Path {
			// the audit trail lives in its own file
			d, err := sqlite.Open(cfg.Audit.Path)
			if err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("service: audit: %w", err)
			}
			rt.closers = append(rt.closers, d.Close)
			rec = d
		} else {
			d, err := openDB(cfg.Audit.Path)
			if err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("service: audit: %w", err)
			}
			rec = d
		}
	}

	opts := func(name, key string) sources.Options {
		if key == "" && name != "hibp" && name != "ipapi" {
			log.Info("provider has no credential and will report unavailable", "provider", name)
		}
		return sources.Options{APIKey: key, BaseURL: cfg.BaseURL(name, ""), Client: client}
	}
	dehashed := sources.NewDeHashed(opts("dehashed", cfg.APIs.DeHashed))

	checker := password.NewChecker(password.CheckerConfig{
		Range: sources.NewHIBPRange(opts("hibp", cfg.APIs.HIBP), cfg.Providers.RequireRangeAuth),
		Full: []password.FullQuerySource{
			dehashed,
			sources.NewLeakCheck(opts("leakcheck", cfg.APIs.LeakCheck)),
		},
		Cache:    store,
		TTL:      cfg.Cache.TTL.PasswordCheck,
		Timeout:  cfg.Providers.Timeout,
		Breakers: breakers,
		Logger:   log,
	})

	ipSources := []reputation.Source{
		sources.NewAbuseIPDB(opts("abuseipdb", cfg.APIs.AbuseIPDB)),
		sources.NewIPQS(opts("ipqs", cfg.APIs.IPQS), sources.IPQSChecks{
			Proxy: cfg.IPReputation.CheckProxy,
			VPN:   cfg.IPReputation.CheckVPN,
			Tor:   cfg.IPReputation.CheckTor,
			Bot:   cfg.IPReputation.CheckBot,
		}),
		sources.NewVirusTotal(opts("virustotal", cfg.APIs.VirusTotal)),
	}
	if path := cfg.IPReputation.BlocklistPath; path != "" {
		bl, err := threat.LoadFile(ctx, path)
		if err != nil {
			log.Warn("blocklist not loaded", "path", path, "err", err)
		} else {
			log.Info("blocklist loaded", "path", path, "entries", bl.Len())
			ipSources = append(ipSources, sources.NewBlocklist(bl, cfg.IPReputation.BlocklistScore))
		}
	}

	scorer := reputation.NewScorer(reputation.ScorerConfig{
		Sources:   ipSources,
		Locator:   sources.NewIPAPI(opts("ipapi", "")),
		Geo:       policy.NewGeoPolicy(cfg.IPReputation.GeoRestrictions),
		Threshold: cfg.IPReputation.SuspiciousThreshold,
		Cache:     store,
		TTL:       cfg.Cache.TTL.IPCheck,
		Timeout:   cfg.Providers.Timeout,
		Breakers:  breakers,
		Logger:    log,
	})

	aggregator := darkweb.NewAggregator(darkweb.AggregatorConfig{
		Sources: []darkweb.Source{
			dehashed,
			sources.NewGhostProject(opts("ghostproject", cfg.APIs.GhostProject)),
		},
		MaxResults: cfg.DarkWeb.MaxResults,
		Cache:      store,
		TTL:        cfg.Cache.TTL.DarkWeb,
		Timeout:    cfg.Providers.Timeout,
		Breakers:   breakers,
		Logger:     log,
	})

	dispatcher := alert.FromConfig(cfg.Alerts, client, log)
	log.Info("alert channels", "enabled", dispatcher.Channels())
	rt.Pool = alert.NewPool(dispatcher, cfg.Alerts.Workers, cfg.Alerts.QueueSize, cfg.Alerts.Timeout, log)

	rt.Service = New(Config{
		Passwords: checker,
		IPs:       scorer,
		DarkWeb:   aggregator,
		Audit:     rec,
		Alerts:    rt.Pool,
		Logger:    log,
	})
	return rt, nil
}
