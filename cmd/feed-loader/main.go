// Command feed-loader pulls the configured IP blocklist feeds once and writes
// the merged list to the blocklist path read by the reputation scorer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"breachwatch/internal/config"
	"breachwatch/internal/logging"
	"breachwatch/internal/provider"
	"breachwatch/internal/threat"
)

func main() {
	if err := run(); err != nil {
		slog.Error("feed load failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("BW_CONFIG"), "path to a YAML config file")
	out := flag.String("out", "", "blocklist output path (defaults to ip_reputation.blocklist_path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging)

	path := *out
	if path == "" {
		path = cfg.IPReputation.BlocklistPath
	}
	if path == "" {
		return fmt.Errorf("no blocklist path configured")
	}
	if len(cfg.Feeds.Sources) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	store := threat.NewFileStore(path)
	controller := threat.NewETLController(store, log)
	client := provider.NewHTTPClient(cfg.Feeds.Timeout)
	for _, src := range cfg.Feeds.Sources {
		controller.Register(threat.NewHTTPFeed(src.Name, src.URL, client))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Feeds.Timeout)
	defer cancel()

	// partial feeds still produce a usable list
	if err := controller.Run(ctx); err != nil {
		if store.Len() == 0 {
			return err
		}
		log.Error("etl run incomplete", "err", err)
	}

	n, err := store.Flush()
	if err != nil {
		return err
	}
	log.Info("blocklist written", "path", path, "entries", n)
	return nil
}
