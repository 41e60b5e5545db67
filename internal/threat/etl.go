package threat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"breachwatch/internal/logging"
)

// ETLController fetches every registered feed concurrently and saves what
// each returns.
type ETLController struct {
	fetchers []Fetcher
	store    Store
	log      *slog.Logger
}

func NewETLController(store Store, log *slog.Logger) *ETLController {
	return &ETLController{store: store, log: logging.OrDiscard(log)}
}

// Register adds a fetcher to the controller.
func (c *ETLController) Register(f Fetcher) {
	c.fetchers = append(c.fetchers, f)
}

// Run executes all fetchers. A failing feed does not stop the others; the
// joined errors are returned after every feed settled.
func (c *ETLController) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, f := range c.fetchers {
		wg.Add(1)
		go func(fetcher Fetcher) {
			defer wg.Done()
			indicators, err := fetcher.Fetch(ctx)
			if err == nil {
				err = c.store.SaveIndicators(ctx, indicators)
			}
			if err != nil {
				c.log.Error("feed failed", "source", fetcher.Name(), "err", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", fetcher.Name(), err))
				mu.Unlock()
				return
			}
			c.log.Info("feed loaded", "source", fetcher.Name(), "count", len(indicators))
		}(f)
	}
	wg.Wait()
	return errors.Join(errs...)
}
