package cache

import (
	"context"
	"time"

	"breachwatch/internal/metrics"
)

// Instrumented records hit, miss and error counters for the wrapped cache.
type Instrumented struct {
	next Cache
}

func NewInstrumented(next Cache) *Instrumented {
	return &Instrumented{next: next}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	class := Class(key)
	v, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheErrors.WithLabelValues(class, "get").Inc()
	case ok:
		metrics.CacheHits.WithLabelValues(class).Inc()
	default:
		metrics.CacheMisses.WithLabelValues(class).Inc()
	}
	return v, ok, err
}

func (c *Instrumented) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.next.Put(ctx, key, value, ttl)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(Class(key), "put").Inc()
	}
	return err
}
