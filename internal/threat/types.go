package threat

import (
	"context"
	"net/netip"
	"time"
)

// Indicator is a single blocklisted address or network.
type Indicator struct {
	Prefix    netip.Prefix
	Source    string
	FirstSeen time.Time
}

// Fetcher pulls indicators from one feed.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Indicator, error)
}

// Store persists indicators.
type Store interface {
	SaveIndicators(ctx context.Context, indicators []Indicator) error
}
