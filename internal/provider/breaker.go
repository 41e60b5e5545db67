package provider

import (
	"context"
	"sync"
	"time"

	"breachwatch/internal/metrics"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a provider after maxFailures consecutive errors and
// lets a single probe through once cooldown has elapsed.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       BreakerState
}

// NewBreaker returns a closed breaker. maxFailures <= 0 disables tripping.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
		state:       BreakerClosed,
	}
}

func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.setState(BreakerHalfOpen)
			return true
		}
		return false
	default:
		// half-open: the probe is already in flight
		return false
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.setState(BreakerClosed)
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == BreakerHalfOpen || (b.maxFailures > 0 && b.failures >= b.maxFailures) {
		b.setState(BreakerOpen)
	}
}

// releaseProbe hands back a half-open probe whose outcome says nothing about
// provider health. The next call probes again.
func (b *Breaker) releaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.setState(BreakerOpen)
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(s BreakerState) {
	b.state = s
	if b.name != "" {
		metrics.BreakerState.WithLabelValues(b.name).Set(float64(s))
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Wrap guards call with the breaker. Missing credentials are configuration,
// not provider health, and do not count as failures.
func (b *Breaker) Wrap(call Call) Call {
	if b == nil {
		return call
	}
	fn := call.Fn
	return Call{
		Name: call.Name,
		Fn: func(ctx context.Context) (Finding, error) {
			if !b.Allow() {
				return Finding{}, ErrBreakerOpen
			}
			defer func() {
				if r := recover(); r != nil {
					b.RecordFailure()
					panic(r)
				}
			}()
			f, err := fn(ctx)
			switch {
			case err == nil:
				b.RecordSuccess()
			case isMissingCredential(err):
				b.releaseProbe()
			default:
				b.RecordFailure()
			}
			return f, err
		},
	}
}

// Breakers hands out one breaker per provider name.
type Breakers struct {
	maxFailures int
	cooldown    time.Duration

	mu  sync.Mutex
	all map[string]*Breaker
}

func NewBreakers(maxFailures int, cooldown time.Duration) *Breakers {
	return &Breakers{maxFailures: maxFailures, cooldown: cooldown, all: make(map[string]*Breaker)}
}

func (bs *Breakers) For(name string) *Breaker {
	if bs == nil {
		return nil
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.all[name]
	if !ok {
		b = NewBreaker(bs.maxFailures, bs.cooldown)
		b.name = name
		bs.all[name] = b
	}
	return b
}

// Wrap guards every call with its provider's breaker.
func (bs *Breakers) Wrap(calls []Call) []Call {
	if bs == nil {
		return calls
	}
	out := make([]Call, len(calls))
	for i, c := range calls {
		out[i] = bs.For(c.Name).Wrap(c)
	}
	return out
}
