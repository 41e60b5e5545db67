package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"breachwatch/internal/metrics"
)

func TestBreakerTripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one probe while half-open")

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(time.Second)
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerWrap(t *testing.T) {
	calls := 0
	bs := NewBreakers(1, time.Hour)
	call := bs.For("abuseipdb").Wrap(Call{Name: "abuseipdb", Fn: func(ctx context.Context) (Finding, error) {
		calls++
		return Finding{}, errors.New("503")
	}})

	_, err := call.Fn(context.Background())
	assert.Error(t, err)
	_, err = call.Fn(context.Background())
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 1, calls)

	results := Run(context.Background(), time.Second, []Call{call})
	assert.ErrorIs(t, results[0].Err, ErrUnavailable)
	assert.Same(t, bs.For("abuseipdb"), bs.For("abuseipdb"))
}

func TestBreakerIgnoresMissingCredential(t *testing.T) {
	b := NewBreaker(1, time.Hour)
	call := b.Wrap(Call{Name: "ipqs", Fn: func(ctx context.Context) (Finding, error) {
		return Finding{}, fmt.Errorf("ipqs: %w", ErrMissingCredential)
	}})

	_, _ = call.Fn(context.Background())
	_, _ = call.Fn(context.Background())
	assert.Equal(t, BreakerClosed, b.State())
}

func TestNilBreakersPassThrough(t *testing.T) {
	var bs *Breakers
	calls := []Call{{Name: "x"}}
	assert.Equal(t, len(calls), len(bs.Wrap(calls)))
}

func TestBreakerPanickingProbeReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bs := NewBreakers(1, time.Hour)
	b := bs.For("panicky")
	b.now = func() time.Time { return now }

	calls := 0
	fail := true
	call := b.Wrap(Call{Name: "panicky", Fn: func(ctx context.Context) (Finding, error) {
		calls++
		if fail {
			panic("adapter bug")
		}
		return Finding{Provider: "panicky"}, nil
	}})

	res := Run(context.Background(), time.Second, []Call{call})
	assert.ErrorIs(t, res[0].Err, ErrUnavailable)
	assert.Equal(t, BreakerOpen, b.State())
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(metrics.BreakerState.WithLabelValues("panicky")))

	// the half-open probe panics too and must not wedge the breaker
	now = now.Add(time.Hour)
	Run(context.Background(), time.Second, []Call{call})
	assert.Equal(t, BreakerOpen, b.State())

	now = now.Add(time.Hour)
	fail = false
	res = Run(context.Background(), time.Second, []Call{call})
	assert.NoError(t, res[0].Err)
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 3, calls)
	assert.Equal(t, float64(BreakerClosed), testutil.ToFloat64(metrics.BreakerState.WithLabelValues("panicky")))
}

func TestBreakerMissingCredentialReleasesProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(time.Minute)

	call := b.Wrap(Call{Name: "leakcheck", Fn: func(ctx context.Context) (Finding, error) {
		return Finding{}, fmt.Errorf("leakcheck: %w", ErrMissingCredential)
	}})
	_, err := call.Fn(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.NotEqual(t, BreakerHalfOpen, b.State())
	assert.True(t, b.Allow(), "next call probes again")
}
