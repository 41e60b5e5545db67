package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breachwatch/internal/metrics"
)

// Call is a single provider invocation inside a fan-out.
type Call struct {
	Name string
	Fn   func(ctx context.Context) (Finding, error)
}

// Run executes every call concurrently, each under its own timeout, and
// returns one Result per call in invocation order. A call that fails, panics
// or misses its deadline yields NotFound with an unavailable error; a late
// answer is discarded.
func Run(ctx context.Context, timeout time.Duration, calls []Call) []Result {
	results := make([]Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Call) {
			defer wg.Done()
			results[i] = runOne(ctx, timeout, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, timeout time.Duration, call Call) Result {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type answer struct {
		finding Finding
		err     error
	}
	done := make(chan answer, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- answer{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		f, err := call.Fn(callCtx)
		done <- answer{finding: f, err: err}
	}()

	var (
		a       answer
		outcome string
	)
	select {
	case a = <-done:
	case <-callCtx.Done():
		a = answer{err: callCtx.Err()}
	}
	metrics.ProviderDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())

	switch {
	case a.err == nil:
		outcome = "ok"
	case errors.Is(a.err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(a.err, ErrBreakerOpen):
		outcome = "breaker_open"
	default:
		outcome = "unavailable"
	}
	metrics.ProviderCalls.WithLabelValues(call.Name, outcome).Inc()

	if a.err != nil {
		return Result{Finding: NotFound(call.Name), Err: Unavailable(call.Name, a.err)}
	}
	a.finding.Provider = call.Name
	return Result{Finding: a.finding}
}
