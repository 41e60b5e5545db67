package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"breachwatch/internal/logging"
	"breachwatch/internal/metrics"
)

// Sender is what the pool hands events to.
type Sender interface {
	Dispatch(ctx context.Context, e Event) bool
}

// Pool runs dispatches off the request path on a fixed set of workers.
type Pool struct {
	sender  Sender
	jobs    chan Event
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines reading from a queue of queueSize events.
// Each dispatch runs under timeout.
func NewPool(sender Sender, workers, queueSize int, timeout time.Duration, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		sender:  sender,
		jobs:    make(chan Event, queueSize),
		timeout: timeout,
		log:     logging.OrDiscard(log),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues e without blocking. It returns false when the queue is
// full or the pool is closed; the event is dropped.
func (p *Pool) Submit(e Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.AlertsDropped.Inc()
		return false
	}
	select {
	case p.jobs <- e:
		return true
	default:
		metrics.AlertsDropped.Inc()
		p.log.Warn("alert queue full, dropping event", "type", e.Type, "alert_id", e.ID)
		return false
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for e := range p.jobs {
		p.dispatch(e)
	}
}

func (p *Pool) dispatch(e Event) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if !p.sender.Dispatch(ctx, e) {
		p.log.Warn("alert not delivered on every channel", "type", e.Type, "alert_id", e.ID)
	}
}
