package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
)

// Async decouples the correlator from a slow sink. OnMatch enqueues onto a
// bounded buffer and returns immediately; a background goroutine delivers
// to the wrapped sink in enqueue order. When the buffer is full the match
// is dropped and counted.
type Async struct {
	name    string
	next    correlator.Sink
	matchCh chan correlator.Match
	metrics *metrics.Metrics
	logger  *slog.Logger

	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

func NewAsync(name string, next correlator.Sink, bufferSize int, m *metrics.Metrics) *Async {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Async{
		name:    name,
		next:    next,
		matchCh: make(chan correlator.Match, bufferSize),
		metrics: m,
		logger:  slog.Default().With("component", "async-sink", "sink", name),
		done:    make(chan struct{}),
	}
}

// Start launches the delivery loop. Cancelling ctx stops it after the
// buffered matches have been handed over with a short deadline; from then
// on OnMatch drops and counts every match as if Close had been called.
func (a *Async) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
		a.logger.Info("async sink started", "buffer_size", cap(a.matchCh))
	})
}

func (a *Async) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case m, ok := <-a.matchCh:
			if !ok {
				return
			}
			a.deliver(ctx, m)
		case <-ctx.Done():
			a.mu.Lock()
			a.closed = true
			a.mu.Unlock()
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			a.drainRemaining(drainCtx)
			cancel()
			return
		}
	}
}

func (a *Async) OnMatch(_ context.Context, m correlator.Match) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(m, "closed")
		return nil
	}
	select {
	case a.matchCh <- m:
	default:
		a.drop(m, "buffer full")
	}
	return nil
}

// Pending returns the number of buffered matches.
func (a *Async) Pending() int {
	return len(a.matchCh)
}

// Close stops accepting matches and waits for the buffer to be delivered.
// Start must have been called.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.matchCh)
		a.mu.Unlock()
	})
	<-a.done
}

func (a *Async) deliver(ctx context.Context, m correlator.Match) {
	if err := a.next.OnMatch(ctx, m); err != nil {
		a.logger.Error("async delivery failed",
			"query_id", m.Query.ID,
			"doc_id", m.Document.ID,
			"error", err,
		)
		if a.metrics != nil {
			a.metrics.SinkErrorsTotal.WithLabelValues(a.name).Inc()
		}
	}
}

func (a *Async) drop(m correlator.Match, reason string) {
	a.logger.Warn("match dropped", "reason", reason, "query_id", m.Query.ID, "doc_id", m.Document.ID)
	if a.metrics != nil {
		a.metrics.SinkDroppedTotal.WithLabelValues(a.name).Inc()
	}
}

func (a *Async) drainRemaining(ctx context.Context) {
	for {
		select {
		case m, ok := <-a.matchCh:
			if !ok {
				return
			}
			a.deliver(ctx, m)
		default:
			return
		}
	}
}
