package sink

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
)

// Collector accumulates matches in memory.
type Collector struct {
	mu      sync.Mutex
	matches []correlator.Match
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) OnMatch(_ context.Context, m correlator.Match) error {
	c.mu.Lock()
	c.matches = append(c.matches, m)
	c.mu.Unlock()
	return nil
}

// Matches returns a copy of everything collected so far.
func (c *Collector) Matches() []correlator.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]correlator.Match, len(c.matches))
	copy(out, c.matches)
	return out
}

// Drain returns the collected matches and forgets them.
func (c *Collector) Drain() []correlator.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.matches
	c.matches = nil
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

// Queue is a pull-based sink: matches are buffered on a channel the
// consumer reads from C. OnMatch blocks while the buffer is full, so
// per-accept ordering is kept and backpressure reaches the producer.
type Queue struct {
	ch     chan correlator.Match
	mu     sync.RWMutex
	closed bool

	// done is closed first by Close, releasing senders blocked on a full
	// buffer so the write lock can be taken.
	done      chan struct{}
	closeOnce sync.Once
}

func NewQueue(size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{ch: make(chan correlator.Match, size), done: make(chan struct{})}
}

func (q *Queue) OnMatch(ctx context.Context, m correlator.Match) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errQueueClosed()
	}
	select {
	case q.ch <- m:
		return nil
	case <-q.done:
		return errQueueClosed()
	case <-ctx.Done():
		return fmt.Errorf("queueing match q=%d d=%d: %w", m.Query.ID, m.Document.ID, ctx.Err())
	}
}

// C returns the channel matches are delivered on. It is closed by Close.
func (q *Queue) C() <-chan correlator.Match {
	return q.ch
}

func errQueueClosed() error {
	return apperrors.New(apperrors.ErrSinkUnavailable, http.StatusServiceUnavailable, "queue closed")
}

// Close stops accepting matches and closes C. Senders blocked on a full
// buffer return ErrSinkUnavailable; buffered matches stay readable from C.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
