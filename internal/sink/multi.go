package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
)

// Named attaches a label to a sink for logs and metrics.
type Named struct {
	Name string
	Sink correlator.Sink
}

// Multi fans every match out to all of its sinks in order. A failing sink
// does not stop delivery to the others.
type Multi struct {
	sinks []Named
}

func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) OnMatch(ctx context.Context, match correlator.Match) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.OnMatch(ctx, match); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of fan-out targets.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Router sends each match to the sink registered for its query type, or
// to the fallback. Matches with no route and no fallback are discarded.
type Router struct {
	routes   map[string]correlator.Sink
	fallback correlator.Sink
}

func NewRouter(fallback correlator.Sink) *Router {
	return &Router{routes: make(map[string]correlator.Sink), fallback: fallback}
}

// Route registers s for queries of type typ. Not safe to call once matches
// are flowing.
func (r *Router) Route(typ string, s correlator.Sink) *Router {
	r.routes[typ] = s
	return r
}

func (r *Router) OnMatch(ctx context.Context, m correlator.Match) error {
	if s, ok := r.routes[m.Query.Type]; ok {
		return s.OnMatch(ctx, m)
	}
	if r.fallback != nil {
		return r.fallback.OnMatch(ctx, m)
	}
	return nil
}
