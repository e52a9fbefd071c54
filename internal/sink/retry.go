package sink

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/resilience"
)

// RetryPolicy configures Retrying.
type RetryPolicy struct {
	Retry          resilience.RetryConfig
	Breaker        resilience.CircuitBreakerConfig
	AttemptTimeout time.Duration
}

// Retrying retries a flaky external sink with exponential backoff behind a
// circuit breaker. Once the breaker opens, matches fail fast until the
// reset timeout elapses.
type Retrying struct {
	name    string
	next    correlator.Sink
	policy  RetryPolicy
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

func NewRetrying(name string, next correlator.Sink, policy RetryPolicy, m *metrics.Metrics) *Retrying {
	if m != nil {
		hook := policy.Breaker.OnStateChange
		policy.Breaker.OnStateChange = func(breaker string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(breaker).Set(float64(to))
			if hook != nil {
				hook(breaker, to)
			}
		}
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(resilience.StateClosed))
	}
	return &Retrying{
		name:    name,
		next:    next,
		policy:  policy,
		breaker: resilience.NewCircuitBreaker(name, policy.Breaker),
		metrics: m,
	}
}

func (r *Retrying) OnMatch(ctx context.Context, m correlator.Match) error {
	err := resilience.Retry(ctx, r.name, r.policy.Retry, func() error {
		return r.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, r.policy.AttemptTimeout, r.name, func(ctx context.Context) error {
				return r.next.OnMatch(ctx, m)
			})
		})
	})
	if err != nil && r.metrics != nil {
		r.metrics.SinkErrorsTotal.WithLabelValues(r.name).Inc()
	}
	return err
}

// State exposes the breaker state for health checks.
func (r *Retrying) State() resilience.State {
	return r.breaker.GetState()
}
