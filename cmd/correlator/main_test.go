package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/config"
)

func TestRetryPolicyUsesAttemptTimeout(t *testing.T) {
	cfg := config.SinksConfig{
		Retry: config.RetryConfig{
			MaxAttempts:    4,
			InitialDelay:   10 * time.Millisecond,
			MaxDelay:       30 * time.Second,
			AttemptTimeout: 500 * time.Millisecond,
		},
		Breaker: config.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute},
	}

	p := retryPolicy(cfg)
	assert.Equal(t, 500*time.Millisecond, p.AttemptTimeout)
	assert.Equal(t, 30*time.Second, p.Retry.MaxDelay)
	assert.Equal(t, 4, p.Retry.MaxAttempts)
	assert.Equal(t, 2, p.Breaker.FailureThreshold)
}

func TestEnabledSinks(t *testing.T) {
	assert.Equal(t, []string{"log", "redis", "websocket"},
		enabledSinks(config.SinksConfig{Log: true, Redis: true, WebSocket: true}))
	assert.Empty(t, enabledSinks(config.SinksConfig{}))
}
