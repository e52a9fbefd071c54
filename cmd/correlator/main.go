// Command correlator runs the streaming correlation engine as a service.
//
// Documents and standing queries arrive over HTTP and, optionally, from
// Kafka topics. Every match is fanned out to the configured sinks: the
// structured log, a WebSocket stream, a Kafka topic, a Redis channel and a
// PostgreSQL table. External sinks are retried behind a circuit breaker
// and buffered so a slow dependency never holds up the correlator.
//
// Usage:
//
//	go run ./cmd/correlator [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting correlator service",
		"port", cfg.Server.Port,
		"kafka_ingest", cfg.Kafka.Ingest,
		"sinks", enabledSinks(cfg.Sinks),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("correlator service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("correlator service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	checker := health.NewChecker()

	sinks, cleanup, err := buildSinks(ctx, cfg, m, checker)
	defer cleanup()
	if err != nil {
		return err
	}

	var ws *sink.WebSocket
	if cfg.Sinks.WebSocket {
		ws = sink.NewWebSocket(m)
		defer ws.Close()
		sinks = append(sinks, sink.Named{Name: "websocket", Sink: ws})
	}

	corr, err := correlator.New(sink.NewMulti(sinks...),
		correlator.WithTokenizer(tokenizer.New(cfg.Correlator.Delimiters)),
		correlator.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("creating correlator: %w", err)
	}

	routerCfg := api.RouterConfig{
		Health:         checker,
		Metrics:        m,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if ws != nil {
		routerCfg.Stream = ws
	}
	if cfg.Server.RateLimit > 0 {
		routerCfg.Limiter = middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
	}
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     api.NewRouter(api.NewHandler(corr), routerCfg),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("correlator service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error { return metrics.Serve(ctx, cfg.Metrics.Port) })
	}
	if cfg.Kafka.Ingest {
		g.Go(func() error { return ingest.Run(ctx, cfg.Kafka, corr) })
	}
	return g.Wait()
}

// buildSinks connects every enabled external sink. The returned cleanup
// flushes buffered matches and closes connections and is safe to call
// even when err is non-nil.
func buildSinks(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) ([]sink.Named, func(), error) {
	var sinks []sink.Named
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	policy := retryPolicy(cfg.Sinks)

	if cfg.Sinks.Log {
		sinks = append(sinks, sink.Named{Name: "log", Sink: sink.NewLog(logger.WithComponent("match-log"), slog.LevelInfo)})
	}

	external := func(name string, s correlator.Sink) {
		retrying := sink.NewRetrying(name, s, policy, m)
		async := sink.NewAsync(name, retrying, cfg.Sinks.BufferSize, m)
		async.Start(ctx)
		closers = append(closers, async.Close)
		checker.Register(name+"-breaker", breakerCheck(retrying))
		sinks = append(sinks, sink.Named{Name: name, Sink: async})
	}

	if cfg.Sinks.Kafka {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Matches)
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				slog.Error("closing kafka producer", "error", err)
			}
		})
		external("kafka", sink.NewKafka(producer))
	}

	if cfg.Sinks.Redis {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		checker.Register("redis", health.DegradedOnError(client.Ping))
		external("redis", sink.NewRedis(client, cfg.Redis.MatchesChannel))
	}

	if cfg.Sinks.Postgres {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to postgres: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		if err := db.Migrate(ctx, sink.MatchesSchema...); err != nil {
			return nil, cleanup, err
		}
		checker.Register("postgres", health.DegradedOnError(db.Ping))
		external("postgres", sink.NewPostgres(db))
	}

	return sinks, cleanup, nil
}

func retryPolicy(cfg config.SinksConfig) sink.RetryPolicy {
	return sink.RetryPolicy{
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout,
		},
		AttemptTimeout: cfg.Retry.AttemptTimeout,
	}
}

// breakerCheck reports an open breaker as degraded; matches for that sink
// are being dropped but the correlator keeps serving.
func breakerCheck(r *sink.Retrying) health.Check {
	return health.DegradedOnError(func(context.Context) error {
		if state := r.State(); state != resilience.StateClosed {
			return fmt.Errorf("circuit breaker %s", state)
		}
		return nil
	})
}

func enabledSinks(cfg config.SinksConfig) []string {
	var names []string
	for _, s := range []struct {
		name string
		on   bool
	}{
		{"log", cfg.Log},
		{"kafka", cfg.Kafka},
		{"redis", cfg.Redis},
		{"postgres", cfg.Postgres},
		{"websocket", cfg.WebSocket},
	} {
		if s.on {
			names = append(names, s.name)
		}
	}
	return names
}
