// Command livetail correlates a single line-framed stream of queries and
// log lines. Input comes from stdin, a file, or a file followed as it
// grows; acknowledgements and matches are written to stdout and
// diagnostics to stderr.
//
// Usage:
//
//	go run ./cmd/livetail [-config path] [-input app.log] [-follow] < stream.txt
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/livetail"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	input := flag.String("input", "", `input file, or "-" for stdin (overrides liveTail.input)`)
	follow := flag.Bool("follow", false, "keep reading the input file as it grows")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.LiveTail.Input = *input
	}
	if *follow {
		cfg.LiveTail.Follow = true
	}

	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.LiveTail, cfg.Correlator, os.Stdin, os.Stdout); err != nil {
		slog.Error("livetail failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lt config.LiveTailConfig, cc config.CorrelatorConfig, stdin io.Reader, stdout io.Writer) error {
	p, err := livetail.New(stdout,
		livetail.WithMaxLineBytes(lt.MaxLineBytes),
		livetail.WithSink(sink.NewLog(nil, slog.LevelDebug)),
		livetail.WithCorrelatorOptions(correlator.WithTokenizer(tokenizer.New(cc.Delimiters))),
	)
	if err != nil {
		return err
	}
	defer func() {
		stats := p.Correlator().Stats()
		slog.Info("livetail finished",
			"documents", stats.Documents,
			"queries", stats.Queries,
			"skipped_lines", p.Skipped(),
		)
	}()

	switch {
	case lt.Input == "" || lt.Input == "-":
		if lt.Follow {
			return errors.New("-follow requires a file input")
		}
		err = p.Run(ctx, stdin)
	case lt.Follow:
		slog.Info("following file", "path", lt.Input, "poll_interval", lt.PollInterval)
		err = p.Follow(ctx, lt.Input, lt.PollInterval)
	default:
		f, openErr := os.Open(lt.Input)
		if openErr != nil {
			return fmt.Errorf("opening input: %w", openErr)
		}
		defer f.Close()
		err = p.Run(ctx, f)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
