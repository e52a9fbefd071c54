// Package livetail runs the correlator over a single line-framed stream.
// Lines prefixed "Q: " register a standing query and are acknowledged with
// "ACK: <query>; ID=<id>". Lines prefixed "L: " are log documents; every log
// that matches at least one query is echoed as "M: <log>; Q=<ids>" with the
// query ids ascending. A query that matches logs already seen produces one
// "M:" line per such log after its ACK.
package livetail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/query"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/sink"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
)

const (
	QueryPrefix = "Q:"
	LogPrefix   = "L:"

	defaultMaxLineBytes = 1 << 20
)

// Processor consumes framed lines and writes the acknowledgement and match
// transcript. It is not safe for concurrent use.
type Processor struct {
	corr         *correlator.Correlator
	matches      *sink.Collector
	out          *bufio.Writer
	maxLineBytes int
	skipped      int
	extra        correlator.Sink
	corrOpts     []correlator.Option
	logger       *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMaxLineBytes bounds the length of a single input line.
func WithMaxLineBytes(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxLineBytes = n
		}
	}
}

// WithSink forwards every match to s as well as to the transcript.
func WithSink(s correlator.Sink) Option {
	return func(p *Processor) { p.extra = s }
}

// WithCorrelatorOptions passes tokenizer, metrics or logger options to the
// underlying correlator.
func WithCorrelatorOptions(opts ...correlator.Option) Option {
	return func(p *Processor) { p.corrOpts = append(p.corrOpts, opts...) }
}

// New builds a Processor writing its transcript to w.
func New(w io.Writer, opts ...Option) (*Processor, error) {
	if w == nil {
		return nil, apperrors.InvalidArgumentf("livetail requires an output writer")
	}
	p := &Processor{
		matches:      sink.NewCollector(),
		out:          bufio.NewWriter(w),
		maxLineBytes: defaultMaxLineBytes,
		logger:       slog.Default().With("component", "livetail"),
	}
	for _, opt := range opts {
		opt(p)
	}
	var target correlator.Sink = p.matches
	if p.extra != nil {
		target = sink.NewMulti(
			sink.Named{Name: "transcript", Sink: p.matches},
			sink.Named{Name: "forward", Sink: p.extra},
		)
	}
	corr, err := correlator.New(target, p.corrOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating correlator: %w", err)
	}
	p.corr = corr
	return p, nil
}

// Correlator exposes the underlying engine.
func (p *Processor) Correlator() *correlator.Correlator {
	return p.corr
}

// Skipped returns the number of lines that carried neither prefix.
func (p *Processor) Skipped() int {
	return p.skipped
}

// Run processes every line of r until EOF or ctx is cancelled, flushing
// the transcript after each line.
func (p *Processor) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	initial := 64 * 1024
	if p.maxLineBytes < initial {
		initial = p.maxLineBytes
	}
	scanner.Buffer(make([]byte, 0, initial), p.maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ProcessLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// ProcessLine handles one framed line and flushes any output it produced.
func (p *Processor) ProcessLine(ctx context.Context, line string) error {
	line = strings.TrimRight(line, "\r")
	switch {
	case strings.HasPrefix(line, QueryPrefix):
		p.acceptQuery(ctx, strings.TrimSpace(line[len(QueryPrefix):]))
	case strings.HasPrefix(line, LogPrefix):
		p.acceptLog(ctx, strings.TrimSpace(line[len(LogPrefix):]))
	default:
		p.skipped++
		p.logger.Debug("skipping unframed line", "line", line)
		return nil
	}
	return p.out.Flush()
}

func (p *Processor) acceptQuery(ctx context.Context, text string) {
	id, err := p.corr.AcceptParsedQuery(ctx, query.ParseTerms(text, p.corr.Tokenizer()))
	if err != nil {
		p.logger.Warn("query match delivery failed", "query_id", id, "error", err)
	}
	fmt.Fprintf(p.out, "ACK: %s; ID=%d\n", text, id)
	for _, m := range p.matches.Drain() {
		fmt.Fprintf(p.out, "M: %s; Q=%d\n", m.Document.Raw, m.Query.ID)
	}
}

func (p *Processor) acceptLog(ctx context.Context, text string) {
	id, err := p.corr.AcceptDocument(ctx, text)
	if err != nil {
		p.logger.Warn("log match delivery failed", "doc_id", id, "error", err)
	}
	matched := p.matches.Drain()
	if len(matched) == 0 {
		return
	}
	ids := make([]string, len(matched))
	for i, m := range matched {
		ids[i] = strconv.FormatUint(uint64(m.Query.ID), 10)
	}
	fmt.Fprintf(p.out, "M: %s; Q=%s\n", text, strings.Join(ids, ","))
}

// Follow tails the file at path, processing lines as they are appended.
func (p *Processor) Follow(ctx context.Context, path string, pollInterval time.Duration) error {
	return NewFollower(path, pollInterval).Follow(ctx, func(line string) error {
		return p.ProcessLine(ctx, line)
	})
}
