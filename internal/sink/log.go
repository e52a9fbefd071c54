package sink

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/logger"
)

// Log writes one structured record per match.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLog logs matches at level on l, or on the default logger when l is nil.
func NewLog(l *slog.Logger, level slog.Level) *Log {
	if l == nil {
		l = slog.Default().With("component", "match-log")
	}
	return &Log{logger: l, level: level}
}

func (s *Log) OnMatch(ctx context.Context, m correlator.Match) error {
	attrs := []any{
		"query_id", m.Query.ID,
		"doc_id", m.Document.ID,
		"trigger", m.Trigger,
		"document", m.Document.Raw,
	}
	if m.Query.Type != "" {
		attrs = append(attrs, "query_type", m.Query.Type)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	s.logger.Log(ctx, s.level, "match", attrs...)
	return nil
}
