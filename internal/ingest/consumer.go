package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/kafka"
)

// HandleDocument returns a MessageHandler that accepts each record as a
// document. Undecodable or invalid records are logged and skipped so that
// one poison message cannot stall the partition. Sink failures are already
// logged by the correlator and do not block the commit: the document is
// stored and redelivery would register it twice.
func HandleDocument(c *correlator.Correlator) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest", "stream", "documents")
	return func(ctx context.Context, key []byte, value []byte) error {
		rec, err := kafka.DecodeJSON[DocumentRecord](value)
		if err != nil {
			logger.Error("failed to decode document record", "key", string(key), "error", err)
			return nil
		}
		if err := ValidateDocument(rec); err != nil {
			logger.Warn("rejecting document record", "key", string(key), "error", err)
			return nil
		}
		id, err := c.AcceptDocument(ctx, rec.Raw)
		if err != nil {
			logger.Warn("document accepted with delivery errors", "doc_id", id, "error", err)
			return nil
		}
		logger.Debug("document accepted", "doc_id", id, "key", string(key))
		return nil
	}
}

// HandleQuery returns a MessageHandler that registers each record as a
// standing query, with the same skip rules as HandleDocument.
func HandleQuery(c *correlator.Correlator) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest", "stream", "queries")
	return func(ctx context.Context, key []byte, value []byte) error {
		rec, err := kafka.DecodeJSON[QueryRecord](value)
		if err != nil {
			logger.Error("failed to decode query record", "key", string(key), "error", err)
			return nil
		}
		if err := ValidateQuery(rec); err != nil {
			logger.Warn("rejecting query record", "key", string(key), "error", err)
			return nil
		}
		parsed, err := rec.Resolve(c.Tokenizer())
		if err != nil {
			logger.Warn("rejecting query record", "key", string(key), "error", err)
			return nil
		}
		id, err := c.AcceptParsedQuery(ctx, parsed)
		if err != nil {
			logger.Warn("query accepted with delivery errors", "query_id", id, "error", err)
			return nil
		}
		logger.Debug("query accepted", "query_id", id, "key", string(key))
		return nil
	}
}

// Run consumes the document and query topics into c until ctx is
// cancelled. Topics left empty in cfg are not consumed.
func Run(ctx context.Context, cfg config.KafkaConfig, c *correlator.Correlator) error {
	logger := slog.Default().With("component", "ingest")
	g, ctx := errgroup.WithContext(ctx)

	start := func(topic string, handler kafka.MessageHandler) {
		if topic == "" {
			return
		}
		consumer := kafka.NewConsumer(cfg, topic, handler)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(ctx)
		})
	}
	start(cfg.Topics.Documents, HandleDocument(c))
	start(cfg.Topics.Queries, HandleQuery(c))

	logger.Info("kafka ingest started",
		"brokers", cfg.Brokers,
		"documents_topic", cfg.Topics.Documents,
		"queries_topic", cfg.Topics.Queries,
	)
	return g.Wait()
}
