package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
)

// MatchesSchema creates the table the Postgres sink writes to.
var MatchesSchema = []string{
	`CREATE TABLE IF NOT EXISTS correlator_matches (
		id          BIGSERIAL PRIMARY KEY,
		query_id    BIGINT      NOT NULL,
		query_type  TEXT        NOT NULL DEFAULT '',
		query       TEXT        NOT NULL,
		doc_id      BIGINT      NOT NULL,
		document    TEXT        NOT NULL,
		trigger     TEXT        NOT NULL,
		matched_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS correlator_matches_query_idx ON correlator_matches (query_id, doc_id)`,
}

const insertMatch = `INSERT INTO correlator_matches
	(query_id, query_type, query, doc_id, document, trigger, matched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// TxRunner is satisfied by *postgres.Client.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Postgres appends every match to the correlator_matches table.
type Postgres struct {
	db TxRunner
}

func NewPostgres(db TxRunner) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) OnMatch(ctx context.Context, m correlator.Match) error {
	args := insertArgs(NewEvent(m))
	return p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertMatch, args...); err != nil {
			return fmt.Errorf("inserting match q=%d d=%d: %w", m.Query.ID, m.Document.ID, err)
		}
		return nil
	})
}

func insertArgs(ev Event) []any {
	return []any{
		int64(ev.QueryID),
		ev.QueryType,
		ev.Query,
		int64(ev.DocID),
		ev.Document,
		ev.Trigger,
		ev.MatchedAt,
	}
}
