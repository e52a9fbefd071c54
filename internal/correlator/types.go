// Package correlator joins two interleaved streams, documents and standing
// queries, and reports every (query, document) pair where the document
// contains all of the query's required terms, regardless of which of the
// two arrived first.
//
// Documents are indexed term → document ids and queries term → query ids.
// A new document unions the query postings of its terms to get candidate
// queries and verifies each one. A new query intersects the document
// postings of its required terms; every survivor is an exact match.
// Queries without required terms live in a match-all set consulted on
// every document.
package correlator

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
)

// Document is an accepted line from the primary stream. Immutable once
// stored.
type Document struct {
	ID    uint32            `json:"id"`
	Raw   string            `json:"raw"`
	Terms tokenizer.TermSet `json:"-"`
}

// Query is a standing filter. Type is opaque to the correlator and only
// travels to sinks.
type Query struct {
	ID    uint32            `json:"id"`
	Type  string            `json:"type,omitempty"`
	Raw   string            `json:"raw"`
	Terms tokenizer.TermSet `json:"-"`
}

// Trigger names the arrival that produced a match.
type Trigger string

const (
	TriggerDocument Trigger = "document"
	TriggerQuery    Trigger = "query"
)

// Match is a verified (query, document) pair.
type Match struct {
	Query    Query    `json:"query"`
	Document Document `json:"document"`
	Trigger  Trigger  `json:"trigger"`
}

// Sink receives matches. OnMatch is invoked once per verified pair, outside
// the correlator's lock, in the order the matches were computed.
type Sink interface {
	OnMatch(ctx context.Context, m Match) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, m Match) error

func (f SinkFunc) OnMatch(ctx context.Context, m Match) error {
	return f(ctx, m)
}
