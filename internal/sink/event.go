// Package sink delivers correlator matches to consumers: in-process
// collectors and queues, structured logs, Kafka, Redis pub/sub, Postgres
// and WebSocket subscribers. Wrappers add fan-out, routing by query type,
// asynchronous buffering and retry behind a circuit breaker.
package sink

import (
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
)

// Event is the wire form of a match shared by every external sink.
type Event struct {
	QueryID   uint32    `json:"query_id"`
	QueryType string    `json:"query_type,omitempty"`
	Query     string    `json:"query"`
	DocID     uint32    `json:"doc_id"`
	Document  string    `json:"document"`
	Trigger   string    `json:"trigger"`
	MatchedAt time.Time `json:"matched_at"`
}

// NewEvent flattens m, stamping it with the current time.
func NewEvent(m correlator.Match) Event {
	return Event{
		QueryID:   m.Query.ID,
		QueryType: m.Query.Type,
		Query:     m.Query.Raw,
		DocID:     m.Document.ID,
		Document:  m.Document.Raw,
		Trigger:   string(m.Trigger),
		MatchedAt: time.Now().UTC(),
	}
}

// Key partitions events by query so that a consumer sees one query's
// matches in order.
func (e Event) Key() string {
	return strconv.FormatUint(uint64(e.QueryID), 10)
}
