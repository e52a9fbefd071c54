package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/query"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/store"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/termindex"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
)

// Correlator matches documents against standing queries in both arrival
// orders. A single lock guards both stores, both term indices and the
// match-all set; sink delivery happens after the lock is released.
type Correlator struct {
	mu         sync.RWMutex
	tokenizer  tokenizer.Tokenizer
	docs       *store.Store[Document]
	queries    *store.Store[Query]
	docIndex   *termindex.Index
	queryIndex *termindex.Index
	matchAll   *roaring.Bitmap

	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithTokenizer sets the tokenizer applied to incoming documents.
func WithTokenizer(tk tokenizer.Tokenizer) Option {
	return func(c *Correlator) { c.tokenizer = tk }
}

// WithMetrics records accept and match counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Correlator) { c.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Correlator) { c.logger = l }
}

// New creates a Correlator delivering every match to sink.
func New(sink Sink, opts ...Option) (*Correlator, error) {
	if sink == nil {
		return nil, apperrors.InvalidArgumentf("correlator requires a match sink")
	}
	c := &Correlator{
		docs:       store.New[Document]("document"),
		queries:    store.New[Query]("query"),
		docIndex:   termindex.New(),
		queryIndex: termindex.New(),
		matchAll:   roaring.New(),
		sink:       sink,
		logger:     slog.Default().With("component", "correlator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tokenizer returns the tokenizer applied to documents, so transports can
// parse queries with the same normalisation.
func (c *Correlator) Tokenizer() tokenizer.Tokenizer {
	return c.tokenizer
}

// AcceptDocument stores and indexes raw, then delivers a Match for every
// registered query whose required terms the document contains. The
// returned id is valid even when err is non-nil: a non-nil error only
// reports failed sink deliveries.
func (c *Correlator) AcceptDocument(ctx context.Context, raw string) (uint32, error) {
	start := time.Now()
	terms := c.tokenizer.Tokenize(raw)

	c.mu.Lock()
	var doc Document
	id := c.docs.Append(func(id uint32) Document {
		doc = Document{ID: id, Raw: raw, Terms: terms}
		return doc
	})
	c.docIndex.IndexAll(terms, id)

	// Zero-term queries are invisible to the union, so fold them in.
	candidates := c.queryIndex.Union(terms)
	candidates.Or(c.matchAll)

	matches := make([]Match, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		q, err := c.queries.Get(it.Next())
		if err != nil {
			c.logger.Error("indexed query missing from store", "error", err)
			continue
		}
		if terms.ContainsAll(q.Terms) {
			matches = append(matches, Match{Query: q, Document: doc, Trigger: TriggerDocument})
		}
	}
	docTerms := c.docIndex.Terms()
	c.mu.Unlock()

	c.observeAccept(TriggerDocument, start, candidates.GetCardinality(), docTerms)
	if c.metrics != nil {
		c.metrics.DocumentsAccepted.Inc()
	}
	c.logger.Debug("document accepted",
		"doc_id", id,
		"term_count", len(terms),
		"candidates", candidates.GetCardinality(),
		"matches", len(matches),
	)
	return id, c.deliver(ctx, matches)
}

// AcceptQuery registers a standing query with the given required terms and
// delivers a Match for every stored document that already contains them
// all. Terms pass through the document tokenizer first, so "Disk-Failure"
// requires both "disk" and "failure". An empty term set matches every past
// and future document.
func (c *Correlator) AcceptQuery(ctx context.Context, raw string, requiredTerms tokenizer.TermSet) (uint32, error) {
	return c.accept(ctx, query.Parsed{Raw: raw, Terms: requiredTerms})
}

// AcceptParsedQuery registers q, carrying its type tag through to sinks.
func (c *Correlator) AcceptParsedQuery(ctx context.Context, q query.Parsed) (uint32, error) {
	return c.accept(ctx, q)
}

func (c *Correlator) accept(ctx context.Context, parsed query.Parsed) (uint32, error) {
	start := time.Now()
	terms := c.normalize(parsed.Terms)

	c.mu.Lock()
	var q Query
	id := c.queries.Append(func(id uint32) Query {
		q = Query{ID: id, Type: parsed.Type, Raw: parsed.Raw, Terms: terms}
		return q
	})
	c.queryIndex.IndexAll(terms, id)

	var hits *roaring.Bitmap
	if len(terms) == 0 {
		c.matchAll.Add(id)
		hits = roaring.New()
		hits.AddRange(0, uint64(c.docs.Len()))
	} else {
		hits = c.docIndex.Intersect(terms)
	}

	matches := make([]Match, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		doc, err := c.docs.Get(it.Next())
		if err != nil {
			c.logger.Error("indexed document missing from store", "error", err)
			continue
		}
		matches = append(matches, Match{Query: q, Document: doc, Trigger: TriggerQuery})
	}
	queryTerms := c.queryIndex.Terms()
	matchAll := c.matchAll.GetCardinality()
	c.mu.Unlock()

	c.observeAccept(TriggerQuery, start, hits.GetCardinality(), -1)
	if c.metrics != nil {
		c.metrics.QueriesAccepted.WithLabelValues(parsed.Type).Inc()
		c.metrics.IndexTerms.WithLabelValues("query").Set(float64(queryTerms))
		c.metrics.MatchAllQueries.Set(float64(matchAll))
	}
	c.logger.Debug("query accepted",
		"query_id", id,
		"query_type", parsed.Type,
		"required_terms", terms.Sorted(),
		"matches", len(matches),
	)
	return id, c.deliver(ctx, matches)
}

// deliver hands matches to the sink in computed order. Failures are logged
// and joined; delivery continues past a failing match.
func (c *Correlator) deliver(ctx context.Context, matches []Match) error {
	var errs []error
	for _, m := range matches {
		if c.metrics != nil {
			c.metrics.MatchesEmitted.WithLabelValues(string(m.Trigger), m.Query.Type).Inc()
		}
		if err := c.sink.OnMatch(ctx, m); err != nil {
			c.logger.Error("match delivery failed",
				"query_id", m.Query.ID,
				"doc_id", m.Document.ID,
				"error", err,
			)
			if c.metrics != nil {
				c.metrics.SinkErrorsTotal.WithLabelValues("correlator").Inc()
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delivering %d of %d matches: %w", len(errs), len(matches), errors.Join(errs...))
	}
	return nil
}

func (c *Correlator) observeAccept(trigger Trigger, start time.Time, candidates uint64, docTerms int) {
	if c.metrics == nil {
		return
	}
	c.metrics.AcceptLatency.WithLabelValues(string(trigger)).Observe(time.Since(start).Seconds())
	c.metrics.CandidatesPerAccept.WithLabelValues(string(trigger)).Observe(float64(candidates))
	if docTerms >= 0 {
		c.metrics.IndexTerms.WithLabelValues("document").Set(float64(docTerms))
	}
}

// Document returns the stored document with the given id.
func (c *Correlator) Document(id uint32) (Document, error) {
	return c.docs.Get(id)
}

// Query returns the registered query with the given id.
func (c *Correlator) Query(id uint32) (Query, error) {
	return c.queries.Get(id)
}

// Search returns every stored document containing all of terms, in id
// order, without registering a query. No terms selects every document.
func (c *Correlator) Search(terms tokenizer.TermSet) []Document {
	terms = c.normalize(terms)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.searchLocked(terms)
}

// normalize runs caller-supplied terms through the document tokenizer so
// they name the same posting keys documents are indexed under. A term
// holding separators expands into its tokens; a term that is all
// separators disappears. The result never aliases terms.
func (c *Correlator) normalize(terms tokenizer.TermSet) tokenizer.TermSet {
	out := tokenizer.NewTermSet()
	for t := range terms {
		for tok := range c.tokenizer.Tokenize(t) {
			out.Add(tok)
		}
	}
	return out
}

func (c *Correlator) searchLocked(terms tokenizer.TermSet) []Document {
	var hits *roaring.Bitmap
	if len(terms) == 0 {
		hits = roaring.New()
		hits.AddRange(0, uint64(c.docs.Len()))
	} else {
		hits = c.docIndex.Intersect(terms)
	}
	docs := make([]Document, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		doc, err := c.docs.Get(it.Next())
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// RelatedTerms returns every term that co-occurs with all of terms in at
// least one stored document, excluding terms themselves.
func (c *Correlator) RelatedTerms(terms tokenizer.TermSet) tokenizer.TermSet {
	terms = c.normalize(terms)
	c.mu.RLock()
	defer c.mu.RUnlock()
	related := tokenizer.NewTermSet()
	for _, doc := range c.searchLocked(terms) {
		for t := range doc.Terms {
			if !terms.Contains(t) {
				related.Add(t)
			}
		}
	}
	return related
}

// Vocabulary returns every term seen in a stored document, ascending.
func (c *Correlator) Vocabulary() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docIndex.Vocabulary()
}

// Stats is a point-in-time summary of the correlator's state.
type Stats struct {
	Documents       int    `json:"documents"`
	Queries         int    `json:"queries"`
	MatchAllQueries uint64 `json:"match_all_queries"`
	DocumentTerms   int    `json:"document_terms"`
	QueryTerms      int    `json:"query_terms"`
	DocumentEntries uint64 `json:"document_entries"`
	QueryEntries    uint64 `json:"query_entries"`
	IndexBytes      uint64 `json:"index_bytes"`
}

func (c *Correlator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Documents:       c.docs.Len(),
		Queries:         c.queries.Len(),
		MatchAllQueries: c.matchAll.GetCardinality(),
		DocumentTerms:   c.docIndex.Terms(),
		QueryTerms:      c.queryIndex.Terms(),
		DocumentEntries: c.docIndex.Entries(),
		QueryEntries:    c.queryIndex.Entries(),
		IndexBytes:      c.docIndex.SizeInBytes() + c.queryIndex.SizeInBytes(),
	}
}
