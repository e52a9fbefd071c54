// Package ingest turns document and query records, from Kafka topics or
// HTTP bodies, into correlator accept calls.
package ingest

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/query"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
)

// DocumentRecord is the JSON payload of a document.
type DocumentRecord struct {
	Raw string `json:"raw"`
}

// QueryRecord is the JSON payload of a standing query. Terms, when present,
// are the required terms, each tokenized like a document. Otherwise Raw is
// tokenized; with Typed set, Raw is read as "TYPE: term term" and the type
// is taken from it.
type QueryRecord struct {
	Raw   string   `json:"raw"`
	Type  string   `json:"type,omitempty"`
	Terms []string `json:"terms,omitempty"`
	Typed bool     `json:"typed,omitempty"`
}

// Parsed converts r into a query ready for the correlator.
func (r QueryRecord) Parsed(tk tokenizer.Tokenizer) query.Parsed {
	switch {
	case len(r.Terms) > 0:
		p := query.FromTerms(r.Type, r.Terms, tk)
		if r.Raw != "" {
			p.Raw = r.Raw
		}
		return p
	case r.Typed:
		p := query.Parse(r.Raw, tk)
		if r.Type != "" {
			p.Type = r.Type
		}
		return p
	default:
		p := query.ParseTerms(r.Raw, tk)
		p.Type = r.Type
		return p
	}
}

// Resolve is Parsed plus one check that needs the tokenizer: explicit terms
// that all tokenize to nothing are rejected rather than silently turning
// the query into a match-all.
func (r QueryRecord) Resolve(tk tokenizer.Tokenizer) (query.Parsed, error) {
	p := r.Parsed(tk)
	if len(r.Terms) > 0 && p.Terms.Len() == 0 && hasContent(r.Terms) {
		return p, &ValidationError{Fields: map[string]string{
			"terms": "terms contain no searchable tokens",
		}}
	}
	return p, nil
}

func hasContent(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}
