package ingest

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxRawLength  = 1 << 20
	maxTypeLength = 128
	maxTermCount  = 256
	maxTermLength = 1024
)

// ValidationError holds per-field failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateDocument bounds the document size. An empty document is valid
// and matches only queries without required terms.
func ValidateDocument(r DocumentRecord) error {
	if len(r.Raw) > maxRawLength {
		return &ValidationError{Fields: map[string]string{
			"raw": fmt.Sprintf("must be at most %d bytes", maxRawLength),
		}}
	}
	return nil
}

// ValidateQuery bounds the query's size. A query with neither raw text nor
// terms is valid and matches every document.
func ValidateQuery(r QueryRecord) error {
	errs := make(map[string]string)
	if len(r.Raw) > maxRawLength {
		errs["raw"] = fmt.Sprintf("must be at most %d bytes", maxRawLength)
	}
	if len(r.Type) > maxTypeLength {
		errs["type"] = fmt.Sprintf("must be at most %d characters", maxTypeLength)
	}
	if len(r.Terms) > maxTermCount {
		errs["terms"] = fmt.Sprintf("at most %d terms are allowed", maxTermCount)
	} else {
		for i, t := range r.Terms {
			if len(t) > maxTermLength {
				errs["terms"] = fmt.Sprintf("term %d must be at most %d characters", i, maxTermLength)
				break
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
