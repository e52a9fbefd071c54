// Package query turns raw standing-query lines into a type tag and a set of
// required terms. The correlator never parses queries itself; transports
// call Parse or ParseTerms and hand the result over.
package query

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
)

// Parsed is a standing query ready to be registered.
type Parsed struct {
	// Type is an opaque classification carried through to match sinks.
	Type  string
	Terms tokenizer.TermSet
	Raw   string
}

// Parse splits a typed query line. Both "ERROR: disk failure" and
// "ERROR disk failure" yield Type "ERROR" and Terms {disk, failure}. A line
// holding only a type, such as "WARN" or "WARN:", has no required terms and
// therefore matches every document.
func Parse(raw string, tk tokenizer.Tokenizer) Parsed {
	line := strings.TrimSpace(raw)
	var typ, remainder string
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		typ = strings.TrimSpace(line[:idx])
		remainder = strings.TrimSpace(line[idx+1:])
	} else {
		typ = line
		if idx := strings.IndexFunc(line, unicode.IsSpace); idx >= 0 {
			typ = line[:idx]
			remainder = strings.TrimSpace(line[idx:])
		}
	}
	return Parsed{
		Type:  typ,
		Terms: tk.Tokenize(remainder),
		Raw:   raw,
	}
}

// ParseTerms treats the whole line as required terms with no type tag, the
// form used by live-tail "Q:" lines.
func ParseTerms(raw string, tk tokenizer.Tokenizer) Parsed {
	return Parsed{
		Terms: tk.Tokenize(raw),
		Raw:   raw,
	}
}

// FromTerms builds a query from explicit terms, tokenizing each one the way
// documents are tokenized: "Disk-Failure" contributes "disk" and "failure".
// Terms made only of separators are dropped.
func FromTerms(typ string, terms []string, tk tokenizer.Tokenizer) Parsed {
	set := tokenizer.NewTermSet()
	for _, t := range terms {
		for tok := range tk.Tokenize(t) {
			set.Add(tok)
		}
	}
	return Parsed{
		Type:  typ,
		Terms: set,
		Raw:   strings.Join(terms, " "),
	}
}
