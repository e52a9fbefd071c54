// Package tokenizer normalises raw lines into sets of terms. It lower-cases
// input, splits on non-word boundaries (or an explicit delimiter
// set such as ","), trims every piece and drops empty tokens. Tokenisation
// is pure: the same line always yields the same TermSet.
package tokenizer

import (
	"sort"
	"strings"
	"unicode"
)

// TermSet is an unordered set of normalised terms.
type TermSet map[string]struct{}

// NewTermSet builds a TermSet from already-normalised terms.
func NewTermSet(terms ...string) TermSet {
	s := make(TermSet, len(terms))
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

func (s TermSet) Add(term string) {
	s[term] = struct{}{}
}

func (s TermSet) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// ContainsAll reports whether every term of other is in s. An empty other
// is contained in every set.
func (s TermSet) ContainsAll(other TermSet) bool {
	if len(other) > len(s) {
		return false
	}
	for t := range other {
		if _, ok := s[t]; !ok {
			return false
		}
	}
	return true
}

func (s TermSet) Len() int {
	return len(s)
}

// Sorted returns the terms in ascending order.
func (s TermSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Minus returns the terms of s that are not in other.
func (s TermSet) Minus(other TermSet) TermSet {
	out := make(TermSet)
	for t := range s {
		if !other.Contains(t) {
			out.Add(t)
		}
	}
	return out
}

// Tokenizer splits lines into terms. The zero value splits on any run of
// non-word characters (anything but letters, digits and underscore).
type Tokenizer struct {
	// Delimiters, when non-empty, is the exact set of separator characters.
	// Whitespace around each piece is trimmed, so "apple, facebook" with
	// Delimiters "," yields {apple, facebook}.
	Delimiters string
}

// New returns a Tokenizer splitting on the given delimiters.
func New(delimiters string) Tokenizer {
	return Tokenizer{Delimiters: delimiters}
}

// Tokenize breaks text into a set of lower-cased, trimmed terms.
func (tk Tokenizer) Tokenize(text string) TermSet {
	terms := make(TermSet)
	if text == "" {
		return terms
	}
	text = strings.ToLower(text)
	var words []string
	if tk.Delimiters == "" {
		words = strings.FieldsFunc(text, isSeparator)
	} else {
		words = strings.FieldsFunc(text, func(r rune) bool {
			return strings.ContainsRune(tk.Delimiters, r)
		})
	}
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		terms.Add(word)
	}
	return terms
}

// Tokenize uses the default word-boundary Tokenizer.
func Tokenize(text string) TermSet {
	return Tokenizer{}.Tokenize(text)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
