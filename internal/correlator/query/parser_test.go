package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw       string
		wantType  string
		wantTerms []string
	}{
		{"ERROR: disk", "ERROR", []string{"disk"}},
		{"INFO Service", "INFO", []string{"service"}},
		{"WARN memory usage", "WARN", []string{"memory", "usage"}},
		{"  ERROR :  Disk  Failure ", "ERROR", []string{"disk", "failure"}},
		{"WARN", "WARN", []string{}},
		{"WARN:", "WARN", []string{}},
		{"", "", []string{}},
		{"AUDIT: user_id=7, action=login", "AUDIT", []string{"7", "action", "login", "user_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Parse(tt.raw, tokenizer.Tokenizer{})
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantTerms, got.Terms.Sorted())
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

func TestParseTerms(t *testing.T) {
	got := ParseTerms("Loading Failed", tokenizer.Tokenizer{})
	assert.Equal(t, "", got.Type)
	assert.Equal(t, []string{"failed", "loading"}, got.Terms.Sorted())
	assert.Equal(t, "Loading Failed", got.Raw)

	empty := ParseTerms("", tokenizer.Tokenizer{})
	assert.Equal(t, 0, empty.Terms.Len())
}

func TestFromTerms(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		tk    tokenizer.Tokenizer
		want  []string
	}{
		{"trims and lowercases", []string{" Facebook", "GOOGLE ", "", "  "}, tokenizer.Tokenizer{}, []string{"facebook", "google"}},
		{"splits on separators", []string{"Disk-Failure"}, tokenizer.Tokenizer{}, []string{"disk", "failure"}},
		{"splits on whitespace", []string{"disk failure", "node"}, tokenizer.Tokenizer{}, []string{"disk", "failure", "node"}},
		{"all separators dropped", []string{"--", "!"}, tokenizer.Tokenizer{}, []string{}},
		{"explicit delimiters", []string{"Apple Inc,Tesla"}, tokenizer.New(","), []string{"apple inc", "tesla"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTerms("tags", tt.terms, tt.tk)
			assert.Equal(t, "tags", got.Type)
			assert.Equal(t, tt.want, got.Terms.Sorted())
		})
	}
}
