package termindex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(terms ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

func TestIndexAndLookup(t *testing.T) {
	x := New()
	x.Index("facebook", 0)
	x.Index("facebook", 1)
	x.Index("google", 0)
	x.Index("facebook", 1) // duplicate is a no-op

	assert.Equal(t, []uint32{0, 1}, x.Lookup("facebook").ToArray())
	assert.Equal(t, []uint32{0}, x.Lookup("google").ToArray())
	assert.True(t, x.Lookup("tesla").IsEmpty())
	assert.Equal(t, 2, x.Terms())
	assert.Equal(t, uint64(3), x.Entries())
	assert.Equal(t, uint64(2), x.Cardinality("facebook"))
	assert.Equal(t, uint64(0), x.Cardinality("tesla"))
}

func TestLookupReturnsCopy(t *testing.T) {
	x := New()
	x.Index("a", 1)

	got := x.Lookup("a")
	got.Add(99)

	assert.Equal(t, []uint32{1}, x.Lookup("a").ToArray())
}

func TestUnion(t *testing.T) {
	x := New()
	x.IndexAll(set("database"), 0)
	x.IndexAll(set("stacktrace"), 1)
	x.IndexAll(set("loading", "failed"), 2)
	x.IndexAll(set("snapshot", "loading"), 3)

	got := x.Union(set("loading", "snapshot", "stacktrace", "unknown"))
	assert.Equal(t, []uint32{1, 2, 3}, got.ToArray())
	assert.True(t, x.Union(set()).IsEmpty())
	assert.True(t, x.Union(set("nothing")).IsEmpty())
}

func TestIntersect(t *testing.T) {
	x := New()
	docs := [][]string{
		{"apple", "facebook", "google"},
		{"banana", "facebook"},
		{"facebook", "google", "tesla"},
		{"intuit", "google", "facebook"},
	}
	for id, terms := range docs {
		x.IndexAll(set(terms...), uint32(id))
	}

	tests := []struct {
		name  string
		terms []string
		want  []uint32
	}{
		{"two terms", []string{"facebook", "google"}, []uint32{0, 2, 3}},
		{"single term", []string{"apple"}, []uint32{0}},
		{"disjoint", []string{"apple", "tesla"}, nil},
		{"unknown term short-circuits", []string{"facebook", "missing"}, nil},
		{"no terms", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Intersect(set(tt.terms...))
			if tt.want == nil {
				assert.True(t, got.IsEmpty())
				return
			}
			assert.Equal(t, tt.want, got.ToArray())
		})
	}
}

func TestIntersectDoesNotMutatePostings(t *testing.T) {
	x := New()
	x.IndexAll(set("a", "b"), 0)
	x.IndexAll(set("a"), 1)

	require.Equal(t, []uint32{0}, x.Intersect(set("a", "b")).ToArray())
	assert.Equal(t, []uint32{0, 1}, x.Lookup("a").ToArray())
}

func TestVocabularyAndSize(t *testing.T) {
	x := New()
	x.IndexAll(set("zeta", "alpha", "mid"), 0)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, x.Vocabulary())
	assert.Greater(t, x.SizeInBytes(), uint64(0))
}

func BenchmarkIndex(b *testing.B) {
	x := New()
	terms := []string{"distributed", "search", "analytics", "platform", "indexing"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.Index(terms[i%len(terms)], uint32(i))
	}
}

func BenchmarkIntersect(b *testing.B) {
	x := New()
	for i := 0; i < 10000; i++ {
		x.Index("common", uint32(i))
		x.Index(fmt.Sprintf("mod%d", i%10), uint32(i))
	}
	q := set("common", "mod3")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = x.Intersect(q)
	}
}
