// Package termindex maps terms to the set of entity ordinals whose term set
// contains them. The correlator keeps two instances, one over documents and
// one over queries. Posting sets are roaring bitmaps so unions and
// intersections over many ordinals stay cheap.
//
// An Index is not safe for concurrent use; the correlator serialises every
// access under its own lock.
package termindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

type Index struct {
	postings map[string]*roaring.Bitmap
	entries  uint64
}

func New() *Index {
	return &Index{
		postings: make(map[string]*roaring.Bitmap),
	}
}

// Index adds id to the posting set of term, creating the set on first use.
func (x *Index) Index(term string, id uint32) {
	bm, ok := x.postings[term]
	if !ok {
		bm = roaring.New()
		x.postings[term] = bm
	}
	if bm.CheckedAdd(id) {
		x.entries++
	}
}

// IndexAll adds id under every term.
func (x *Index) IndexAll(terms map[string]struct{}, id uint32) {
	for term := range terms {
		x.Index(term, id)
	}
}

// Lookup returns a copy of the posting set for term. Unseen terms yield an
// empty bitmap.
func (x *Index) Lookup(term string) *roaring.Bitmap {
	bm, ok := x.postings[term]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}

// Cardinality returns the size of the posting set for term without copying.
func (x *Index) Cardinality(term string) uint64 {
	bm, ok := x.postings[term]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// Union returns the union of the posting sets of every term.
func (x *Index) Union(terms map[string]struct{}) *roaring.Bitmap {
	sets := make([]*roaring.Bitmap, 0, len(terms))
	for term := range terms {
		if bm, ok := x.postings[term]; ok {
			sets = append(sets, bm)
		}
	}
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(sets...)
}

// Intersect returns the ids present in the posting set of every term. The
// running intersection is seeded from the smallest posting set and stops as
// soon as it becomes empty. An empty term set yields an empty bitmap; the
// caller decides what "no required terms" means.
func (x *Index) Intersect(terms map[string]struct{}) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.New()
	}
	sets := make([]*roaring.Bitmap, 0, len(terms))
	for term := range terms {
		bm, ok := x.postings[term]
		if !ok || bm.IsEmpty() {
			return roaring.New()
		}
		sets = append(sets, bm)
	}
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].GetCardinality() < sets[j].GetCardinality()
	})
	hits := sets[0].Clone()
	for _, bm := range sets[1:] {
		hits.And(bm)
		if hits.IsEmpty() {
			break
		}
	}
	return hits
}

// Terms returns the number of distinct indexed terms.
func (x *Index) Terms() int {
	return len(x.postings)
}

// Entries returns the total number of (term, id) pairs.
func (x *Index) Entries() uint64 {
	return x.entries
}

// SizeInBytes estimates the serialized size of every posting set.
func (x *Index) SizeInBytes() uint64 {
	var size uint64
	for term, bm := range x.postings {
		size += uint64(len(term)) + bm.GetSizeInBytes()
	}
	return size
}

// Vocabulary returns every indexed term in ascending order.
func (x *Index) Vocabulary() []string {
	terms := make([]string, 0, len(x.postings))
	for term := range x.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
