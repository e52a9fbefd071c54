package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/sink"
)

func TestQueryRecordParsed(t *testing.T) {
	tk := tokenizer.Tokenizer{}
	tests := []struct {
		name     string
		rec      QueryRecord
		wantType string
		want     []string
	}{
		{"plain", QueryRecord{Raw: "Loading Failed"}, "", []string{"failed", "loading"}},
		{"explicit type", QueryRecord{Raw: "disk failure", Type: "ERROR"}, "ERROR", []string{"disk", "failure"}},
		{"typed syntax", QueryRecord{Raw: "WARN: cpu hot", Typed: true}, "WARN", []string{"cpu", "hot"}},
		{"typed with override", QueryRecord{Raw: "WARN: cpu", Type: "INFO", Typed: true}, "INFO", []string{"cpu"}},
		{"terms", QueryRecord{Terms: []string{" Facebook", "google", ""}}, "", []string{"facebook", "google"}},
		{"separator in term", QueryRecord{Terms: []string{"Disk-Failure"}}, "", []string{"disk", "failure"}},
		{"empty", QueryRecord{}, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.rec.Parsed(tk)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.want, p.Terms.Sorted())
		})
	}
}

func TestQueryRecordResolve(t *testing.T) {
	tk := tokenizer.Tokenizer{}

	p, err := QueryRecord{Terms: []string{"disk failure", "node-7"}}.Resolve(tk)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "disk", "failure", "node"}, p.Terms.Sorted())

	p, err = QueryRecord{Terms: []string{" ", ""}}.Resolve(tk)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Terms.Len())

	_, err = QueryRecord{Terms: []string{"--", "!"}}.Resolve(tk)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "terms")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ValidateDocument(DocumentRecord{}))
	assert.Error(t, ValidateDocument(DocumentRecord{Raw: strings.Repeat("x", maxRawLength+1)}))

	assert.NoError(t, ValidateQuery(QueryRecord{}))
	err := ValidateQuery(QueryRecord{
		Type:  strings.Repeat("t", maxTypeLength+1),
		Terms: []string{"ok", strings.Repeat("x", maxTermLength+1)},
	})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "terms")
	assert.Equal(t, "terms: term 1 must be at most 1024 characters; type: must be at most 128 characters", err.Error())

	many := make([]string, maxTermCount+1)
	assert.Error(t, ValidateQuery(QueryRecord{Terms: many}))
}

func TestHandlers(t *testing.T) {
	collected := sink.NewCollector()
	c, err := correlator.New(collected)
	require.NoError(t, err)
	ctx := context.Background()

	handleDoc := HandleDocument(c)
	handleQuery := HandleQuery(c)

	require.NoError(t, handleDoc(ctx, []byte("d0"), []byte(`{"raw":"ERROR disk failure on sda"}`)))
	require.NoError(t, handleQuery(ctx, []byte("q0"), []byte(`{"raw":"ERROR: disk","typed":true}`)))
	require.NoError(t, handleQuery(ctx, []byte("q1"), []byte(`{"terms":["network"]}`)))
	require.NoError(t, handleDoc(ctx, []byte("d1"), []byte(`{"raw":"network down, disk ok"}`)))

	// Poison and oversized records are skipped, not retried.
	require.NoError(t, handleDoc(ctx, nil, []byte(`{"raw":`)))
	require.NoError(t, handleQuery(ctx, nil, []byte(`not json`)))
	require.NoError(t, handleQuery(ctx, nil, []byte(`{"type":"`+strings.Repeat("t", maxTypeLength+1)+`"}`)))
	require.NoError(t, handleQuery(ctx, nil, []byte(`{"terms":["--"]}`)))

	stats := c.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Queries)

	got := collected.Matches()
	require.Len(t, got, 3)
	assert.Equal(t, correlator.TriggerQuery, got[0].Trigger)
	assert.Equal(t, "ERROR", got[0].Query.Type)
	assert.Equal(t, uint32(0), got[0].Document.ID)
	assert.Equal(t, []uint32{0, 1}, []uint32{got[1].Query.ID, got[2].Query.ID})
	assert.Equal(t, uint32(1), got[1].Document.ID)
}
