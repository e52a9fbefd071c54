package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Raw string `json:"raw"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[record]([]byte(`{"raw":"disk failure"}`))
	require.NoError(t, err)
	assert.Equal(t, "disk failure", got.Raw)

	_, err = DecodeJSON[record]([]byte(`{"raw":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestEventMessage(t *testing.T) {
	msg, err := Event{Key: "7", Value: record{Raw: "x"}}.Message()
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), msg.Key)
	assert.JSONEq(t, `{"raw":"x"}`, string(msg.Value))

	_, err = Event{Value: make(chan int)}.Message()
	assert.ErrorContains(t, err, "marshaling event value")
}
