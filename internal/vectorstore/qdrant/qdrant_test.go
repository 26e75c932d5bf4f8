package qdrant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func TestPointIDIsStableUUID(t *testing.T) {
	a := pointID("3f2a9c0d1e4b5a67:0")
	assert.Equal(t, a, pointID("3f2a9c0d1e4b5a67:0"))
	assert.NotEqual(t, a, pointID("3f2a9c0d1e4b5a67:1"))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestPayloadRoundTrip(t *testing.T) {
	ch := domain.Chunk{
		ID:         "3f2a9c0d1e4b5a67:4",
		DocumentID: "3f2a9c0d1e4b5a67",
		Source:     "title17.pdf",
		Kind:       domain.KindPDF,
		Index:      4,
		Text:       "the fair use of a copyrighted work",
	}
	got := toResult(&qdrant.ScoredPoint{Payload: payload(ch), Score: 0.87})

	assert.Equal(t, ch, got.Chunk)
	assert.InDelta(t, 0.87, got.Score, 1e-6)
}

func TestResultWithMissingPayload(t *testing.T) {
	got := toResult(&qdrant.ScoredPoint{Payload: map[string]*qdrant.Value{
		"text": qdrant.NewValueString("orphan"),
	}})
	assert.Equal(t, "orphan", got.Chunk.Text)
	assert.Empty(t, got.Chunk.ID)
	assert.Zero(t, got.Chunk.Index)
}

func TestNewStorageRequiresCollection(t *testing.T) {
	_, err := NewStorage(Config{Host: "localhost", Port: 6334})
	assert.ErrorContains(t, err, "collection is required")
}
