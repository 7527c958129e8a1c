package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	v := Vector{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := Vector{1, 0}
	b := Vector{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_MismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3}))
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(Vector{0, 0}, Vector{1, 1}))
}

func TestBestAnchorMatch_ClearWinner(t *testing.T) {
	query := Vector{1, 0}
	anchors := []Anchor{
		{Label: "flip_to_action", Vector: Vector{1, 0}},
		{Label: "flip_to_no_action", Vector: Vector{0, 1}},
	}
	label, sim, ok := BestAnchorMatch(query, anchors)
	assert.True(t, ok)
	assert.Equal(t, "flip_to_action", label)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestBestAnchorMatch_BelowFloor(t *testing.T) {
	query := Vector{1, 0}
	anchors := []Anchor{
		{Label: "flip_to_action", Vector: Vector{0, 1}},
	}
	_, _, ok := BestAnchorMatch(query, anchors)
	assert.False(t, ok)
}

func TestBestAnchorMatch_InsufficientMargin(t *testing.T) {
	// Two anchors nearly equidistant from the query: margin check should reject.
	query := Vector{1, 0.01}
	anchors := []Anchor{
		{Label: "a", Vector: Vector{1, 0}},
		{Label: "b", Vector: Vector{1, 0.02}},
	}
	_, _, ok := BestAnchorMatch(query, anchors)
	assert.False(t, ok)
}

func TestBestAnchorMatch_NoAnchors(t *testing.T) {
	_, _, ok := BestAnchorMatch(Vector{1, 0}, nil)
	assert.False(t, ok)
}

func TestNoopEmbedder_ReturnsNotConfigured(t *testing.T) {
	var e NoopEmbedder
	v, err := e.Embed(context.Background(), "hello")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
