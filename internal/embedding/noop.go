package embedding

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by NoopEmbedder.Embed so callers that treat
// embedding as optional can distinguish "not configured" from a transient
// provider failure if they choose to.
var ErrNotConfigured = errors.New("embedding capability not configured")

// NoopEmbedder returns ErrNotConfigured on every call.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return nil, ErrNotConfigured
}
