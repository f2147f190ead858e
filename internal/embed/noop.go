package embed

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by NoopEmbedder so callers can distinguish
// "no semantic component configured" from a transient provider error,
// though both degrade the hybrid matcher's semantic term to zero.
var ErrUnavailable = errors.New("embed: no embedder configured")

// NoopEmbedder is the zero-value Embedder used when no GenAI key is
// configured. It lets the hybrid matcher run unconditionally, with its
// semantic term always contributing zero.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, ErrUnavailable
}
