// Package embedding provides the text embedding capability consumed by the
// indexing and search layers.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed is returned when the provider call failed, timed out, or
// returned no vectors. Callers may retry with backoff; nothing here retries
// automatically.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

// Provider produces vector embeddings for text. Implementations support batch
// operations natively; for single text, pass a slice with one element.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of vectors this provider produces,
	// determined by the active embedding model.
	Dimensions() int

	// Model returns the model identifier, for logging and diagnostics.
	Model() string

	// Close releases any resources held by the provider.
	Close() error
}
