// Package embedding provides pluggable text embedding providers.
//
// The engine only assumes a fixed output dimensionality and that cosine
// similarity is the intended comparison metric. Providers must be
// deterministic for identical input.
package embedding

import "context"

// Provider is the interface for generating vector embeddings.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the dimension of vectors produced by this provider.
	Dimensions() int

	// GetModel returns the model name, for persistence metadata.
	GetModel() string
}
