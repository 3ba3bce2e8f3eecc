package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DeterministicProvider is a model-free embedding provider that hashes
// lowercased word tokens into a fixed-size bag-of-words vector and
// L2-normalizes it. Cosine similarity between two such vectors approximates
// token overlap: identical texts map to identical unit vectors, disjoint
// texts to (near-)orthogonal ones.
//
// It is selected via configuration as the offline fallback and is the
// provider used throughout the tests. It is NOT a semantic model; deployments
// that need real semantic similarity should configure ollama or openai.
type DeterministicProvider struct {
	dimensions int
}

// NewDeterministicProvider creates a deterministic provider with the given
// dimensionality (default 256 when dims <= 0).
func NewDeterministicProvider(dims int) *DeterministicProvider {
	if dims <= 0 {
		dims = 256
	}
	return &DeterministicProvider{dimensions: dims}
}

// Embed converts text into a unit-norm hashed bag-of-words vector.
// Deterministic for identical input; never returns an error.
func (p *DeterministicProvider) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, p.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%p.dimensions] += 1.0
	}

	// L2-normalize so dot product equals cosine similarity.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

// Dimensions returns the vector dimensionality.
func (p *DeterministicProvider) Dimensions() int {
	return p.dimensions
}

// GetModel returns the provider identifier used in persistence metadata.
func (p *DeterministicProvider) GetModel() string {
	return "deterministic-bow"
}

// tokenize splits text into lowercased word tokens, dropping punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

var _ Provider = (*DeterministicProvider)(nil)
