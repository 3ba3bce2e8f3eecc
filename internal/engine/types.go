package engine

import (
	"github.com/moneta-hq/moneta/pkg/types"
)

// Weights of the hybrid search score: semantic similarity dominates,
// accumulated importance contributes the rest.
const (
	hybridSimilarityWeight = 0.7
	hybridImportanceWeight = 0.3
)

// Config configures a MemoryEngine.
type Config struct {
	// BaseThreshold is the minimum cosine similarity for a connection
	// between long texts; short texts must clear a higher bar
	// (default: 0.35).
	BaseThreshold float64

	// DefaultTopK is the result count when a search doesn't specify one
	// (default: 10).
	DefaultTopK int

	// DefaultMinRelevance is the hybrid-score cutoff when a search doesn't
	// specify one (default: 0.2).
	DefaultMinRelevance float64

	// ScoreNormalization is the divisor applied to raw scores in the hybrid
	// formula. Zero means auto: normalize by the current maximum live score
	// (floored at 1), which keeps the hybrid weighting stable as scores grow
	// unbounded over the system's lifetime.
	ScoreNormalization float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		BaseThreshold:       0.35,
		DefaultTopK:         10,
		DefaultMinRelevance: 0.2,
		ScoreNormalization:  0, // auto
	}
}

// normalize applies defaults to zero-valued fields.
func (c *Config) normalize() {
	if c.BaseThreshold <= 0 {
		c.BaseThreshold = 0.35
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 10
	}
	if c.DefaultMinRelevance <= 0 {
		c.DefaultMinRelevance = 0.2
	}
}

// SearchOptions configures a search request.
type SearchOptions struct {
	// Query is the free-text search query. Must be non-empty after trimming.
	Query string

	// TopK is the maximum number of results (engine default when <= 0).
	TopK int

	// MinRelevance is the minimum hybrid score for inclusion. Negative means
	// the engine default. Values above 1 are legal and simply yield an empty
	// result set.
	MinRelevance float64
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	// Memory is a copy of the matched memory.
	Memory *types.Memory `json:"memory"`

	// Similarity is the raw cosine similarity between query and memory.
	Similarity float64 `json:"similarity"`

	// HybridScore combines similarity with normalized importance.
	HybridScore float64 `json:"hybrid_score"`
}

// NetworkNode is one node of the visualization graph.
type NetworkNode struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Created string   `json:"created"`

	// Size is the display size in pixels, mapped from Score by pkg/viz.
	Size float64 `json:"size"`
}

// NetworkEdge is one undirected edge of the visualization graph.
type NetworkEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Similarity float64 `json:"similarity"`
}

// Network is the full node+edge list consumed by the visualization UI.
type Network struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}
