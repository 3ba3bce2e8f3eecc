package types

import (
	"strings"
	"time"
)

// Memory represents a single remembered unit of text with its embedding and
// importance scores. Memories are immutable once created except for their
// score fields; edits are modeled as delete + recreate.
type Memory struct {
	// ID is the unique identifier (format: mem_<uuid>), assigned at creation.
	ID string `json:"id"`

	// Content is the free-text being remembered.
	Content string `json:"content"`

	// Tags are optional user- or system-assigned labels.
	Tags []string `json:"tags,omitempty"`

	// Embedding is the dense vector derived from Content by the configured
	// embedding provider. Fixed dimensionality for the lifetime of a store.
	Embedding []float64 `json:"embedding,omitempty"`

	// BaseScore is the structural score derived from the current connection
	// graph topology and content features. Recomputed on every graph rebuild.
	BaseScore float64 `json:"base_score"`

	// Reinforcement is the accumulated recall reinforcement. It survives
	// graph rebuilds and is only reset by an explicit recalculation.
	Reinforcement float64 `json:"reinforcement"`

	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`

	// LastReinforcedAt is updated whenever this memory receives any
	// reinforcement, direct or propagated.
	LastReinforcedAt *time.Time `json:"last_reinforced_at,omitempty"`
}

// Score returns the effective importance score: structural base plus
// accumulated reinforcement. Never negative.
func (m *Memory) Score() float64 {
	s := m.BaseScore + m.Reinforcement
	if s < 0 {
		return 0
	}
	return s
}

// WordCount returns the number of whitespace-separated words in Content.
// Used by the graph builder's dynamic threshold and the content bonus.
func (m *Memory) WordCount() int {
	return len(strings.Fields(m.Content))
}

// Clone returns a deep copy of the memory. The engine hands out clones so
// callers can never mutate engine-internal state.
func (m *Memory) Clone() *Memory {
	c := *m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.Embedding != nil {
		c.Embedding = append([]float64(nil), m.Embedding...)
	}
	if m.LastReinforcedAt != nil {
		t := *m.LastReinforcedAt
		c.LastReinforcedAt = &t
	}
	return &c
}
