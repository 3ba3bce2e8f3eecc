// Package storage provides persistence interfaces for the Moneta engine.
//
// The engine keeps all live state (embeddings, graph, scores) in memory and
// writes through to a MemoryStore for durability. Implementations exist for
// SQLite (default, pure Go) and PostgreSQL (pgvector).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/moneta-hq/moneta/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryStore persists memories together with their embeddings and scores.
type MemoryStore interface {
	// Save creates or updates a memory (upsert semantics), including its
	// embedding and both score fields.
	Save(ctx context.Context, memory *types.Memory) error

	// UpdateScores writes score changes for a batch of memories. Used after
	// rebuilds and reinforcement, where only scores changed.
	UpdateScores(ctx context.Context, updates []ScoreUpdate) error

	// Delete removes a memory permanently.
	// Returns ErrNotFound if the memory doesn't exist.
	Delete(ctx context.Context, id string) error

	// LoadAll returns every stored memory, embeddings included, for engine
	// startup.
	LoadAll(ctx context.Context) ([]*types.Memory, error)

	// Close releases any resources held by the store.
	Close() error
}

// ScoreUpdate carries the score fields for one memory.
type ScoreUpdate struct {
	ID               string
	BaseScore        float64
	Reinforcement    float64
	LastReinforcedAt *time.Time
}
