package engine

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the external embedding call failed.
	// Add and search abort cleanly; no partial memory state is left behind.
	// Retries are the caller's responsibility.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrInvalidQuery indicates an empty or whitespace-only search query.
	ErrInvalidQuery = errors.New("query must not be empty")

	// ErrMemoryNotFound indicates an operation referenced an unknown memory id.
	ErrMemoryNotFound = errors.New("memory not found")

	// ErrGraphRebuild indicates an internal invariant violation during a graph
	// rebuild, e.g. a dimensionality mismatch between stored embeddings. This
	// points at an embedding-model change mid-lifetime, not a transient fault:
	// further writes to the memory set are blocked until an explicit
	// Recalculate resolves it.
	ErrGraphRebuild = errors.New("connection graph rebuild failed")

	// ErrInvalidInput indicates invalid operation parameters (negative
	// reinforcement amount, non-positive topK, empty content).
	ErrInvalidInput = errors.New("invalid input")

	// ErrWritesBlocked is returned for write operations while the engine is
	// halted after a graph rebuild failure.
	ErrWritesBlocked = errors.New("writes blocked after graph rebuild failure; run recalculate")
)
