package engine

import "fmt"

// index is the in-memory embedding index: memory id -> dense vector.
// It is engine-internal and relies on the engine's lock for synchronization.
type index struct {
	vectors    map[string][]float64
	dimensions int
}

func newIndex(dimensions int) *index {
	return &index{
		vectors:    make(map[string][]float64),
		dimensions: dimensions,
	}
}

// insert adds a vector to the index. A duplicate id is a programmer error,
// not a user-facing failure. A dimensionality mismatch is rejected up front
// so the graph builder never sees inconsistent vectors.
func (ix *index) insert(memoryID string, vector []float64) error {
	if _, exists := ix.vectors[memoryID]; exists {
		return fmt.Errorf("index: memory %s already present", memoryID)
	}
	if len(vector) != ix.dimensions {
		return fmt.Errorf("%w: embedding dimension %d does not match index dimension %d",
			ErrGraphRebuild, len(vector), ix.dimensions)
	}
	ix.vectors[memoryID] = vector
	return nil
}

// remove deletes a vector from the index. Tolerant of already-removed ids.
func (ix *index) remove(memoryID string) {
	delete(ix.vectors, memoryID)
}

// all returns the full id -> vector snapshot for graph rebuilding.
// The returned map is the live one; callers must hold the engine lock and
// must not mutate it.
func (ix *index) all() map[string][]float64 {
	return ix.vectors
}

func (ix *index) len() int {
	return len(ix.vectors)
}
