// Package engine implements the Moneta memory scoring and connection-graph
// engine: an embedding index over all stored memories, a similarity graph
// derived from it, and graph-structural importance scores reinforced whenever
// memories are recalled by a search.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moneta-hq/moneta/internal/embedding"
	"github.com/moneta-hq/moneta/internal/storage"
	"github.com/moneta-hq/moneta/pkg/types"
	"github.com/moneta-hq/moneta/pkg/viz"
)

// MemoryEngine holds one user's memory set: the embedding index, the derived
// connection graph and all scores. A single mutex guards the whole set, so a
// reader never observes a graph built from a partial memory set and rebuilds
// never interleave with reinforcement writes.
//
// The engine is an explicit injected object, never process-global state.
// Embedding calls happen outside the lock; everything else is fast in-memory
// numeric work.
type MemoryEngine struct {
	config   Config
	provider embedding.Provider
	store    storage.MemoryStore // may be nil for ephemeral sets

	mu       sync.RWMutex
	memories map[string]*types.Memory
	idx      *index
	graph    *Graph

	// writesBlocked halts all writes after a rebuild invariant violation
	// until an explicit Recalculate resolves it. Continuing would silently
	// corrupt scores.
	writesBlocked bool

	onMemoryCreated func(memoryID string)
	onMemoryDeleted func(memoryID string)
	onScoresChanged func(memoryIDs []string)
}

// NewMemoryEngine creates an engine backed by the given embedding provider
// and optional persistence store. Pass a nil store for a purely in-memory set.
func NewMemoryEngine(provider embedding.Provider, store storage.MemoryStore, cfg Config) (*MemoryEngine, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	cfg.normalize()

	e := &MemoryEngine{
		config:   cfg,
		provider: provider,
		store:    store,
		memories: make(map[string]*types.Memory),
		idx:      newIndex(provider.Dimensions()),
		graph:    &Graph{adjacency: map[string][]Edge{}},
	}
	return e, nil
}

// SetOnMemoryCreated sets a callback fired after a new memory is stored.
func (e *MemoryEngine) SetOnMemoryCreated(callback func(memoryID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMemoryCreated = callback
}

// SetOnMemoryDeleted sets a callback fired after a memory is deleted.
func (e *MemoryEngine) SetOnMemoryDeleted(callback func(memoryID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMemoryDeleted = callback
}

// SetOnScoresChanged sets a callback fired with the ids of memories whose
// scores changed (rebuilds and reinforcement). Useful for pushing live
// node-size updates to the visualization.
func (e *MemoryEngine) SetOnScoresChanged(callback func(memoryIDs []string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onScoresChanged = callback
}

// Load restores the memory set from the persistence store and rebuilds the
// graph and base scores. Accumulated reinforcement is preserved as loaded.
func (e *MemoryEngine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	memories, err := e.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load memories: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.memories = make(map[string]*types.Memory, len(memories))
	e.idx = newIndex(e.provider.Dimensions())

	for _, mem := range memories {
		if err := e.idx.insert(mem.ID, mem.Embedding); err != nil {
			return fmt.Errorf("failed to index memory %s: %w", mem.ID, err)
		}
		e.memories[mem.ID] = mem
	}

	if err := e.rebuildLocked(); err != nil {
		e.writesBlocked = true
		return err
	}
	rescoreAll(e.memories, e.graph)

	log.Printf("Loaded %d memories", len(e.memories))
	return nil
}

// AddMemory embeds content, stores a new memory and recomputes the graph and
// base scores. The operation is atomic: on any failure no partial memory
// (content without embedding, index entry without memory) is left behind.
func (e *MemoryEngine) AddMemory(ctx context.Context, content string, tags []string) (*types.Memory, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	// Embedding is the only blocking call; keep it outside the lock.
	vector, err := e.provider.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	mem := &types.Memory{
		ID:        "mem_" + uuid.NewString(),
		Content:   content,
		Tags:      append([]string(nil), tags...),
		Embedding: vector,
		CreatedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	if e.writesBlocked {
		e.mu.Unlock()
		return nil, ErrWritesBlocked
	}

	if err := e.idx.insert(mem.ID, vector); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.memories[mem.ID] = mem

	if err := e.rebuildLocked(); err != nil {
		// The new vector caused the failure; revert and leave writes open.
		delete(e.memories, mem.ID)
		e.idx.remove(mem.ID)
		e.mu.Unlock()
		return nil, err
	}
	rescoreAll(e.memories, e.graph)

	if e.store != nil {
		if err := e.store.Save(ctx, mem); err != nil {
			delete(e.memories, mem.ID)
			e.idx.remove(mem.ID)
			if rerr := e.rebuildLocked(); rerr == nil {
				rescoreAll(e.memories, e.graph)
			}
			e.mu.Unlock()
			return nil, fmt.Errorf("failed to persist memory: %w", err)
		}
		e.persistScoresLocked(ctx, e.allIDsLocked())
	}

	result := mem.Clone()
	created, changed := e.onMemoryCreated, e.onScoresChanged
	ids := e.allIDsLocked()
	e.mu.Unlock()

	if created != nil {
		created(result.ID)
	}
	if changed != nil {
		changed(ids)
	}
	return result, nil
}

// DeleteMemory removes a memory, all its incident connections, and rescores
// the remaining graph. Returns ErrMemoryNotFound for unknown ids.
func (e *MemoryEngine) DeleteMemory(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.writesBlocked {
		e.mu.Unlock()
		return ErrWritesBlocked
	}

	mem, ok := e.memories[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMemoryNotFound, id)
	}

	if e.store != nil {
		if err := e.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			e.mu.Unlock()
			return fmt.Errorf("failed to delete memory %s: %w", id, err)
		}
	}

	delete(e.memories, id)
	e.idx.remove(id)

	if err := e.rebuildLocked(); err != nil {
		// Remaining embeddings are inconsistent; halt writes until an
		// explicit recalculation.
		e.writesBlocked = true
		e.mu.Unlock()
		return err
	}
	rescoreAll(e.memories, e.graph)

	if e.store != nil {
		e.persistScoresLocked(ctx, e.allIDsLocked())
	}

	deleted, changed := e.onMemoryDeleted, e.onScoresChanged
	ids := e.allIDsLocked()
	e.mu.Unlock()

	if deleted != nil {
		deleted(mem.ID)
	}
	if changed != nil {
		changed(ids)
	}
	return nil
}

// Search embeds the query, ranks all memories by hybrid score (semantic
// similarity blended with normalized importance) and reinforces the returned
// memories and their graph neighborhood.
//
// Ties break by created_at ascending, then id, so results are deterministic
// for a fixed provider and memory set.
func (e *MemoryEngine) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrInvalidQuery
	}
	if opts.TopK <= 0 {
		opts.TopK = e.config.DefaultTopK
	}
	if opts.MinRelevance < 0 {
		opts.MinRelevance = e.config.DefaultMinRelevance
	}

	queryVector, err := e.provider.Embed(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	norm := e.config.ScoreNormalization
	if norm <= 0 {
		norm = 1
		for _, mem := range e.memories {
			if s := mem.Score(); s > norm {
				norm = s
			}
		}
	}

	results := make([]SearchResult, 0, len(e.memories))
	for _, mem := range e.memories {
		sim := cosine(queryVector, mem.Embedding)
		hybrid := sim*hybridSimilarityWeight + (mem.Score()/norm)*hybridImportanceWeight
		if hybrid < opts.MinRelevance {
			continue
		}
		results = append(results, SearchResult{
			Memory:      mem, // replaced with a clone below
			Similarity:  sim,
			HybridScore: hybrid,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].HybridScore != results[j].HybridScore {
			return results[i].HybridScore > results[j].HybridScore
		}
		if !results[i].Memory.CreatedAt.Equal(results[j].Memory.CreatedAt) {
			return results[i].Memory.CreatedAt.Before(results[j].Memory.CreatedAt)
		}
		return results[i].Memory.ID < results[j].Memory.ID
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	// Reinforce the recalled memories using their raw similarity, not the
	// hybrid score. Never fails the search: persistence errors are logged.
	now := time.Now().UTC()
	touched := make(map[string]bool)
	for _, r := range results {
		for _, id := range propagateReinforcement(e.memories, e.graph, r.Memory.ID, r.Similarity, now) {
			touched[id] = true
		}
	}

	// Hand out clones reflecting post-reinforcement scores.
	for i := range results {
		results[i].Memory = results[i].Memory.Clone()
		results[i].Memory.Embedding = nil
	}

	if len(touched) > 0 {
		ids := make([]string, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		if e.store != nil {
			e.persistScoresLocked(ctx, ids)
		}
		if e.onScoresChanged != nil {
			go e.onScoresChanged(ids)
		}
	}

	return results, nil
}

// Reinforce applies an external reinforcement (a manual "boost") to a single
// memory. The amount must be non-negative; the score invariant depends on it.
func (e *MemoryEngine) Reinforce(ctx context.Context, id string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%w: reinforcement amount must be non-negative", ErrInvalidInput)
	}

	e.mu.Lock()
	mem, ok := e.memories[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMemoryNotFound, id)
	}

	reinforce(mem, amount, time.Now().UTC())

	if e.store != nil {
		if err := e.store.UpdateScores(ctx, []storage.ScoreUpdate{scoreUpdateFor(mem)}); err != nil {
			mem.Reinforcement -= amount
			e.mu.Unlock()
			return fmt.Errorf("failed to persist reinforcement for %s: %w", id, err)
		}
	}

	changed := e.onScoresChanged
	e.mu.Unlock()

	if changed != nil {
		changed([]string{id})
	}
	return nil
}

// Recalculate rebuilds the graph and recomputes every score from scratch,
// resetting accumulated reinforcement. This is the one operation that is
// allowed to erase reinforcement history; it also clears a rebuild-failure
// write block.
func (e *MemoryEngine) Recalculate(ctx context.Context) error {
	e.mu.Lock()

	if err := e.rebuildLocked(); err != nil {
		e.mu.Unlock()
		return err
	}

	for _, mem := range e.memories {
		mem.Reinforcement = 0
	}
	rescoreAll(e.memories, e.graph)
	e.writesBlocked = false

	if e.store != nil {
		ids := e.allIDsLocked()
		if err := e.store.UpdateScores(ctx, e.scoreUpdatesLocked(ids)); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("failed to persist recalculated scores: %w", err)
		}
	}

	changed := e.onScoresChanged
	ids := e.allIDsLocked()
	e.mu.Unlock()

	if changed != nil {
		changed(ids)
	}
	return nil
}

// Network returns the full node+edge list for visualization. A positive
// thresholdOverride rebuilds a throwaway graph at that threshold without
// touching engine state; otherwise the live graph is used.
func (e *MemoryEngine) Network(thresholdOverride float64) (*Network, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g := e.graph
	if thresholdOverride > 0 && thresholdOverride != e.config.BaseThreshold {
		var err error
		g, err = buildGraph(e.idx.all(), e.wordCountsLocked(), thresholdOverride)
		if err != nil {
			return nil, err
		}
	}

	scores := make(map[string]float64, len(e.memories))
	for id, mem := range e.memories {
		scores[id] = mem.Score()
	}
	sizes := viz.NodeSizes(scores, viz.DefaultMinSize, viz.DefaultMaxSize)

	network := &Network{
		Nodes: make([]NetworkNode, 0, len(e.memories)),
		Edges: make([]NetworkEdge, 0),
	}

	for id, mem := range e.memories {
		network.Nodes = append(network.Nodes, NetworkNode{
			ID:      id,
			Label:   mem.Content,
			Score:   mem.Score(),
			Tags:    append([]string(nil), mem.Tags...),
			Created: mem.CreatedAt.Format(time.RFC3339),
			Size:    sizes[id],
		})

		for _, edge := range g.Neighbors(id) {
			// Emit each undirected edge once.
			if id < edge.NeighborID {
				network.Edges = append(network.Edges, NetworkEdge{
					From:       id,
					To:         edge.NeighborID,
					Similarity: edge.Similarity,
				})
			}
		}
	}

	sort.Slice(network.Nodes, func(i, j int) bool {
		return network.Nodes[i].ID < network.Nodes[j].ID
	})
	sort.Slice(network.Edges, func(i, j int) bool {
		if network.Edges[i].From != network.Edges[j].From {
			return network.Edges[i].From < network.Edges[j].From
		}
		return network.Edges[i].To < network.Edges[j].To
	})

	return network, nil
}

// Get returns a copy of a memory by id.
func (e *MemoryEngine) Get(id string) (*types.Memory, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	mem, ok := e.memories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemoryNotFound, id)
	}
	return mem.Clone(), nil
}

// List returns copies of all memories sorted by score descending.
// Embeddings are stripped; they are engine-internal.
func (e *MemoryEngine) List() []*types.Memory {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*types.Memory, 0, len(e.memories))
	for _, mem := range e.memories {
		c := mem.Clone()
		c.Embedding = nil
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of live memories.
func (e *MemoryEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.memories)
}

// rebuildLocked recomputes the connection graph from the current index
// snapshot. Caller must hold the write lock (or be the only goroutine with
// access, as in Load).
func (e *MemoryEngine) rebuildLocked() error {
	g, err := buildGraph(e.idx.all(), e.wordCountsLocked(), e.config.BaseThreshold)
	if err != nil {
		return err
	}
	e.graph = g
	return nil
}

func (e *MemoryEngine) wordCountsLocked() map[string]int {
	counts := make(map[string]int, len(e.memories))
	for id, mem := range e.memories {
		counts[id] = mem.WordCount()
	}
	return counts
}

func (e *MemoryEngine) allIDsLocked() []string {
	ids := make([]string, 0, len(e.memories))
	for id := range e.memories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *MemoryEngine) scoreUpdatesLocked(ids []string) []storage.ScoreUpdate {
	updates := make([]storage.ScoreUpdate, 0, len(ids))
	for _, id := range ids {
		if mem, ok := e.memories[id]; ok {
			updates = append(updates, scoreUpdateFor(mem))
		}
	}
	return updates
}

// persistScoresLocked writes score changes best-effort: score persistence
// must never fail the surrounding operation, the in-memory state is already
// consistent.
func (e *MemoryEngine) persistScoresLocked(ctx context.Context, ids []string) {
	if err := e.store.UpdateScores(ctx, e.scoreUpdatesLocked(ids)); err != nil {
		log.Printf("ERROR: Failed to persist score updates: %v", err)
	}
}

func scoreUpdateFor(mem *types.Memory) storage.ScoreUpdate {
	return storage.ScoreUpdate{
		ID:               mem.ID,
		BaseScore:        mem.BaseScore,
		Reinforcement:    mem.Reinforcement,
		LastReinforcedAt: mem.LastReinforcedAt,
	}
}
