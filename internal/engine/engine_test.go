package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/moneta-hq/moneta/internal/embedding"
	"github.com/moneta-hq/moneta/internal/storage"
	"github.com/moneta-hq/moneta/pkg/types"
)

func newTestEngine(t *testing.T, store storage.MemoryStore) *MemoryEngine {
	t.Helper()
	eng, err := NewMemoryEngine(embedding.NewDeterministicProvider(256), store, DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

func mustAdd(t *testing.T, eng *MemoryEngine, content string) *types.Memory {
	t.Helper()
	mem, err := eng.AddMemory(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("failed to add %q: %v", content, err)
	}
	return mem
}

func TestAddMemory(t *testing.T) {
	eng := newTestEngine(t, nil)

	mem, err := eng.AddMemory(context.Background(), "I love pizza", []string{"food"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(mem.ID, "mem_") {
		t.Errorf("id %q should have mem_ prefix", mem.ID)
	}
	if mem.Content != "I love pizza" {
		t.Errorf("content = %q", mem.Content)
	}
	if mem.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if len(mem.Tags) != 1 || mem.Tags[0] != "food" {
		t.Errorf("tags = %v", mem.Tags)
	}
	if eng.Count() != 1 {
		t.Errorf("count = %d, want 1", eng.Count())
	}
}

func TestAddMemory_EmptyContent(t *testing.T) {
	eng := newTestEngine(t, nil)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := eng.AddMemory(context.Background(), content, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("content %q: expected ErrInvalidInput, got %v", content, err)
		}
	}
}

// Two short overlapping statements must connect despite the escalated
// threshold for three-word texts; an unrelated statement stays isolated.
func TestNetwork_OverlappingShortTexts(t *testing.T) {
	eng := newTestEngine(t, nil)
	pizza := mustAdd(t, eng, "I love pizza")
	sushi := mustAdd(t, eng, "I love sushi")
	dog := mustAdd(t, eng, "My dog is named Max")

	network, err := eng.Network(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(network.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(network.Nodes))
	}
	if len(network.Edges) != 1 {
		t.Fatalf("expected exactly the pizza-sushi edge, got %v", network.Edges)
	}

	edge := network.Edges[0]
	pair := map[string]bool{edge.From: true, edge.To: true}
	if !pair[pizza.ID] || !pair[sushi.ID] {
		t.Errorf("edge %v should connect %s and %s", edge, pizza.ID, sushi.ID)
	}
	if pair[dog.ID] {
		t.Errorf("unrelated memory must not connect")
	}

	for _, node := range network.Nodes {
		if node.Size < 25 || node.Size > 80 {
			t.Errorf("node %s size %v outside [25,80]", node.ID, node.Size)
		}
	}
}

func TestNetwork_ThresholdOverride(t *testing.T) {
	eng := newTestEngine(t, nil)
	mustAdd(t, eng, "I love pizza")
	mustAdd(t, eng, "I love sushi")

	// An impossible threshold prunes every edge without touching the engine.
	network, err := eng.Network(0.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(network.Edges) != 0 {
		t.Errorf("expected no edges at threshold 0.99, got %v", network.Edges)
	}

	network, err = eng.Network(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(network.Edges) != 1 {
		t.Errorf("live graph should be unchanged, got %v", network.Edges)
	}
}

func TestSearch_RanksAndReinforces(t *testing.T) {
	eng := newTestEngine(t, nil)
	pizza := mustAdd(t, eng, "I love pizza")
	mustAdd(t, eng, "I love sushi")
	mustAdd(t, eng, "My dog is named Max")

	results, err := eng.Search(context.Background(), SearchOptions{Query: "pizza", MinRelevance: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Memory.ID != pizza.ID {
		t.Errorf("top result = %q, want the pizza memory", results[0].Memory.Content)
	}
	if results[0].Similarity <= 0.5 {
		t.Errorf("similarity = %v, want > 0.5", results[0].Similarity)
	}
	if results[0].HybridScore <= results[0].Similarity*hybridSimilarityWeight {
		t.Errorf("hybrid score should include an importance share")
	}
	if len(results[0].Memory.Embedding) != 0 {
		t.Error("search results must not expose embeddings")
	}

	// Recall reinforces the returned memory and its neighborhood.
	got, err := eng.Get(pizza.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reinforcement <= 0 {
		t.Error("recalled memory should have been reinforced")
	}
	if got.LastReinforcedAt == nil {
		t.Error("last_reinforced_at should be set")
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	eng := newTestEngine(t, nil)
	mustAdd(t, eng, "something to find")

	for _, q := range []string{"", "   "} {
		if _, err := eng.Search(context.Background(), SearchOptions{Query: q}); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("query %q: expected ErrInvalidQuery, got %v", q, err)
		}
	}
}

func TestSearch_MinRelevanceAboveOne(t *testing.T) {
	eng := newTestEngine(t, nil)
	mustAdd(t, eng, "I love pizza")

	results, err := eng.Search(context.Background(), SearchOptions{Query: "I love pizza", MinRelevance: 1.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("min relevance above 1 should yield nothing, got %d results", len(results))
	}
}

func TestSearch_TopK(t *testing.T) {
	eng := newTestEngine(t, nil)
	for i := 0; i < 5; i++ {
		mustAdd(t, eng, fmt.Sprintf("weekly report number %d with plenty of words", i))
	}

	results, err := eng.Search(context.Background(), SearchOptions{Query: "weekly report", TopK: 2, MinRelevance: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("top_k = 2, got %d results", len(results))
	}
}

// Identical content produces identical similarity and identical scores; the
// older memory must rank first.
func TestSearch_TieBreaksByAge(t *testing.T) {
	eng := newTestEngine(t, nil)
	first := mustAdd(t, eng, "the very same note")
	mustAdd(t, eng, "the very same note")

	results, err := eng.Search(context.Background(), SearchOptions{Query: "the very same note", MinRelevance: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both copies, got %d", len(results))
	}
	if results[0].Memory.ID != first.ID {
		t.Errorf("older memory should rank first on a tie")
	}
}

func TestDeleteMemory(t *testing.T) {
	eng := newTestEngine(t, nil)
	pizza := mustAdd(t, eng, "I love pizza")
	sushi := mustAdd(t, eng, "I love sushi")

	if err := eng.DeleteMemory(context.Background(), sushi.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if eng.Count() != 1 {
		t.Errorf("count = %d, want 1", eng.Count())
	}
	if _, err := eng.Get(sushi.ID); !errors.Is(err, ErrMemoryNotFound) {
		t.Errorf("expected ErrMemoryNotFound, got %v", err)
	}

	// The survivor lost its only connection and its structural score with it.
	network, err := eng.Network(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(network.Edges) != 0 {
		t.Errorf("expected no edges after delete, got %v", network.Edges)
	}
	got, _ := eng.Get(pizza.ID)
	if got.BaseScore != 0 {
		t.Errorf("isolated three-word memory should have base score 0, got %v", got.BaseScore)
	}
}

func TestDeleteMemory_Unknown(t *testing.T) {
	eng := newTestEngine(t, nil)
	if err := eng.DeleteMemory(context.Background(), "mem_missing"); !errors.Is(err, ErrMemoryNotFound) {
		t.Errorf("expected ErrMemoryNotFound, got %v", err)
	}
}

func TestReinforce(t *testing.T) {
	eng := newTestEngine(t, nil)
	mem := mustAdd(t, eng, "remember this one")

	if err := eng.Reinforce(context.Background(), mem.ID, 2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := eng.Get(mem.ID)
	if got.Reinforcement != 2.0 {
		t.Errorf("reinforcement = %v, want 2.0", got.Reinforcement)
	}

	if err := eng.Reinforce(context.Background(), mem.ID, -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative amount: expected ErrInvalidInput, got %v", err)
	}
	if err := eng.Reinforce(context.Background(), "mem_missing", 1); !errors.Is(err, ErrMemoryNotFound) {
		t.Errorf("unknown id: expected ErrMemoryNotFound, got %v", err)
	}
}

func TestRecalculate_ResetsReinforcement(t *testing.T) {
	eng := newTestEngine(t, nil)
	pizza := mustAdd(t, eng, "I love pizza")
	mustAdd(t, eng, "I love sushi")

	if err := eng.Reinforce(context.Background(), pizza.ID, 5.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, _ := eng.Get(pizza.ID)
	if err := eng.Recalculate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := eng.Get(pizza.ID)
	if after.Reinforcement != 0 {
		t.Errorf("recalculate must reset reinforcement, got %v", after.Reinforcement)
	}
	if after.BaseScore != before.BaseScore {
		t.Errorf("recalculate must not change the structural score: %v vs %v", after.BaseScore, before.BaseScore)
	}
}

func TestList_SortedByScore(t *testing.T) {
	eng := newTestEngine(t, nil)
	mustAdd(t, eng, "lonely note")
	boosted := mustAdd(t, eng, "another lonely note")

	if err := eng.Reinforce(context.Background(), boosted.ID, 3.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list := eng.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(list))
	}
	if list[0].ID != boosted.ID {
		t.Errorf("boosted memory should rank first")
	}
	if len(list[0].Embedding) != 0 {
		t.Error("list must not expose embeddings")
	}
}

// mockStore is an in-memory MemoryStore with injectable failures.
type mockStore struct {
	memories map[string]*types.Memory
	failSave bool
}

func newMockStore() *mockStore {
	return &mockStore{memories: make(map[string]*types.Memory)}
}

func (m *mockStore) Save(_ context.Context, memory *types.Memory) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.memories[memory.ID] = memory.Clone()
	return nil
}

func (m *mockStore) UpdateScores(_ context.Context, updates []storage.ScoreUpdate) error {
	for _, u := range updates {
		if mem, ok := m.memories[u.ID]; ok {
			mem.BaseScore = u.BaseScore
			mem.Reinforcement = u.Reinforcement
			mem.LastReinforcedAt = u.LastReinforcedAt
		}
	}
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	if _, ok := m.memories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.memories, id)
	return nil
}

func (m *mockStore) LoadAll(_ context.Context) ([]*types.Memory, error) {
	out := make([]*types.Memory, 0, len(m.memories))
	for _, mem := range m.memories {
		out = append(out, mem.Clone())
	}
	return out, nil
}

func (m *mockStore) Close() error { return nil }

func TestLoad_RestoresGraphAndScores(t *testing.T) {
	store := newMockStore()

	eng := newTestEngine(t, store)
	pizza := mustAdd(t, eng, "I love pizza")
	mustAdd(t, eng, "I love sushi")
	if err := eng.Reinforce(context.Background(), pizza.ID, 1.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored := newTestEngine(t, store)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restored.Count() != 2 {
		t.Fatalf("count = %d, want 2", restored.Count())
	}

	network, err := restored.Network(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(network.Edges) != 1 {
		t.Errorf("connection graph should be rebuilt on load, got %v", network.Edges)
	}

	got, err := restored.Get(pizza.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reinforcement != 1.5 {
		t.Errorf("reinforcement must survive restarts, got %v", got.Reinforcement)
	}
}

// A failed persist must leave no partial memory behind.
func TestAddMemory_PersistFailureRollsBack(t *testing.T) {
	store := newMockStore()
	store.failSave = true

	eng := newTestEngine(t, store)
	if _, err := eng.AddMemory(context.Background(), "doomed note", nil); err == nil {
		t.Fatal("expected error")
	}
	if eng.Count() != 0 {
		t.Errorf("failed add must not leave state behind, count = %d", eng.Count())
	}
}
