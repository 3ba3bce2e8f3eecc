package engine

import (
	"errors"
	"math"
	"testing"
)

func TestRequiredThreshold(t *testing.T) {
	cases := []struct {
		name     string
		base     float64
		minWords int
		want     float64
	}{
		{"very short text", 0.35, 3, 0.6},
		{"very short text with high base", 0.55, 2, 0.7},
		{"short text", 0.35, 5, 0.45},
		{"short text lower bound", 0.35, 4, 0.45},
		{"long text", 0.35, 6, 0.35},
		{"long text unaffected", 0.35, 50, 0.35},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := requiredThreshold(tc.base, tc.minWords)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("requiredThreshold(%v, %d) = %v, want %v", tc.base, tc.minWords, got, tc.want)
			}
		})
	}
}

func TestBuildGraph_Symmetric(t *testing.T) {
	vectors := map[string][]float64{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 0, 1},
	}
	wordCounts := map[string]int{"a": 10, "b": 10, "c": 10}

	g, err := buildGraph(vectors, wordCounts, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	abEdges := g.Neighbors("a")
	if len(abEdges) != 1 || abEdges[0].NeighborID != "b" {
		t.Fatalf("expected a-b edge, got %v", abEdges)
	}

	baEdges := g.Neighbors("b")
	if len(baEdges) != 1 || baEdges[0].NeighborID != "a" {
		t.Fatalf("expected b-a edge, got %v", baEdges)
	}

	if abEdges[0].Similarity != baEdges[0].Similarity {
		t.Errorf("edge weight asymmetric: %v vs %v", abEdges[0].Similarity, baEdges[0].Similarity)
	}

	if len(g.Neighbors("c")) != 0 {
		t.Errorf("orthogonal vector should have no edges, got %v", g.Neighbors("c"))
	}

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 undirected edge, got %d", g.EdgeCount())
	}
}

// A pair passing the base threshold must still be rejected when one side is a
// very short text that doesn't clear the escalated bar.
func TestBuildGraph_ShortTextEscalation(t *testing.T) {
	// cos = 0.5: above base 0.35, below the escalated 0.6.
	vectors := map[string][]float64{
		"short": {1, 0},
		"other": {0.5, math.Sqrt(0.75)},
	}

	g, err := buildGraph(vectors, map[string]int{"short": 2, "other": 12}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("short-text pair at 0.5 similarity should not connect")
	}

	// The same pair connects when both sides are long texts.
	g, err = buildGraph(vectors, map[string]int{"short": 12, "other": 12}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("long-text pair at 0.5 similarity should connect")
	}
}

func TestBuildGraph_IdenticalVectors(t *testing.T) {
	vectors := map[string][]float64{
		"a": {0.2, 0.4, 0.1},
		"b": {0.2, 0.4, 0.1},
	}

	g, err := buildGraph(vectors, map[string]int{"a": 8, "b": 8}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edges := g.Neighbors("a")
	if len(edges) != 1 {
		t.Fatalf("identical vectors must connect, got %v", edges)
	}
	if math.Abs(edges[0].Similarity-1.0) > 1e-9 {
		t.Errorf("identical vectors should have similarity 1, got %v", edges[0].Similarity)
	}
}

func TestBuildGraph_SmallSets(t *testing.T) {
	g, err := buildGraph(map[string][]float64{}, map[string]int{}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("empty set should produce empty graph")
	}

	g, err = buildGraph(map[string][]float64{"only": {1, 0}}, map[string]int{"only": 5}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Neighbors("only")) != 0 {
		t.Errorf("single memory should have no neighbors")
	}
}

func TestBuildGraph_DimensionMismatch(t *testing.T) {
	vectors := map[string][]float64{
		"a": {1, 0, 0},
		"b": {1, 0},
	}

	_, err := buildGraph(vectors, map[string]int{"a": 5, "b": 5}, 0.35)
	if !errors.Is(err, ErrGraphRebuild) {
		t.Fatalf("expected ErrGraphRebuild, got %v", err)
	}
}

func TestBuildGraph_ZeroVector(t *testing.T) {
	vectors := map[string][]float64{
		"zero":  {0, 0, 0},
		"other": {1, 0, 0},
	}

	g, err := buildGraph(vectors, map[string]int{"zero": 8, "other": 8}, 0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("zero vector should connect to nothing")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: got %v, want 1", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v, want 0", got)
	}
	// Negative similarity clamps to zero.
	if got := cosine([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Errorf("opposite vectors: got %v, want 0", got)
	}
	// Mismatched lengths are treated as unrelated.
	if got := cosine([]float64{1, 0}, []float64{1}); got != 0 {
		t.Errorf("mismatched lengths: got %v, want 0", got)
	}
}
