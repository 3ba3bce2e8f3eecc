package engine

import (
	"fmt"
	"math"
	"sort"
)

// Edge is a weighted connection from one memory to a neighbor.
// similarity is the cosine similarity of the two embeddings, in [0,1].
type Edge struct {
	NeighborID string
	Similarity float64
}

// Graph is the sparse, weighted, undirected similarity graph over memories.
// Adjacency lists are symmetric: an edge (a,b) appears in both lists with the
// same weight.
type Graph struct {
	adjacency map[string][]Edge
}

// Neighbors returns the adjacency list for a memory id. Nil for unknown ids.
func (g *Graph) Neighbors(memoryID string) []Edge {
	return g.adjacency[memoryID]
}

// EdgeCount returns the number of distinct undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.adjacency {
		total += len(edges)
	}
	return total / 2
}

// requiredThreshold applies the dynamic threshold rule: short, generic
// phrases produce spuriously high cosine similarity, so pairs involving
// short texts must clear a higher bar.
func requiredThreshold(base float64, minWords int) float64 {
	switch {
	case minWords <= 3:
		return math.Max(base+0.15, 0.6)
	case minWords <= 5:
		return base + 0.1
	default:
		return base
	}
}

// buildGraph computes the connection graph from an embedding snapshot.
//
// All vectors are L2-normalized so dot product equals cosine similarity, then
// the full O(n²) pairwise similarity is computed. Acceptable for the target
// scale of low thousands of memories; incremental updates are the natural
// optimization beyond that.
//
// wordCounts carries the per-memory content word count for the dynamic
// threshold. A dimensionality mismatch between stored vectors is fatal
// (ErrGraphRebuild): it indicates an embedding-model change mid-lifetime.
func buildGraph(vectors map[string][]float64, wordCounts map[string]int, baseThreshold float64) (*Graph, error) {
	g := &Graph{adjacency: make(map[string][]Edge, len(vectors))}

	// Stable iteration order so rebuilds are deterministic.
	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
		g.adjacency[id] = nil
	}
	sort.Strings(ids)

	if len(ids) < 2 {
		return g, nil
	}

	dim := len(vectors[ids[0]])
	normalized := make(map[string][]float64, len(vectors))
	for _, id := range ids {
		v := vectors[id]
		if len(v) != dim {
			return nil, fmt.Errorf("%w: embedding for %s has dimension %d, expected %d",
				ErrGraphRebuild, id, len(v), dim)
		}
		normalized[id] = normalize(v)
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			sim := dot(normalized[a], normalized[b])
			if sim < 0 {
				sim = 0
			}

			minWords := wordCounts[a]
			if wordCounts[b] < minWords {
				minWords = wordCounts[b]
			}

			if sim >= requiredThreshold(baseThreshold, minWords) {
				g.adjacency[a] = append(g.adjacency[a], Edge{NeighborID: b, Similarity: sim})
				g.adjacency[b] = append(g.adjacency[b], Edge{NeighborID: a, Similarity: sim})
			}
		}
	}

	return g, nil
}

// normalize returns v scaled to unit L2 norm. Zero vectors are returned as-is
// (their similarity to anything is 0).
func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// cosine computes the cosine similarity of two vectors, clamped to [0,1].
// Used for query-to-memory similarity in search.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProd, normA, normB float64
	for i := range a {
		dotProd += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dotProd / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
