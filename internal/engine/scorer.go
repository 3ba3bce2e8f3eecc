package engine

import (
	"time"

	"github.com/moneta-hq/moneta/pkg/types"
)

// Connection weight tiers: stronger connections contribute more to the
// structural base score.
const (
	strongSimilarity   = 0.7
	moderateSimilarity = 0.5

	strongWeight   = 3.0
	moderateWeight = 2.0
	weakWeight     = 1.0

	// hubMinConnections is the neighbor count at which a memory earns the
	// per-connection hub bonus.
	hubMinConnections = 3
	hubBonusPerEdge   = 0.1
)

// connectionWeight returns the tier weight for a similarity value.
func connectionWeight(sim float64) float64 {
	switch {
	case sim >= strongSimilarity:
		return strongWeight
	case sim >= moderateSimilarity:
		return moderateWeight
	default:
		return weakWeight
	}
}

// contentBonus rewards longer, more detailed memories.
func contentBonus(wordCount int) float64 {
	switch {
	case wordCount >= 10:
		return 0.2
	case wordCount >= 5:
		return 0.1
	default:
		return 0
	}
}

// baseScore computes the structural score for one memory from its adjacency
// list and content length. It is a pure function of graph topology and
// content; accumulated reinforcement is kept in a separate field and is
// never touched here.
func baseScore(neighbors []Edge, wordCount int) float64 {
	score := 0.0
	for _, e := range neighbors {
		score += e.Similarity * connectionWeight(e.Similarity)
	}

	if len(neighbors) >= hubMinConnections {
		score += float64(len(neighbors)) * hubBonusPerEdge
	}

	return score + contentBonus(wordCount)
}

// rescoreAll recomputes the structural base score for every memory from the
// given graph. Reinforcement is preserved: only BaseScore is replaced.
func rescoreAll(memories map[string]*types.Memory, g *Graph) {
	for id, mem := range memories {
		mem.BaseScore = baseScore(g.Neighbors(id), mem.WordCount())
	}
}

// reinforce adds amount to a memory's accumulated reinforcement and stamps
// last_reinforced_at. Amounts are always non-negative, so scores can never
// go below the structural base.
func reinforce(mem *types.Memory, amount float64, now time.Time) {
	mem.Reinforcement += amount
	mem.LastReinforcedAt = &now
}
