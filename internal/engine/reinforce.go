package engine

import (
	"time"

	"github.com/moneta-hq/moneta/pkg/types"
)

// Reinforcement decays by a constant factor per hop, spreading-activation
// style. Propagation is breadth-limited to exactly three hops.
const (
	propagationDecay   = 0.3
	maxPropagationHops = 3
)

// propagateReinforcement applies reinforcement for one recalled memory:
// the memory itself receives the full relevance, first-degree neighbors 30%,
// second-degree 9%, third-degree 2.7%. A node reachable by multiple paths
// accumulates reinforcement from each path independently (no deduplication
// across paths); only immediate backtracking is excluded at each hop.
//
// relevance is clamped to [0,1] before propagation.
func propagateReinforcement(memories map[string]*types.Memory, g *Graph, recalledID string, relevance float64, now time.Time) []string {
	recalled, ok := memories[recalledID]
	if !ok {
		return nil
	}

	if relevance < 0 {
		relevance = 0
	} else if relevance > 1 {
		relevance = 1
	}

	touched := map[string]bool{recalledID: true}
	reinforce(recalled, relevance, now)

	firstDegree := relevance * propagationDecay
	secondDegree := firstDegree * propagationDecay
	thirdDegree := secondDegree * propagationDecay

	for _, e1 := range g.Neighbors(recalledID) {
		if j, ok := memories[e1.NeighborID]; ok {
			reinforce(j, firstDegree, now)
			touched[e1.NeighborID] = true
		}

		for _, e2 := range g.Neighbors(e1.NeighborID) {
			if e2.NeighborID == recalledID {
				continue
			}
			if k, ok := memories[e2.NeighborID]; ok {
				reinforce(k, secondDegree, now)
				touched[e2.NeighborID] = true
			}

			for _, e3 := range g.Neighbors(e2.NeighborID) {
				if e3.NeighborID == e1.NeighborID || e3.NeighborID == recalledID {
					continue
				}
				if m, ok := memories[e3.NeighborID]; ok {
					reinforce(m, thirdDegree, now)
					touched[e3.NeighborID] = true
				}
			}
		}
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	return ids
}
