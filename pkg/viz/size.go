// Package viz maps unbounded memory scores to bounded display sizes for the
// network visualization. The mapping is logarithmic with a sigmoid contrast
// stretch, so a handful of heavily reinforced memories can't flatten the rest
// of the graph into indistinguishable dots.
package viz

import "math"

// Default node size bounds in pixels.
const (
	DefaultMinSize = 25.0
	DefaultMaxSize = 80.0
)

// sigmoidSteepness controls how hard mid-range scores are pushed toward the
// extremes. 10 gives a visible spread without making the mapping binary.
const sigmoidSteepness = 10.0

// NodeSize maps one score into [minSize, maxSize] given the minimum and
// maximum live score. Scores are compressed logarithmically, positioned
// relative to the min/max range, then contrast-stretched with a sigmoid
// centered on the midpoint.
//
// When all scores are equal (logMin == logMax) every node gets the midpoint
// size rather than collapsing to minSize.
func NodeSize(score, minScore, maxScore, minSize, maxSize float64) float64 {
	logMin := math.Log(minScore + 1)
	logMax := math.Log(maxScore + 1)

	if logMax <= logMin {
		return (minSize + maxSize) / 2
	}

	relative := (math.Log(score+1) - logMin) / (logMax - logMin)
	stretched := 1 / (1 + math.Exp(-sigmoidSteepness*(relative-0.5)))

	return minSize + stretched*(maxSize-minSize)
}

// NodeSizes maps a full score set to display sizes in one pass, using the
// set's own min and max as the reference range.
func NodeSizes(scores map[string]float64, minSize, maxSize float64) map[string]float64 {
	sizes := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return sizes
	}

	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for _, s := range scores {
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}

	for id, s := range scores {
		sizes[id] = NodeSize(s, minScore, maxScore, minSize, maxSize)
	}
	return sizes
}
