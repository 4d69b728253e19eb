package anomaly

import (
	"math"
	"math/rand"
)

// isolationForest scores points by how few random partitioning steps are
// needed to separate them from the rest of the batch. Scores follow the
// standard 2^(-E[h]/c(n)) normalization, so they live in (0, 1) with
// easily-isolated points scoring high.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
}

type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int // populated on leaves only
}

func fitIsolationForest(data [][]float64, trees, sampleSize int, rng *rand.Rand) *isolationForest {
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize) + 1)))

	forest := &isolationForest{
		trees:      make([]*isoNode, 0, trees),
		sampleSize: sampleSize,
	}
	for i := 0; i < trees; i++ {
		sample := subsample(data, sampleSize, rng)
		forest.trees = append(forest.trees, buildIsoTree(sample, 0, maxDepth, rng))
	}
	return forest
}

// score returns the anomaly indicator for one point.
func (f *isolationForest) score(point []float64) float64 {
	denominator := averagePathLength(f.sampleSize)
	if denominator <= 0 || len(f.trees) == 0 {
		return 0
	}

	var total float64
	for _, tree := range f.trees {
		total += pathLength(point, tree, 0)
	}
	mean := total / float64(len(f.trees))

	return math.Pow(2, -mean/denominator)
}

func buildIsoTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &isoNode{feature: -1, size: len(data)}
	}

	dims := len(data[0])
	// Pick a random feature with spread; give up after trying each once.
	order := rng.Perm(dims)
	for _, feature := range order {
		lo, hi := data[0][feature], data[0][feature]
		for _, row := range data[1:] {
			if row[feature] < lo {
				lo = row[feature]
			}
			if row[feature] > hi {
				hi = row[feature]
			}
		}
		if hi <= lo {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, row := range data {
			if row[feature] < split {
				left = append(left, row)
			} else {
				right = append(right, row)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}

		return &isoNode{
			feature: feature,
			split:   split,
			left:    buildIsoTree(left, depth+1, maxDepth, rng),
			right:   buildIsoTree(right, depth+1, maxDepth, rng),
		}
	}

	// All features constant across the subset.
	return &isoNode{feature: -1, size: len(data)}
}

func pathLength(point []float64, node *isoNode, depth int) float64 {
	if node.feature < 0 {
		return float64(depth) + averagePathLength(node.size)
	}
	if point[node.feature] < node.split {
		return pathLength(point, node.left, depth+1)
	}
	return pathLength(point, node.right, depth+1)
}

// averagePathLength is c(n), the expected unsuccessful-search depth of a
// binary search tree over n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

func subsample(data [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size >= len(data) {
		return data
	}
	idx := rng.Perm(len(data))[:size]
	sample := make([][]float64, 0, size)
	for _, i := range idx {
		sample = append(sample, data[i])
	}
	return sample
}
