package sampler

import "math"

// cosineSimilarity is dot(a,b)/(||a||*||b||), returning 0 when either
// magnitude is zero, the vectors have unequal length, or any element is
// non-finite (spec-mandated degenerate-input rule: no NaN/Inf ever
// propagates into a selection decision).
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		if !isFinite(a[i]) || !isFinite(b[i]) {
			return 0
		}
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// cosineDistance is 1 - cosineSimilarity.
func cosineDistance(a, b []float64) float64 {
	return 1 - cosineSimilarity(a, b)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// farthestPointSelect picks count indices from candidates (indices into
// embeddings): the first chosen uniformly at random, then repeatedly the
// candidate whose minimum cosine distance to the already-selected set is
// maximal, until count picks are made.
func farthestPointSelect(embeddings [][]float64, candidates []int, count int, rng randSource) []int {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}
	pool := make([]int, len(candidates))
	copy(pool, candidates)

	firstPick := rng.IntN(len(pool))
	selected := []int{pool[firstPick]}
	pool = append(pool[:firstPick], pool[firstPick+1:]...)

	for len(selected) < count && len(pool) > 0 {
		bestIdx := 0
		bestDist := -1.0
		for i, candidate := range pool {
			minDist := math.MaxFloat64
			for _, s := range selected {
				d := cosineDistance(embeddings[candidate], embeddings[s])
				if d < minDist {
					minDist = d
				}
			}
			if minDist > bestDist {
				bestDist = minDist
				bestIdx = i
			}
		}
		selected = append(selected, pool[bestIdx])
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}
	return selected
}
