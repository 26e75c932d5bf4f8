// Package similarity holds the scoring helpers shared by the brute-force stores.
package similarity

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b over their common prefix.
// Zero vectors score 0.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK returns the indexes of the k highest scores, best first. Ties keep
// insertion order. k <= 0 means 5.
func TopK(scores []float64, k int) []int {
	if k <= 0 {
		k = 5
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return scores[idxs[i]] > scores[idxs[j]] })
	if k < len(idxs) {
		idxs = idxs[:k]
	}
	return idxs
}
