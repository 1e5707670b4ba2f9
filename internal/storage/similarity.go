// ABOUTME: Brute-force similarity scoring and ranking for the local backends
// ABOUTME: Supports cosine, dot product, and euclidean metrics over float32 vectors
package storage

import (
	"math"
	"sort"
)

// Score computes similarity between a and b under metric.
// Vectors of different length score 0.
func Score(metric Metric, a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	switch metric {
	case MetricDotProduct:
		return DotProduct(a, b)
	case MetricEuclidean:
		return EuclideanScore(a, b)
	default:
		return CosineSimilarity(a, b)
	}
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// DotProduct returns the inner product of a and b
func DotProduct(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// EuclideanScore maps euclidean distance into (0, 1], identical vectors scoring 1
func EuclideanScore(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(1 / (1 + math.Sqrt(sum)))
}

// MatchesFilter reports whether metadata holds every key/value pair in filter
func MatchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Rank sorts matches by descending score, breaking ties by id, and keeps topK
func Rank(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
