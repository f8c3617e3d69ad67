// Package cluster groups embedding vectors with k-means and derives short
// human-readable labels from member term frequency.
package cluster

import (
	"errors"
	"math"
	"math/rand"
)

// MaxClusters caps k regardless of corpus size; categories stay coarse and
// readable.
const MaxClusters = 4

// MinNotes is the smallest corpus that clustering accepts.
const MinNotes = 3

const (
	defaultSeed    = 42
	maxIterations  = 25
	convergenceEps = 1e-6
)

// ErrInsufficientData is returned when fewer than MinNotes vectors are
// available.
var ErrInsufficientData = errors.New("cluster: need at least 3 embedded notes")

// Assign partitions vectors into k = min(MaxClusters, len(vectors)) groups
// and returns one cluster index per vector. The seed is fixed so repeated
// runs over the same corpus produce the same assignment.
func Assign(vectors [][]float32) ([]int, int, error) {
	n := len(vectors)
	if n < MinNotes {
		return nil, 0, ErrInsufficientData
	}

	k := MaxClusters
	if n < k {
		k = n
	}

	rng := rand.New(rand.NewSource(defaultSeed))

	dim := len(vectors[0])
	centroids := initCentroids(vectors, k, rng)
	assignment := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if best != assignment[i] {
				assignment[i] = best
				changed = true
			}
		}

		next := recomputeCentroids(vectors, assignment, k, dim)

		// Reseed empty clusters with the point farthest from its centroid.
		for c := range next {
			if next[c] == nil {
				far := farthestPoint(vectors, assignment, centroids)
				assignment[far] = c
				next[c] = copyVector(vectors[far])
				changed = true
			}
		}

		moved := centroidShift(centroids, next)
		centroids = next

		if !changed || moved < convergenceEps {
			break
		}
	}

	return assignment, k, nil
}

func initCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(vectors))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = copyVector(vectors[perm[i]])
	}
	return centroids
}

func copyVector(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func nearestCentroid(v []float32, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := sqDistance(v, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func sqDistance(v []float32, centroid []float64) float64 {
	var sum float64
	for i := range centroid {
		var x float64
		if i < len(v) {
			x = float64(v[i])
		}
		d := x - centroid[i]
		sum += d * d
	}
	return sum
}

func recomputeCentroids(vectors [][]float32, assignment []int, k, dim int) [][]float64 {
	sums := make([][]float64, k)
	counts := make([]int, k)

	for i, v := range vectors {
		c := assignment[i]
		if sums[c] == nil {
			sums[c] = make([]float64, dim)
		}
		for j := 0; j < dim && j < len(v); j++ {
			sums[c][j] += float64(v[j])
		}
		counts[c]++
	}

	for c := range sums {
		if sums[c] == nil {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	return sums
}

func farthestPoint(vectors [][]float32, assignment []int, centroids [][]float64) int {
	far := 0
	farDist := -1.0
	for i, v := range vectors {
		d := sqDistance(v, centroids[assignment[i]])
		if d > farDist {
			farDist = d
			far = i
		}
	}
	return far
}

func centroidShift(old, next [][]float64) float64 {
	var total float64
	for c := range old {
		if next[c] == nil {
			continue
		}
		for j := range old[c] {
			d := old[c][j] - next[c][j]
			total += d * d
		}
	}
	return total
}
