package cluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Silhouette returns the mean silhouette coefficient of a clustering, in
// [-1, 1]. Samples in singleton clusters score 0, and the score is 0 when
// fewer than two clusters are present.
func Silhouette(dist mat.Symmetric, assignment []int) float64 {
	n := len(assignment)
	sizes := map[int]int{}
	for _, c := range assignment {
		sizes[c]++
	}
	if len(sizes) < 2 || n == 0 {
		return 0
	}
	var total float64
	sums := make(map[int]float64, len(sizes))
	for i, own := range assignment {
		if sizes[own] == 1 {
			continue
		}
		clear(sums)
		for j, c := range assignment {
			if j != i {
				sums[c] += dist.At(i, j)
			}
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, s := range sums {
			if c != own {
				b = math.Min(b, s/float64(sizes[c]))
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}
