package cluster

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DistanceFunc measures dissimilarity between two attribution vectors of
// equal length. Implementations must be symmetric and return 0 for
// identical inputs.
type DistanceFunc func(a, b []float64) float64

// DefaultDistance is used when no metric is configured. L1 on the probability
// simplex is twice the total variation distance.
const DefaultDistance = "l1"

var distances = map[string]DistanceFunc{
	"l1":             L1,
	"manhattan":      L1,
	"euclidean":      Euclidean,
	"jensen_shannon": JensenShannon,
	"hellinger":      Hellinger,
	"spearman":       Spearman,
}

// LookupDistance resolves a metric name (case-insensitive; '-' and '_' are
// interchangeable). An empty name selects DefaultDistance.
func LookupDistance(name string) (DistanceFunc, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if key == "" {
		key = DefaultDistance
	}
	if fn, ok := distances[key]; ok {
		return fn, nil
	}
	return nil, errs.Configf("distance_metric", name, "use one of %s", strings.Join(DistanceNames(), ", "))
}

// DistanceNames lists the registered metric names in sorted order.
func DistanceNames() []string {
	names := make([]string, 0, len(distances))
	for k := range distances {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// L1 is the Manhattan distance.
func L1(a, b []float64) float64 { return floats.Distance(a, b, 1) }

// Euclidean is the L2 distance.
func Euclidean(a, b []float64) float64 { return floats.Distance(a, b, 2) }

// JensenShannon is the Jensen-Shannon divergence (natural log) between two
// distributions. Zero entries are handled without producing NaN.
func JensenShannon(a, b []float64) float64 {
	return math.Max(0, stat.JensenShannon(a, b))
}

// Hellinger is the Hellinger distance between two distributions.
func Hellinger(a, b []float64) float64 {
	if floats.Equal(a, b) {
		return 0
	}
	h := stat.Hellinger(a, b)
	if math.IsNaN(h) {
		// 1 - BC rounded below zero for (near) identical inputs
		return 0
	}
	return h
}

// Spearman compares feature rankings: (1 - rho) / 2 where rho is the rank
// correlation, so identical rankings are 0 apart and reversed ones are 1.
// A constant vector has no ranking; it is 0 from an identical vector and
// 0.5 from anything else.
func Spearman(a, b []float64) float64 {
	rho := stat.Correlation(ranks(a), ranks(b), nil)
	if math.IsNaN(rho) {
		if floats.Equal(a, b) {
			return 0
		}
		return 0.5
	}
	return math.Max(0, (1-rho)/2)
}

// ranks returns 1-based ranks with ties sharing their average rank.
func ranks(x []float64) []float64 {
	vals := append([]float64(nil), x...)
	idx := make([]int, len(x))
	floats.Argsort(vals, idx)
	out := make([]float64, len(x))
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1] == vals[i] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
