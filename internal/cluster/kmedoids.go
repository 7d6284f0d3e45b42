// Package cluster partitions normalized attribution vectors into
// subpopulations with a k-medoids (partitioning around medoids) search.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// InitStrategy chooses the starting medoids when none are supplied.
type InitStrategy int

const (
	// InitBuild is deterministic: the most central sample first, then
	// repeatedly the sample farthest from every chosen medoid.
	InitBuild InitStrategy = iota
	// InitRandom draws k distinct samples from a generator seeded with Options.Seed.
	InitRandom
)

func (s InitStrategy) String() string {
	switch s {
	case InitBuild:
		return "build"
	case InitRandom:
		return "random"
	default:
		return fmt.Sprintf("InitStrategy(%d)", int(s))
	}
}

// ParseInitStrategy maps a configuration name to an InitStrategy.
func ParseInitStrategy(name string) (InitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "build", "farthest":
		return InitBuild, nil
	case "random":
		return InitRandom, nil
	}
	return 0, errs.Configf("init", name, "use build or random")
}

// Options configures KMedoids.
type Options struct {
	K        int
	Distance DistanceFunc
	// InitMedoids fixes the starting medoids (row indices, one per cluster).
	// When set, Init and Seed are ignored and results are deterministic.
	InitMedoids []int
	Init        InitStrategy
	Seed        int64
	// MaxIter caps assign/update rounds; 0 means 100.
	MaxIter int
	// Parallelism bounds goroutines filling the distance matrix; 0 means GOMAXPROCS.
	Parallelism int
}

// DefaultOptions returns the defaults used by the pipeline.
func DefaultOptions() Options {
	return Options{
		K:        2,
		Distance: L1,
		Init:     InitBuild,
		Seed:     42,
		MaxIter:  100,
	}
}

// Result is the outcome of one clustering run.
type Result struct {
	// Assignment[i] is the cluster id (0..K-1) of sample i.
	Assignment []int
	// Medoids[j] is the row index representing cluster j.
	Medoids []int
	// Centers[j] is a copy of the medoid's row.
	Centers [][]float64
	// Cost is the sum of distances from each sample to its medoid.
	Cost       float64
	Iterations int
	Converged  bool
	// Distances is the pairwise distance matrix the search ran on.
	Distances *mat.SymDense
}

// KMedoids partitions the rows of data into opt.K clusters. Every cluster
// keeps its medoid as a member, so exactly K non-empty clusters are returned.
// Assignment ties go to the lowest cluster id.
func KMedoids(data mat.Matrix, opt Options) (*Result, error) {
	n, _ := data.Dims()
	if opt.K < 1 {
		return nil, errs.Configf("k", opt.K, "must be at least 1")
	}
	if opt.K > n {
		return nil, errs.Configf("k", opt.K, "exceeds sample count %d", n)
	}
	if opt.Distance == nil {
		return nil, errs.Configf("distance_metric", nil, "no distance function")
	}
	maxIter := opt.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	dist := Pairwise(data, opt.Distance, opt.Parallelism)

	var medoids []int
	switch {
	case len(opt.InitMedoids) > 0:
		if err := validateMedoids(opt.InitMedoids, opt.K, n); err != nil {
			return nil, err
		}
		medoids = append([]int(nil), opt.InitMedoids...)
	case opt.Init == InitRandom:
		medoids = randomMedoids(n, opt.K, opt.Seed)
	default:
		medoids = buildMedoids(dist, opt.K)
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	assign(dist, medoids, assignment)

	res := &Result{Distances: dist}
	for res.Iterations < maxIter {
		res.Iterations++
		updateMedoids(dist, medoids, assignment)
		if !assign(dist, medoids, assignment) {
			res.Converged = true
			break
		}
	}

	res.Assignment = assignment
	res.Medoids = medoids
	res.Centers = make([][]float64, len(medoids))
	for j, m := range medoids {
		res.Centers[j] = mat.Row(nil, m, data)
	}
	for i, c := range assignment {
		res.Cost += dist.At(i, medoids[c])
	}
	return res, nil
}

// Pairwise returns the symmetric matrix of distances between the rows of
// data. Rows are filled concurrently; each pair is computed once and written
// by exactly one goroutine, so the result matches a sequential fill.
func Pairwise(data mat.Matrix, dist DistanceFunc, parallelism int) *mat.SymDense {
	n, _ := data.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, data)
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	cells := make([]float64, n*n)
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			for j := i + 1; j < n; j++ {
				d := dist(rows[i], rows[j])
				cells[i*n+j] = d
				cells[j*n+i] = d
			}
			return nil
		})
	}
	_ = g.Wait()
	return mat.NewSymDense(n, cells)
}

func validateMedoids(medoids []int, k, n int) error {
	if len(medoids) != k {
		return errs.Configf("init_medoids", medoids, "need exactly %d indices (one per cluster)", k)
	}
	seen := make(map[int]bool, k)
	for _, m := range medoids {
		if m < 0 || m >= n {
			return errs.Configf("init_medoids", medoids, "index %d out of range [0,%d)", m, n)
		}
		if seen[m] {
			return errs.Configf("init_medoids", medoids, "index %d repeated", m)
		}
		seen[m] = true
	}
	return nil
}

func randomMedoids(n, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	medoids := rng.Perm(n)[:k]
	sort.Ints(medoids)
	return medoids
}

// buildMedoids picks the sample with the smallest total distance to all
// others, then adds the sample whose nearest chosen medoid is farthest away
// until k are chosen. Ties resolve to the lowest index.
func buildMedoids(dist *mat.SymDense, k int) []int {
	n := dist.SymmetricDim()
	first, best := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		var total float64
		for j := 0; j < n; j++ {
			total += dist.At(i, j)
		}
		if total < best {
			first, best = i, total
		}
	}
	medoids := []int{first}
	chosen := map[int]bool{first: true}
	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = dist.At(i, first)
	}
	for len(medoids) < k {
		next, far := -1, -1.0
		for i := 0; i < n; i++ {
			if !chosen[i] && nearest[i] > far {
				next, far = i, nearest[i]
			}
		}
		medoids = append(medoids, next)
		chosen[next] = true
		for i := range nearest {
			nearest[i] = math.Min(nearest[i], dist.At(i, next))
		}
	}
	return medoids
}

// assign moves every sample to its nearest medoid and reports whether any
// label changed. A medoid always belongs to its own cluster.
func assign(dist *mat.SymDense, medoids, labels []int) bool {
	owner := make(map[int]int, len(medoids))
	for j, m := range medoids {
		owner[m] = j
	}
	changed := false
	for i := range labels {
		c, ok := owner[i]
		if !ok {
			c = 0
			best := dist.At(i, medoids[0])
			for j := 1; j < len(medoids); j++ {
				if d := dist.At(i, medoids[j]); d < best {
					c, best = j, d
				}
			}
		}
		if labels[i] != c {
			labels[i] = c
			changed = true
		}
	}
	return changed
}

// updateMedoids replaces each medoid with the member that minimizes the total
// distance to the rest of its cluster. The current medoid wins ties.
func updateMedoids(dist *mat.SymDense, medoids, labels []int) {
	members := make([][]int, len(medoids))
	for i, c := range labels {
		members[c] = append(members[c], i)
	}
	for j, ms := range members {
		cost := func(candidate int) float64 {
			var total float64
			for _, o := range ms {
				total += dist.At(candidate, o)
			}
			return total
		}
		best, bestCost := medoids[j], cost(medoids[j])
		for _, candidate := range ms {
			if c := cost(candidate); c < bestCost {
				best, bestCost = candidate, c
			}
		}
		medoids[j] = best
	}
}
