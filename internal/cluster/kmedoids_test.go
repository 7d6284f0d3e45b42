package cluster

import (
	"math/rand"
	"testing"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func oneHot() *mat.Dense {
	return mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	})
}

// simplex returns n random distributions over f features drawn around
// len(peaks) dominant features.
func simplex(rng *rand.Rand, n, f int, peaks []int) (*mat.Dense, []int) {
	m := mat.NewDense(n, f, nil)
	truth := make([]int, n)
	row := make([]float64, f)
	for i := 0; i < n; i++ {
		c := i % len(peaks)
		truth[i] = c
		for j := range row {
			row[j] = rng.Float64() * 0.1
		}
		row[peaks[c]] += 1
		floats.Scale(1/floats.Sum(row), row)
		m.SetRow(i, row)
	}
	return m, truth
}

func TestKMedoidsOneHotDefaultInit(t *testing.T) {
	res, err := KMedoids(oneHot(), DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, []int{0, 1}, res.Medoids)
	require.Equal(t, []int{0, 1, 0, 0}, res.Assignment)
	require.Equal(t, []float64{1, 0, 0}, res.Centers[0])
	require.Equal(t, []float64{0, 1, 0}, res.Centers[1])
	require.True(t, res.Converged)
	require.InDelta(t, 2.0, res.Cost, 1e-12)
}

func TestKMedoidsInitMedoidsDeterministic(t *testing.T) {
	opt := DefaultOptions()
	opt.K = 3
	opt.InitMedoids = []int{2, 3, 1}

	res, err := KMedoids(oneHot(), opt)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 1}, res.Medoids)
	require.Equal(t, []int{1, 2, 0, 1}, res.Assignment)
	require.InDelta(t, 0.0, res.Cost, 1e-12)

	again, err := KMedoids(oneHot(), opt)
	require.NoError(t, err)
	require.Equal(t, res.Assignment, again.Assignment)
}

func TestKMedoidsRandomInitReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data, _ := simplex(rng, 40, 5, []int{0, 2, 4})
	opt := DefaultOptions()
	opt.K = 3
	opt.Init = InitRandom
	opt.Seed = 11

	a, err := KMedoids(data, opt)
	require.NoError(t, err)
	b, err := KMedoids(data, opt)
	require.NoError(t, err)
	require.Equal(t, a.Medoids, b.Medoids)
	require.Equal(t, a.Assignment, b.Assignment)
}

func TestKMedoidsRecoversSeparatedGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data, truth := simplex(rng, 60, 6, []int{1, 3, 5})
	for _, name := range []string{"l1", "euclidean", "jensen_shannon", "hellinger"} {
		t.Run(name, func(t *testing.T) {
			dist, err := LookupDistance(name)
			require.NoError(t, err)
			opt := DefaultOptions()
			opt.K = 3
			opt.Distance = dist

			res, err := KMedoids(data, opt)
			require.NoError(t, err)

			// same partition as truth, up to relabeling
			mapping := map[int]int{}
			for i, c := range res.Assignment {
				if want, ok := mapping[truth[i]]; ok {
					require.Equalf(t, want, c, "sample %d", i)
				} else {
					mapping[truth[i]] = c
				}
			}
			require.Len(t, mapping, 3)
			require.Greater(t, Silhouette(res.Distances, res.Assignment), 0.5)
		})
	}
}

func TestKMedoidsAlwaysReturnsKClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for trial := 0; trial < 30; trial++ {
		n := 1 + rng.Intn(20)
		data, _ := simplex(rng, n, 4, []int{0, 1})
		// duplicate rows make ties common
		if n > 2 {
			data.SetRow(1, mat.Row(nil, 0, data))
		}
		opt := DefaultOptions()
		opt.K = 1 + rng.Intn(n)
		if trial%2 == 1 {
			opt.Init = InitRandom
			opt.Seed = int64(trial)
		}
		res, err := KMedoids(data, opt)
		require.NoError(t, err)
		seen := map[int]bool{}
		for _, c := range res.Assignment {
			require.GreaterOrEqual(t, c, 0)
			require.Less(t, c, opt.K)
			seen[c] = true
		}
		require.Len(t, seen, opt.K)
		for _, center := range res.Centers {
			require.InDelta(t, 1.0, floats.Sum(center), 1e-9)
		}
	}
}

func TestKMedoidsConfigurationErrors(t *testing.T) {
	cases := map[string]func(*Options){
		"k zero":          func(o *Options) { o.K = 0 },
		"k too large":     func(o *Options) { o.K = 5 },
		"nil distance":    func(o *Options) { o.Distance = nil },
		"wrong count":     func(o *Options) { o.InitMedoids = []int{0} },
		"out of range":    func(o *Options) { o.InitMedoids = []int{0, 4} },
		"repeated medoid": func(o *Options) { o.InitMedoids = []int{1, 1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opt := DefaultOptions()
			mutate(&opt)
			_, err := KMedoids(oneHot(), opt)
			require.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestKMedoidsIterationCap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data, _ := simplex(rng, 30, 4, []int{0, 1, 2})
	opt := DefaultOptions()
	opt.K = 3
	opt.MaxIter = 1
	opt.Init = InitRandom
	res, err := KMedoids(data, opt)
	require.NoError(t, err)
	require.Equal(t, 1, res.Iterations)
}

func TestPairwiseParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data, _ := simplex(rng, 25, 5, []int{0, 4})
	seq := Pairwise(data, JensenShannon, 1)
	par := Pairwise(data, JensenShannon, 8)
	require.True(t, mat.Equal(seq, par))
	for i := 0; i < 25; i++ {
		require.Equal(t, 0.0, seq.At(i, i))
	}
}

func TestSilhouetteEdgeCases(t *testing.T) {
	dist := Pairwise(oneHot(), L1, 0)
	require.Equal(t, 0.0, Silhouette(dist, []int{0, 0, 0, 0}))

	s := Silhouette(dist, []int{0, 1, 2, 0})
	require.InDelta(t, 0.5, s, 1e-12) // rows 0 and 3 score 1, singletons score 0
	require.GreaterOrEqual(t, s, -1.0)
	require.LessOrEqual(t, s, 1.0)
}

func TestParseInitStrategy(t *testing.T) {
	s, err := ParseInitStrategy("Random")
	require.NoError(t, err)
	require.Equal(t, InitRandom, s)
	require.Equal(t, "random", s.String())
	_, err = ParseInitStrategy("kmeans++")
	require.ErrorIs(t, err, errs.ErrConfiguration)
}
