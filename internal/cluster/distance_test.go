package cluster

import (
	"math"
	"testing"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestLookupDistance(t *testing.T) {
	fn, err := LookupDistance("")
	require.NoError(t, err)
	require.InDelta(t, 2.0, fn([]float64{1, 0}, []float64{0, 1}), 1e-12)

	_, err = LookupDistance("Jensen-Shannon")
	require.NoError(t, err)

	_, err = LookupDistance("cosine")
	require.ErrorIs(t, err, errs.ErrConfiguration)
	require.Contains(t, err.Error(), "jensen_shannon")
}

func TestDistancesOnSimplex(t *testing.T) {
	p := []float64{0.7, 0.2, 0.1}
	q := []float64{0.1, 0.3, 0.6}
	for _, name := range DistanceNames() {
		fn, err := LookupDistance(name)
		require.NoError(t, err)
		require.InDeltaf(t, 0.0, fn(p, p), 1e-12, "%s self distance", name)
		require.Greaterf(t, fn(p, q), 0.0, "%s separates distinct inputs", name)
		require.InDeltaf(t, fn(p, q), fn(q, p), 1e-12, "%s symmetry", name)
	}
}

func TestJensenShannonBounds(t *testing.T) {
	d := JensenShannon([]float64{1, 0}, []float64{0, 1})
	require.InDelta(t, math.Ln2, d, 1e-12)
	require.False(t, math.IsNaN(JensenShannon([]float64{1, 0, 0}, []float64{1, 0, 0})))
}

func TestSpearman(t *testing.T) {
	require.InDelta(t, 0.0, Spearman([]float64{0.5, 0.3, 0.2}, []float64{0.6, 0.3, 0.1}), 1e-12)
	require.InDelta(t, 1.0, Spearman([]float64{0.5, 0.3, 0.2}, []float64{0.1, 0.3, 0.6}), 1e-12)
	u := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	require.Equal(t, 0.0, Spearman(u, u))
	require.Equal(t, 0.5, Spearman(u, []float64{0.5, 0.3, 0.2}))
}

func TestRanksAverageTies(t *testing.T) {
	require.Equal(t, []float64{3, 1.5, 1.5}, ranks([]float64{1, 0, 0}))
	require.Equal(t, []float64{2, 3, 1}, ranks([]float64{0.2, 0.7, 0.1}))
}
