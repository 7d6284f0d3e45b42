package explain

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestBuildSortsDescending(t *testing.T) {
	e, err := Build([]float64{0.2, 0.5, 0.3}, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, e.Labels())
	require.Equal(t, []float64{0.5, 0.3, 0.2}, e.Weights())
}

func TestBuildKeepsColumnOrderOnTies(t *testing.T) {
	e, err := Build([]float64{0.25, 0.5, 0.25}, []string{"x", "y", "z"})
	require.NoError(t, err)
	require.Equal(t, []string{"y", "x", "z"}, e.Labels())
}

func TestBuildIsSortedPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(12)
		vec := make([]float64, n)
		labels := make([]string, n)
		for i := range vec {
			vec[i] = float64(rng.Intn(5)) / 4
			labels[i] = string(rune('a' + i))
		}
		e, err := Build(vec, labels)
		require.NoError(t, err)
		require.Len(t, e, n)
		require.True(t, sort.SliceIsSorted(e, func(i, j int) bool { return e[i].Weight > e[j].Weight }))

		got := map[string]float64{}
		for _, p := range e {
			got[p.Label] = p.Weight
		}
		for i, l := range labels {
			require.Equal(t, vec[i], got[l])
		}
	}
}

func TestBuildLengthMismatch(t *testing.T) {
	_, err := Build([]float64{1, 0}, []string{"a"})
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = BuildSet([][]float64{{1, 0}, {0}}, []string{"a", "b"})
	require.ErrorIs(t, err, errs.ErrConfiguration)
	require.Contains(t, err.Error(), "explanation 1")
}

func TestBuildSetOrder(t *testing.T) {
	set, err := BuildSet([][]float64{{1, 0, 0}, {0, 0.4, 0.6}}, []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Equal(t, "a1", set[0][0].Label)
	require.Equal(t, "a3", set[1][0].Label)
	require.Equal(t, 3, set.Features())
}

func TestTop(t *testing.T) {
	e, err := Build([]float64{0.1, 0.6, 0.3}, []string{"a", "b", "c"})
	require.NoError(t, err)

	top, err := Top(e, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, top.Labels())
	require.Len(t, e, 3)

	for _, n := range []int{0, -1, 4} {
		_, err := Top(e, n)
		require.ErrorIsf(t, err, errs.ErrConfiguration, "n=%d", n)
	}
}

func TestSizes(t *testing.T) {
	require.Equal(t, []int{4, 2, 1}, Sizes([]int{0, 1, 0, 0, 1, 2, 0}))
	require.Empty(t, Sizes(nil))

	ids, counts := SizesByID([]int{5, -1, 5, 2})
	require.Equal(t, []int{-1, 2, 5}, ids)
	require.Equal(t, []int{1, 1, 2}, counts)
}

func TestSizesSumToSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20; trial++ {
		a := make([]int, rng.Intn(40))
		for i := range a {
			a[i] = rng.Intn(6)
		}
		total := 0
		for _, c := range Sizes(a) {
			require.Positive(t, c)
			total += c
		}
		require.Equal(t, len(a), total)
	}
}

func TestMarkdown(t *testing.T) {
	set, err := BuildSet([][]float64{{0.7, 0.3}, {0.1, 0.9}}, []string{"height", "hair|color"})
	require.NoError(t, err)
	md := set.Markdown(1, []int{3, 5})
	require.Contains(t, md, "## Explanation 0 (n=3)")
	require.Contains(t, md, "| 1 | height | 0.7000 |")
	require.Contains(t, md, "hair\\|color")
	require.Equal(t, 2, strings.Count(md, "| 1 |"))
	require.NotContains(t, md, "| 2 |")
}

func TestSortedLeavesInputAlone(t *testing.T) {
	e := Explanation{{"height", 0.3}, {"weight", 0.6}, {"hair color", 0.1}}
	s := Sorted(e)
	require.Equal(t, []string{"weight", "height", "hair color"}, s.Labels())
	require.Equal(t, "height", e[0].Label)
}
