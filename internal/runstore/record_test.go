package runstore

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/gam-cli/internal/gam"
	"github.com/stretchr/testify/require"
)

func explainedRun(t *testing.T) *gam.GAM {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attributions.csv")
	require.NoError(t, os.WriteFile(path, []byte("a1,a2,a3\n1,0,0\n0,1,0\n0,0,1\n1,0,0\n"), 0o644))
	g := gam.New(gam.DefaultConfig(path))
	require.NoError(t, g.Run())
	return g
}

func TestFromGAM(t *testing.T) {
	r, err := FromGAM(explainedRun(t))
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)
	require.Equal(t, 2, r.K)
	require.Equal(t, []string{"a1", "a2", "a3"}, r.Labels)
	require.Equal(t, []int{0, 1}, r.Medoids)
	require.Equal(t, []string{"1", "2"}, r.MedoidIDs)
	require.Equal(t, []int{3, 1}, r.Sizes)
	require.Len(t, r.Explanations, 2)

	_, err = FromGAM(gam.New(gam.DefaultConfig("x.csv")))
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r, err := FromGAM(explainedRun(t))
	require.NoError(t, err)
	dir := t.TempDir()
	for _, name := range []string{"run.json", "run.yaml", "sub/run.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, r.Save(path))
		got, err := Load(path)
		require.NoError(t, err, name)
		require.Equal(t, r.ID, got.ID)
		require.Equal(t, r.Explanations, got.Explanations)
		require.Equal(t, r.Sizes, got.Sizes)
		require.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Second)
	}
}

func TestExportCSV(t *testing.T) {
	r, err := FromGAM(explainedRun(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, r.Save(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+2*3)
	require.Equal(t, []string{"cluster", "size", "rank", "feature", "weight"}, rows[0])
	require.Equal(t, []string{"0", "3", "1", "a1", "1"}, rows[1])

	_, err = Load(path)
	require.Error(t, err)
}

func TestExportMarkdown(t *testing.T) {
	r, err := FromGAM(explainedRun(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "run.md")
	require.NoError(t, r.Save(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(b)
	require.True(t, strings.HasPrefix(md, "[RUN SUMMARY]"))
	require.Contains(t, md, "## Explanation 1 (n=1)")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "not found")

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"id":"x"}`), 0o644))
	_, err = Load(empty)
	require.ErrorContains(t, err, "no explanations")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("explanations: [[{label"), 0o644))
	_, err = Load(broken)
	require.ErrorContains(t, err, "parse run record")
}
