package errs_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestLoadErrorMatchesSentinelAndCause(t *testing.T) {
	err := fmt.Errorf("run: %w", &errs.LoadError{Path: "a.csv", Row: 3, Column: 2, Err: fs.ErrNotExist})
	require.ErrorIs(t, err, errs.ErrLoad)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NotErrorIs(t, err, errs.ErrRender)
	require.Contains(t, err.Error(), "a.csv (row 3, column 2)")

	var le *errs.LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, 3, le.Row)
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := errs.Configf("k", 5, "exceeds sample count %d", 4)
	require.ErrorIs(t, err, errs.ErrConfiguration)
	require.Equal(t, "invalid k 5: exceeds sample count 4", err.Error())

	err = errs.Configf("distance_metric", nil, "must be set")
	require.Equal(t, "invalid distance_metric: must be set", err.Error())
}

func TestRenderAndDegenerateErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := &errs.RenderError{Path: "out/img_0.png", Err: cause}
	require.ErrorIs(t, err, errs.ErrRender)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "render out/img_0.png: disk full", err.Error())

	deg := &errs.DegenerateInputError{Rows: []int{1, 4}}
	require.ErrorIs(t, deg, errs.ErrDegenerateInput)
	require.Contains(t, deg.Error(), "2 row(s)")
}
