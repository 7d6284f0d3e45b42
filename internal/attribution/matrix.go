// Package attribution loads per-sample feature attribution tables and
// normalizes them into distributions over features.
package attribution

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"gonum.org/v1/gonum/mat"
)

// Matrix is an attribution table: one row per sample, one column per feature.
// It is created once by Load and treated as read-only afterwards.
type Matrix struct {
	// Source is the file the matrix was loaded from (empty for in-memory matrices).
	Source string
	// Labels holds the feature name of each column.
	Labels []string
	// SampleIDs holds the identifier of each row: the id column when the
	// table has one, otherwise the 1-based data row number.
	SampleIDs []string
	// Values is the N×F attribution data.
	Values *mat.Dense
}

// NewMatrix builds a Matrix from in-memory rows. Sample ids default to row numbers.
func NewMatrix(labels []string, rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(labels) == 0 {
		return nil, errs.Configf("matrix", fmt.Sprintf("%dx%d", len(rows), len(labels)), "need at least one row and one column")
	}
	data := make([]float64, 0, len(rows)*len(labels))
	ids := make([]string, len(rows))
	for i, r := range rows {
		if len(r) != len(labels) {
			return nil, errs.Configf("matrix row", i, "has %d values, want %d", len(r), len(labels))
		}
		data = append(data, r...)
		ids[i] = fmt.Sprint(i + 1)
	}
	m := &Matrix{
		Labels:    append([]string(nil), labels...),
		SampleIDs: ids,
		Values:    mat.NewDense(len(rows), len(labels), data),
	}
	return m, m.Validate()
}

// Dims returns the number of samples and features.
func (m *Matrix) Dims() (samples, features int) {
	if m == nil || m.Values == nil {
		return 0, 0
	}
	return m.Values.Dims()
}

// Row returns a copy of sample i's attribution vector.
func (m *Matrix) Row(i int) []float64 {
	_, c := m.Dims()
	return mat.Row(make([]float64, c), i, m.Values)
}

// Validate checks the shape invariants shared by every stage: at least one
// row and column, one label per column, one id per row, finite values.
func (m *Matrix) Validate() error {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return errs.Configf("matrix", fmt.Sprintf("%dx%d", r, c), "need at least one row and one column")
	}
	if len(m.Labels) != c {
		return errs.Configf("feature_labels", len(m.Labels), "matrix has %d columns", c)
	}
	if len(m.SampleIDs) != r {
		return errs.Configf("sample_ids", len(m.SampleIDs), "matrix has %d rows", r)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.Values.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errs.Configf("matrix value", v, "at row %d column %q is not finite", i, m.Labels[j])
			}
		}
	}
	return nil
}
