package attribution

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NormalizeMode selects how raw attributions become non-negative before
// each row is scaled to sum to 1.
type NormalizeMode int

const (
	// ShiftMode subtracts a row's minimum when it is negative.
	ShiftMode NormalizeMode = iota
	// AbsMode takes absolute values, ranking features by magnitude only.
	AbsMode
)

func (m NormalizeMode) String() string {
	switch m {
	case ShiftMode:
		return "shift"
	case AbsMode:
		return "abs"
	default:
		return fmt.Sprintf("NormalizeMode(%d)", int(m))
	}
}

// ParseNormalizeMode maps a configuration name to a NormalizeMode.
func ParseNormalizeMode(name string) (NormalizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shift":
		return ShiftMode, nil
	case "abs", "absolute":
		return AbsMode, nil
	}
	return 0, errs.Configf("normalization", name, "use shift or abs")
}

// Normalize returns a copy of m in which every row is a distribution: all
// entries are >= 0 and each row sums to 1. Rows with no mass left after the
// non-negativity transform (all values equal under ShiftMode, all zero under
// AbsMode) become uniform; their indices are returned as degenerate.
// The input is never modified and an already-normalized matrix is returned
// unchanged.
func Normalize(m mat.Matrix, mode NormalizeMode) (*mat.Dense, []int) {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	var degenerate []int
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		// Keep shifts and sums finite for values near the float64 limit.
		if peak := floats.Norm(row, math.Inf(1)); peak > 1 {
			floats.Scale(1/peak, row)
		}
		switch mode {
		case AbsMode:
			for j, v := range row {
				row[j] = math.Abs(v)
			}
		default:
			if lo := floats.Min(row); lo < 0 {
				floats.AddConst(-lo, row)
			}
		}
		sum := floats.Sum(row)
		if sum == 0 {
			for j := range row {
				row[j] = 1 / float64(c)
			}
			degenerate = append(degenerate, i)
		} else {
			for j := range row {
				row[j] /= sum
			}
		}
		out.SetRow(i, row)
	}
	return out, degenerate
}
