package attribution

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/KaramelBytes/gam-cli/internal/errs"
	"gonum.org/v1/gonum/mat"
)

// LoadOptions controls how an attribution table is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// IDColumn names a header cell holding sample identifiers. When empty, a
	// first column headed "", "id", "index" or "Unnamed: 0" is used.
	IDColumn string
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// DefaultLoadOptions returns the options used when none are configured.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{SheetIndex: 1}
}

// Load reads an attribution table from path. The header row supplies the
// feature labels; every other row is one sample. Any problem is reported as
// an *errs.LoadError.
func Load(path string, opt LoadOptions) (*Matrix, error) {
	var (
		records [][]string
		err     error
	)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		records, err = readXLSX(path, opt.SheetName, opt.SheetIndex)
	} else {
		records, err = readDelimited(path, opt)
	}
	if err != nil {
		var le *errs.LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &errs.LoadError{Path: path, Err: err}
	}
	return fromRecords(path, records, opt)
}

func readDelimited(path string, opt LoadOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &errs.LoadError{Path: path, Row: pe.Line, Column: pe.Column, Err: pe.Err}
			}
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
		// header plus MaxRows data rows
		if opt.MaxRows > 0 && len(out) > opt.MaxRows {
			break
		}
	}
	return out, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// fromRecords turns raw string records (header first) into a validated Matrix.
func fromRecords(path string, records [][]string, opt LoadOptions) (*Matrix, error) {
	fail := func(row, col int, format string, args ...any) error {
		return &errs.LoadError{Path: path, Row: row, Column: col, Err: fmt.Errorf(format, args...)}
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fail(0, 0, "empty file: missing header row")
	}
	header := records[0]
	idCol, err := findIDColumn(header, opt.IDColumn)
	if err != nil {
		return nil, fail(1, 0, "%v", err)
	}

	var (
		labels  []string
		columns []int
		seen    = map[string]int{}
	)
	for j, h := range header {
		if j == idCol {
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fail(1, j+1, "blank feature label")
		}
		if prev, dup := seen[name]; dup {
			return nil, fail(1, j+1, "duplicate feature label %q (also column %d)", name, prev+1)
		}
		seen[name] = j
		labels = append(labels, name)
		columns = append(columns, j)
	}
	if len(labels) == 0 {
		return nil, fail(1, 0, "no feature columns")
	}

	body := records[1:]
	if opt.MaxRows > 0 && len(body) > opt.MaxRows {
		body = body[:opt.MaxRows]
	}
	if len(body) == 0 {
		return nil, fail(0, 0, "no data rows")
	}

	data := make([]float64, 0, len(body)*len(labels))
	ids := make([]string, len(body))
	for i, rec := range body {
		row := i + 2 // 1-based, after the header
		if len(rec) != len(header) {
			return nil, fail(row, 0, "expected %d fields, got %d", len(header), len(rec))
		}
		if idCol >= 0 {
			ids[i] = strings.TrimSpace(rec[idCol])
		} else {
			ids[i] = strconv.Itoa(i + 1)
		}
		for _, j := range columns {
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				return nil, fail(row, j+1, "missing value for %q", strings.TrimSpace(header[j]))
			}
			x, ok := parseNumeric(cell, opt.DecimalSeparator, opt.ThousandsSeparator)
			if !ok {
				return nil, fail(row, j+1, "cannot parse %q as a number", cell)
			}
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fail(row, j+1, "non-finite value %q", cell)
			}
			data = append(data, x)
		}
	}
	return &Matrix{
		Source:    path,
		Labels:    labels,
		SampleIDs: ids,
		Values:    mat.NewDense(len(body), len(labels), data),
	}, nil
}

// findIDColumn resolves the identifier column index, or -1 when the table has none.
func findIDColumn(header []string, name string) (int, error) {
	if name != "" {
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return j, nil
			}
		}
		return -1, fmt.Errorf("id column %q not found in header", name)
	}
	switch strings.ToLower(strings.TrimSpace(header[0])) {
	case "", "id", "index", "unnamed: 0":
		return 0, nil
	}
	return -1, nil
}

// parseNumeric parses a cell honouring decimal/thousands separators. A zero
// decimal separator auto-detects from the last ',' or '.' in the value.
func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
