// Package errs holds the error taxonomy shared by the loader, clusterer,
// renderer and pipeline. Callers match categories with errors.Is against the
// sentinel values and extract details with errors.As.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoad marks input files that are missing, unreadable or malformed.
	ErrLoad = errors.New("load error")
	// ErrConfiguration marks invalid parameters (k, num_features, metric names...).
	ErrConfiguration = errors.New("configuration error")
	// ErrDegenerateInput marks rows the normalizer replaced with a uniform distribution.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrRender marks failures writing output artifacts.
	ErrRender = errors.New("render error")
)

// LoadError indicates the attribution table could not be read into a matrix.
// Row and Column are 1-based positions in the source file; zero means unknown.
type LoadError struct {
	Path   string
	Row    int
	Column int
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load ")
	b.WriteString(e.Path)
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d", e.Row)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// ConfigurationError indicates an invalid parameter value.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf is shorthand for building a ConfigurationError.
func Configf(field string, value any, format string, args ...any) error {
	return &ConfigurationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// DegenerateInputError lists rows whose attributions were all equal. The
// normalizer substitutes a uniform distribution for them, so this error is
// reported as a warning rather than returned from the pipeline.
type DegenerateInputError struct {
	Rows []int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%d row(s) with zero attribution mass replaced by uniform weights: %v", len(e.Rows), e.Rows)
}

func (e *DegenerateInputError) Is(target error) bool { return target == ErrDegenerateInput }

// RenderError indicates an output artifact could not be written.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("render: %v", e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }
