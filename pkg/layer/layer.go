// Package layer implements the key and layer primitives (C4): a grid cell
// (KeycodeKey) and a generic 2-D layer container usable over any cell type
// (keycode keys, float effort, phalanx assignment).
package layer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
)

// Valuer exposes the single accessor every cell type provides, per the
// "cell trait exposing a value() accessor" design note: KeycodeKey returns
// a keycode.Keycode, a float64 effort layer returns itself, and PhalanxKey
// returns itself.
type Valuer[V any] interface {
	Value() V
}

// Layer is an R×C grid of cells of type T, addressed in row-major order.
// Layer<R,C,T> from the data model becomes a runtime-dimensioned Go struct
// since Go generics cannot parametrise over array dimensions the way Rust's
// const generics can.
type Layer[T any] struct {
	rows, cols int
	cells      []T
}

// NewLayer creates a rows×cols layer with every cell set to fill.
func NewLayer[T any](rows, cols int, fill T) *Layer[T] {
	cells := make([]T, rows*cols)
	for i := range cells {
		cells[i] = fill
	}

	return &Layer[T]{rows: rows, cols: cols, cells: cells}
}

// Rows returns the layer's row count.
func (l *Layer[T]) Rows() int { return l.rows }

// Cols returns the layer's column count.
func (l *Layer[T]) Cols() int { return l.cols }

func (l *Layer[T]) index(r, c int) (int, error) {
	if r < 0 || r >= l.rows || c < 0 || c >= l.cols {
		return 0, fmt.Errorf("position (%d, %d) out of bounds for %dx%d layer", r, c, l.rows, l.cols)
	}

	return r*l.cols + c, nil
}

// Get returns the cell at (r, c).
func (l *Layer[T]) Get(r, c int) (T, error) {
	idx, err := l.index(r, c)
	if err != nil {
		var zero T
		return zero, err
	}

	return l.cells[idx], nil
}

// MustGet panics if (r, c) is out of bounds; used where the caller has
// already range-checked (row-major iteration over the layer's own bounds).
func (l *Layer[T]) MustGet(r, c int) T {
	v, err := l.Get(r, c)
	if err != nil {
		panic(err)
	}

	return v
}

// Set stores value at (r, c).
func (l *Layer[T]) Set(r, c int, value T) error {
	idx, err := l.index(r, c)
	if err != nil {
		return err
	}

	l.cells[idx] = value

	return nil
}

// MustSet panics on out-of-bounds; mirrors MustGet.
func (l *Layer[T]) MustSet(r, c int, value T) {
	if err := l.Set(r, c, value); err != nil {
		panic(err)
	}
}

// GetRowMajor returns the cell at the i-th row-major position.
func (l *Layer[T]) GetRowMajor(i int) (T, error) {
	return l.Get(i/l.cols, i%l.cols)
}

// SetRowMajor stores value at the i-th row-major position.
func (l *Layer[T]) SetRowMajor(i int, value T) error {
	return l.Set(i/l.cols, i%l.cols, value)
}

// MirrorCol returns the mirrored column index: mirror(r, c) = (r, C-1-c).
func (l *Layer[T]) MirrorCol(c int) int { return l.cols - 1 - c }

// Clone returns a deep copy of the layer.
func (l *Layer[T]) Clone() *Layer[T] {
	cells := make([]T, len(l.cells))
	copy(cells, l.cells)

	return &Layer[T]{rows: l.rows, cols: l.cols, cells: cells}
}

// Each calls fn for every cell in row-major order.
func (l *Layer[T]) Each(fn func(r, c int, v T)) {
	for r := 0; r < l.rows; r++ {
		for c := 0; c < l.cols; c++ {
			fn(r, c, l.MustGet(r, c))
		}
	}
}

// headerRe recognises a digit-sequence header row, e.g. "   0   1   2   3";
// splitLayerLines additionally requires the numbers to increase strictly.
var headerRe = regexp.MustCompile(`^\s*(\d+\s*)+$`)

// rowPrefixRe strips a leading "<index>|" row prefix.
var rowPrefixRe = regexp.MustCompile(`^\s*\d+\s*\|`)

// splitLayerLines splits s into non-blank lines, stripping an optional
// header row per §4.4: "if the row count equals R+1 and the first non-blank
// line is a monotonically increasing digit sequence, strip it".
func splitLayerLines(s string, rows int) ([]string, error) {
	var lines []string

	for _, raw := range strings.Split(s, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		lines = append(lines, raw)
	}

	if len(lines) == rows+1 && headerRe.MatchString(lines[0]) {
		increasing := true
		prev := -1

		for _, f := range strings.Fields(lines[0]) {
			n, err := strconv.Atoi(f)
			if err != nil || n <= prev {
				increasing = false
				break
			}

			prev = n
		}

		if increasing {
			lines = lines[1:]
		}
	}

	if len(lines) != rows {
		return nil, &alcerr.ParseError{
			Input:  s,
			Reason: fmt.Sprintf("expected %d rows, got %d", rows, len(lines)),
		}
	}

	return lines, nil
}

// Parse builds a Layer[T] from a human-readable multi-line string, per the
// grammar in §4.4: non-blank lines are rows, an optional "<index>|" row
// prefix is stripped, and column tokens are whitespace-separated and must
// number exactly cols. parseToken converts one column token to a T.
func Parse[T any](s string, rows, cols int, parseToken func(string) (T, error)) (*Layer[T], error) {
	lines, err := splitLayerLines(s, rows)
	if err != nil {
		return nil, err
	}

	var zero T

	l := NewLayer(rows, cols, zero)

	for r, line := range lines {
		stripped := rowPrefixRe.ReplaceAllString(line, "")

		tokens := strings.Fields(stripped)
		if len(tokens) != cols {
			return nil, &alcerr.ParseError{
				Input:  line,
				Reason: fmt.Sprintf("expected %d column tokens, got %d", cols, len(tokens)),
			}
		}

		for c, tok := range tokens {
			v, err := parseToken(tok)
			if err != nil {
				return nil, err
			}

			l.MustSet(r, c, v)
		}
	}

	return l, nil
}

// Format renders a Layer[T] back to the human-readable grid form, mirroring
// input exactly so round-tripping through Parse is exact. formatToken
// renders a single cell; a fixed column width of 7 matches the original's
// right-aligned "%>3" value plus "_FF" flag suffix at its widest.
func Format[T any](l *Layer[T], formatToken func(T) string) string {
	var b strings.Builder

	for r := 0; r < l.rows; r++ {
		fmt.Fprintf(&b, "%d|", r)

		for c := 0; c < l.cols; c++ {
			fmt.Fprintf(&b, " %6s", formatToken(l.MustGet(r, c)))
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// ParseFloat is the token parser for an effort layer: bare floating-point
// literals.
func ParseFloat(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &alcerr.ParseError{Input: tok, Reason: err.Error()}
	}

	return v, nil
}

// FormatFloat is the token formatter for an effort layer.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
