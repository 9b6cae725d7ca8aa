// Package alcerr defines the typed error kinds raised by the layout,
// scoring, and dataset packages. The kinds mirror the original Rust
// implementation's AlcError enum so that callers can distinguish a
// recoverable condition (SwapFallbackExceeded) from one that should abort
// the run.
package alcerr

import "fmt"

// ParseError is raised when a config or layer string fails to tokenise.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse %q: %s", e.Input, e.Reason)
}

// LengthMismatchError is raised when an ngram's length disagrees with a
// holder's fixed n, or two holders of different n are combined.
type LengthMismatchError struct {
	Expected, Got int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: expected %d, got %d", e.Expected, e.Got)
}

// PositionPair names the two positions a symmetry or layer-switch violation
// was found between.
type PositionPair struct {
	A, B fmt.Stringer
}

// SymmetryMismatchError is raised when a symmetric cell's mirror is not
// itself symmetric.
type SymmetryMismatchError struct {
	Pairs []PositionPair
}

func (e *SymmetryMismatchError) Error() string {
	return fmt.Sprintf("symmetry mismatch at %d position pair(s)", len(e.Pairs))
}

// LayerSwitchMismatchError is raised when LS/LST pairing is broken.
type LayerSwitchMismatchError struct {
	Pairs []PositionPair
}

func (e *LayerSwitchMismatchError) Error() string {
	return fmt.Sprintf("layer switch mismatch at %d position pair(s)", len(e.Pairs))
}

// LayerUnreachableError is raised when path-map construction finds a layer
// with content but no reachable layer-switch sequence leading to it.
type LayerUnreachableError struct {
	Layer int
}

func (e *LayerUnreachableError) Error() string {
	return fmt.Sprintf("layer %d is unreachable: no LS(%d) sequence found", e.Layer, e.Layer)
}

// UntypeableNgramError is raised when scoring encounters an ngram with no
// typing path in the layout.
type UntypeableNgramError struct {
	Ngram fmt.Stringer
}

func (e *UntypeableNgramError) Error() string {
	return fmt.Sprintf("ngram %s has no typing sequence in this layout", e.Ngram)
}

// PathMapIncorrectError is raised when post-hoc verification finds a
// keycode mismatch at a mapped position; this always indicates an internal
// bug, never user input.
type PathMapIncorrectError struct {
	Expected fmt.Stringer
	Position fmt.Stringer
	Found    fmt.Stringer
}

func (e *PathMapIncorrectError) Error() string {
	return fmt.Sprintf("path-map entry for %s at %s actually resolves to %s", e.Expected, e.Position, e.Found)
}

// PathMapIncompleteError is raised when verification finds a non-NO,
// non-LST cell missing from the path-map.
type PathMapIncompleteError struct {
	Keycode  fmt.Stringer
	Position fmt.Stringer
}

func (e *PathMapIncompleteError) Error() string {
	return fmt.Sprintf("keycode %s at %s is missing from the path-map", e.Keycode, e.Position)
}

// UnsupportedLayoutSizeError is raised when a layout size has no preset and
// cannot be instantiated.
type UnsupportedLayoutSizeError struct {
	Rows, Cols int
	Supported  [][2]int
}

func (e *UnsupportedLayoutSizeError) Error() string {
	return fmt.Sprintf("layout size (%d, %d) is not supported (supported: %v)", e.Rows, e.Cols, e.Supported)
}

// SwapFallbackExceededError is raised when no valid mutation was found
// after the fallback attempt cap. It is not fatal: callers treat it as
// "no mutation happened" and count it as a no-op.
type SwapFallbackExceededError struct {
	Attempts int
	Reason   string
}

func (e *SwapFallbackExceededError) Error() string {
	return fmt.Sprintf("no valid mutation found after %d attempts: %s", e.Attempts, e.Reason)
}

// DatasetWeightsMismatchError is raised when the number of configured
// dataset weights does not match the number of datasets.
type DatasetWeightsMismatchError struct {
	Weights, Datasets int
}

func (e *DatasetWeightsMismatchError) Error() string {
	return fmt.Sprintf("%d dataset weights configured for %d datasets", e.Weights, e.Datasets)
}

// ExpectedDirectoryError is raised when a dataset path is not a directory.
type ExpectedDirectoryError struct {
	Path string
}

func (e *ExpectedDirectoryError) Error() string {
	return fmt.Sprintf("%s is not a directory", e.Path)
}

// IsSwapFallback reports whether err is a SwapFallbackExceededError, the one
// kind in this package that callers are expected to tolerate rather than
// abort on.
func IsSwapFallback(err error) bool {
	_, ok := err.(*SwapFallbackExceededError)
	return ok
}
