// Package layout implements the layout and path-map component (C5): a
// stack of layers with layer-switch linkage, the derived path-map index,
// and the invariant-preserving mutation operators (swap, replace,
// randomize).
package layout

import (
	"fmt"
	"strings"
)

// Position identifies a cell in a Layout by (layer, row, col).
type Position struct {
	Layer, Row, Col int
}

// NewPosition constructs a Position.
func NewPosition(layer, row, col int) Position {
	return Position{Layer: layer, Row: row, Col: col}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.Layer, p.Row, p.Col)
}

// PositionSequence is an ordered list of Positions: the keystrokes required
// to type some ngram starting from the home layer.
type PositionSequence struct {
	positions []Position
}

// NewPositionSequence builds a sequence from the given positions.
func NewPositionSequence(positions ...Position) PositionSequence {
	cp := make([]Position, len(positions))
	copy(cp, positions)

	return PositionSequence{positions: cp}
}

// Len returns the number of keystrokes in the sequence.
func (s PositionSequence) Len() int { return len(s.positions) }

// Positions returns the sequence's positions in order.
func (s PositionSequence) Positions() []Position { return s.positions }

// Append returns a new sequence with other's positions appended after s's.
func (s PositionSequence) Append(other PositionSequence) PositionSequence {
	out := make([]Position, 0, len(s.positions)+len(other.positions))
	out = append(out, s.positions...)
	out = append(out, other.positions...)

	return PositionSequence{positions: out}
}

// Equal reports whether two sequences contain the same positions in the
// same order.
func (s PositionSequence) Equal(other PositionSequence) bool {
	if len(s.positions) != len(other.positions) {
		return false
	}

	for i := range s.positions {
		if s.positions[i] != other.positions[i] {
			return false
		}
	}

	return true
}

func (s PositionSequence) String() string {
	parts := make([]string, len(s.positions))
	for i, p := range s.positions {
		parts[i] = p.String()
	}

	return strings.Join(parts, " -> ")
}
