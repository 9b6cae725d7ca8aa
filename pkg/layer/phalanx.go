package layer

import (
	"fmt"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
)

// Hand identifies which hand a phalanx belongs to.
type Hand int

const (
	HandPlaceholder Hand = iota
	HandLeft
	HandRight
)

func (h Hand) String() string {
	switch h {
	case HandLeft:
		return "L"
	case HandRight:
		return "R"
	default:
		return "-"
	}
}

// Finger identifies which finger a phalanx belongs to. Fingers are
// partially ordered by "width" (Thumb widest), used by the scorer to
// classify inner vs. outer rolls; Joint and Placeholder are incomparable to
// ordinary fingers.
type Finger int

const (
	FingerPlaceholder Finger = iota
	FingerJoint
	FingerPinkie
	FingerRing
	FingerMiddle
	FingerIndex
	FingerThumb
)

var fingerWidthOrder = map[Finger]int{
	FingerPinkie: 1,
	FingerRing:   2,
	FingerMiddle: 3,
	FingerIndex:  4,
	FingerThumb:  5,
}

// Comparable reports whether a partial order between f and other is
// defined: both must be ordinary fingers (not Joint, not Placeholder).
func (f Finger) Comparable(other Finger) bool {
	_, fOk := fingerWidthOrder[f]
	_, oOk := fingerWidthOrder[other]

	return fOk && oOk
}

// Less reports f < other in the width partial order. Callers must check
// Comparable first; Less on incomparable fingers returns false.
func (f Finger) Less(other Finger) bool {
	fw, fOk := fingerWidthOrder[f]
	ow, oOk := fingerWidthOrder[other]

	return fOk && oOk && fw < ow
}

func (f Finger) String() string {
	switch f {
	case FingerThumb:
		return "T"
	case FingerIndex:
		return "I"
	case FingerMiddle:
		return "M"
	case FingerRing:
		return "R"
	case FingerPinkie:
		return "P"
	case FingerJoint:
		return "J"
	default:
		return "-"
	}
}

// PhalanxKey is a grid cell assigning a (hand, finger) pair, used by the
// scorer to detect same-finger repeats, hand alternation, and rolls.
type PhalanxKey struct {
	Hand   Hand
	Finger Finger
}

// Value satisfies Valuer[PhalanxKey]: a phalanx cell's "value" is itself.
func (p PhalanxKey) Value() PhalanxKey { return p }

func (p PhalanxKey) String() string {
	return fmt.Sprintf("%s:%s", p.Hand, p.Finger)
}

var handNames = map[string]Hand{
	"L": HandLeft, "LEFT": HandLeft,
	"R": HandRight, "RIGHT": HandRight,
	"-": HandPlaceholder, "PLACEHOLDER": HandPlaceholder,
}

var fingerNames = map[string]Finger{
	"T": FingerThumb, "THUMB": FingerThumb,
	"I": FingerIndex, "INDEX": FingerIndex,
	"M": FingerMiddle, "MIDDLE": FingerMiddle,
	"R": FingerRing, "RING": FingerRing,
	"P": FingerPinkie, "PINKIE": FingerPinkie, "PINKY": FingerPinkie,
	"J": FingerJoint, "JOINT": FingerJoint,
	"-": FingerPlaceholder, "PLACEHOLDER": FingerPlaceholder,
}

// ParsePhalanxToken parses a "<hand>:<finger>" token, accepting either short
// ("L:R") or long ("LEFT:RING") names.
func ParsePhalanxToken(tok string) (PhalanxKey, error) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return PhalanxKey{}, &alcerr.ParseError{Input: tok, Reason: "expected <hand>:<finger>"}
	}

	hand, ok := handNames[strings.ToUpper(parts[0])]
	if !ok {
		return PhalanxKey{}, &alcerr.ParseError{Input: tok, Reason: "unknown hand " + parts[0]}
	}

	finger, ok := fingerNames[strings.ToUpper(parts[1])]
	if !ok {
		return PhalanxKey{}, &alcerr.ParseError{Input: tok, Reason: "unknown finger " + parts[1]}
	}

	return PhalanxKey{Hand: hand, Finger: finger}, nil
}

// ParsePhalanxLayer parses a full phalanx layer from its human-readable
// string form.
func ParsePhalanxLayer(s string, rows, cols int) (*Layer[PhalanxKey], error) {
	return Parse(s, rows, cols, ParsePhalanxToken)
}

// FormatPhalanxLayer renders l back to its string form.
func FormatPhalanxLayer(l *Layer[PhalanxKey]) string {
	return Format(l, PhalanxKey.String)
}
