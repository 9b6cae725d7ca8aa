// Package keycode defines the Keycode value type and the character decoder
// (C1) that maps source text into sequences of keycodes.
package keycode

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes the five shapes a Keycode can take.
type Kind int

const (
	// KindNamed is an ordinary terminal symbol (letter, digit, punctuation,
	// modifier, navigation key, whitespace).
	KindNamed Kind = iota
	// KindLS is a layer-switch key naming a target layer.
	KindLS
	// KindLST is a layer-switch target marker: a placeholder in the target
	// layer recording which source layer switches into it.
	KindLST
	// KindNO is the blank keycode.
	KindNO
	// KindPlaceholder marks a cell reserved but not yet assigned meaning.
	KindPlaceholder
)

// Keycode is a tagged value. It is comparable and therefore usable directly
// as a map key, satisfying the "hashable" requirement from the data model.
type Keycode struct {
	Kind Kind
	// Name identifies a KindNamed keycode, e.g. "A", "SPC".
	Name string
	// Target is the destination layer for KindLS, or the destination layer
	// recorded by a KindLST marker.
	Target int
	// Source is the originating layer for a KindLST marker.
	Source int
}

// NO is the blank keycode: no key is assigned to this position.
var NO = Keycode{Kind: KindNO}

// Placeholder marks a cell whose meaning is not yet decided.
var Placeholder = Keycode{Kind: KindPlaceholder}

// LS constructs a layer-switch keycode targeting layer t.
func LS(t int) Keycode { return Keycode{Kind: KindLS, Target: t} }

// LST constructs a layer-switch target marker: placeholder in layer t that
// "comes from" layer s.
func LST(t, s int) Keycode { return Keycode{Kind: KindLST, Target: t, Source: s} }

// Named constructs an ordinary terminal keycode by name.
func Named(name string) Keycode { return Keycode{Kind: KindNamed, Name: name} }

// Named terminal keycodes, matching the original implementation's
// enumeration (letters, digits, punctuation, modifiers, navigation,
// whitespace).
var (
	A = Named("A")
	B = Named("B")
	C = Named("C")
	D = Named("D")
	E = Named("E")
	F = Named("F")
	G = Named("G")
	H = Named("H")
	I = Named("I")
	J = Named("J")
	K = Named("K")
	L = Named("L")
	M = Named("M")
	N = Named("N")
	O = Named("O")
	P = Named("P")
	Q = Named("Q")
	R = Named("R")
	S = Named("S")
	T = Named("T")
	U = Named("U")
	V = Named("V")
	W = Named("W")
	X = Named("X")
	Y = Named("Y")
	Z = Named("Z")

	N1    = Named("1")
	N2    = Named("2")
	N3    = Named("3")
	N4    = Named("4")
	N5    = Named("5")
	N6    = Named("6")
	N7    = Named("7")
	N8    = Named("8")
	N9    = Named("9")
	NZero = Named("ZERO")

	SPC  = Named("SPC")
	BSPC = Named("BSPC")
	SFT  = Named("SFT")
	CTRL = Named("CTRL")
	ALT  = Named("ALT")
	GUI  = Named("GUI")
	ENT  = Named("ENT")
	COMM = Named("COMM")
	DOT  = Named("DOT")

	EXLM = Named("EXLM")
	AT   = Named("AT")
	HASH = Named("HASH")
	DLR  = Named("DLR")
	PERC = Named("PERC")
	CIRC = Named("CIRC")
	AMPR = Named("AMPR")
	ASTR = Named("ASTR")
	LPRN = Named("LPRN")
	RPRN = Named("RPRN")

	MINS = Named("MINS")
	UNDS = Named("UNDS")
	GRV  = Named("GRV")
	TILD = Named("TILD")
	QUOT = Named("QUOT")
	DQUO = Named("DQUO")
	SCLN = Named("SCLN")
	COLN = Named("COLN")
	LT   = Named("LT")
	GT   = Named("GT")
	EQL  = Named("EQL")
	PLUS = Named("PLUS")
	SLSH = Named("SLSH")
	QUES = Named("QUES")
	BSLS = Named("BSLS")
	PIPE = Named("PIPE")
	LCBR = Named("LCBR")
	RCBR = Named("RCBR")
	LBRC = Named("LBRC")
	RBRC = Named("RBRC")

	UP   = Named("UP")
	RGHT = Named("RGHT")
	DOWN = Named("DOWN")
	LEFT = Named("LEFT")
	PGUP = Named("PGUP")
	END  = Named("END")
	PGDN = Named("PGDN")
	HOME = Named("HOME")
	PSCR = Named("PSCR")
	DEL  = Named("DEL")
	TAB  = Named("TAB")
)

// String renders the value-only display flavour: NO shows as "_", LS(t)
// shows as "LSt", LST(t, s) as "LSTt_s", the placeholder as "PLACEHOLDER",
// and a named keycode as its bare name.
func (k Keycode) String() string {
	switch k.Kind {
	case KindNO:
		return "_"
	case KindPlaceholder:
		return "PLACEHOLDER"
	case KindLS:
		return fmt.Sprintf("LS%d", k.Target)
	case KindLST:
		return fmt.Sprintf("LST%d_%d", k.Target, k.Source)
	default:
		return k.Name
	}
}

// Less gives Keycode a total order: by Kind first, then by Name, then by
// Target/Source. This is used only to make printed output (e.g. path-map
// dumps) deterministic; it carries no domain meaning beyond that.
func (k Keycode) Less(other Keycode) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	if k.Target != other.Target {
		return k.Target < other.Target
	}
	return k.Source < other.Source
}

// IsLS reports whether k is a layer-switch keycode, and if so its target.
func (k Keycode) IsLS() (target int, ok bool) {
	if k.Kind == KindLS {
		return k.Target, true
	}
	return 0, false
}

// IsLST reports whether k is a layer-switch target marker, and if so its
// (target, source) pair.
func (k Keycode) IsLST() (target, source int, ok bool) {
	if k.Kind == KindLST {
		return k.Target, k.Source, true
	}
	return 0, 0, false
}

// ParseToken parses a single keycode token in the same vocabulary String()
// renders: "_" (NO), "LS<t>", "LST<t>_<s>", or a bare name. Used by the
// configuration and dataset-cache packages, which store keycodes as plain
// strings rather than via the full KeycodeKey grammar in pkg/layer.
func ParseToken(tok string) Keycode {
	switch {
	case tok == "_":
		return NO
	case strings.HasPrefix(tok, "LST"):
		parts := strings.SplitN(strings.TrimPrefix(tok, "LST"), "_", 2)
		if len(parts) != 2 {
			return Named(tok)
		}

		target, errT := strconv.Atoi(parts[0])
		source, errS := strconv.Atoi(parts[1])

		if errT != nil || errS != nil {
			return Named(tok)
		}

		return LST(target, source)
	case strings.HasPrefix(tok, "LS"):
		target, err := strconv.Atoi(strings.TrimPrefix(tok, "LS"))
		if err != nil {
			return Named(tok)
		}

		return LS(target)
	default:
		return Named(tok)
	}
}
