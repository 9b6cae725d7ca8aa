package keycode

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Options is the configuration record controlling which symbols get their
// own keycode versus decomposing into Shift + base keycode.
type Options struct {
	IncludeAlphas             bool
	IncludeNumbers            bool
	IncludeNumberSymbols      bool
	IncludeBrackets           bool
	IncludeMiscSymbols        bool
	IncludeMiscSymbolsShifted bool
	ExplicitInclusions        []Keycode
}

// DefaultOptions mirrors the original implementation's Default impl:
// alphas and the common misc symbols included, space/shift/enter/tab as
// explicit inclusions.
func DefaultOptions() Options {
	return Options{
		IncludeAlphas:      true,
		IncludeMiscSymbols: true,
		ExplicitInclusions: []Keycode{SPC, SFT, ENT, TAB},
	}
}

// typographicVariants normalises curly quotes, em/en-dashes and similar
// typographic variants down to their ASCII equivalents before decoding.
var typographicVariants = map[rune]rune{
	'‘': '\'', '’': '\'', // single quotes
	'“': '"', '”': '"', // double quotes
	'–': '-', '—': '-', // en/em dash
	'…': '.', // ellipsis (best-effort: collapses to one dot)
}

func normaliseRune(r rune) rune {
	if v, ok := typographicVariants[r]; ok {
		return v
	}
	// Fold any remaining compatibility/diacritic forms to their ASCII base
	// via NFKD decomposition, keeping only the base rune when it is ASCII.
	decomposed := norm.NFKD.String(string(r))
	for _, d := range decomposed {
		if d < unicode.MaxASCII {
			return d
		}
	}
	return r
}

// explicitFor returns the keycode that decode_char should use for c if c
// matches one of opts.ExplicitInclusions, checked before any toggle-gated
// rule (grounded on the original's from_char loop order).
func explicitFor(c rune, opts Options) (Keycode, bool) {
	for _, kc := range opts.ExplicitInclusions {
		if ch, ok := toChar(kc); ok && ch == c {
			return kc, true
		}
	}
	return Keycode{}, false
}

// toChar is the inverse of DecodeChar for the small set of named keycodes
// that correspond to a single printable character, used to test explicit
// inclusions against an input rune.
func toChar(k Keycode) (rune, bool) {
	switch k {
	case SPC:
		return ' ', true
	case ENT:
		return '\n', true
	case TAB:
		return '\t', true
	case COMM:
		return ',', true
	case DOT:
		return '.', true
	}
	if k.Kind == KindNamed && len(k.Name) == 1 {
		return rune(k.Name[0]), true
	}
	return 0, false
}

// shiftedSymbol describes a character that is either its own keycode (when
// the matching toggle is enabled) or decomposes to SFT + a base keycode.
type shiftedSymbol struct {
	own      Keycode
	toggle   func(Options) bool
	fallback []Keycode
}

var shiftedSymbols = map[rune]shiftedSymbol{
	'!': {EXLM, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N1}},
	'@': {AT, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N2}},
	'#': {HASH, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N3}},
	'$': {DLR, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N4}},
	'%': {PERC, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N5}},
	'^': {CIRC, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N6}},
	'&': {AMPR, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N7}},
	'*': {ASTR, func(o Options) bool { return o.IncludeNumberSymbols }, []Keycode{SFT, N8}},
	'(': {LPRN, func(o Options) bool { return o.IncludeNumberSymbols || o.IncludeBrackets }, []Keycode{SFT, N9}},
	')': {RPRN, func(o Options) bool { return o.IncludeNumberSymbols || o.IncludeBrackets }, []Keycode{SFT, NZero}},
	'_': {UNDS, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, MINS}},
	'+': {PLUS, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, EQL}},
	'|': {PIPE, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, BSLS}},
	':': {COLN, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, SCLN}},
	'"': {DQUO, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, QUOT}},
	'~': {TILD, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, GRV}},
	'?': {QUES, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, SLSH}},
	'{': {LCBR, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, LBRC}},
	'}': {RCBR, func(o Options) bool { return o.IncludeMiscSymbolsShifted }, []Keycode{SFT, RBRC}},
	'<': {LT, func(o Options) bool { return o.IncludeBrackets }, []Keycode{SFT, COMM}},
	'>': {GT, func(o Options) bool { return o.IncludeBrackets }, []Keycode{SFT, DOT}},
}

var unshiftedSymbols = map[rune]Keycode{
	' ': SPC, ',': COMM, '.': DOT, '`': GRV, '-': MINS,
	'=': EQL, '\\': BSLS, ';': SCLN, '\'': QUOT, '/': SLSH,
	'[': LBRC, ']': RBRC,
}

var digits = map[rune]Keycode{
	'1': N1, '2': N2, '3': N3, '4': N4, '5': N5,
	'6': N6, '7': N7, '8': N8, '9': N9, '0': NZero,
}

// DecodeChar maps a single source character to the sequence of keycodes
// required to type it, per the inclusion policy in opts. Non-ASCII
// characters that do not normalise to an ASCII equivalent are reported via
// the returned bool being false (callers log and skip them).
func DecodeChar(c rune, opts Options) ([]Keycode, bool) {
	if kc, ok := explicitFor(c, opts); ok {
		return []Keycode{kc}, true
	}

	c = normaliseRune(c)

	if unicode.IsUpper(c) {
		lower := unicode.ToLower(c)
		base, ok := decodeLowerAlpha(lower, opts)
		if !ok {
			return nil, false
		}
		return append([]Keycode{SFT}, base...), true
	}

	if seq, ok := decodeLowerAlpha(c, opts); ok {
		return seq, true
	}

	if kc, ok := unshiftedSymbols[c]; ok && opts.IncludeMiscSymbols {
		return []Keycode{kc}, true
	}

	if kc, ok := digits[c]; ok && opts.IncludeNumbers {
		return []Keycode{kc}, true
	}

	if sym, ok := shiftedSymbols[c]; ok {
		if sym.toggle(opts) {
			return []Keycode{sym.own}, true
		}
		return sym.fallback, true
	}

	if c > unicode.MaxASCII {
		return nil, false
	}

	return nil, false
}

func decodeLowerAlpha(c rune, opts Options) ([]Keycode, bool) {
	if !opts.IncludeAlphas {
		return nil, false
	}
	if c >= 'a' && c <= 'z' {
		return []Keycode{Named(strings.ToUpper(string(c)))}, true
	}
	return nil, false
}

// DecodeString concatenates DecodeChar over every rune in s, skipping (and
// recording) characters that fail to decode.
func DecodeString(s string, opts Options) (keycodes []Keycode, skipped []rune) {
	for _, r := range s {
		seq, ok := DecodeChar(r, opts)
		if !ok {
			skipped = append(skipped, r)
			continue
		}
		keycodes = append(keycodes, seq...)
	}
	return keycodes, skipped
}

// FullKeyboardOptions enables every toggle, for callers that want every
// typeable character to have a decode path.
func FullKeyboardOptions() Options {
	return Options{
		IncludeAlphas:             true,
		IncludeNumbers:            true,
		IncludeNumberSymbols:      true,
		IncludeBrackets:           true,
		IncludeMiscSymbols:        true,
		IncludeMiscSymbolsShifted: true,
		ExplicitInclusions:        []Keycode{SPC, SFT, ENT, TAB, BSPC},
	}
}

func (o Options) String() string {
	return fmt.Sprintf("Options{alphas=%v numbers=%v numSym=%v brackets=%v misc=%v miscShifted=%v explicit=%d}",
		o.IncludeAlphas, o.IncludeNumbers, o.IncludeNumberSymbols, o.IncludeBrackets,
		o.IncludeMiscSymbols, o.IncludeMiscSymbolsShifted, len(o.ExplicitInclusions))
}
