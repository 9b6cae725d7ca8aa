package layer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
)

// KeycodeKey is a grid cell: a keycode plus moveable/symmetric flags.
// moveable=false freezes the position; symmetric=true binds the cell to
// its mirror partner. LS and LST cells may never be symmetric.
type KeycodeKey struct {
	value     keycode.Keycode
	moveable  bool
	symmetric bool
}

// FromKeycode builds a default moveable, non-symmetric cell holding k.
func FromKeycode(k keycode.Keycode) KeycodeKey {
	return KeycodeKey{value: k, moveable: true}
}

// Value returns the cell's keycode, satisfying Valuer[keycode.Keycode].
func (k KeycodeKey) Value() keycode.Keycode { return k.value }

// SetValue replaces the cell's keycode in place.
func (k *KeycodeKey) SetValue(v keycode.Keycode) { k.value = v }

// IsMoveable reports whether the cell may participate in swap/replace.
func (k KeycodeKey) IsMoveable() bool { return k.moveable }

// SetMoveable sets the moveable flag.
func (k *KeycodeKey) SetMoveable(m bool) { k.moveable = m }

// IsSymmetric reports whether the cell is locked to its mirror partner.
func (k KeycodeKey) IsSymmetric() bool { return k.symmetric }

// SetSymmetric sets the symmetric flag.
func (k *KeycodeKey) SetSymmetric(s bool) { k.symmetric = s }

// ReplaceWith copies other's value and flags into k, used by swap/replace
// to move a whole cell's identity across positions.
func (k *KeycodeKey) ReplaceWith(other KeycodeKey) {
	*k = other
}

// IsRandomizeable reports whether randomize may place a new keycode at this
// cell: layer switches and their target markers are never randomizeable;
// otherwise it follows the moveable flag. Grounded on
// original_source/src/keyboard/key.rs's Randomizeable trait.
func (k KeycodeKey) IsRandomizeable() bool {
	if _, ok := k.value.IsLS(); ok {
		return false
	}

	if _, _, ok := k.value.IsLST(); ok {
		return false
	}

	return k.moveable
}

func boolToDigit(b bool) byte {
	if b {
		return '1'
	}

	return '0'
}

// formatValue renders just the keycode portion, matching the "binary"
// flavour's value segment (NO -> "_", LS(t) -> "LSt", else bare name).
func formatValue(v keycode.Keycode) string {
	switch {
	case v == keycode.NO:
		return "_"
	default:
		if t, ok := v.IsLS(); ok {
			return fmt.Sprintf("LS%d", t)
		}

		return v.String()
	}
}

// String renders the value-only display flavour (no moveable/symmetric
// flags), right-aligned to width 3 as in the original's Display impl.
func (k KeycodeKey) String() string {
	return fmt.Sprintf("%3s", formatValue(k.value))
}

// FormatBinary renders the full "value_MS" flavour including the
// moveable/symmetric flags; this is the flavour that round-trips through
// ParseKeycodeKeyToken.
func (k KeycodeKey) FormatBinary() string {
	var valueStr string

	switch {
	case k.value == keycode.NO:
		valueStr = "_"
	default:
		if t, s, ok := k.value.IsLST(); ok {
			valueStr = fmt.Sprintf("LST%d_%d", t, s)
		} else if t, ok := k.value.IsLS(); ok {
			valueStr = fmt.Sprintf("LS%d", t)
		} else {
			valueStr = k.value.Name
		}
	}

	return fmt.Sprintf("%s_%c%c", valueStr, boolToDigit(k.moveable), boolToDigit(k.symmetric))
}

// ParseKeycodeKeyToken parses the per-key grammar
// "<keycode>_<moveable_bit><symmetric_bit>" from §4.4. The keycode part is
// either a bare name ("A", "SPC"), the blank "_" (empty segment, meaning
// NO), "LS<n>", or "LST<t>_<s>". Symmetric=1 combined with LS or LST is
// rejected.
func ParseKeycodeKeyToken(tok string) (KeycodeKey, error) {
	parts := strings.Split(tok, "_")

	var (
		value keycode.Keycode
		flags string
	)

	switch {
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "LST"):
		if len(parts) != 3 {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "malformed LST token"}
		}

		target, err := strconv.Atoi(strings.TrimPrefix(parts[0], "LST"))
		if err != nil {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: err.Error()}
		}

		source, err := strconv.Atoi(parts[1])
		if err != nil {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: err.Error()}
		}

		value = keycode.LST(target, source)
		flags = parts[2]

	case len(parts) >= 1 && strings.HasPrefix(parts[0], "LS"):
		if len(parts) != 2 {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "malformed LS token"}
		}

		target, err := strconv.Atoi(strings.TrimPrefix(parts[0], "LS"))
		if err != nil {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: err.Error()}
		}

		value = keycode.LS(target)
		flags = parts[1]

	case parts[0] == "":
		if len(parts) != 3 || parts[1] != "" {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "malformed blank token"}
		}

		value = keycode.NO
		flags = parts[2]

	default:
		if len(parts) != 2 {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "malformed named-keycode token"}
		}

		value = keycode.Named(parts[0])
		flags = parts[1]
	}

	if len(flags) != 2 {
		return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "flags must be exactly 2 digits"}
	}

	moveable := flags[0] != '0'
	symmetric := flags[1] != '0'

	if symmetric {
		if _, ok := value.IsLS(); ok {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "a layer switch may not be symmetric"}
		}

		if _, _, ok := value.IsLST(); ok {
			return KeycodeKey{}, &alcerr.ParseError{Input: tok, Reason: "a layer switch target marker may not be symmetric"}
		}
	}

	return KeycodeKey{value: value, moveable: moveable, symmetric: symmetric}, nil
}

// ParseKeycodeLayer parses a full keycode layer from its human-readable
// string form.
func ParseKeycodeLayer(s string, rows, cols int) (*Layer[KeycodeKey], error) {
	return Parse(s, rows, cols, ParseKeycodeKeyToken)
}

// FormatKeycodeLayer renders l back to its round-trippable "binary" form.
func FormatKeycodeLayer(l *Layer[KeycodeKey]) string {
	return Format(l, KeycodeKey.FormatBinary)
}
