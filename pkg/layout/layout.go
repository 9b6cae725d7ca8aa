package layout

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
)

// PathMap maps a Keycode to every keystroke sequence that types it.
type PathMap map[keycode.Keycode][]PositionSequence

// Layout is a stack of layers of KeycodeKeys plus the derived path-map.
// Layer 0 is the home layer.
type Layout struct {
	rows, cols int
	layers     []*layer.Layer[layer.KeycodeKey]
	pathMap    PathMap
}

// Rows returns the number of rows in every layer.
func (lo *Layout) Rows() int { return lo.rows }

// Cols returns the number of columns in every layer.
func (lo *Layout) Cols() int { return lo.cols }

// NumLayers returns how many layers the layout has.
func (lo *Layout) NumLayers() int { return len(lo.layers) }

// Get returns the cell at (layerIdx, row, col).
func (lo *Layout) Get(layerIdx, row, col int) (layer.KeycodeKey, error) {
	if layerIdx < 0 || layerIdx >= len(lo.layers) {
		var zero layer.KeycodeKey
		return zero, fmt.Errorf("layer index %d out of range", layerIdx)
	}

	return lo.layers[layerIdx].Get(row, col)
}

// GetPosition returns the cell at p.
func (lo *Layout) GetPosition(p Position) (layer.KeycodeKey, error) {
	return lo.Get(p.Layer, p.Row, p.Col)
}

// SetPosition stores value at p.
func (lo *Layout) SetPosition(p Position, value layer.KeycodeKey) error {
	if p.Layer < 0 || p.Layer >= len(lo.layers) {
		return fmt.Errorf("layer index %d out of range", p.Layer)
	}

	return lo.layers[p.Layer].Set(p.Row, p.Col, value)
}

// PathsTo returns the path-map entry for keycode k, or nil if k is not
// reachable in this layout.
func (lo *Layout) PathsTo(k keycode.Keycode) []PositionSequence {
	return lo.pathMap[k]
}

// SymmetricPosition returns p's mirror partner: same layer and row, mirrored
// column, per Layer.MirrorCol.
func (lo *Layout) SymmetricPosition(p Position) Position {
	mirrorCol := lo.layers[0].MirrorCol(p.Col)
	return NewPosition(p.Layer, p.Row, mirrorCol)
}

// Clone returns a deep copy of the layout.
func (lo *Layout) Clone() *Layout {
	layersCopy := make([]*layer.Layer[layer.KeycodeKey], len(lo.layers))
	for i, l := range lo.layers {
		layersCopy[i] = l.Clone()
	}

	pm := make(PathMap, len(lo.pathMap))
	for k, v := range lo.pathMap {
		cp := make([]PositionSequence, len(v))
		copy(cp, v)
		pm[k] = cp
	}

	return &Layout{rows: lo.rows, cols: lo.cols, layers: layersCopy, pathMap: pm}
}

// rowMajorPosition maps a 0-based row-major index within an R×C grid to
// (row, col).
func rowMajorPosition(cols, index int) (row, col int) {
	return index / cols, index % cols
}

// InitBlank creates a layout with numLayers layers, every cell NO, wired so
// that layer 0's cell at row-major index (t-1) is LS(t) and layer t's cell
// at the same row-major index is LST(t, 0), for every t in 1..numLayers.
// The path-map is then generated.
func InitBlank(rows, cols, numLayers int) (*Layout, error) {
	layers := make([]*layer.Layer[layer.KeycodeKey], numLayers)
	for i := range layers {
		layers[i] = layer.NewLayer(rows, cols, layer.KeycodeKey{})
		layers[i].Each(func(r, c int, v layer.KeycodeKey) {
			v.SetMoveable(true)
			layers[i].MustSet(r, c, v)
		})
	}

	for t := 1; t < numLayers; t++ {
		r, c := rowMajorPosition(cols, t-1)

		lsCell := layer.FromKeycode(keycode.LS(t))
		layers[0].MustSet(r, c, lsCell)

		lstCell := layer.FromKeycode(keycode.LST(t, 0))
		layers[t].MustSet(r, c, lstCell)
	}

	pm, err := buildPathMap(layers)
	if err != nil {
		return nil, err
	}

	return &Layout{rows: rows, cols: cols, layers: layers, pathMap: pm}, nil
}

// layerSeparator matches the "___...___" delimiter between layers in the
// layout string grammar.
var layerSeparator = regexp.MustCompile(`___.*___`)

// ParseString splits s on the layer delimiter, parses each segment as a
// layer (§4.4), reinforces LS/LST pairing, builds the path-map, then runs
// VerifyCorrectness.
func ParseString(s string, rows, cols int) (*Layout, error) {
	segments := layerSeparator.Split(s, -1)

	var layers []*layer.Layer[layer.KeycodeKey]

	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}

		l, err := layer.ParseKeycodeLayer(seg, rows, cols)
		if err != nil {
			return nil, err
		}

		layers = append(layers, l)
	}

	// A layout string may omit LST markers, so write the matching
	// LST(target, source) at the counterpart of every LS that is detected.
	for layerIdx, l := range layers {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				cell := l.MustGet(r, c)

				target, ok := cell.Value().IsLS()
				if !ok {
					continue
				}

				if target < 0 || target >= len(layers) {
					return nil, &alcerr.LayerUnreachableError{Layer: target}
				}

				counterpart := layers[target].MustGet(r, c)
				counterpart.SetValue(keycode.LST(target, layerIdx))
				layers[target].MustSet(r, c, counterpart)
			}
		}
	}

	pm, err := buildPathMap(layers)
	if err != nil {
		return nil, err
	}

	lo := &Layout{rows: rows, cols: cols, layers: layers, pathMap: pm}

	lsViolations, symViolations := lo.VerifyCorrectness()
	if len(lsViolations) > 0 {
		return nil, &alcerr.LayerSwitchMismatchError{Pairs: toPositionPairs(lsViolations)}
	}

	if len(symViolations) > 0 {
		return nil, &alcerr.SymmetryMismatchError{Pairs: toPositionPairs(symViolations)}
	}

	return lo, nil
}

func toPositionPairs(pairs [][2]Position) []alcerr.PositionPair {
	out := make([]alcerr.PositionPair, len(pairs))
	for i, p := range pairs {
		out[i] = alcerr.PositionPair{A: p[0], B: p[1]}
	}

	return out
}

// buildPathMap implements the deterministic path-map regeneration
// algorithm from §4.5.2: layers are processed in increasing index order,
// so any layer-switch target that has not yet been reached is reported as
// LayerUnreachableError (downward switching is unsupported, per the open
// question in §9).
func buildPathMap(layers []*layer.Layer[layer.KeycodeKey]) (PathMap, error) {
	pathMap := make(PathMap)
	lsMap := make(PathMap)

	for layerIdx, l := range layers {
		rows, cols := l.Rows(), l.Cols()

		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				cell := l.MustGet(r, c)
				v := cell.Value()

				if v == keycode.NO {
					continue
				}

				pos := NewPosition(layerIdx, r, c)
				seq := NewPositionSequence(pos)

				if layerIdx == 0 {
					if target, ok := v.IsLS(); ok {
						lsMap[keycode.LS(target)] = append(lsMap[keycode.LS(target)], seq)
					} else {
						pathMap[v] = append(pathMap[v], seq)
					}

					continue
				}

				if _, _, ok := v.IsLST(); ok {
					continue
				}

				prefixes, ok := lsMap[keycode.LS(layerIdx)]
				if !ok {
					return nil, &alcerr.LayerUnreachableError{Layer: layerIdx}
				}

				for _, prefix := range prefixes {
					newSeq := prefix.Append(seq)

					if target, ok := v.IsLS(); ok {
						lsMap[keycode.LS(target)] = append(lsMap[keycode.LS(target)], newSeq)
					} else {
						pathMap[v] = append(pathMap[v], newSeq)
					}
				}
			}
		}
	}

	for k, v := range lsMap {
		pathMap[k] = append(pathMap[k], v...)
	}

	return pathMap, nil
}

// NgramToSequences returns every keystroke sequence that types g: the
// cross-product, in order, of the path-map entries for each keycode in g.
// Returns (nil, false) if any keycode in g has no path-map entry.
func (lo *Layout) NgramToSequences(g ngram.Ngram) ([]PositionSequence, bool) {
	var out []PositionSequence

	for _, k := range g.Keys() {
		pathsToKey, ok := lo.pathMap[k]
		if !ok || len(pathsToKey) == 0 {
			return nil, false
		}

		if len(out) == 0 {
			out = append(out, pathsToKey...)
			continue
		}

		next := make([]PositionSequence, 0, len(out)*len(pathsToKey))
		for _, existing := range out {
			for _, p := range pathsToKey {
				next = append(next, existing.Append(p))
			}
		}

		out = next
	}

	return out, true
}

// String renders the value-only display flavour of every layer, joined by
// "___Layer i___" separators.
func (lo *Layout) String() string {
	var b strings.Builder

	for i, l := range lo.layers {
		fmt.Fprintf(&b, "___Layer %d___\n", i)
		fmt.Fprint(&b, layer.Format(l, layer.KeycodeKey.String))
	}

	return b.String()
}

// FormatBinary renders every layer in its round-trippable value+flags form.
func (lo *Layout) FormatBinary() string {
	var b strings.Builder

	for i, l := range lo.layers {
		fmt.Fprintf(&b, "___Layer %d___\n", i)
		fmt.Fprint(&b, layer.FormatKeycodeLayer(l))
	}

	return b.String()
}

// sortedPathMapKeys returns the path-map's keys in the Keycode total order,
// used only to make diagnostic dumps deterministic.
func (lo *Layout) sortedPathMapKeys() []keycode.Keycode {
	keys := make([]keycode.Keycode, 0, len(lo.pathMap))
	for k := range lo.pathMap {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	return keys
}

// DumpPathMap renders the full keycode -> sequences index, one keycode per
// line, for debugging.
func (lo *Layout) DumpPathMap() string {
	var b strings.Builder

	for _, k := range lo.sortedPathMapKeys() {
		fmt.Fprintf(&b, "%s: ", k)

		for _, seq := range lo.pathMap[k] {
			fmt.Fprintf(&b, "%s, ", seq)
		}

		b.WriteByte('\n')
	}

	return b.String()
}
