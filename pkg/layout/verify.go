package layout

import (
	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
)

// VerifyCorrectness walks every cell and reports two kinds of violation:
// layer-switch pairs whose LS/LST targets disagree, and symmetric cells
// whose mirror partner is not itself symmetric. Both lists are returned so
// a caller can report everything wrong at once rather than failing fast.
func (lo *Layout) VerifyCorrectness() (lsViolations, symViolations [][2]Position) {
	for layerIdx, l := range lo.layers {
		rows, cols := l.Rows(), l.Cols()

		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				pos := NewPosition(layerIdx, r, c)
				cell := l.MustGet(r, c)

				if target, ok := cell.Value().IsLS(); ok {
					if target < 0 || target >= len(lo.layers) {
						lsViolations = append(lsViolations, [2]Position{pos, pos})
						continue
					}

					counterpart := lo.layers[target].MustGet(r, c)

					ct, cs, ok := counterpart.Value().IsLST()
					if !ok || ct != target || cs != layerIdx {
						lsViolations = append(lsViolations, [2]Position{pos, NewPosition(target, r, c)})
					}
				}

				if cell.IsSymmetric() {
					mirror := lo.SymmetricPosition(pos)
					mirrorCell, err := lo.GetPosition(mirror)

					if err != nil || !mirrorCell.IsSymmetric() {
						symViolations = append(symViolations, [2]Position{pos, mirror})
					}
				}
			}
		}
	}

	return lsViolations, symViolations
}

// VerifyPathMapCorrectness checks the stored path-map against the layers:
// every position the stored path-map claims for a keycode actually
// holds that keycode, and that every non-NO, non-LST cell appears in the
// path-map under its own keycode.
func (lo *Layout) VerifyPathMapCorrectness() error {
	for k, seqs := range lo.pathMap {
		for _, seq := range seqs {
			positions := seq.Positions()
			last := positions[len(positions)-1]

			cell, err := lo.GetPosition(last)
			if err != nil {
				return err
			}

			if cell.Value() != k {
				return &alcerr.PathMapIncorrectError{Expected: k, Position: last, Found: cell.Value()}
			}
		}
	}

	for layerIdx, l := range lo.layers {
		rows, cols := l.Rows(), l.Cols()

		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				cell := l.MustGet(r, c)
				v := cell.Value()

				if v == keycode.NO {
					continue
				}

				if _, _, ok := v.IsLST(); ok {
					continue
				}

				pos := NewPosition(layerIdx, r, c)

				found := false

				for _, seq := range lo.pathMap[v] {
					ps := seq.Positions()
					if ps[len(ps)-1] == pos {
						found = true
						break
					}
				}

				if !found {
					return &alcerr.PathMapIncompleteError{Keycode: v, Position: pos}
				}
			}
		}
	}

	return nil
}
