package layout

import (
	"errors"
	"math/rand"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
)

// ErrReplaceWouldOrphan is returned by Replace when the cell's current
// keycode has fewer than two typing sequences in the path-map and is not
// NO: replacing it would make that keycode untypeable everywhere else it
// appears. Callers retrying with GenValidReplace treat this as a candidate
// to skip, not a fatal error.
var ErrReplaceWouldOrphan = errors.New("replace would orphan a keycode with no remaining path")

// allPositions returns every cell position across every layer, in
// layer/row/col order.
func (lo *Layout) allPositions() []Position {
	var out []Position

	for layerIdx, l := range lo.layers {
		rows, cols := l.Rows(), l.Cols()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				out = append(out, NewPosition(layerIdx, r, c))
			}
		}
	}

	return out
}

// randomizeablePositions returns every position whose cell reports
// IsRandomizeable, in layer/row/col order.
func (lo *Layout) randomizeablePositions() []Position {
	var out []Position

	for _, p := range lo.allPositions() {
		cell := lo.layers[p.Layer].MustGet(p.Row, p.Col)
		if cell.IsRandomizeable() {
			out = append(out, p)
		}
	}

	return out
}

// moveLSTCounterpart relocates the LST(target, *) marker that tracks an
// LS(target) cell as it moves from oldPos to newPos within its own layer:
// the marker always sits at the same (row, col) as the LS cell, but one
// layer over (layer index = target). Whatever value previously occupied
// the destination counterpart cell is displaced to the vacated one.
func (lo *Layout) moveLSTCounterpart(target int, oldPos, newPos Position) error {
	oldCounterpartPos := NewPosition(target, oldPos.Row, oldPos.Col)
	newCounterpartPos := NewPosition(target, newPos.Row, newPos.Col)

	if oldCounterpartPos == newCounterpartPos {
		return nil
	}

	oldCounterpart, err := lo.GetPosition(oldCounterpartPos)
	if err != nil {
		return err
	}

	newCounterpart, err := lo.GetPosition(newCounterpartPos)
	if err != nil {
		return err
	}

	displaced := newCounterpart.Value()

	newCounterpart.SetValue(keycode.LST(target, newPos.Layer))
	if err := lo.SetPosition(newCounterpartPos, newCounterpart); err != nil {
		return err
	}

	oldCounterpart.SetValue(displaced)

	return lo.SetPosition(oldCounterpartPos, oldCounterpart)
}

// swapMirrorValues swaps the keycode values held at p1's and p2's mirror
// partners, preserving I3 when both p1 and p2 are symmetric. If p1 and p2
// are already mirrors of each other the swap already restored symmetry and
// this is a no-op.
func (lo *Layout) swapMirrorValues(p1, p2 Position) error {
	m1 := lo.SymmetricPosition(p1)
	m2 := lo.SymmetricPosition(p2)

	if m1 == p2 && m2 == p1 {
		return nil
	}

	c1, err := lo.GetPosition(m1)
	if err != nil {
		return err
	}

	c2, err := lo.GetPosition(m2)
	if err != nil {
		return err
	}

	v1, v2 := c1.Value(), c2.Value()
	c1.SetValue(v2)
	c2.SetValue(v1)

	if err := lo.SetPosition(m1, c1); err != nil {
		return err
	}

	return lo.SetPosition(m2, c2)
}

// Swap exchanges the keycodes held at p1 and p2, handling the layer-switch
// (an LS cell on the p1 side drags its LST counterpart along) and symmetric
// (a symmetric cell drags its mirror partner along) cases, then regenerates
// the path-map. It reports whether a swap actually happened: false covers
// both swapping a position with itself and the §4.5.4 no-op preconditions —
// an LS swap whose counterpart is immoveable or symmetric, or a symmetric
// swap whose partner is on the centre column, immoveable, or itself an
// LS/LST cell — none of which mutate the layout.
//
// Swap panics on the remaining, programmer-error preconditions that
// GenerateRandomValidSwap screens for: swapping an LST marker directly, an
// immoveable position, a symmetric cell with a non-symmetric one, an LS
// cell that isn't on the p1 side, an LS swap that crosses layers, or an LS
// side that is itself symmetric.
func (lo *Layout) Swap(p1, p2 Position) (bool, error) {
	if p1 == p2 {
		return false, nil
	}

	c1, err := lo.GetPosition(p1)
	if err != nil {
		return false, err
	}

	c2, err := lo.GetPosition(p2)
	if err != nil {
		return false, err
	}

	if _, _, ok := c1.Value().IsLST(); ok {
		panic("layout: cannot directly swap a layer-switch target marker")
	}

	if _, _, ok := c2.Value().IsLST(); ok {
		panic("layout: cannot directly swap a layer-switch target marker")
	}

	if !c1.IsMoveable() || !c2.IsMoveable() {
		panic("layout: cannot swap an immoveable position")
	}

	if c1.IsSymmetric() != c2.IsSymmetric() {
		panic("layout: cannot swap a symmetric cell with a non-symmetric one")
	}

	if _, ok := c2.Value().IsLS(); ok {
		panic("layout: a layer switch must be on the p1 side of a swap")
	}

	lsTarget1, isLS1 := c1.Value().IsLS()

	if isLS1 {
		if p1.Layer != p2.Layer {
			panic("layout: a layer-switch swap must stay within a single layer")
		}

		if c1.IsSymmetric() || c2.IsSymmetric() {
			panic("layout: a layer switch cannot take part in a symmetric swap")
		}

		counterpartPos := NewPosition(lsTarget1, p2.Row, p2.Col)

		counterpart, err := lo.GetPosition(counterpartPos)
		if err != nil {
			return false, err
		}

		if !counterpart.IsMoveable() || counterpart.IsSymmetric() {
			return false, nil
		}
	} else if c1.IsSymmetric() {
		layerCols := lo.layers[p1.Layer].Cols()
		if layerCols%2 == 1 && p2.Col == (layerCols-1)/2 {
			return false, nil
		}

		p2m := lo.SymmetricPosition(p2)

		mirrorPartner, err := lo.GetPosition(p2m)
		if err != nil {
			return false, err
		}

		if !mirrorPartner.IsMoveable() {
			return false, nil
		}

		if _, ok := mirrorPartner.Value().IsLS(); ok {
			return false, nil
		}

		if _, _, ok := mirrorPartner.Value().IsLST(); ok {
			return false, nil
		}
	}

	v1, v2 := c1.Value(), c2.Value()
	c1.SetValue(v2)
	c2.SetValue(v1)

	if err := lo.SetPosition(p1, c1); err != nil {
		return false, err
	}

	if err := lo.SetPosition(p2, c2); err != nil {
		return false, err
	}

	if isLS1 {
		if err := lo.moveLSTCounterpart(lsTarget1, p1, p2); err != nil {
			return false, err
		}
	}

	if c1.IsSymmetric() {
		if err := lo.swapMirrorValues(p1, p2); err != nil {
			return false, err
		}
	}

	pm, err := buildPathMap(lo.layers)
	if err != nil {
		return false, err
	}

	lo.pathMap = pm

	return true, nil
}

// Replace overwrites the keycode at p with v, then regenerates the
// path-map. Replace panics if p holds an LS or LST cell, or is not
// moveable (programmer errors that GenValidReplace screens for). It
// returns ErrReplaceWouldOrphan, a recoverable condition, if p's current
// keycode is not NO and has fewer than two typing sequences in the
// path-map.
func (lo *Layout) Replace(p Position, v keycode.Keycode) error {
	cell, err := lo.GetPosition(p)
	if err != nil {
		return err
	}

	if _, ok := cell.Value().IsLS(); ok {
		panic("layout: cannot replace a layer-switch cell")
	}

	if _, _, ok := cell.Value().IsLST(); ok {
		panic("layout: cannot replace a layer-switch target marker")
	}

	if !cell.IsMoveable() {
		panic("layout: cannot replace an immoveable position")
	}

	cur := cell.Value()
	if cur != keycode.NO && len(lo.pathMap[cur]) < 2 {
		return ErrReplaceWouldOrphan
	}

	cell.SetValue(v)
	if err := lo.SetPosition(p, cell); err != nil {
		return err
	}

	pm, err := buildPathMap(lo.layers)
	if err != nil {
		return err
	}

	lo.pathMap = pm

	return nil
}

// PruneUnvisited sets every moveable, non-symmetric, non-LS/LST cell whose
// position is absent from visited to NO, then regenerates the path-map
// once. Used by the optimizer's finalisation step (§4.7) to drop positions
// that no minimum-cost typing sequence ever reached.
func (lo *Layout) PruneUnvisited(visited map[Position]bool) error {
	for _, p := range lo.allPositions() {
		if visited[p] {
			continue
		}

		cell, err := lo.GetPosition(p)
		if err != nil {
			return err
		}

		if !cell.IsMoveable() || cell.IsSymmetric() {
			continue
		}

		if _, ok := cell.Value().IsLS(); ok {
			continue
		}

		if _, _, ok := cell.Value().IsLST(); ok {
			continue
		}

		cell.SetValue(keycode.NO)

		if err := lo.SetPosition(p, cell); err != nil {
			return err
		}
	}

	pm, err := buildPathMap(lo.layers)
	if err != nil {
		return err
	}

	lo.pathMap = pm

	return nil
}

func shuffledCopy(rng *rand.Rand, keycodes []keycode.Keycode) []keycode.Keycode {
	out := make([]keycode.Keycode, len(keycodes))
	copy(out, keycodes)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	return out
}

// Randomize assigns a fresh keycode to every randomizeable cell, drawn
// without replacement from a shuffled copy of validKeycodes; when that
// pool is exhausted before all cells are filled, it is reshuffled and
// drawn from again. The path-map is regenerated once at the end.
func (lo *Layout) Randomize(rng *rand.Rand, validKeycodes []keycode.Keycode) error {
	if len(validKeycodes) == 0 {
		return nil
	}

	positions := lo.randomizeablePositions()
	queue := shuffledCopy(rng, validKeycodes)

	for _, pos := range positions {
		if len(queue) == 0 {
			queue = shuffledCopy(rng, validKeycodes)
		}

		next := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		cell := lo.layers[pos.Layer].MustGet(pos.Row, pos.Col)
		cell.SetValue(next)

		if err := lo.SetPosition(pos, cell); err != nil {
			return err
		}
	}

	pm, err := buildPathMap(lo.layers)
	if err != nil {
		return err
	}

	lo.pathMap = pm

	return nil
}

const maxFallbackAttempts = 100

// GenRandomPosition returns a uniformly random position across the whole
// layout, with no eligibility constraint.
func (lo *Layout) GenRandomPosition(rng *rand.Rand) Position {
	positions := lo.allPositions()
	return positions[rng.Intn(len(positions))]
}

// GenerateRandomMoveablePosition returns a uniformly random moveable
// position, retrying up to 100 times before giving up.
func (lo *Layout) GenerateRandomMoveablePosition(rng *rand.Rand) (Position, error) {
	positions := lo.allPositions()

	for attempt := 0; attempt < maxFallbackAttempts; attempt++ {
		p := positions[rng.Intn(len(positions))]

		cell := lo.layers[p.Layer].MustGet(p.Row, p.Col)
		if cell.IsMoveable() {
			return p, nil
		}
	}

	return Position{}, &alcerr.SwapFallbackExceededError{Attempts: maxFallbackAttempts, Reason: "no moveable position found"}
}

// GenerateRandomValidSwap draws two distinct positions that Swap will
// accept without panicking: both moveable, neither an LST marker, matching
// symmetric status, and — per §4.5.4's "if any side is LS it must be on the
// p1 side, both cells are in the same layer, and neither is symmetric" —
// an LS side (if either draw turned one up) reordered to p1 with its
// partner screened for layer and symmetry. Retries up to 100 times; this
// only screens Swap's panic preconditions, not its separate no-op
// conditions (an immoveable/symmetric LS counterpart, or an unreachable
// symmetric partner), which callers must still tolerate as a no-op result.
func (lo *Layout) GenerateRandomValidSwap(rng *rand.Rand) (Position, Position, error) {
	positions := lo.allPositions()

	for attempt := 0; attempt < maxFallbackAttempts; attempt++ {
		p1 := positions[rng.Intn(len(positions))]
		p2 := positions[rng.Intn(len(positions))]

		if p1 == p2 {
			continue
		}

		c1 := lo.layers[p1.Layer].MustGet(p1.Row, p1.Col)
		c2 := lo.layers[p2.Layer].MustGet(p2.Row, p2.Col)

		if !c1.IsMoveable() || !c2.IsMoveable() {
			continue
		}

		if _, _, ok := c1.Value().IsLST(); ok {
			continue
		}

		if _, _, ok := c2.Value().IsLST(); ok {
			continue
		}

		_, isLS1 := c1.Value().IsLS()
		_, isLS2 := c2.Value().IsLS()

		if isLS1 && isLS2 {
			continue
		}

		if isLS2 {
			p1, p2 = p2, p1
			c1, c2 = c2, c1
			isLS1 = true
		}

		if isLS1 {
			if p1.Layer != p2.Layer {
				continue
			}

			if c1.IsSymmetric() || c2.IsSymmetric() {
				continue
			}
		} else if c1.IsSymmetric() != c2.IsSymmetric() {
			continue
		}

		return p1, p2, nil
	}

	return Position{}, Position{}, &alcerr.SwapFallbackExceededError{Attempts: maxFallbackAttempts, Reason: "no valid swap pair found"}
}

// GenValidReplace draws a position and a replacement keycode that Replace
// will accept without error, retrying up to 100 times.
func (lo *Layout) GenValidReplace(rng *rand.Rand, validKeycodes []keycode.Keycode) (Position, keycode.Keycode, error) {
	if len(validKeycodes) == 0 {
		return Position{}, keycode.Keycode{}, &alcerr.SwapFallbackExceededError{Attempts: 0, Reason: "no candidate keycodes"}
	}

	positions := lo.randomizeablePositions()

	for attempt := 0; attempt < maxFallbackAttempts; attempt++ {
		p := positions[rng.Intn(len(positions))]

		cell := lo.layers[p.Layer].MustGet(p.Row, p.Col)

		cur := cell.Value()
		if cur != keycode.NO && len(lo.pathMap[cur]) < 2 {
			continue
		}

		v := validKeycodes[rng.Intn(len(validKeycodes))]

		return p, v, nil
	}

	return Position{}, keycode.Keycode{}, &alcerr.SwapFallbackExceededError{Attempts: maxFallbackAttempts, Reason: "no valid replace position found"}
}
