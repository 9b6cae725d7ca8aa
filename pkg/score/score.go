// Package score implements the effort-based sequence scorer (C6): a Simple
// scorer that sums per-key effort, and an Advanced scorer that additionally
// rewards hand-alternation and finger-roll streaks and penalises
// same-finger repetition.
package score

import (
	"math"

	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
)

// Config holds the weights and reduction factors that parametrise the
// Advanced scorer.
type Config struct {
	HandAlternationWeight float64
	FingerRollWeight      float64

	HandAlternationReductionFactor   float64 // α
	FingerRollReductionFactor        float64 // ρ
	FingerRollSameRowReductionFactor float64 // ρ_row

	SameFingerPenaltyFactor  float64 // σ
	ExtraLengthPenaltyFactor float64 // λ
}

// normalisedWeights returns w_a' and w_r': the alternation and roll weights
// normalised to sum to 1, or (0, 0) if both are zero.
func (c Config) normalisedWeights() (wa, wr float64) {
	sum := c.HandAlternationWeight + c.FingerRollWeight
	if sum == 0 {
		return 0, 0
	}

	return c.HandAlternationWeight / sum, c.FingerRollWeight / sum
}

// Reduction computes R(β, k, w) = 1 − (1 − β^k)·w, the shared reduction
// formula used for both alternation and roll streaks.
func Reduction(beta float64, k int, w float64) float64 {
	return 1 - (1-math.Pow(beta, float64(k)))*w
}

// Scorer computes the effort cost of typing one position sequence.
type Scorer interface {
	Score(seq layout.PositionSequence, effort *layer.Layer[float64], phalanx *layer.Layer[layer.PhalanxKey], cfg Config) float64
}

// Simple sums per-key effort with no alternation/roll/same-finger
// adjustment.
type Simple struct{}

// Score implements Scorer.
func (Simple) Score(seq layout.PositionSequence, effort *layer.Layer[float64], _ *layer.Layer[layer.PhalanxKey], _ Config) float64 {
	total := 0.0
	for _, p := range seq.Positions() {
		total += effort.MustGet(p.Row, p.Col)
	}

	return total
}

// Advanced rewards hand alternation and finger rolls and penalises
// same-finger repetition, per §4.6. The small-sequence (L ∈ {1,2,3})
// closed-form cases described there are subsumed by the same general-case
// loop below: a length-2 same-finger sequence produces exactly one
// same-finger adjacency and no streaks, and a length-3 or length-4 pure
// alternation run is exactly one alternation run spanning the whole
// sequence — both fall out of the general algorithm without a separate
// branch, so no dedicated fast path is implemented.
type Advanced struct{}

type run struct {
	start, end int // inclusive position indices
}

func (r run) transitions() int { return r.end - r.start }

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

// Score implements Scorer.
func (Advanced) Score(seq layout.PositionSequence, effort *layer.Layer[float64], phalanx *layer.Layer[layer.PhalanxKey], cfg Config) float64 {
	positions := seq.Positions()
	length := len(positions)

	efforts := make([]float64, length)
	phalanxes := make([]layer.PhalanxKey, length)

	for i, p := range positions {
		efforts[i] = effort.MustGet(p.Row, p.Col)
		phalanxes[i] = phalanx.MustGet(p.Row, p.Col)
	}

	total := 0.0
	for _, e := range efforts {
		total += e
	}

	sameFingerAdditions := 0.0

	for i := 1; i < length; i++ {
		if sameHandFinger(phalanxes[i-1], phalanxes[i]) {
			sameFingerAdditions += (cfg.SameFingerPenaltyFactor - 1) * efforts[i]
		}
	}

	altRuns, rollRuns := findRuns(positions, phalanxes)

	wa, wr := cfg.normalisedWeights()

	reductions := 0.0

	for _, r := range altRuns {
		sum := sumRange(efforts, r.start, r.end)
		R := Reduction(cfg.HandAlternationReductionFactor, r.transitions(), wa)
		reductions -= (1 - R) * sum
	}

	for _, r := range rollRuns {
		sum := sumRange(efforts, r.start, r.end)

		rho := cfg.FingerRollReductionFactor
		if allSameRow(positions[r.start : r.end+1]) {
			rho *= cfg.FingerRollSameRowReductionFactor
		}

		R := Reduction(rho, r.transitions(), wr)
		reductions -= (1 - R) * sum
	}

	return total + reductions + sameFingerAdditions
}

func sumRange(efforts []float64, start, end int) float64 {
	sum := 0.0
	for i := start; i <= end; i++ {
		sum += efforts[i]
	}

	return sum
}

func allSameRow(positions []layout.Position) bool {
	for _, p := range positions[1:] {
		if p.Row != positions[0].Row {
			return false
		}
	}

	return true
}

func sameHandFinger(a, b layer.PhalanxKey) bool {
	return a.Hand != layer.HandPlaceholder && a.Hand == b.Hand && a.Finger == b.Finger
}

// findRuns walks the sequence once, tracking a hand-alternation streak and
// a finger-roll streak in parallel; a streak of two or more consecutive
// transitions (three or more positions) is recorded as a run.
func findRuns(positions []layout.Position, phalanxes []layer.PhalanxKey) (altRuns, rollRuns []run) {
	length := len(positions)

	altCount := 0
	altStart := 0

	rollCount := 0
	rollStart := 0
	rollDir := 0

	flushAlt := func(endExclusive int) {
		if altCount >= 2 {
			altRuns = append(altRuns, run{start: altStart, end: endExclusive})
		}

		altCount = 0
	}

	flushRoll := func(endExclusive int) {
		if rollCount >= 2 {
			rollRuns = append(rollRuns, run{start: rollStart, end: endExclusive})
		}

		rollCount = 0
		rollDir = 0
	}

	for i := 1; i < length; i++ {
		prevHand, curHand := phalanxes[i-1].Hand, phalanxes[i].Hand
		prevFinger, curFinger := phalanxes[i-1].Finger, phalanxes[i].Finger
		rowDelta := abs(positions[i].Row - positions[i-1].Row)

		isAlt := prevHand != layer.HandPlaceholder && curHand != layer.HandPlaceholder && prevHand != curHand
		if isAlt {
			if altCount == 0 {
				altStart = i - 1
			}

			altCount++
		} else {
			flushAlt(i - 1)
		}

		dir := 0

		isRoll := prevHand == curHand && prevHand != layer.HandPlaceholder &&
			prevFinger.Comparable(curFinger) && prevFinger != curFinger && rowDelta <= 1

		if isRoll {
			if prevFinger.Less(curFinger) {
				dir = 1
			} else {
				dir = -1
			}
		}

		if isRoll && (rollCount == 0 || dir == rollDir) {
			if rollCount == 0 {
				rollStart = i - 1
				rollDir = dir
			}

			rollCount++
		} else {
			flushRoll(i - 1)

			if isRoll {
				rollStart = i - 1
				rollDir = dir
				rollCount = 1
			}
		}
	}

	flushAlt(length - 1)
	flushRoll(length - 1)

	return altRuns, rollRuns
}
