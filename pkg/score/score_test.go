package score

import (
	"math"
	"testing"

	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func effortLayer(t *testing.T, rows, cols int, values []float64) *layer.Layer[float64] {
	t.Helper()

	l := layer.NewLayer(rows, cols, 0.0)
	for i, v := range values {
		if err := l.SetRowMajor(i, v); err != nil {
			t.Fatalf("SetRowMajor: %v", err)
		}
	}

	return l
}

func phalanxLayer(t *testing.T, rows, cols int, values []layer.PhalanxKey) *layer.Layer[layer.PhalanxKey] {
	t.Helper()

	l := layer.NewLayer(rows, cols, layer.PhalanxKey{})
	for i, v := range values {
		if err := l.SetRowMajor(i, v); err != nil {
			t.Fatalf("SetRowMajor: %v", err)
		}
	}

	return l
}

func seqOf(positions ...[3]int) layout.PositionSequence {
	ps := make([]layout.Position, len(positions))
	for i, p := range positions {
		ps[i] = layout.NewPosition(p[0], p[1], p[2])
	}

	return layout.NewPositionSequence(ps...)
}

func TestSimpleScorerSumsEffort(t *testing.T) {
	effort := effortLayer(t, 2, 3, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	seq := seqOf([3]int{0, 0, 0}, [3]int{0, 0, 2}, [3]int{1, 1, 1})

	got := Simple{}.Score(seq, effort, nil, Config{})
	if !approxEqual(got, 0.9) {
		t.Errorf("Simple score = %v, want 0.9", got)
	}
}

func TestAdvancedScorerPureAlternationRun(t *testing.T) {
	effort := effortLayer(t, 1, 4, []float64{0.1, 0.2, 0.3, 0.4})
	phalanx := phalanxLayer(t, 1, 4, []layer.PhalanxKey{
		{Hand: layer.HandLeft, Finger: layer.FingerRing},
		{Hand: layer.HandLeft, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerRing},
	})

	cfg := Config{
		HandAlternationWeight:          3,
		FingerRollWeight:               2,
		HandAlternationReductionFactor: 0.9,
		FingerRollReductionFactor:      1,
		SameFingerPenaltyFactor:        1,
	}

	seq := seqOf([3]int{0, 0, 0}, [3]int{0, 0, 2}, [3]int{0, 0, 1}, [3]int{0, 0, 3})

	got := Advanced{}.Score(seq, effort, phalanx, cfg)

	wantR := 1 - (1-math.Pow(0.9, 3))*0.6
	want := (0.1 + 0.3 + 0.2 + 0.4) * wantR

	if !approxEqual(got, want) {
		t.Errorf("Advanced score = %v, want %v (R=%v)", got, want, wantR)
	}

	if !approxEqual(wantR, 0.8374) {
		t.Errorf("sanity: R = %v, want 0.8374", wantR)
	}
}

func TestAdvancedScorerSameFingerPenalty(t *testing.T) {
	effort := effortLayer(t, 1, 4, []float64{0.1, 0.2, 0.3, 0.4})
	phalanx := phalanxLayer(t, 1, 4, []layer.PhalanxKey{
		{Hand: layer.HandLeft, Finger: layer.FingerRing},
		{Hand: layer.HandLeft, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerRing},
	})

	cfg := Config{SameFingerPenaltyFactor: 3}

	seq := seqOf([3]int{0, 0, 0}, [3]int{0, 0, 0})

	got := Advanced{}.Score(seq, effort, phalanx, cfg)
	if !approxEqual(got, 0.4) {
		t.Errorf("Advanced score = %v, want 0.4", got)
	}
}

func TestReductionHelper(t *testing.T) {
	if got := Reduction(0.9, 2, 0.4); !approxEqual(got, 0.924) {
		t.Errorf("Reduction(0.9,2,0.4) = %v, want 0.924", got)
	}

	if got := Reduction(0.9, 1, 0.5); !approxEqual(got, 0.95) {
		t.Errorf("Reduction(0.9,1,0.5) = %v, want 0.95", got)
	}
}

func TestAdvancedScorerMonotonicUnderReductionFactor(t *testing.T) {
	effort := effortLayer(t, 1, 4, []float64{0.1, 0.2, 0.3, 0.4})
	phalanx := phalanxLayer(t, 1, 4, []layer.PhalanxKey{
		{Hand: layer.HandLeft, Finger: layer.FingerRing},
		{Hand: layer.HandLeft, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerMiddle},
		{Hand: layer.HandRight, Finger: layer.FingerRing},
	})

	seq := seqOf([3]int{0, 0, 0}, [3]int{0, 0, 2}, [3]int{0, 0, 1}, [3]int{0, 0, 3})

	low := Advanced{}.Score(seq, effort, phalanx, Config{HandAlternationWeight: 3, FingerRollWeight: 2, HandAlternationReductionFactor: 0.5})
	high := Advanced{}.Score(seq, effort, phalanx, Config{HandAlternationWeight: 3, FingerRollWeight: 2, HandAlternationReductionFactor: 0.99})

	if high < low {
		t.Errorf("increasing the reduction factor toward 1 decreased the score: low=%v high=%v", low, high)
	}
}
