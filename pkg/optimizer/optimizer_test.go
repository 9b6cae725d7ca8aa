package optimizer

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/tommoulard/keyboardgen/pkg/dataset"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
)

func blankLayout1x4(t *testing.T) *layout.Layout {
	t.Helper()

	lo, err := layout.InitBlank(1, 4, 1)
	if err != nil {
		t.Fatalf("InitBlank: %v", err)
	}

	return lo
}

func onePairDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	d := dataset.NewDataset(1)
	holder := ngram.NewHolder(1)

	if err := holder.Add(ngram.New(keycode.A), 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	d.ByN[1] = holder

	return d
}

func TestScoreLayoutSimpleSum(t *testing.T) {
	lo := blankLayout1x4(t)

	if err := lo.Replace(layout.NewPosition(0, 0, 0), keycode.A); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	inputs := ScoreInputs{
		Effort: func() *layer.Layer[float64] {
			l := layer.NewLayer(1, 4, 0.0)
			for i, v := range []float64{0.1, 0.2, 0.3, 0.4} {
				_ = l.SetRowMajor(i, v)
			}

			return l
		}(),
		Phalanx: layer.NewLayer(1, 4, layer.PhalanxKey{}),
	}

	ds := []WeightedDataset{{Dataset: onePairDataset(t), Weight: 1}}

	got, err := ScoreLayout(lo, ds, inputs)
	if err != nil {
		t.Fatalf("ScoreLayout: %v", err)
	}

	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("ScoreLayout = %v, want 0.1", got)
	}
}

func TestScoreLayoutUntypeableNgramFails(t *testing.T) {
	lo := blankLayout1x4(t)

	inputs := ScoreInputs{
		Effort:  layer.NewLayer(1, 4, 0.0),
		Phalanx: layer.NewLayer(1, 4, layer.PhalanxKey{}),
	}

	ds := []WeightedDataset{{Dataset: onePairDataset(t), Weight: 1}}

	if _, err := ScoreLayout(lo, ds, inputs); err == nil {
		t.Errorf("expected UntypeableNgramError, got nil")
	}
}

func TestRunDeterministicGivenSeed(t *testing.T) {
	effort := layer.NewLayer(1, 4, 0.0)
	for i, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		_ = effort.SetRowMajor(i, v)
	}

	inputs := ScoreInputs{Effort: effort, Phalanx: layer.NewLayer(1, 4, layer.PhalanxKey{})}
	ds := []WeightedDataset{{Dataset: onePairDataset(t), Weight: 1}}

	validKeycodes := []keycode.Keycode{keycode.A, keycode.B, keycode.C, keycode.NO}

	cfg := Config{
		PopulationSize:  4,
		GenerationCount: 2,
		FitnessCutoff:   0.5,
		SwapWeight:      1,
		ReplaceWeight:   1,
		NumThreads:      2,
	}

	run := func(seed int64) (*Result, error) {
		base := blankLayout1x4(t)
		rng := rand.New(rand.NewSource(seed))

		return Run(context.Background(), cfg, base, validKeycodes, ds, inputs, rng, nil)
	}

	r1, err := run(42)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r2, err := run(42)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(r1.Scores) != len(r2.Scores) {
		t.Fatalf("population size mismatch: %d vs %d", len(r1.Scores), len(r2.Scores))
	}

	for i := range r1.Scores {
		if r1.Scores[i] != r2.Scores[i] {
			t.Errorf("score[%d] differs across identical-seed runs: %v vs %v", i, r1.Scores[i], r2.Scores[i])
		}

		if r1.Population[i].String() != r2.Population[i].String() {
			t.Errorf("population[%d] differs across identical-seed runs", i)
		}
	}
}

func TestRunAscendingScoreOrder(t *testing.T) {
	effort := layer.NewLayer(1, 4, 0.0)
	for i, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		_ = effort.SetRowMajor(i, v)
	}

	inputs := ScoreInputs{Effort: effort, Phalanx: layer.NewLayer(1, 4, layer.PhalanxKey{})}
	ds := []WeightedDataset{{Dataset: onePairDataset(t), Weight: 1}}

	validKeycodes := []keycode.Keycode{keycode.A, keycode.B, keycode.C, keycode.NO}

	cfg := Config{
		PopulationSize:  6,
		GenerationCount: 3,
		FitnessCutoff:   0.5,
		SwapWeight:      1,
		ReplaceWeight:   1,
		NumThreads:      4,
	}

	base := blankLayout1x4(t)
	rng := rand.New(rand.NewSource(7))

	result, err := Run(context.Background(), cfg, base, validKeycodes, ds, inputs, rng, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 1; i < len(result.Scores); i++ {
		if result.Scores[i] < result.Scores[i-1] {
			t.Errorf("final selection not ascending: score[%d]=%v < score[%d]=%v", i, result.Scores[i], i-1, result.Scores[i-1])
		}
	}

	if result.Operations.Total == 0 {
		t.Errorf("expected at least one mutation to be counted")
	}
}

func TestFinalizePreservesScore(t *testing.T) {
	lo := blankLayout1x4(t)

	if err := lo.Replace(layout.NewPosition(0, 0, 0), keycode.A); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	effort := layer.NewLayer(1, 4, 0.0)
	for i, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		_ = effort.SetRowMajor(i, v)
	}

	inputs := ScoreInputs{Effort: effort, Phalanx: layer.NewLayer(1, 4, layer.PhalanxKey{})}
	ds := []WeightedDataset{{Dataset: onePairDataset(t), Weight: 1}}

	pruned, finalScore, err := Finalize(lo, ds, inputs)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if math.Abs(finalScore-0.1) > 1e-9 {
		t.Errorf("Finalize score = %v, want 0.1", finalScore)
	}

	cell, err := pruned.GetPosition(layout.NewPosition(0, 0, 1))
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}

	if cell.Value() != keycode.NO {
		t.Errorf("unused moveable cell (0,0,1) = %v, want NO after pruning", cell.Value())
	}

	lsViolations, symViolations := pruned.VerifyCorrectness()
	if len(lsViolations) > 0 || len(symViolations) > 0 {
		t.Errorf("pruned layout fails verification: ls=%v sym=%v", lsViolations, symViolations)
	}
}

func TestResultTopN(t *testing.T) {
	r := &Result{
		Population: make([]*layout.Layout, 5),
		Scores:     []float64{0.1, 0.2, 0.3, 0.4, 0.5},
	}

	pop, scores := r.TopN(2)
	if len(pop) != 2 || len(scores) != 2 {
		t.Fatalf("TopN(2) returned %d entries, want 2", len(pop))
	}

	if scores[0] != 0.1 || scores[1] != 0.2 {
		t.Errorf("TopN(2) scores = %v, want [0.1 0.2]", scores)
	}

	fullPop, _ := r.TopN(0)
	if len(fullPop) != 5 {
		t.Errorf("TopN(0) should return all entries, got %d", len(fullPop))
	}
}
