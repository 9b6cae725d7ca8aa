// Package optimizer implements the genetic layout search (C7): population
// initialisation, dataset-weighted scoring, truncation selection,
// swap/replace mutation and refill, a generation loop with parallel
// scoring, and the finalisation (prune + re-verify) step.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/dataset"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
	"github.com/tommoulard/keyboardgen/pkg/score"
)

// scoreEqualityTolerance bounds the floating-point drift P7 tolerates
// between a best layout's pre-prune and post-prune score.
const scoreEqualityTolerance = 1e-9

// Config holds the genetic_options parameters from §4.7.
type Config struct {
	PopulationSize  int
	GenerationCount int
	FitnessCutoff   float64 // f, in (0, 1]
	SwapWeight      float64
	ReplaceWeight   float64
	NumThreads      int
	TopNToSave      int
}

// swapProbability returns s_w / (s_w + r_w).
func (c Config) swapProbability() float64 {
	sum := c.SwapWeight + c.ReplaceWeight
	if sum == 0 {
		return 0
	}

	return c.SwapWeight / sum
}

func (c Config) effectiveThreads() int {
	if c.NumThreads <= 0 {
		return runtime.NumCPU()
	}

	return c.NumThreads
}

// WeightedDataset pairs a loaded frequency dataset with its dataset_weight.
type WeightedDataset struct {
	Dataset *dataset.Dataset
	Weight  float64
}

// ScoreInputs bundles the effort/phalanx grids and scorer configuration a
// layout is scored against; these are fixed for the whole run.
type ScoreInputs struct {
	Effort      *layer.Layer[float64]
	Phalanx     *layer.Layer[layer.PhalanxKey]
	ScoreConfig score.Config
}

// OperationCounts is the single shared (swaps, replaces, noops, total)
// counter from §5: written only by the driver during mutation, readable at
// any time.
type OperationCounts struct {
	Swaps, Replaces, Noops, Total uint64
}

// GenerationTimings records how long one generation spent in each stage.
type GenerationTimings struct {
	Selection time.Duration
	Refill    time.Duration
	Scoring   time.Duration
}

// Result is the outcome of a full Run: the final selected population
// (ascending by score, so index 0 is the best), their scores, the
// accumulated operation counts, and per-generation timings.
type Result struct {
	Population []*layout.Layout
	Scores     []float64
	Operations OperationCounts
	Timings    []GenerationTimings
}

// scoreDatasetTrackVisited scores lo against one dataset and records every
// position visited by each ngram's chosen minimum-cost sequence into
// visited. This is the single implementation backing both ordinary scoring
// (called with a throwaway map) and the finalisation step's
// save_positions=true pass.
func scoreDatasetTrackVisited(lo *layout.Layout, ds *dataset.Dataset, inputs ScoreInputs, visited map[layout.Position]bool) (float64, error) {
	ns := ds.Ns()
	if len(ns) == 0 {
		return 0, nil
	}

	lengthWeight := 1.0 / float64(len(ns))

	var total float64

	for _, n := range ns {
		holder := ds.Holder(n)
		if holder == nil || holder.Total() == 0 {
			continue
		}

		type contribution struct {
			key   string
			value float64
		}

		var (
			ngramSum      float64
			rangeErr      error
			contributions []contribution
		)

		holder.Range(func(g ngram.Ngram, count uint64) {
			if rangeErr != nil {
				return
			}

			seqs, ok := lo.NgramToSequences(g)
			if !ok {
				rangeErr = &alcerr.UntypeableNgramError{Ngram: g}
				return
			}

			best := math.Inf(1)

			var bestSeq layout.PositionSequence

			for _, seq := range seqs {
				s := score.Advanced{}.Score(seq, inputs.Effort, inputs.Phalanx, inputs.ScoreConfig)
				s *= math.Pow(inputs.ScoreConfig.ExtraLengthPenaltyFactor, float64(seq.Len()-n))

				if s < best {
					best = s
					bestSeq = seq
				}
			}

			for _, p := range bestSeq.Positions() {
				visited[p] = true
			}

			contributions = append(contributions, contribution{fmt.Sprint(g.Keys()), best * (float64(count) / float64(holder.Total()))})
		})

		if rangeErr != nil {
			return 0, rangeErr
		}

		// Sum in a fixed ngram order so the floating-point total does not
		// depend on Range's map iteration order.
		sort.Slice(contributions, func(a, b int) bool { return contributions[a].key < contributions[b].key })

		for _, c := range contributions {
			ngramSum += c.value
		}

		total += ngramSum * lengthWeight
	}

	return total, nil
}

func scoreDataset(lo *layout.Layout, ds *dataset.Dataset, inputs ScoreInputs) (float64, error) {
	return scoreDatasetTrackVisited(lo, ds, inputs, make(map[layout.Position]bool))
}

func scoreLayoutTrackVisited(lo *layout.Layout, datasets []WeightedDataset, inputs ScoreInputs) (float64, map[layout.Position]bool, error) {
	visited := make(map[layout.Position]bool)

	var total float64

	for _, wd := range datasets {
		s, err := scoreDatasetTrackVisited(lo, wd.Dataset, inputs, visited)
		if err != nil {
			return 0, nil, err
		}

		total += s * wd.Weight
	}

	return total, visited, nil
}

// ScoreLayout implements "scoring a layout against a dataset" (§4.7) summed
// across every weighted dataset.
func ScoreLayout(lo *layout.Layout, datasets []WeightedDataset, inputs ScoreInputs) (float64, error) {
	total, _, err := scoreLayoutTrackVisited(lo, datasets, inputs)
	return total, err
}

// scorePopulation scores every layout in pop concurrently on a worker pool
// sized numThreads. Each layout's score is computed independently and
// written to its own index, so the result is bit-for-bit identical
// regardless of scheduling order (P5/S7 determinism).
func scorePopulation(ctx context.Context, pop []*layout.Layout, datasets []WeightedDataset, inputs ScoreInputs, numThreads int) ([]float64, error) {
	scores := make([]float64, len(pop))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numThreads)

	for i, lo := range pop {
		i, lo := i, lo

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			s, err := ScoreLayout(lo, datasets, inputs)
			if err != nil {
				return err
			}

			scores[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

func initialPopulation(rng *rand.Rand, base *layout.Layout, p int, validKeycodes []keycode.Keycode) ([]*layout.Layout, error) {
	pop := make([]*layout.Layout, p)

	for i := 0; i < p; i++ {
		lo := base.Clone()
		if err := lo.Randomize(rng, validKeycodes); err != nil {
			return nil, err
		}

		pop[i] = lo
	}

	return pop, nil
}

// ascendingIndices returns indices into scores sorted ascending (lower
// score first, per "lower is better").
func ascendingIndices(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	return idx
}

// selectSurvivors sorts pop ascending by score and retains the top
// ceil(f*len(pop)) (always at least one).
func selectSurvivors(pop []*layout.Layout, scores []float64, f float64) ([]*layout.Layout, []float64) {
	idx := ascendingIndices(scores)

	keep := int(math.Ceil(f * float64(len(pop))))
	if keep < 1 {
		keep = 1
	}

	if keep > len(pop) {
		keep = len(pop)
	}

	survivors := make([]*layout.Layout, keep)
	survivorScores := make([]float64, keep)

	for i := 0; i < keep; i++ {
		survivors[i] = pop[idx[i]]
		survivorScores[i] = scores[idx[i]]
	}

	return survivors, survivorScores
}

// mutateOne applies exactly one mutation to lo: a swap with probability
// swapProb, otherwise a replace. Fallback-exhaustion and value-identical
// mutations both count as a no-op rather than a fatal error.
func mutateOne(rng *rand.Rand, lo *layout.Layout, validKeycodes []keycode.Keycode, swapProb float64, counts *OperationCounts) error {
	counts.Total++

	if rng.Float64() < swapProb {
		p1, p2, err := lo.GenerateRandomValidSwap(rng)
		if err != nil {
			if alcerr.IsSwapFallback(err) {
				counts.Noops++
				return nil
			}

			return err
		}

		happened, err := lo.Swap(p1, p2)
		if err != nil {
			return err
		}

		if happened {
			counts.Swaps++
		} else {
			counts.Noops++
		}

		return nil
	}

	p, v, err := lo.GenValidReplace(rng, validKeycodes)
	if err != nil {
		if alcerr.IsSwapFallback(err) {
			counts.Noops++
			return nil
		}

		return err
	}

	cell, err := lo.GetPosition(p)
	if err != nil {
		return err
	}

	noop := cell.Value() == v

	if err := lo.Replace(p, v); err != nil {
		if errors.Is(err, layout.ErrReplaceWouldOrphan) {
			counts.Noops++
			return nil
		}

		return err
	}

	if noop {
		counts.Noops++
	} else {
		counts.Replaces++
	}

	return nil
}

// refill clones random survivors and mutates each clone once until pop
// reaches target size.
func refill(rng *rand.Rand, survivors []*layout.Layout, target int, validKeycodes []keycode.Keycode, swapProb float64, counts *OperationCounts) ([]*layout.Layout, error) {
	pop := make([]*layout.Layout, len(survivors), target)
	copy(pop, survivors)

	for len(pop) < target {
		parent := survivors[rng.Intn(len(survivors))]
		child := parent.Clone()

		if err := mutateOne(rng, child, validKeycodes, swapProb, counts); err != nil {
			return nil, err
		}

		pop = append(pop, child)
	}

	return pop, nil
}

// ProgressFunc is called with a human-readable stage description at each
// transition; Run's caller typically wires this to a progress.Writer.
type ProgressFunc func(stage string)

// Run executes the full generation loop from §4.7: initial population,
// then GenerationCount rounds of selection, mutation/refill, and parallel
// rescoring, followed by one final selection.
func Run(ctx context.Context, cfg Config, base *layout.Layout, validKeycodes []keycode.Keycode, datasets []WeightedDataset, inputs ScoreInputs, rng *rand.Rand, onProgress ProgressFunc) (*Result, error) {
	swapProb := cfg.swapProbability()
	threads := cfg.effectiveThreads()
	counts := OperationCounts{}

	pop, err := initialPopulation(rng, base, cfg.PopulationSize, validKeycodes)
	if err != nil {
		return nil, err
	}

	scores, err := scorePopulation(ctx, pop, datasets, inputs, threads)
	if err != nil {
		return nil, err
	}

	if onProgress != nil {
		onProgress("Processed initial population")
	}

	timings := make([]GenerationTimings, 0, cfg.GenerationCount)

	for gen := 0; gen < cfg.GenerationCount; gen++ {
		var t GenerationTimings

		selStart := time.Now()
		survivors, _ := selectSurvivors(pop, scores, cfg.FitnessCutoff)
		t.Selection = time.Since(selStart)

		refillStart := time.Now()

		var refilled []*layout.Layout

		if cfg.PopulationSize == 1 {
			lone := survivors[0]
			if err := mutateOne(rng, lone, validKeycodes, swapProb, &counts); err != nil {
				return nil, err
			}

			refilled = []*layout.Layout{lone}
		} else {
			refilled, err = refill(rng, survivors, cfg.PopulationSize, validKeycodes, swapProb, &counts)
			if err != nil {
				return nil, err
			}
		}

		t.Refill = time.Since(refillStart)

		scoreStart := time.Now()

		scores, err = scorePopulation(ctx, refilled, datasets, inputs, threads)
		if err != nil {
			return nil, err
		}

		t.Scoring = time.Since(scoreStart)

		pop = refilled
		timings = append(timings, t)

		if onProgress != nil {
			onProgress(fmt.Sprintf("Finished generation %d/%d", gen+1, cfg.GenerationCount))
		}
	}

	finalPop, finalScores := selectSurvivors(pop, scores, cfg.FitnessCutoff)

	return &Result{
		Population: finalPop,
		Scores:     finalScores,
		Operations: counts,
		Timings:    timings,
	}, nil
}

// Finalize implements the finalisation step: clone best, re-score it with
// position tracking, prune every moveable/non-symmetric/non-LS/LST cell
// the chosen sequences never visited, rescore, and assert the score is
// unchanged (P7). It then runs VerifyCorrectness and reports any
// violations as an error, since a finalised layout must always pass.
func Finalize(best *layout.Layout, datasets []WeightedDataset, inputs ScoreInputs) (*layout.Layout, float64, error) {
	pruned := best.Clone()

	originalScore, visited, err := scoreLayoutTrackVisited(pruned, datasets, inputs)
	if err != nil {
		return nil, 0, err
	}

	if err := pruned.PruneUnvisited(visited); err != nil {
		return nil, 0, err
	}

	rescored, _, err := scoreLayoutTrackVisited(pruned, datasets, inputs)
	if err != nil {
		return nil, 0, err
	}

	if math.Abs(rescored-originalScore) > scoreEqualityTolerance {
		return nil, 0, fmt.Errorf("optimizer: pruning changed score from %v to %v, this indicates an internal bug", originalScore, rescored)
	}

	lsViolations, symViolations := pruned.VerifyCorrectness()
	if len(lsViolations) > 0 || len(symViolations) > 0 {
		return nil, 0, fmt.Errorf("optimizer: finalised layout failed verification: %d layer-switch violation(s), %d symmetry violation(s)", len(lsViolations), len(symViolations))
	}

	return pruned, rescored, nil
}

// TopN truncates result's ascending-sorted population/scores to at most n
// entries (n <= 0 means "no limit").
func (r *Result) TopN(n int) ([]*layout.Layout, []float64) {
	if n <= 0 || n > len(r.Population) {
		n = len(r.Population)
	}

	return r.Population[:n], r.Scores[:n]
}
