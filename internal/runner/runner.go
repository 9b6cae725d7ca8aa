package runner

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/tommoulard/keyboardgen/pkg/config"
	"github.com/tommoulard/keyboardgen/pkg/dataset"
	"github.com/tommoulard/keyboardgen/pkg/display"
	"github.com/tommoulard/keyboardgen/pkg/layout"
	"github.com/tommoulard/keyboardgen/pkg/optimizer"
	"github.com/tommoulard/keyboardgen/pkg/progress"
)

// ProgressCallback is invoked once the best layout has been finalised
// (unused positions pruned), with that layout and its rescored value.
type ProgressCallback func(best *layout.Layout, bestScore float64)

// Runner handles loading datasets, driving the optimizer, and reporting
// results for one configuration.
type Runner struct {
	config  config.Config
	prog    *progress.Writer
	display *display.KeyboardDisplay
	verbose bool
}

// New validates cfg and creates a Runner. cacheDir, if non-empty, enables
// the progress file (§6); an empty cacheDir disables progress reporting
// without being an error, since not every caller runs long enough to need
// it (e.g. tests).
func New(cfg config.Config, cacheDir string, verbose bool) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var pw *progress.Writer

	if cacheDir != "" {
		var err error

		pw, err = progress.New(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to set up progress file: %w", err)
		}
	}

	return &Runner{
		config:  cfg,
		prog:    pw,
		display: display.NewKeyboardDisplay(),
		verbose: verbose,
	}, nil
}

func (r *Runner) setStage(stage string) {
	if r.prog == nil {
		return
	}

	if err := r.prog.Set(stage); err != nil && r.verbose {
		fmt.Printf("warning: failed to write progress file: %v\n", err)
	}
}

// Run loads the configured datasets, parses the layout/effort/phalanx
// grids, and drives the optimizer to completion, finalising the winning
// layout before returning.
func (r *Runner) Run(ctx context.Context, progressCallback ProgressCallback) (*optimizer.Result, *layout.Layout, float64, error) {
	li := r.config.LayoutInfo
	oc := r.config.OptimizerConfig

	r.setStage("parsing layout")

	base, err := li.BuildLayout()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse layout: %w", err)
	}

	effort, err := li.BuildEffortLayer()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse effort layer: %w", err)
	}

	phalanx, err := li.BuildPhalanxLayer()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse phalanx layer: %w", err)
	}

	r.setStage("loading datasets")

	datasets, err := r.loadDatasets(oc)
	if err != nil {
		return nil, nil, 0, err
	}

	r.setStage("Loaded datasets")

	inputs := optimizer.ScoreInputs{
		Effort:      effort,
		Phalanx:     phalanx,
		ScoreConfig: oc.ScoreOptions.Build(),
	}

	validKeycodes := oc.BuildValidKeycodes()

	runCfg := optimizer.Config{
		PopulationSize:  oc.GeneticOptions.PopulationSize,
		GenerationCount: oc.GeneticOptions.GenerationCount,
		FitnessCutoff:   oc.GeneticOptions.FitnessCutoff,
		SwapWeight:      oc.GeneticOptions.SwapWeight,
		ReplaceWeight:   oc.GeneticOptions.ReplaceWeight,
		NumThreads:      oc.NumThreads,
		TopNToSave:      oc.GeneticOptions.TopNToSave,
	}

	seed := oc.GeneticOptions.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if r.verbose {
		fmt.Printf("Starting genetic search: population=%d generations=%d seed=%d\n",
			runCfg.PopulationSize, runCfg.GenerationCount, seed)
	}

	rng := rand.New(rand.NewSource(seed))
	startTime := time.Now()

	result, err := optimizer.Run(ctx, runCfg, base, validKeycodes, datasets, inputs, rng, r.setStage)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("optimizer run failed: %w", err)
	}

	if r.verbose {
		fmt.Printf("Search finished in %v: best score %.6f, %d swaps / %d replaces / %d no-ops\n",
			time.Since(startTime).Round(time.Second), result.Scores[0],
			result.Operations.Swaps, result.Operations.Replaces, result.Operations.Noops)
	}

	r.setStage("finalising best layout")

	best, bestScore, err := optimizer.Finalize(result.Population[0], datasets, inputs)
	if err != nil {
		return result, nil, 0, fmt.Errorf("failed to finalise best layout: %w", err)
	}

	r.setStage("done")

	if progressCallback != nil {
		progressCallback(best, bestScore)
	}

	return result, best, bestScore, nil
}

// loadDatasets loads every configured dataset directory, pairing each with
// its configured weight (defaulting to 1 when weights are omitted).
func (r *Runner) loadDatasets(oc config.OptimizerConfig) ([]optimizer.WeightedDataset, error) {
	fs := afero.NewOsFs()
	keycodeOpts := oc.KeycodeOptions.Build()
	policy := oc.DatasetOptions.TopPolicy()

	out := make([]optimizer.WeightedDataset, len(oc.DatasetOptions.Directories))

	for i, dir := range oc.DatasetOptions.Directories {
		ds, err := dataset.Load(fs, dir, oc.DatasetOptions.MaxNgramSize, policy, keycodeOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset %q: %w", dir, err)
		}

		weight := 1.0
		if len(oc.DatasetOptions.Weights) == len(oc.DatasetOptions.Directories) {
			weight = oc.DatasetOptions.Weights[i]
		}

		out[i] = optimizer.WeightedDataset{Dataset: ds, Weight: weight}

		if r.verbose {
			fmt.Printf("Loaded dataset %s (weight %.2f)\n", dir, weight)
		}
	}

	return out, nil
}

// SaveTopN persists the top N layouts (or the whole result set when n <= 0)
// as sibling toml config files named "<prefix>_00.toml", "<prefix>_01.toml",
// etc., each file embedding the winning layout string back into a copy of
// the run's LayoutInfo so it can be reloaded directly.
func (r *Runner) SaveTopN(result *optimizer.Result, prefix string, n int) (int, error) {
	layouts, scores := result.TopN(n)

	for i, lo := range layouts {
		cfg := r.config
		cfg.LayoutInfo.Layout = lo.FormatBinary()

		filename := fmt.Sprintf("%s_%02d.toml", prefix, i)
		if err := cfg.SaveToFile(filename); err != nil {
			return i, fmt.Errorf("failed to save layout %d (score %.6f): %w", i, scores[i], err)
		}
	}

	return len(layouts), nil
}

// PrintResults prints a human-readable summary of the finalised layout and
// its convergence history, in the teacher's plain-stdout style.
func (r *Runner) PrintResults(result *optimizer.Result, best *layout.Layout, bestScore float64, totalTime time.Duration) {
	fmt.Printf("\nOptimization complete!\n")
	fmt.Printf("Best score: %.6f\n", bestScore)
	fmt.Printf("Total time: %v\n", totalTime.Round(time.Second))
	fmt.Printf("Operations: %d swaps, %d replaces, %d no-ops\n",
		result.Operations.Swaps, result.Operations.Replaces, result.Operations.Noops)

	printScoreConvergenceChart(result.Scores)

	fmt.Printf("\n%s\n", r.display.RenderLayout(best))
}

// printScoreConvergenceChart displays an ASCII chart of the final
// selection's score distribution, adapted from the teacher's fitness
// convergence chart to this system's ascending-is-better scores.
func printScoreConvergenceChart(scores []float64) {
	if len(scores) < 2 {
		return
	}

	const (
		chartHeight = 12
		chartWidth  = 40
	)

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}

		if s > maxScore {
			maxScore = s
		}
	}

	fmt.Printf("\nFinal selection score distribution (best to worst):\n")

	scale := func(s float64) int {
		if maxScore == minScore {
			return 0
		}

		return int((s - minScore) / (maxScore - minScore) * float64(chartHeight-1))
	}

	step := 1
	if len(scores) > chartWidth {
		step = len(scores) / chartWidth
	}

	for row := 0; row < chartHeight; row++ {
		rowScore := minScore + (maxScore-minScore)*float64(row)/float64(chartHeight-1)
		fmt.Printf("%9.4f |", rowScore)

		for i := 0; i < chartWidth && i*step < len(scores); i++ {
			if scale(scores[i*step]) == row {
				fmt.Printf("*")
			} else {
				fmt.Printf(" ")
			}
		}

		fmt.Println()
	}

	fmt.Printf("           +%s\n", strings.Repeat("-", chartWidth))
	fmt.Printf("Best: %.6f  Worst: %.6f  Population: %d\n", minScore, maxScore, len(scores))
}
