// Package config implements the configuration & presets component (C8): a
// single toml-backed record aggregating layout_info and
// layout_optimizer_config, per §4.8/§6.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tommoulard/keyboardgen/pkg/alcerr"
	"github.com/tommoulard/keyboardgen/pkg/keycode"
	"github.com/tommoulard/keyboardgen/pkg/layer"
	"github.com/tommoulard/keyboardgen/pkg/layout"
	"github.com/tommoulard/keyboardgen/pkg/ngram"
	"github.com/tommoulard/keyboardgen/pkg/score"
)

// LayoutInfo carries the layout's shape and the three human-readable grid
// strings: layout, effort, and phalanx.
type LayoutInfo struct {
	NumRows      int    `toml:"num_rows"`
	NumCols      int    `toml:"num_cols"`
	Layout       string `toml:"layout"`
	EffortLayer  string `toml:"effort_layer"`
	PhalanxLayer string `toml:"phalanx_layer"`
}

// BuildLayout parses the layout string into a *layout.Layout.
func (li LayoutInfo) BuildLayout() (*layout.Layout, error) {
	return layout.ParseString(li.Layout, li.NumRows, li.NumCols)
}

// BuildEffortLayer parses the effort layer string.
func (li LayoutInfo) BuildEffortLayer() (*layer.Layer[float64], error) {
	return layer.Parse(li.EffortLayer, li.NumRows, li.NumCols, layer.ParseFloat)
}

// BuildPhalanxLayer parses the phalanx layer string.
func (li LayoutInfo) BuildPhalanxLayer() (*layer.Layer[layer.PhalanxKey], error) {
	return layer.ParsePhalanxLayer(li.PhalanxLayer, li.NumRows, li.NumCols)
}

// GeneticOptions holds the genetic-search parameters from §4.7.
type GeneticOptions struct {
	PopulationSize  int     `toml:"population_size"`
	GenerationCount int     `toml:"generation_count"`
	FitnessCutoff   float64 `toml:"fitness_cutoff"`
	SwapWeight      float64 `toml:"swap_weight"`
	ReplaceWeight   float64 `toml:"replace_weight"`
	TopNToSave      int     `toml:"top_n_to_save"`
	Seed            int64   `toml:"seed"`
}

// KeycodeOptions mirrors keycode.Options in a toml-friendly shape:
// explicit inclusions are stored as token strings, round-tripped through
// keycode.ParseToken/Keycode.String.
type KeycodeOptions struct {
	IncludeAlphas             bool     `toml:"include_alphas"`
	IncludeNumbers            bool     `toml:"include_numbers"`
	IncludeNumberSymbols      bool     `toml:"include_number_symbols"`
	IncludeBrackets           bool     `toml:"include_brackets"`
	IncludeMiscSymbols        bool     `toml:"include_misc_symbols"`
	IncludeMiscSymbolsShifted bool     `toml:"include_misc_symbols_shifted"`
	ExplicitInclusions        []string `toml:"explicit_inclusions"`
}

// Build converts the toml record into the keycode package's decode options.
func (k KeycodeOptions) Build() keycode.Options {
	inclusions := make([]keycode.Keycode, len(k.ExplicitInclusions))
	for i, tok := range k.ExplicitInclusions {
		inclusions[i] = keycode.ParseToken(tok)
	}

	return keycode.Options{
		IncludeAlphas:             k.IncludeAlphas,
		IncludeNumbers:            k.IncludeNumbers,
		IncludeNumberSymbols:      k.IncludeNumberSymbols,
		IncludeBrackets:           k.IncludeBrackets,
		IncludeMiscSymbols:        k.IncludeMiscSymbols,
		IncludeMiscSymbolsShifted: k.IncludeMiscSymbolsShifted,
		ExplicitInclusions:        inclusions,
	}
}

// DeriveValidKeycodes sweeps the printable ASCII range plus whitespace
// through keycode.DecodeChar under k's toggles, collecting every distinct
// keycode that appears in some decode sequence. Used when
// OptimizerConfig.ValidKeycodes is empty, per §4.8's "optional explicit
// valid_keycodes overrides derivation from toggles when non-empty".
func (k KeycodeOptions) DeriveValidKeycodes() []keycode.Keycode {
	opts := k.Build()

	seen := map[keycode.Keycode]bool{keycode.NO: true}

	var out []keycode.Keycode

	add := func(kc keycode.Keycode) {
		if !seen[kc] {
			seen[kc] = true
			out = append(out, kc)
		}
	}

	add(keycode.NO)

	for r := rune(0x20); r <= 0x7e; r++ {
		seq, ok := keycode.DecodeChar(r, opts)
		if !ok {
			continue
		}
		for _, kc := range seq {
			add(kc)
		}
	}

	for _, r := range []rune{'\n', '\t'} {
		seq, ok := keycode.DecodeChar(r, opts)
		if !ok {
			continue
		}
		for _, kc := range seq {
			add(kc)
		}
	}

	return out
}

func fromKeycodeOptions(o keycode.Options) KeycodeOptions {
	names := make([]string, len(o.ExplicitInclusions))
	for i, k := range o.ExplicitInclusions {
		names[i] = k.String()
	}

	return KeycodeOptions{
		IncludeAlphas:             o.IncludeAlphas,
		IncludeNumbers:            o.IncludeNumbers,
		IncludeNumberSymbols:      o.IncludeNumberSymbols,
		IncludeBrackets:           o.IncludeBrackets,
		IncludeMiscSymbols:        o.IncludeMiscSymbols,
		IncludeMiscSymbolsShifted: o.IncludeMiscSymbolsShifted,
		ExplicitInclusions:        names,
	}
}

// DatasetOptions names the frequency dataset directories and how to load
// and weight them (§4.3/§4.7).
type DatasetOptions struct {
	Directories      []string  `toml:"directories"`
	Weights          []float64 `toml:"weights"`
	MaxNgramSize     int       `toml:"max_ngram_size"`
	TopPolicyAll     bool      `toml:"top_policy_all"`
	TopNNgramsToTake int       `toml:"top_n_ngrams_to_take"`
}

// TopPolicy converts the toml fields into an ngram.TopPolicy.
func (d DatasetOptions) TopPolicy() ngram.TopPolicy {
	if d.TopPolicyAll {
		return ngram.AllNgrams()
	}

	return ngram.TopK(d.TopNNgramsToTake)
}

// ScoreOptions holds the Advanced scorer's weights and reduction factors
// (§4.6), plus the choice of scorer. UseSimpleScorer only changes what
// Scorer returns; optimizer scoring always uses score.Advanced.
type ScoreOptions struct {
	HandAlternationWeight            float64 `toml:"hand_alternation_weight"`
	FingerRollWeight                 float64 `toml:"finger_roll_weight"`
	HandAlternationReductionFactor   float64 `toml:"hand_alternation_reduction_factor"`
	FingerRollReductionFactor        float64 `toml:"finger_roll_reduction_factor"`
	FingerRollSameRowReductionFactor float64 `toml:"finger_roll_same_row_reduction_factor"`
	SameFingerPenaltyFactor          float64 `toml:"same_finger_penalty_factor"`
	ExtraLengthPenaltyFactor         float64 `toml:"extra_length_penalty_factor"`
	UseSimpleScorer                  bool    `toml:"use_simple_scorer"`
}

// Build converts the toml record into a score.Config.
func (s ScoreOptions) Build() score.Config {
	return score.Config{
		HandAlternationWeight:            s.HandAlternationWeight,
		FingerRollWeight:                 s.FingerRollWeight,
		HandAlternationReductionFactor:   s.HandAlternationReductionFactor,
		FingerRollReductionFactor:        s.FingerRollReductionFactor,
		FingerRollSameRowReductionFactor: s.FingerRollSameRowReductionFactor,
		SameFingerPenaltyFactor:          s.SameFingerPenaltyFactor,
		ExtraLengthPenaltyFactor:         s.ExtraLengthPenaltyFactor,
	}
}

// Scorer returns the scorer this configuration selects.
func (s ScoreOptions) Scorer() score.Scorer {
	if s.UseSimpleScorer {
		return score.Simple{}
	}

	return score.Advanced{}
}

// OptimizerConfig aggregates the nested option groups plus the top-level
// valid_keycodes override and num_threads, per §4.8.
type OptimizerConfig struct {
	GeneticOptions GeneticOptions `toml:"genetic_options"`
	KeycodeOptions KeycodeOptions `toml:"keycode_options"`
	DatasetOptions DatasetOptions `toml:"dataset_options"`
	ScoreOptions   ScoreOptions   `toml:"score_options"`
	ValidKeycodes  []string       `toml:"valid_keycodes"`
	NumThreads     int            `toml:"num_threads"`
}

// BuildValidKeycodes parses ValidKeycodes if non-empty, else derives the
// valid set from KeycodeOptions's toggles, per §4.8's "optional explicit
// valid_keycodes overrides derivation from toggles when non-empty".
func (o OptimizerConfig) BuildValidKeycodes() []keycode.Keycode {
	if len(o.ValidKeycodes) == 0 {
		return o.KeycodeOptions.DeriveValidKeycodes()
	}

	out := make([]keycode.Keycode, len(o.ValidKeycodes))
	for i, tok := range o.ValidKeycodes {
		out[i] = keycode.ParseToken(tok)
	}

	return out
}

// Config is the top-level toml record: layout_info plus
// layout_optimizer_config.
type Config struct {
	LayoutInfo      LayoutInfo      `toml:"layout_info"`
	OptimizerConfig OptimizerConfig `toml:"layout_optimizer_config"`
}

// Default returns the default configuration: a 2x5 grid shape with an
// empty layout string, and the original implementation's scorer weights.
func Default() Config {
	return Config{
		LayoutInfo: LayoutInfo{NumRows: 2, NumCols: 5},
		OptimizerConfig: OptimizerConfig{
			GeneticOptions: GeneticOptions{
				PopulationSize:  100,
				GenerationCount: 1000,
				FitnessCutoff:   0.2,
				SwapWeight:      1,
				ReplaceWeight:   1,
				TopNToSave:      5,
			},
			KeycodeOptions: fromKeycodeOptions(keycode.DefaultOptions()),
			DatasetOptions: DatasetOptions{
				MaxNgramSize: 3,
				TopPolicyAll: true,
			},
			ScoreOptions: ScoreOptions{
				HandAlternationWeight:            3,
				FingerRollWeight:                 2,
				HandAlternationReductionFactor:   0.9,
				FingerRollReductionFactor:        1,
				FingerRollSameRowReductionFactor: 1,
				SameFingerPenaltyFactor:          3,
				ExtraLengthPenaltyFactor:         0.9,
			},
			NumThreads: 0, // auto-detect
		},
	}
}

// LoadFromFile loads configuration from a toml file, starting from
// Default so unset fields keep their defaults.
func LoadFromFile(filename string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(filename, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	return cfg, nil
}

// LoadFromString loads configuration from a toml string.
func LoadFromString(s string) (Config, error) {
	cfg := Default()

	if _, err := toml.Decode(s, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse toml config: %w", err)
	}

	return cfg, nil
}

// ToTOML renders c as a toml document.
func (c Config) ToTOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return buf.String(), nil
}

// SaveToFile writes c to filename as toml.
func (c Config) SaveToFile(filename string) error {
	s, err := c.ToTOML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, []byte(s), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for internal consistency, per §7's
// error-handling policy: preconditions that indicate malformed input are
// surfaced, not silently repaired.
func (c Config) Validate() error {
	li := c.LayoutInfo
	if li.NumRows <= 0 || li.NumCols <= 0 {
		return errors.New("num_rows and num_cols must be positive")
	}

	if strings.TrimSpace(li.Layout) == "" {
		return errors.New("layout_info.layout is required")
	}

	g := c.OptimizerConfig.GeneticOptions
	if g.PopulationSize < 1 {
		return errors.New("genetic_options.population_size must be at least 1")
	}

	if g.GenerationCount < 0 {
		return errors.New("genetic_options.generation_count must be non-negative")
	}

	if g.FitnessCutoff <= 0 || g.FitnessCutoff > 1 {
		return errors.New("genetic_options.fitness_cutoff must be in (0, 1]")
	}

	if g.SwapWeight < 0 || g.ReplaceWeight < 0 || g.SwapWeight+g.ReplaceWeight == 0 {
		return errors.New("genetic_options.swap_weight and replace_weight must be non-negative and not both zero")
	}

	d := c.OptimizerConfig.DatasetOptions
	if len(d.Directories) == 0 {
		return errors.New("dataset_options.directories must be non-empty")
	}

	if len(d.Weights) != 0 && len(d.Weights) != len(d.Directories) {
		return &alcerr.DatasetWeightsMismatchError{Weights: len(d.Weights), Datasets: len(d.Directories)}
	}

	if d.MaxNgramSize < 1 {
		return errors.New("dataset_options.max_ngram_size must be at least 1")
	}

	if c.OptimizerConfig.NumThreads < 0 {
		return errors.New("num_threads must be non-negative (0 = auto-detect)")
	}

	return nil
}

// ParameterInfo self-documents one configuration field, following the
// original implementation's self-describing-config idiom.
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default"`
	Required    bool   `json:"required"`
	Min         any    `json:"min,omitempty"`
	Max         any    `json:"max,omitempty"`
}

// GetParameterInfo returns information about every layout_optimizer_config
// parameter, for help text and validation messages.
func GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "genetic_options.population_size",
			Type:        "integer",
			Description: "Number of layouts in the population (P)",
			Default:     100,
			Required:    false,
			Min:         1,
		},
		{
			Name:        "genetic_options.generation_count",
			Type:        "integer",
			Description: "Number of generations to run (G)",
			Default:     1000,
			Required:    false,
			Min:         0,
		},
		{
			Name:        "genetic_options.fitness_cutoff",
			Type:        "float",
			Description: "Fraction of the population retained each generation (f)",
			Default:     0.2,
			Required:    false,
			Min:         0.0,
			Max:         1.0,
		},
		{
			Name:        "genetic_options.swap_weight",
			Type:        "float",
			Description: "Relative weight of a swap mutation versus a replace",
			Default:     1.0,
			Required:    false,
			Min:         0.0,
		},
		{
			Name:        "genetic_options.replace_weight",
			Type:        "float",
			Description: "Relative weight of a replace mutation versus a swap",
			Default:     1.0,
			Required:    false,
			Min:         0.0,
		},
		{
			Name:        "genetic_options.top_n_to_save",
			Type:        "integer",
			Description: "Number of top layouts to persist as toml files at the end of the run",
			Default:     5,
			Required:    false,
			Min:         0,
		},
		{
			Name:        "dataset_options.directories",
			Type:        "array of string",
			Description: "Frequency-dataset directories to load and score against",
			Default:     []string{},
			Required:    true,
		},
		{
			Name:        "dataset_options.max_ngram_size",
			Type:        "integer",
			Description: "Maximum ngram length to load from each dataset",
			Default:     3,
			Required:    false,
			Min:         1,
		},
		{
			Name:        "num_threads",
			Type:        "integer",
			Description: "Number of worker threads for parallel scoring (0 = auto-detect)",
			Default:     0,
			Required:    false,
			Min:         0,
		},
	}
}
