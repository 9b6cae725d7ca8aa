package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus"}
	cfg.OptimizerConfig.KeycodeOptions.ExplicitInclusions = []string{"LS1", "LST1_2"}
	cfg.OptimizerConfig.ValidKeycodes = []string{"a", "b", "_"}

	s, err := cfg.ToTOML()
	if err != nil {
		t.Fatalf("ToTOML: %v", err)
	}

	got, err := LoadFromString(s)
	if err != nil {
		t.Fatalf("LoadFromString: %v", err)
	}

	if got.LayoutInfo.Layout != cfg.LayoutInfo.Layout {
		t.Errorf("Layout = %q, want %q", got.LayoutInfo.Layout, cfg.LayoutInfo.Layout)
	}

	if len(got.OptimizerConfig.KeycodeOptions.ExplicitInclusions) != 2 {
		t.Fatalf("ExplicitInclusions = %v, want 2 entries", got.OptimizerConfig.KeycodeOptions.ExplicitInclusions)
	}

	if len(got.OptimizerConfig.ValidKeycodes) != 3 {
		t.Fatalf("ValidKeycodes = %v, want 3 entries", got.OptimizerConfig.ValidKeycodes)
	}

	built := got.OptimizerConfig.BuildValidKeycodes()
	if len(built) != 3 {
		t.Errorf("BuildValidKeycodes returned %d entries, want 3", len(built))
	}
}

func TestValidateRejectsMissingLayout(t *testing.T) {
	cfg := Default()
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus"}

	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for missing layout_info.layout")
	}
}

func TestValidateRejectsEmptyDirectories(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "directories") {
		t.Errorf("expected directories error, got %v", err)
	}
}

func TestValidateRejectsWeightsMismatch(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus1", "/corpus2"}
	cfg.OptimizerConfig.DatasetOptions.Weights = []float64{1}

	if err := cfg.Validate(); err == nil {
		t.Errorf("expected weights/directories length mismatch error")
	}
}

func TestValidateRejectsZeroMutationWeights(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus"}
	cfg.OptimizerConfig.GeneticOptions.SwapWeight = 0
	cfg.OptimizerConfig.GeneticOptions.ReplaceWeight = 0

	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error when swap and replace weights are both zero")
	}
}

func TestValidateAllowsPopulationSizeOne(t *testing.T) {
	cfg := Default()
	cfg.LayoutInfo.Layout = "a b c d e|f g h i j"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{"/corpus"}
	cfg.OptimizerConfig.GeneticOptions.PopulationSize = 1

	if err := cfg.Validate(); err != nil {
		t.Errorf("population_size=1 should be valid, got %v", err)
	}
}

func TestGetParameterInfoNonEmpty(t *testing.T) {
	info := GetParameterInfo()
	if len(info) == 0 {
		t.Errorf("expected non-empty parameter info")
	}

	for _, p := range info {
		if p.Name == "" || p.Type == "" {
			t.Errorf("parameter info entry missing name/type: %+v", p)
		}
	}
}
