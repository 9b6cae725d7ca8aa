package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/tommoulard/keyboardgen/pkg/config"
)

// writeTestConfig writes a minimal valid toml config pointing at corpusDir,
// small enough to finish in a handful of generations.
func writeTestConfig(t *testing.T, path, corpusDir string) {
	t.Helper()

	cfg := config.Default()
	cfg.LayoutInfo.Layout = "A_10 B_10 C_10 D_10 E_10\nF_10 G_10 H_10 I_10 J_10"
	cfg.LayoutInfo.EffortLayer = "1 1 1 1 1\n1 1 1 1 1"
	cfg.LayoutInfo.PhalanxLayer = "L:I L:I L:I L:I L:I\nR:I R:I R:I R:I R:I"
	cfg.OptimizerConfig.DatasetOptions.Directories = []string{corpusDir}
	cfg.OptimizerConfig.DatasetOptions.MaxNgramSize = 2
	cfg.OptimizerConfig.GeneticOptions.PopulationSize = 6
	cfg.OptimizerConfig.GeneticOptions.GenerationCount = 2
	cfg.OptimizerConfig.GeneticOptions.TopNToSave = 2
	cfg.OptimizerConfig.GeneticOptions.Seed = 42
	cfg.OptimizerConfig.ValidKeycodes = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}
}

// TestMainApplicationEndToEnd builds the binary, runs it against a small
// toml config and a tiny dataset directory, and checks that it persists a
// reloadable top-layout config file without error.
func TestMainApplicationEndToEnd(t *testing.T) {
	dir := t.TempDir()

	corpusDir := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(filepath.Join(corpusDir, "a.txt"), []byte("abcdefghijabcde"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	configPath := filepath.Join(dir, "layout.toml")
	writeTestConfig(t, configPath, corpusDir)

	binPath := filepath.Join(dir, "keyboardgen_test")

	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/keyboardgen")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build application: %v\n%s", err, out)
	}

	outputPrefix := filepath.Join(dir, "best_layout")

	cmd := exec.Command(binPath, "-config", configPath, "-output", outputPrefix)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("application failed: %v\noutput: %s", err, out)
	}

	savedPath := outputPrefix + "_00.toml"
	if _, err := os.Stat(savedPath); err != nil {
		t.Fatalf("expected %s to exist: %v", savedPath, err)
	}

	saved, err := config.LoadFromFile(savedPath)
	if err != nil {
		t.Fatalf("failed to reload saved layout: %v", err)
	}

	if saved.LayoutInfo.Layout == "" {
		t.Errorf("saved layout_info.layout is empty")
	}

	if _, err := saved.LayoutInfo.BuildLayout(); err != nil {
		t.Errorf("saved layout does not parse back: %v", err)
	}
}
