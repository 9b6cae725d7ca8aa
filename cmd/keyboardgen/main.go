package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tommoulard/keyboardgen/internal/runner"
	"github.com/tommoulard/keyboardgen/pkg/config"
)

// cliOptions holds the flags that override the loaded toml configuration.
type cliOptions struct {
	configFile  string
	outputFile  string
	population  int
	generations int
	topN        int
	workers     int
	verbose     bool
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyOverrides(&cfg, opts)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cfg, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Operation canceled by user")
			os.Exit(130)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line arguments.
func parseFlags() cliOptions {
	var opts cliOptions

	flag.StringVar(&opts.configFile, "config", "", "Configuration file (toml, required)")
	flag.StringVar(&opts.outputFile, "output", "best_layout", "Output file prefix for the saved top layouts")
	flag.IntVar(&opts.population, "population", 0, "Override genetic_options.population_size (0 = use config)")
	flag.IntVar(&opts.generations, "generations", -1, "Override genetic_options.generation_count (-1 = use config)")
	flag.IntVar(&opts.topN, "top-n", 0, "Override genetic_options.top_n_to_save (0 = use config)")
	flag.IntVar(&opts.workers, "workers", -1, "Override layout_optimizer_config.num_threads (-1 = use config)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "keyboardgen - genetic keyboard layout optimizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -config layout.toml [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -config layout.toml -generations 500 -population 200\n", os.Args[0])
	}

	flag.Parse()

	return opts
}

// loadConfig requires -config, since there is no implicit input text source
// in this system (the optimizer is driven entirely by the toml record).
func loadConfig(opts cliOptions) (config.Config, error) {
	if opts.configFile == "" {
		return config.Config{}, errors.New("-config is required")
	}

	return config.LoadFromFile(opts.configFile)
}

// applyOverrides layers CLI flags on top of the loaded configuration.
func applyOverrides(cfg *config.Config, opts cliOptions) {
	if opts.population > 0 {
		cfg.OptimizerConfig.GeneticOptions.PopulationSize = opts.population
	}

	if opts.generations >= 0 {
		cfg.OptimizerConfig.GeneticOptions.GenerationCount = opts.generations
	}

	if opts.topN > 0 {
		cfg.OptimizerConfig.GeneticOptions.TopNToSave = opts.topN
	}

	if opts.workers >= 0 {
		cfg.OptimizerConfig.NumThreads = opts.workers
	}
}

// run drives one full optimizer run and persists its results.
func run(ctx context.Context, cfg config.Config, opts cliOptions) error {
	r, err := runner.New(cfg, cacheDir(), opts.verbose)
	if err != nil {
		return err
	}

	startTime := time.Now()

	result, best, bestScore, err := r.Run(ctx, nil)
	if err != nil {
		return err
	}

	r.PrintResults(result, best, bestScore, time.Since(startTime))

	topN := cfg.OptimizerConfig.GeneticOptions.TopNToSave

	saved, err := r.SaveTopN(result, opts.outputFile, topN)
	if err != nil {
		return fmt.Errorf("failed to save top layouts: %w", err)
	}

	fmt.Printf("\nSaved top %d layouts to %s_NN.toml\n", saved, opts.outputFile)

	return nil
}

// cacheDir returns the user cache directory to host the progress file
// under, or "" (disabling progress reporting) if it cannot be determined.
func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		if u, uerr := user.Current(); uerr == nil {
			return filepath.Join(u.HomeDir, ".cache")
		}

		return ""
	}

	return dir
}
