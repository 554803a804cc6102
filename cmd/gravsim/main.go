package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/scheme"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	numBodies    int
	schemeName   string
	seed         uint64
	iterations   int
	backendName  string
	workers      int
	batch        int
	schedule     string
	dt           float64
	softening    float64
	theta        float64
	gravity      float64
	validate     bool
	trackEnergy  bool
	backendsList []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gravsim",
		Short:         "n-body gravity simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gravsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newServeCmd(),
		newEnsembleCmd(),
		newBenchCmd(),
		newVerifyCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newPresetsCmd(),
		newBackendsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// addSimFlags registers the flags that mirror config.Config.
func addSimFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (yaml, or gcfg for .gcfg/.ini)")
	f.StringVar(&preset, "preset", "", "start from a named preset")
	f.IntVarP(&numBodies, "bodies", "n", d.Bodies, "number of bodies")
	f.StringVar(&schemeName, "scheme", d.Scheme, fmt.Sprintf("initial conditions %v", scheme.Names()))
	f.Uint64Var(&seed, "seed", d.Seed, "random seed")
	f.IntVarP(&iterations, "iterations", "i", d.Iterations, "number of steps")
	f.StringVarP(&backendName, "backend", "b", d.Backend, fmt.Sprintf("force backend %v or %s", compute.Kinds(), config.AutoBackend))
	f.IntVar(&workers, "workers", d.Workers, "worker goroutines (0 = all CPUs)")
	f.IntVar(&batch, "batch", d.Batch, "pool batch size in vectors")
	f.StringVar(&schedule, "schedule", d.Schedule, "parallel schedule (static|guided)")
	f.Float64Var(&dt, "dt", d.Physics.Dt, "time step in seconds")
	f.Float64Var(&softening, "softening", d.Physics.Softening, "softening length")
	f.Float64Var(&theta, "theta", d.Physics.Theta, "Barnes-Hut opening angle")
	f.Float64Var(&gravity, "g", d.Physics.G, "gravitational constant")
	f.BoolVar(&validate, "validate", d.ValidateState, "stop on NaN or Inf")
	f.BoolVar(&trackEnergy, "energy", d.TrackEnergy, "track total energy every step")
}

// resolveConfig applies the preset, then the config file, then every flag
// set explicitly on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("bodies") {
		cfg.Bodies = numBodies
	}
	if changed("scheme") {
		cfg.Scheme = schemeName
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("iterations") {
		cfg.Iterations = iterations
	}
	if changed("backend") {
		cfg.Backend = backendName
	}
	if changed("workers") {
		cfg.Workers = workers
	}
	if changed("batch") {
		cfg.Batch = batch
	}
	if changed("schedule") {
		cfg.Schedule = schedule
	}
	if changed("dt") {
		cfg.Physics.Dt = dt
	}
	if changed("softening") {
		cfg.Physics.Softening = softening
	}
	if changed("theta") {
		cfg.Physics.Theta = theta
	}
	if changed("g") {
		cfg.Physics.G = gravity
	}
	if changed("validate") {
		cfg.ValidateState = validate
	}
	if changed("energy") {
		cfg.TrackEnergy = trackEnergy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("configuration resolved", "preset", preset, "file", configFile, "config", fmt.Sprintf("%+v", *cfg))
	return cfg, nil
}

// parseKinds turns --backends values into kinds; empty means fallback.
func parseKinds(names []string, fallback []compute.Kind) ([]compute.Kind, error) {
	if len(names) == 0 {
		return fallback, nil
	}
	kinds := make([]compute.Kind, 0, len(names))
	for _, name := range names {
		k, err := compute.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
