package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/server"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	noSave    bool
	themeName string
	bind      string
	port      int
	stepRate  float64
	maxSteps  int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live terminal monitor",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(cmd)
	cmd.Flags().StringVar(&themeName, "theme", viz.Themes[0].Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	return cmd
}

func newServeCmd() *cobra.Command {
	d := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "step a simulation in the background and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addSimFlags(cmd)
	cmd.Flags().StringVar(&bind, "bind", d.Bind, "listen address")
	cmd.Flags().IntVar(&port, "port", d.Port, "listen port")
	cmd.Flags().Float64Var(&stepRate, "rate", float64(d.StepRate), "steps per second (0 = paused, negative = unlimited)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "stop stepping after this many steps (0 = never)")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setup(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer exp.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	cfg := exp.Config()
	fmt.Printf("%s: %d bodies, %d/%d steps on %s\n",
		cfg.Scheme, cfg.Bodies, result.Steps, cfg.Iterations, exp.Simulator().Backend().Name())
	fmt.Printf("simulated %.0fs in %v (%.2f steps/s, %.3f Gflop/s)\n\n",
		result.SimTime, result.Elapsed, result.FPS, result.Gflops)

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6e\n", name, result.Metrics[name])
	}
	w.Flush()

	if !noSave && result.Steps > 0 {
		runID, err := exp.Save(storage.New(dataDir), result)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("\nsaved run %s\n", runID)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer exp.Close()

	cfg := exp.Config()
	title := fmt.Sprintf("%s · %d bodies", cfg.Scheme, cfg.Bodies)
	m := viz.NewModel(exp.Simulator(), exp.Drift(), title, cfg.Iterations).WithTheme(themeName)
	return viz.Run(m)
}

func runServe(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer exp.Close()

	limit := rate.Limit(stepRate)
	if stepRate < 0 || math.IsInf(stepRate, 1) {
		limit = rate.Inf
	}
	srv := server.New(exp.Simulator(), server.Config{
		Bind:     bind,
		Port:     port,
		StepRate: limit,
		MaxSteps: maxSteps,
	})

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("serving simulation", "addr", srv.Addr(), "bodies", exp.Config().Bodies)
	return srv.Start(ctx)
}
