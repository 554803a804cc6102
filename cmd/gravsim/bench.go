package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	benchSizes  []int
	verifySteps int
	tolerance   float64
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "compare step throughput across backends",
		Args:  cobra.NoArgs,
		RunE:  benchBackends,
	}
	addSimFlags(cmd)
	cmd.Flags().StringSliceVar(&backendsList, "backends", nil, "backends to run (default: all CPU backends)")
	cmd.Flags().IntSliceVar(&benchSizes, "sizes", nil, "body counts to sweep (default: --bodies)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "check every backend against the scalar reference",
		Args:  cobra.NoArgs,
		RunE:  verifyBackends,
	}
	addSimFlags(cmd)
	cmd.Flags().StringSliceVar(&backendsList, "backends", nil, "backends to check (default: all)")
	cmd.Flags().IntVar(&verifySteps, "steps", 5, "steps per backend")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-9, "maximum relative position error of exact backends")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tSCHEME\tBODIES\tBACKEND\tITERATIONS\tDT")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%gs\n",
					name, p.Scheme, p.Bodies, p.Backend, p.Iterations, p.Physics.Dt)
			}
			return w.Flush()
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "list force backends and whether they can run here",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tSTATUS\tDETAIL")
			for _, info := range experiment.ProbeBackends(compute.DefaultOptions()) {
				if info.Available {
					fmt.Fprintf(w, "%s\tavailable\t%s\n", info.Kind, info.Name)
				} else {
					fmt.Fprintf(w, "%s\tunavailable\t%v\n", info.Kind, info.Err)
				}
			}
			return w.Flush()
		},
	}
}

type benchRow struct {
	kind    compute.Kind
	bodies  int
	steps   int
	fps     float64
	gflops  float64
	skipped error
}

func benchBackends(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	kinds, err := parseKinds(backendsList, compute.CPUKinds())
	if err != nil {
		return err
	}
	sizes := benchSizes
	if len(sizes) == 0 {
		sizes = []int{cfg.Bodies}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s, %d steps per run\n\n", cfg.Scheme, cfg.Iterations)

	var rows []benchRow
	best := 0.0
	for _, n := range sizes {
		for _, kind := range kinds {
			row, err := benchOne(ctx, cfg, kind, n)
			if err != nil {
				return err
			}
			best = max(best, row.fps)
			rows = append(rows, row)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tBODIES\tSTEPS\tSTEPS/S\tGFLOP/S\t")
	for _, r := range rows {
		if r.skipped != nil {
			fmt.Fprintf(w, "%s\t%d\t-\t-\t-\tskipped: %v\n", r.kind, r.bodies, r.skipped)
			continue
		}
		bar := ""
		if best > 0 && len(sizes) == 1 {
			bar = viz.ProgressBar(r.fps/best, 20)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.3f\t%s\n", r.kind, r.bodies, r.steps, r.fps, r.gflops, bar)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(sizes) > 1 {
		for _, kind := range kinds {
			var series []float64
			for _, r := range rows {
				if r.kind == kind && r.skipped == nil {
					series = append(series, r.gflops)
				}
			}
			if len(series) > 1 {
				fmt.Printf("\n%s\n", viz.Plot(series, fmt.Sprintf("%s Gflop/s over %v bodies", kind, sizes), 50, 8))
			}
		}
	}
	return nil
}

func benchOne(ctx context.Context, cfg *config.Config, kind compute.Kind, n int) (benchRow, error) {
	c := cfg.Clone()
	c.Backend = string(kind)
	c.Bodies = n
	c.TrackEnergy = false

	row := benchRow{kind: kind, bodies: n}
	sim, err := experiment.Build(c, c.Seed)
	if experiment.IsDeviceError(err) {
		row.skipped = err
		return row, nil
	}
	if err != nil {
		return row, err
	}
	defer sim.Close()

	result, err := sim.Run(ctx, c.RunConfig())
	if err != nil {
		return row, fmt.Errorf("%s with %d bodies: %w", kind, n, err)
	}
	row.steps, row.fps, row.gflops = result.Steps, result.FPS, result.Gflops
	return row, nil
}

func verifyBackends(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	kinds, err := parseKinds(backendsList, compute.Kinds())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("verifying %d backends against %s: %s, %d bodies, %d steps\n\n",
		len(kinds), experiment.Reference, cfg.Scheme, cfg.Bodies, verifySteps)

	cs, err := experiment.Verify(ctx, cfg, kinds, verifySteps)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tMAX ERR\tMEAN ERR\tTIME\tSTATUS")
	for _, c := range cs {
		if c.Skipped {
			fmt.Fprintf(w, "%s\t-\t-\t-\tskipped\n", c.Kind)
			continue
		}
		status := "ok"
		switch {
		case c.Approximate:
			status = "approximate"
		case c.MaxRelErr > tolerance:
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%.3e\t%.3e\t%v\t%s\n", c.Kind, c.MaxRelErr, c.MeanRelErr, c.Elapsed, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return experiment.Check(cs, tolerance)
}
