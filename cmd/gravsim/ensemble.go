package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/experiment"
)

var (
	ensembleRuns     int
	ensembleParallel int
)

func newEnsembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run the same configuration over consecutive seeds in parallel",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addSimFlags(cmd)
	cmd.Flags().IntVar(&ensembleRuns, "runs", 4, "number of seeds")
	cmd.Flags().IntVar(&ensembleParallel, "parallel", 2, "simulations running at once")
	return cmd
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := experiment.RunEnsemble(ctx, cfg, ensembleRuns, ensembleParallel)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tSTEPS/S\tMEAN ENERGY\tDRIFT\tMAX SPEED\tSTABILITY")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%s\t%s\t%.3e\t%.2f\n",
			cfg.Seed+uint64(i),
			r.Steps,
			r.FPS,
			optional(r.Metrics, "energy"),
			optional(r.Metrics, "energy_drift"),
			r.Metrics["max_speed"],
			r.Metrics["stability"],
		)
	}
	return w.Flush()
}

func optional(m map[string]float64, name string) string {
	v, ok := m[name]
	if !ok || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4e", v)
}
