package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	asJSON     bool
	plotField  string
	plotWidth  int
	plotHeight int
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "export metadata, bodies and steps as JSON")
	return cmd
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the step records of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().StringVar(&plotField, "field", "drift", fmt.Sprintf("field to plot %v", viz.StepFields))
	cmd.Flags().IntVar(&plotWidth, "width", 70, "chart width")
	cmd.Flags().IntVar(&plotHeight, "height", 15, "chart height")
	return cmd
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEME\tBODIES\tBACKEND\tSTEPS\tTIME\tSTEPS/S\tGFLOP/S")

	for _, run := range runs {
		scheme, bodies := "?", 0
		if run.Config != nil {
			scheme, bodies = run.Config.Scheme, run.Config.Bodies
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%.2f\t%.3f\n",
			run.ID,
			scheme,
			bodies,
			run.Backend,
			run.Steps,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.FPS,
			run.Gflops,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if asJSON {
		return st.Export(args[0], os.Stdout)
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", meta.ID)
	fmt.Fprintf(w, "time\t%s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "backend\t%s\n", meta.Backend)
	if c := meta.Config; c != nil {
		fmt.Fprintf(w, "scheme\t%s\n", c.Scheme)
		fmt.Fprintf(w, "bodies\t%d\n", c.Bodies)
		fmt.Fprintf(w, "seed\t%d\n", c.Seed)
		fmt.Fprintf(w, "dt\t%gs\n", c.Physics.Dt)
		fmt.Fprintf(w, "softening\t%g\n", c.Physics.Softening)
		fmt.Fprintf(w, "theta\t%g\n", c.Physics.Theta)
	}
	fmt.Fprintf(w, "steps\t%d\n", meta.Steps)
	fmt.Fprintf(w, "sim time\t%.0fs\n", meta.SimTime)
	fmt.Fprintf(w, "elapsed\t%.1fms\n", meta.ElapsedMS)
	fmt.Fprintf(w, "steps/s\t%.2f\n", meta.FPS)
	fmt.Fprintf(w, "gflop/s\t%.3f\n", meta.Gflops)

	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6e\n", name, meta.Metrics[name])
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no step records")
		return nil
	}

	chart, err := viz.PlotSteps(records, plotField, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s, %d steps)\n\n", meta.ID, meta.Backend, meta.Steps)
	fmt.Println(chart)
	return nil
}
