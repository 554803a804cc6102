package viz

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gravsim/internal/storage"
)

var ErrUnknownField = errors.New("viz: unknown step field")

// StepFields are the columns of a step record PlotSteps can chart.
var StepFields = []string{"drift", "energy", "ms"}

func Plot(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return "(no data)"
	}
	return asciigraph.Plot(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}

func stepField(field string) (func(storage.StepRecord) float64, string, error) {
	switch field {
	case "drift":
		return func(r storage.StepRecord) float64 { return r.Drift }, "Energy drift |E-E0|/|E0|", nil
	case "energy":
		return func(r storage.StepRecord) float64 { return r.Energy }, "Total energy (J)", nil
	case "ms":
		return func(r storage.StepRecord) float64 { return r.Millis }, "Step time (ms)", nil
	}
	return nil, "", fmt.Errorf("%w: %q (known: %v)", ErrUnknownField, field, StepFields)
}

// PlotSteps charts one field of a stored run's step records.
func PlotSteps(records []storage.StepRecord, field string, width, height int) (string, error) {
	get, caption, err := stepField(field)
	if err != nil {
		return "", err
	}
	series := make([]float64, len(records))
	for i, r := range records {
		series[i] = get(r)
	}
	return Plot(series, caption, width, height), nil
}
