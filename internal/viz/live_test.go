package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/scheme"
	"github.com/san-kum/gravsim/internal/storage"
)

func newTestModel(t *testing.T, iterations int) Model {
	t.Helper()
	store, err := bodies.New(16, scheme.Galaxy{}, 3)
	if err != nil {
		t.Fatal(err)
	}
	p := dynamo.DefaultParams()
	sim, err := dynamo.New(store, compute.NewScalarBackend(), p)
	if err != nil {
		t.Fatal(err)
	}
	drift := metrics.NewEnergyDrift(p.G, p.Softening)
	sim.AddMetric(drift)
	return NewModel(sim, drift, "galaxy", iterations)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTickSteps(t *testing.T) {
	m := newTestModel(t, 0)

	m, cmd := update(t, m, TickMsg{})
	if cmd == nil {
		t.Error("tick must schedule the next tick")
	}
	if m.sim.StepCount() != 1 {
		t.Errorf("expected 1 step, got %d", m.sim.StepCount())
	}
	if len(m.driftHistory) != 1 || len(m.rateHistory) != 1 {
		t.Errorf("expected one history sample, got %d/%d", len(m.driftHistory), len(m.rateHistory))
	}
}

func TestPauseAndSingleStep(t *testing.T) {
	m := newTestModel(t, 0)

	m, _ = update(t, m, key(" "))
	if m.running {
		t.Fatal("space should pause")
	}
	m, _ = update(t, m, TickMsg{})
	if m.sim.StepCount() != 0 {
		t.Errorf("paused model stepped %d times", m.sim.StepCount())
	}
	m, _ = update(t, m, key("s"))
	if m.sim.StepCount() != 1 {
		t.Errorf("single step: got %d steps", m.sim.StepCount())
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show PAUSED")
	}
}

func TestIterationLimit(t *testing.T) {
	m := newTestModel(t, 3)
	for i := 0; i < 5; i++ {
		m, _ = update(t, m, TickMsg{})
	}
	if m.sim.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", m.sim.StepCount())
	}
	if !m.done() || !strings.Contains(m.View(), "DONE") {
		t.Error("model should report DONE")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, 0)
	_, cmd := update(t, m, key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestThemeCycle(t *testing.T) {
	m := newTestModel(t, 0)
	first := m.theme.Name
	for range Themes {
		m, _ = update(t, m, key("t"))
	}
	if m.theme.Name != first {
		t.Errorf("cycling through every theme should return to %s, got %s", first, m.theme.Name)
	}
	if m.WithTheme("retro").theme.Name != "retro" {
		t.Error("WithTheme did not apply")
	}
}

func TestViewContents(t *testing.T) {
	m := newTestModel(t, 10)
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, TickMsg{})
	}
	view := m.View()
	for _, want := range []string{"GALAXY", "Step", "Drift", "Energy drift", "scalar"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestFormatSimTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{30, "30.0 s"},
		{7200, "2.00 hours"},
		{3 * 86400, "3.00 days"},
		{2 * 365.25 * 86400, "2.00 years"},
	}
	for _, tt := range tests {
		if got := formatSimTime(tt.in); got != tt.want {
			t.Errorf("formatSimTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlotSteps(t *testing.T) {
	records := []storage.StepRecord{
		{Step: 1, Drift: 0, Millis: 1},
		{Step: 2, Drift: 1e-6, Millis: 2},
		{Step: 3, Drift: 3e-6, Millis: 1.5},
	}
	for _, f := range StepFields {
		out, err := PlotSteps(records, f, 30, 5)
		if err != nil || out == "" {
			t.Errorf("%s: %q, %v", f, out, err)
		}
	}
	if _, err := PlotSteps(nil, "speed", 30, 5); err == nil {
		t.Error("expected error for unknown field")
	}
	if out, _ := PlotSteps(nil, "ms", 30, 5); out != "(no data)" {
		t.Errorf("empty records: %q", out)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1}, 2); got != "▁█" {
		t.Errorf("got %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("got %q", got)
	}
}
