package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
)

const (
	historyCapacity = 600
	tickInterval    = time.Second / 30
	chartWidth      = 48
	chartHeight     = 6
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a simulator on every tick and renders its progress. It draws
// statistics only, never the bodies themselves.
type Model struct {
	sim        *dynamo.Simulator
	drift      *metrics.EnergyDrift
	title      string
	iterations int

	theme    Theme
	styles   styles
	running  bool
	showHelp bool
	err      error

	lastStep     time.Duration
	driftHistory []float64
	rateHistory  []float64
}

// NewModel monitors sim. drift may be nil when energy is not tracked;
// otherwise it is reset so the current state becomes its baseline.
// iterations <= 0 steps until the user quits.
func NewModel(sim *dynamo.Simulator, drift *metrics.EnergyDrift, title string, iterations int) Model {
	if drift != nil {
		drift.Reset()
		drift.Observe(sim.Store(), sim.StepCount(), sim.Time())
	}
	return Model{
		sim:          sim,
		drift:        drift,
		title:        title,
		iterations:   iterations,
		theme:        Themes[0],
		styles:       newStyles(Themes[0]),
		running:      true,
		driftHistory: make([]float64, 0, historyCapacity),
		rateHistory:  make([]float64, 0, historyCapacity),
	}
}

// WithTheme returns m rendered with the named theme.
func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	m.styles = newStyles(m.theme)
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.step()
			}
		case "t":
			m.theme = m.theme.next()
			m.styles = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done() {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) done() bool {
	return m.err != nil || (m.iterations > 0 && m.sim.StepCount() >= m.iterations)
}

func (m *Model) step() {
	if m.done() {
		return
	}
	start := time.Now()
	m.err = m.sim.Step()
	m.lastStep = time.Since(start)

	if secs := m.lastStep.Seconds(); secs > 0 {
		m.rateHistory = appendCapped(m.rateHistory, 1/secs)
	}
	if m.drift != nil {
		m.driftHistory = appendCapped(m.driftHistory, m.drift.Current())
	}
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.failed.Render("FAILED")
	case m.done():
		return m.styles.paused.Render("DONE")
	case !m.running:
		return m.styles.paused.Render("PAUSED")
	}
	return m.styles.running.Render("RUNNING")
}

func (m Model) row(label, value string) string {
	return m.styles.label.Render(label) + m.styles.value.Render(value) + "\n"
}

func (m Model) View() string {
	var s strings.Builder
	st := m.sim.Store()

	s.WriteString(m.styles.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	s.WriteString(m.row("Step", fmt.Sprintf("%d", m.sim.StepCount())))
	s.WriteString(m.row("Sim time", formatSimTime(m.sim.Time())))
	s.WriteString(m.row("Bodies", fmt.Sprintf("%d (+%d padding)", st.N(), st.Padding())))
	s.WriteString(m.row("Backend", m.sim.Backend().Name()))
	if m.lastStep > 0 {
		s.WriteString(m.row("Step time", m.lastStep.Round(time.Microsecond).String()))
		s.WriteString(m.row("Steps/s", fmt.Sprintf("%.1f", 1/m.lastStep.Seconds())))
	}
	if m.drift != nil {
		s.WriteString(m.row("Energy", fmt.Sprintf("%.6e J", m.drift.Energy())))
		s.WriteString(m.row("Drift", fmt.Sprintf("%.3e (max %.3e)", m.drift.Current(), m.drift.Value())))
	}
	if m.iterations > 0 {
		pct := float64(m.sim.StepCount()) / float64(m.iterations)
		s.WriteString(m.row("Progress", m.styles.progress(pct, 24)+fmt.Sprintf(" %3.0f%%", pct*100)))
	}
	if m.err != nil {
		s.WriteString("\n" + m.styles.failed.Render(m.err.Error()) + "\n")
	}

	if len(m.driftHistory) > 1 {
		chart := asciigraph.Plot(m.driftHistory,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption("Energy drift"))
		s.WriteString(m.styles.graph.Render(chart) + "\n")
	}
	if len(m.rateHistory) > 0 {
		s.WriteString(m.row("Rate", Sparkline(m.rateHistory, chartWidth)))
	}

	if m.showHelp {
		s.WriteString(m.styles.help.Render(strings.Join([]string{
			"Space  pause / resume",
			"S      single step while paused",
			"T      cycle theme",
			"?      toggle help",
			"Q      quit",
		}, "\n")))
	} else {
		s.WriteString(m.styles.help.Render("SP:Pause S:Step T:Theme ?:Help Q:Quit"))
	}

	return m.styles.panel.Render(s.String())
}

// formatSimTime renders seconds of simulated time in the largest fitting
// unit.
func formatSimTime(t float64) string {
	const (
		hour = 3600.0
		day  = 24 * hour
		year = 365.25 * day
	)
	switch {
	case t >= year:
		return fmt.Sprintf("%.2f years", t/year)
	case t >= day:
		return fmt.Sprintf("%.2f days", t/day)
	case t >= hour:
		return fmt.Sprintf("%.2f hours", t/hour)
	}
	return fmt.Sprintf("%.1f s", t)
}

// Run shows m full screen until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
