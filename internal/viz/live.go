package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/metrics"
)

const (
	width           = 72
	height          = 20
	historyCapacity = 300
	frameInterval   = time.Second / 30
)

type TickMsg time.Time

// Model steps a grid on every tick and draws its field.
type Model struct {
	grid          *fdtd.Grid
	title         string
	canvas        *Canvas
	component     fdtd.Axis
	stepsPerFrame int
	maxSteps      int
	running       bool
	err           error
	theme         int
	styles        styles
	energyBuf     backend.Array
	energyHistory []float64
	peakHistory   []float64
	scale         float64
}

// NewModel builds a live view. maxSteps stops stepping once reached; zero
// runs until quit.
func NewModel(g *fdtd.Grid, title string, stepsPerFrame, maxSteps int) Model {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	component := fdtd.Z
	if src := g.Sources(); len(src) > 0 {
		component = src[0].Polarization()
	}
	return Model{
		grid:          g,
		title:         title,
		canvas:        NewCanvas(width, height),
		component:     component,
		stepsPerFrame: stepsPerFrame,
		maxSteps:      maxSteps,
		running:       true,
		styles:        newStyles(Themes[0]),
		energyHistory: make([]float64, 0, historyCapacity),
		peakHistory:   make([]float64, 0, historyCapacity),
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Err is the error that stopped stepping, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.grid.Reset()
			m.err = nil
			m.scale = 0
			m.energyHistory = m.energyHistory[:0]
			m.peakHistory = m.peakHistory[:0]
		case "c":
			m.component = (m.component + 1) % 3
			m.scale = 0
		case "+", "=":
			m.stepsPerFrame *= 2
		case "-", "_":
			m.stepsPerFrame = max(1, m.stepsPerFrame/2)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		}
		m.draw()
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) done() bool {
	return m.maxSteps > 0 && m.grid.TimeStepsPassed() >= m.maxSteps
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerFrame && !m.done(); i++ {
		if err := m.grid.Step(); err != nil {
			m.err = err
			m.running = false
			return
		}
	}
	m.record()
}

func (m *Model) record() {
	m.energyHistory = append(m.energyHistory, metrics.FieldEnergy(m.grid, &m.energyBuf))
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
	m.peakHistory = append(m.peakHistory, m.grid.E().MaxAbs())
	if len(m.peakHistory) > historyCapacity {
		m.peakHistory = m.peakHistory[1:]
	}
}

// draw renders the field into the canvas. The display scale only grows, so
// a decaying pulse fades instead of being renormalised every frame.
func (m *Model) draw() {
	m.canvas.Clear()
	e := m.grid.E()
	shape := e.Shape
	peak := e.MaxAbs()
	if !math.IsNaN(peak) && peak > m.scale {
		m.scale = peak
	}

	if shape[1] > 1 {
		z := shape[2] / 2
		slice := make([][]float64, shape[0])
		for x := range slice {
			slice[x] = make([]float64, shape[1])
			for y := range slice[x] {
				slice[x][y] = e.At(x, y, z, m.component)
			}
		}
		m.canvas.DrawHeatmap(slice, m.scale)
		return
	}

	y, z := shape[1]/2, shape[2]/2
	profile := make([]float64, shape[0])
	for x := range profile {
		profile[x] = e.At(x, y, z, m.component)
	}
	m.canvas.DrawProfile(profile, m.scale)
}

func (m Model) View() string {
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(st.warning.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.done():
		s.WriteString("DONE\n\n")
	case m.running:
		s.WriteString("RUNNING\n\n")
	default:
		s.WriteString("PAUSED\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(normalized(m.energyHistory), asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy / peak"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	g := m.grid
	row("Step", fmt.Sprintf("%d", g.TimeStepsPassed()))
	row("Time", fmt.Sprintf("%.3f fs", g.Time()*1e15))
	row("Component", "E"+m.component.String())
	row("Peak |E|", fmt.Sprintf("%.4g V/m", lastOr(m.peakHistory)))
	row("Energy", fmt.Sprintf("%.4g J", lastOr(m.energyHistory)))
	row("Steps/frame", fmt.Sprintf("%d", m.stepsPerFrame))
	row("Backend", g.Backend().Name())
	if m.maxSteps > 0 {
		row("Progress", ProgressBar(float64(g.TimeStepsPassed())/float64(m.maxSteps), 20))
	}
	s.WriteString("\n" + Sparkline(m.peakHistory, 30) + "\n")

	s.WriteString(st.help.Render("SP:Pause R:Reset C:Component\n+/-:Speed T:Theme Q:Quit"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
}

// normalized scales values by their maximum.
func normalized(values []float64) []float64 {
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
		return values
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / peak
	}
	return out
}

func lastOr(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// Run starts the live view on the terminal and returns once it exits.
func Run(g *fdtd.Grid, title string, stepsPerFrame, maxSteps int) error {
	final, err := tea.NewProgram(NewModel(g, title, stepsPerFrame, maxSteps), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	return final.(Model).Err()
}
