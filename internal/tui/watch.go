// Package tui is the interactive terminal frontend: pick a preset, nudge
// policy levers, and watch the world re-simulate live. It drives the same
// streaming session the WebSocket server uses, so parameter changes go
// through the identical debounce-and-restart path.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/session"
	"github.com/openw3/world3/internal/sim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type screen int

const (
	screenMenu screen = iota
	screenSliders
	screenWatch
)

// chanSink bridges session output into the bubbletea event loop. The
// buffer absorbs a full default run; overflow cancels the run rather than
// blocking the session lock.
type chanSink struct {
	ch chan session.ServerMsg
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan session.ServerMsg, 8192)}
}

func (c *chanSink) Send(msg session.ServerMsg) error {
	select {
	case c.ch <- msg:
		return nil
	default:
		return fmt.Errorf("display queue full")
	}
}

type watchModel struct {
	screen screen
	cursor int

	presets []model.ScenarioParams
	params  model.ScenarioParams
	sliders []model.ParameterDescriptor

	sess *session.Session
	sink *chanSink

	states   []model.WorldState
	running  bool
	complete bool
	errMsg   string

	width  int
	height int
}

// NewWatch builds the watch application over a local session.
func NewWatch(runner *sim.Runner) tea.Model {
	sink := newChanSink()
	return watchModel{
		screen:  screenMenu,
		presets: model.Presets(),
		sliders: model.ParameterDescriptors(),
		sess:    session.New(runner, nil, sink, nil),
		sink:    sink,
		width:   100,
		height:  30,
	}
}

func (m watchModel) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.drain()
		if m.screen == screenWatch {
			return m, tick()
		}
		return m, nil
	}
	return m, nil
}

// drain folds all session output buffered since the last frame into the
// display state.
func (m *watchModel) drain() {
	for {
		select {
		case msg := <-m.sink.ch:
			switch v := msg.(type) {
			case session.StepMsg:
				m.states = append(m.states, v.State)
			case session.CompleteMsg:
				m.running = false
				m.complete = true
			case session.ErrorMsg:
				m.running = false
				m.errMsg = v.Message
			case session.AckMsg:
				// Re-run incoming: clear the stale trajectory.
				m.states = m.states[:0]
				m.running = true
				m.complete = false
				m.errMsg = ""
			}
		default:
			return
		}
	}
}

func (m watchModel) handleKey(msg tea.KeyMsg) (watchModel, tea.Cmd) {
	switch m.screen {
	case screenMenu:
		return m.menuKey(msg)
	case screenSliders:
		return m.slidersKey(msg)
	case screenWatch:
		return m.watchKey(msg)
	}
	return m, nil
}

func (m watchModel) menuKey(msg tea.KeyMsg) (watchModel, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sess.Close()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.params = m.presets[m.cursor]
		m.screen = screenSliders
		m.cursor = 0
	}
	return m, nil
}

func (m watchModel) slidersKey(msg tea.KeyMsg) (watchModel, tea.Cmd) {
	switch msg.String() {
	case "q", "escape":
		m.screen = screenMenu
		m.cursor = 0
	case "ctrl+c":
		m.sess.Close()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sliders)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(+1)
	case "s", "enter":
		m.states = nil
		m.running = true
		m.complete = false
		m.errMsg = ""
		p := m.params
		m.sess.Start(p.Meta.ID, &p)
		m.screen = screenWatch
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m watchModel) watchKey(msg tea.KeyMsg) (watchModel, tea.Cmd) {
	switch msg.String() {
	case "q", "escape":
		m.sess.Stop()
		m.screen = screenSliders
		m.running = false
		return m, tea.ClearScreen
	case "ctrl+c":
		m.sess.Close()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sliders)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjust(-1)
		m.sess.UpdateParams(m.params.Meta.ID, m.params)
	case "right", "l":
		m.adjust(+1)
		m.sess.UpdateParams(m.params.Meta.ID, m.params)
	case "r":
		m.states = nil
		m.running = true
		m.complete = false
		p := m.params
		m.sess.Start(p.Meta.ID, &p)
	}
	return m, nil
}

// adjust moves the selected slider by one step within its bounds.
func (m *watchModel) adjust(dir float64) {
	d := m.sliders[m.cursor]
	v := m.params.Field(d.Field) + dir*d.Step
	if v < d.Min {
		v = d.Min
	}
	if v > d.Max {
		v = d.Max
	}
	m.params.SetField(d.Field, v)
}

func (m watchModel) View() string {
	switch m.screen {
	case screenMenu:
		return m.viewMenu()
	case screenSliders:
		return m.viewSliders()
	case screenWatch:
		return m.viewWatch()
	}
	return ""
}

func (m watchModel) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("w o r l d 3") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, p := range m.presets {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-26s", p.Meta.Name)) + dim.Render(p.Meta.Description) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-26s", p.Meta.Name)) + dimmer.Render(p.Meta.Description) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")
	return b.String()
}

func (m watchModel) viewSliders() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.params.Meta.Name) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 44)) + "\n\n")

	for i, d := range m.sliders {
		val := fmt.Sprintf("%10.3f", m.params.Field(d.Field))
		label := fmt.Sprintf("%-28s", d.Label)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(label) + magenta.Render(val) + dim.Render(" "+d.Unit) + "\n")
		} else {
			b.WriteString("        " + dim.Render(label) + dim.Render(val) + dimmer.Render(" "+d.Unit) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  s run  esc back") + "\n")
	return b.String()
}

func (m watchModel) viewWatch() string {
	var b strings.Builder

	statusIcon, statusText := green.Render("●"), green.Render("running")
	switch {
	case m.errMsg != "":
		statusIcon, statusText = red.Render("✗"), red.Render(m.errMsg)
	case m.complete:
		statusIcon, statusText = green.Render("✓"), dim.Render("complete")
	case !m.running:
		statusIcon, statusText = yellow.Render("○"), yellow.Render("idle")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n\n", statusIcon, cyan.Render(m.params.Meta.Name), statusText))

	if len(m.states) > 1 {
		b.WriteString(m.plots())
	} else {
		b.WriteString(dim.Render("   waiting for simulation output...") + "\n")
	}

	if len(m.states) > 0 {
		last := m.states[len(m.states)-1]
		b.WriteString(fmt.Sprintf("\n   %s %s  %s %s  %s %s\n",
			dim.Render("year"), white.Render(fmt.Sprintf("%.0f", last.Time)),
			dim.Render("pop"), white.Render(fmt.Sprintf("%.2e", last.Population.Population)),
			dim.Render("nnr"), white.Render(fmt.Sprintf("%.0f%%", last.Resources.FractionRemaining*100))))
	}

	d := m.sliders[m.cursor]
	b.WriteString(fmt.Sprintf("\n   %s %s %s\n",
		cyan.Render("▸"),
		white.Render(d.Label),
		magenta.Render(fmt.Sprintf("%.3f", m.params.Field(d.Field)))))
	b.WriteString(dim.Render("   ↑↓ lever  ←→ adjust (live re-run)  r restart  esc back  ctrl+c quit") + "\n")
	return b.String()
}

// plots renders two stacked sparkline charts of the trajectory so far.
func (m watchModel) plots() string {
	w := m.width - 16
	if w < 40 {
		w = 40
	}
	h := (m.height - 16) / 2
	if h < 5 {
		h = 5
	}

	pop := make([]float64, len(m.states))
	poll := make([]float64, len(m.states))
	for i, s := range m.states {
		pop[i] = s.Population.Population / 1e9
		poll[i] = s.Pollution.PollutionIndex
	}

	var b strings.Builder
	b.WriteString(dim.Render("   population [billions]") + "\n")
	b.WriteString(indent(asciigraph.Plot(pop, asciigraph.Width(w), asciigraph.Height(h), asciigraph.Precision(1)), 3))
	b.WriteString("\n")
	b.WriteString(dim.Render("   pollution index") + "\n")
	b.WriteString(indent(asciigraph.Plot(poll, asciigraph.Width(w), asciigraph.Height(h), asciigraph.Precision(1)), 3))
	b.WriteString("\n")
	return b.String()
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}
