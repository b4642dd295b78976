package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	sceneMasterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("86")) // green

	agent1Style = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	agent2Style = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config   *ConsoleConfig
	client   *http.Client
	sim      *SimulationInfo
	viewport viewport.Model
	cancel   context.CancelFunc
	eventsCh <-chan StreamEvent
	events   []StreamEvent
	ready    bool
	running  bool
	done     bool
	copied   bool
	err      error
	width    int
	height   int
}

type streamEventMsg struct {
	event StreamEvent
	ok    bool
}

type streamStartedMsg struct {
	events <-chan StreamEvent
	cancel context.CancelFunc
	err    error
}

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, sim *SimulationInfo) ConsoleUI {
	vp := viewport.New(80, 24)
	vp.MouseWheelEnabled = true
	return ConsoleUI{
		config:   cfg,
		client:   client,
		sim:      sim,
		viewport: vp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.startStream()
}

func (m ConsoleUI) startStream() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		events, err := streamEvents(ctx, m.config.APIBaseURL, m.sim.ID)
		if err != nil {
			cancel()
			return streamStartedMsg{err: err}
		}
		return streamStartedMsg{events: events, cancel: cancel}
	}
}

func waitForEvent(events <-chan StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return streamEventMsg{event: ev, ok: ok}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.ready = true
		m.writeContent()
		return m, nil

	case streamStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, nil
		}
		m.running = true
		m.eventsCh = msg.events
		m.cancel = msg.cancel
		return m, waitForEvent(m.eventsCh)

	case streamEventMsg:
		if !msg.ok {
			m.running = false
			m.done = true
			m.writeContent()
			return m, nil
		}
		m.events = append(m.events, msg.event)
		m.copied = false
		m.writeContent()
		m.viewport.GotoBottom()
		return m, waitForEvent(m.eventsCh)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "c":
			if err := clipboard.WriteAll(m.transcript()); err == nil {
				m.copied = true
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *ConsoleUI) writeContent() {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("RELATIONSHIP ENGINE") + "\n\n")
	content.WriteString(fmt.Sprintf("%s and %s, %d scenes\n\n", m.sim.Agent1, m.sim.Agent2, m.sim.TotalScenes))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, ev := range m.events {
		content.WriteString(m.formatEvent(ev, width) + "\n\n")
	}
	m.viewport.SetContent(content.String())
}

func (m *ConsoleUI) formatEvent(ev StreamEvent, width int) string {
	text := wordwrap.String(ev.Content, width)
	switch ev.Type {
	case "scene-master":
		return sceneMasterStyle.Render(text)
	case "agent-1":
		return agent1Style.Render(agent1Style.Bold(true).Render(m.sim.Agent1+" · ") + text)
	case "agent-2":
		return agent2Style.Render(agent2Style.Bold(true).Render(m.sim.Agent2+" · ") + text)
	case "error":
		return errorStyle.Render(text)
	default:
		return outputStyle.Render(text)
	}
}

// transcript renders the raw event log for clipboard export.
func (m ConsoleUI) transcript() string {
	var b strings.Builder
	for _, ev := range m.events {
		b.WriteString("[" + ev.Type + "] " + ev.Content + "\n")
	}
	return b.String()
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return statusStyle.Render("Connecting...")
	}

	status := statusStyle.Render("Running...")
	switch {
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.copied:
		status = statusStyle.Render("Transcript copied to clipboard")
	case m.done:
		status = statusStyle.Render("Simulation finished")
	}

	help := outputStyle.Render("q: quit • c: copy transcript • mouse: scroll")
	return m.viewport.View() + "\n" + separatorStyle.Render(strings.Repeat("─", m.width)) + "\n" + status + "  " + help
}
