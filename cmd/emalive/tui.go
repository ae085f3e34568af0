package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/ema-live/core"
)

type sessionControl interface {
	Connect(ctx context.Context) error
	Pause() error
	Resume() error
	Disconnect() error
	State() orchestration.State
	Transcript() string
	ProviderName() string
}

type (
	stateMsg   orchestration.State
	levelMsg   float64
	segmentMsg orchestration.Segment
	errorMsg   string
	actionMsg  struct {
		action string
		err    error
	}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stateStyle = map[orchestration.State]lipgloss.Style{
		orchestration.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		orchestration.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		orchestration.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		orchestration.StatePaused:       lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		orchestration.StateError:        errorStyle,
	}
)

type model struct {
	session sessionControl
	reset   func() error
	profile string

	state      orchestration.State
	level      float64
	errMessage string
	notice     string

	meter    progress.Model
	viewport viewport.Model
	width    int
	ready    bool
}

func newModel(session sessionControl, profile string, reset func() error) model {
	return model{
		session: session,
		reset:   reset,
		profile: profile,
		state:   session.State(),
		meter:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, err: fn()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.meter.Width = max(msg.Width-20, 10)
		height := max(msg.Height-8, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.notice = "connecting..."
			return m, m.run("connect", func() error { return m.session.Connect(context.Background()) })
		case " ", "space":
			switch m.state {
			case orchestration.StateConnected:
				return m, m.run("pause", m.session.Pause)
			case orchestration.StatePaused:
				return m, m.run("resume", m.session.Resume)
			}
		case "d":
			return m, m.run("disconnect", m.session.Disconnect)
		case "r":
			if m.reset != nil {
				return m, m.run("reset", m.reset)
			}
		}

	case stateMsg:
		m.state = orchestration.State(msg)
		if m.state != orchestration.StateError {
			m.notice = ""
		}

	case levelMsg:
		m.level = float64(msg)

	case segmentMsg:
		m.refreshTranscript()

	case errorMsg:
		m.errMessage = string(msg)

	case actionMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else if msg.action == "reset" {
			m.notice = "started a new conversation"
			m.refreshTranscript()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}
	transcript := m.session.Transcript()
	if transcript == "" {
		transcript = helpStyle.Render("Nothing said yet.")
	}
	m.viewport.SetContent(wordwrap.String(transcript, max(m.width-2, 20)))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var b strings.Builder

	style, ok := stateStyle[m.state]
	if !ok {
		style = lipgloss.NewStyle()
	}
	b.WriteString(titleStyle.Render("ema live") + "  " + m.profile + " via " + m.session.ProviderName() + "  ")
	b.WriteString(style.Render(strings.ToUpper(m.state.String())) + "\n")
	b.WriteString("mic " + m.meter.ViewAs(m.level) + "\n")
	if m.errMessage != "" {
		b.WriteString(errorStyle.Render(m.errMessage) + "\n")
	}
	if m.notice != "" {
		b.WriteString(helpStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	}
	b.WriteString(helpStyle.Render("c connect · space pause/resume · d disconnect · r new conversation · q quit"))
	return b.String()
}
