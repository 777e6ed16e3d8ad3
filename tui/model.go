// Package tui is the terminal surface of the prompt enhancer.
//
// It follows the bubbletea loop: key presses become Session actions, the
// service call runs as a tea.Cmd, and its Result comes back as a message
// that is folded into the session with Apply. Changes the model did not
// cause itself (the copy acknowledgement clearing) arrive through the
// session subscription.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prompt_enhancer/generator"
)

const (
	defaultWidth = 80
	helpLine     = "enter enhance · ctrl+e enhance further · ctrl+y copy · ctrl+r reset · esc quit"
)

// resultMsg carries a finished service call back into Update.
type resultMsg struct {
	result generator.Result
}

// stateMsg is a snapshot pushed by the session subscription.
type stateMsg generator.State

// Model is the bubbletea model wrapping one enhancement session.
type Model struct {
	session *generator.Session
	ctx     context.Context
	logger  *slog.Logger

	input   textinput.Model
	spinner spinner.Model
	updates <-chan generator.State
	stop    func()

	state generator.State
	width int
}

// Option customizes a Model.
type Option func(*Model)

// WithLogger sets where key actions and clipboard failures are logged.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New builds the model. Service calls run on ctx.
func New(ctx context.Context, session *generator.Session, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "e.g., Create a logo for a coffee shop"
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#9333EA"))

	updates, stop := session.Subscribe()
	m := &Model{
		session: session,
		ctx:     ctx,
		logger:  slog.Default(),
		input:   ti,
		spinner: sp,
		updates: updates,
		stop:    stop,
		state:   session.Snapshot(),
		width:   defaultWidth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the last snapshot the model rendered.
func (m *Model) State() generator.State {
	return m.state
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.updates))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resultMsg:
		m.session.Apply(msg.result)
		m.state = m.session.Snapshot()
		return m, nil

	case stateMsg:
		m.state = generator.State(msg)
		return m, waitForState(m.updates)

	case spinner.TickMsg:
		if !m.state.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.stop()
		return m, tea.Quit

	case "enter":
		task, ok := m.session.Submit(m.input.Value())
		if !ok {
			return m, nil
		}
		return m, m.begin(task)

	case "ctrl+e":
		task, ok := m.session.ReEnhance()
		if !ok {
			return m, nil
		}
		return m, m.begin(task)

	case "ctrl+y":
		if err := m.session.Copy(); err != nil && !errors.Is(err, generator.ErrSkipped) {
			m.logger.Warn("copy failed", "error", err)
		}
		m.state = m.session.Snapshot()
		return m, nil

	case "ctrl+r":
		m.session.Reset()
		m.input.Reset()
		m.state = m.session.Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetInput(m.input.Value())
	m.state = m.session.Snapshot()
	return m, cmd
}

func (m *Model) begin(task *generator.Task) tea.Cmd {
	m.state = m.session.Snapshot()
	return tea.Batch(m.spinner.Tick, runTask(m.ctx, task))
}

func runTask(ctx context.Context, task *generator.Task) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{result: task.Run(ctx)}
	}
}

// waitForState blocks on the subscription; it yields nil once the session closes.
func waitForState(updates <-chan generator.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (m *Model) View() string {
	width := max(20, m.width-2)
	sections := []string{
		titleStyle.Render("✨ AI Prompt Enhancer"),
		subtitleStyle.Render("Transform your simple ideas into detailed, powerful prompts"),
		"",
		labelStyle.Render("Enter your basic prompt"),
		m.input.View(),
	}

	st := m.state
	if st.Pending {
		sections = append(sections, "", loadingStyle.Render(m.spinner.View()+" Enhancing your prompt..."))
	}
	if st.LastError != "" {
		sections = append(sections, "", errorStyle.Width(width).Render(st.LastError))
	}
	if st.HasCurrent() && !st.Pending {
		head := labelStyle.Render("Enhanced Prompt:")
		if st.Copied {
			head = lipgloss.JoinHorizontal(lipgloss.Top, head, "  ", copiedStyle.Render("✓ Copied!"))
		}
		sections = append(sections, "", head, outputStyle.Width(width).Render(st.Current))
	}
	if st.Iterations > 0 {
		sections = append(sections, levelStyle.Render(fmt.Sprintf("Enhancement level: %d", st.Iterations)))
	}
	sections = append(sections, helpStyle.Render(helpLine))
	return strings.Join(sections, "\n")
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, session *generator.Session, opts ...Option) error {
	p := tea.NewProgram(New(ctx, session, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
