// Package tui is the terminal chat client. It drives the same Generator and
// conversation Store as the server, in-process.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"buiq-backend/internal/models"
	"buiq-backend/internal/render"
	"buiq-backend/internal/services"
)

const (
	inputHeight = 3
	chromeLines = 2 // title and status lines
)

// replyMsg carries a finished round trip back into the update loop.
type replyMsg struct {
	exchange services.Exchange
	err      error
}

// Model is the bubbletea model for one conversation.
type Model struct {
	generator *services.Generator
	markdown  bool
	term      *render.Terminal

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width   int
	height  int
	ready   bool
	sending bool
	lastErr error
}

// New builds the model. In markdown mode bot replies are rendered with glamour.
func New(generator *services.Generator, markdown bool) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	return Model{
		generator: generator,
		markdown:  markdown,
		input:     ta,
		spinner:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		m.sending = false
		m.lastErr = msg.err
		m.input.Focus()
		m.refresh()
		return m, textarea.Blink

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := msg.Height - inputHeight - chromeLines
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(msg.Width)

	if m.markdown {
		// Falls back to plain text when no renderer can be built.
		m.term, _ = render.NewTerminal(msg.Width-2, "")
	}
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "alt+enter":
		if !m.sending {
			m.input.InsertString("\n")
		}
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if m.sending || text == "" {
			return m, nil
		}
		m.sending = true
		m.lastErr = nil
		m.input.Reset()
		m.input.Blur()
		return m, tea.Batch(m.spinner.Tick, m.send(text))

	case "pgup", "pgdown", "up", "down":
		if m.sending {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	if m.sending {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(text string) tea.Cmd {
	generator := m.generator
	return func() tea.Msg {
		exchange, err := generator.Generate(context.Background(), text)
		return replyMsg{exchange: exchange, err: err}
	}
}

// refresh re-renders the message list from the store and scrolls to the end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for i, msg := range m.generator.Store().Messages() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) renderMessage(msg models.Message) string {
	label := userLabelStyle.Render("You")
	if msg.Sender == models.SenderBot {
		label = botLabelStyle.Render("BUIQ")
	}
	header := label + " " + timeStyle.Render(msg.Timestamp.Local().Format("15:04"))

	body := msg.Text
	if msg.Sender == models.SenderBot && m.term != nil {
		body = m.term.Render(msg.Text)
	} else if m.width > 0 {
		body = lipgloss.NewStyle().Width(m.width).Render(body)
	}
	return header + "\n" + body
}

func (m Model) status() string {
	var s string
	if m.sending {
		s = m.spinner.View() + busyStyle.Render(" thinking...")
	} else {
		s = onlineStyle.Render("● online")
	}
	if m.lastErr != nil {
		s += "  " + busyStyle.Render(m.lastErr.Error())
	}
	return s + "  " + helpStyle.Render("enter send · alt+enter newline · esc quit")
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("BUIQ Chat"),
		m.viewport.View(),
		m.status(),
		m.input.View(),
	)
}
