// Package tui provides the Bubble Tea chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tutor/internal/dispatch"
	"github.com/verte-zerg/tutor/internal/llm"
	"github.com/verte-zerg/tutor/internal/model"
	"github.com/verte-zerg/tutor/internal/session"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	visualStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6FBF73"))
)

// turnEventMsg wraps one dispatcher update for the Bubble Tea loop.
type turnEventMsg dispatch.TurnEvent

// Model implements the Bubble Tea chat UI.
type Model struct {
	dispatcher *dispatch.Dispatcher
	difficulty string

	sessionName  string
	modelIdx     int
	history      []model.ChatMessage
	transcript   []string
	firstMessage string

	input    textinput.Model
	view     viewport.Model
	ready    bool
	pending  bool
	partial  string
	errMsg   string
	events   <-chan dispatch.TurnEvent
	width    int
	height   int
}

// NewModel constructs the chat TUI model. A non-empty history resumes the
// named session.
func NewModel(d *dispatch.Dispatcher, sessionName, modelID, difficulty string, history []model.ChatMessage) *Model {
	input := textinput.New()
	input.Placeholder = "Type your question and press Enter"
	input.Focus()

	modelIdx := 0
	for i, id := range llm.ModelIDs {
		if id == modelID {
			modelIdx = i
			break
		}
	}

	m := &Model{
		dispatcher:  d,
		difficulty:  difficulty,
		sessionName: sessionName,
		modelIdx:    modelIdx,
		history:     history,
		input:       input,
	}
	for _, msg := range history {
		m.appendTranscript(msg.Role, msg.Content)
		if m.firstMessage == "" && msg.Role == model.RoleUser {
			m.firstMessage = msg.Content
		}
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case turnEventMsg:
		return m.handleTurnEvent(dispatch.TurnEvent(msg))
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.endSession()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyTab:
			if !m.pending {
				m.modelIdx = (m.modelIdx + 1) % len(llm.ModelIDs)
			}
			return m, nil
		case tea.KeyCtrlN:
			if !m.pending {
				m.newSession()
			}
			return m, nil
		case tea.KeyCtrlR:
			if !m.pending {
				m.showRecent()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("🎓 AI Tutor Chatbot"))
	b.WriteString("\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.firstMessage == "" {
		m.firstMessage = text
	}
	m.input.SetValue("")
	m.errMsg = ""
	m.pending = true
	m.partial = ""
	m.appendTranscript(model.RoleUser, text)
	m.refreshViewport()

	in := dispatch.TurnInput{
		Message:     text,
		ModelID:     m.modelID(),
		SessionName: m.sessionName,
		Difficulty:  m.difficulty,
		History:     m.history,
	}
	m.events = m.dispatcher.Turn(context.Background(), in)
	return m, waitForEvent(m.events)
}

func (m *Model) handleTurnEvent(ev dispatch.TurnEvent) (tea.Model, tea.Cmd) {
	if !ev.Final {
		m.partial = ev.Reply
		m.refreshViewport()
		return m, waitForEvent(m.events)
	}
	m.pending = false
	m.partial = ""
	m.events = nil
	if ev.Err != nil {
		m.errMsg = ev.Err.Error()
		m.refreshViewport()
		return m, nil
	}
	if ev.History != nil {
		m.history = ev.History
	}
	m.appendTranscript(model.RoleAssistant, ev.Reply)
	if ev.Visuals != "" {
		m.transcript = append(m.transcript, visualStyle.Render(ev.Visuals))
	}
	m.refreshViewport()
	return m, nil
}

func (m *Model) newSession() {
	m.endSession()
	m.sessionName = session.GenerateName()
	m.history = nil
	m.transcript = nil
	m.firstMessage = ""
	m.errMsg = ""
	m.refreshViewport()
}

func (m *Model) endSession() {
	if err := m.dispatcher.EndSession(context.Background(), m.modelID(), m.firstMessage, m.difficulty); err != nil {
		m.errMsg = err.Error()
	}
}

func (m *Model) showRecent() {
	summary, err := m.dispatcher.SummarizeRecent()
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	if summary == "" {
		summary = "No recent sessions."
	}
	m.transcript = append(m.transcript, pendingStyle.Render("📊 Recent Sessions\n"+summary))
	m.refreshViewport()
}

func (m *Model) modelID() string {
	return llm.ModelIDs[m.modelIdx]
}

func (m *Model) appendTranscript(role, content string) {
	header := session.FormatDisplay(role, content)
	style := assistantStyle
	if role == model.RoleUser {
		style = userStyle
	}
	m.transcript = append(m.transcript, style.Render(header.Content))
}

func (m *Model) layout() {
	// Title, input, and footer each take one line.
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	w := m.width
	if w < 1 {
		w = 1
	}
	if !m.ready {
		m.view = viewport.New(w, h)
		m.ready = true
	} else {
		m.view.Width = w
		m.view.Height = h
	}
	m.input.Width = w - 3
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	blocks := make([]string, 0, len(m.transcript)+2)
	blocks = append(blocks, m.transcript...)
	if m.pending {
		partial := m.partial
		if partial == "" {
			partial = "…"
		}
		blocks = append(blocks, pendingStyle.Render(partial))
	}
	if m.errMsg != "" {
		blocks = append(blocks, errorStyle.Render("❌ "+m.errMsg))
	}
	content := strings.Join(blocks, "\n\n")
	m.view.SetContent(wrapText(content, m.view.Width))
	m.view.GotoBottom()
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("Session %s", m.sessionName),
		fmt.Sprintf("Model %s", llm.LabelFor(m.modelID())),
		fmt.Sprintf("Difficulty %s", m.difficulty),
	}
	if m.dispatcher != nil {
		if correct, total := m.dispatcher.Score(); total > 0 {
			segments = append(segments, fmt.Sprintf("Score %d/%d", correct, total))
			segments = append(segments, fmt.Sprintf("Streak %d", m.dispatcher.Streak()))
		}
	}
	if m.pending {
		segments = append(segments, "streaming…")
	}
	segments = append(segments, "tab: model · ctrl+n: new · ctrl+r: recent · esc: quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}

// waitForEvent relays the next dispatcher update into the Bubble Tea loop.
func waitForEvent(events <-chan dispatch.TurnEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return turnEventMsg(dispatch.TurnEvent{Final: true})
		}
		return turnEventMsg(ev)
	}
}
