package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
)

// ChatPort is the TUI-facing subset of the pipeline.
type ChatPort interface {
	Ask(ctx context.Context, question, session string, topK int) (domain.Answer, error)
}

type exchange struct {
	question string
	answer   domain.Answer
	failed   bool
}

// Model is the Bubble Tea model for the local chat session.
type Model struct {
	pipeline ChatPort
	session  string
	topK     int
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	status   string
	ready    bool
}

// New creates a chat model over an already-ingested document.
func New(pipeline ChatPort, session, docName string, chunks, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		pipeline: pipeline,
		session:  session,
		topK:     topK,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Indexed %d chunks from %s. Ask away.", chunks, docName),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderHistory())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				ans, err := m.pipeline.Ask(context.Background(), q, m.session, m.topK)
				if err != nil {
					m.history = append(m.history, exchange{question: q, failed: true,
						answer: domain.Answer{Text: "Error: " + err.Error()}})
					m.status = "Ask failed."
				} else {
					m.history = append(m.history, exchange{question: q, answer: ans})
					m.status = fmt.Sprintf("Answered from %d sources.", len(ans.Sources))
				}
				m.input.SetValue("")
				m.viewport.SetContent(m.renderHistory())
				m.viewport.GotoBottom()
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docchat")
	transcript := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var sb strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(questionStyle.Render("> " + ex.question))
		sb.WriteString("\n")
		sb.WriteString(ex.answer.Text)
		if !ex.failed && len(ex.answer.Sources) > 0 {
			refs := make([]string, 0, len(ex.answer.Sources))
			for _, s := range ex.answer.Sources {
				refs = append(refs, fmt.Sprintf("%s#%d", s.Source, s.ChunkIndex))
			}
			sb.WriteString("\n")
			sb.WriteString(sourceStyle.Render("sources: " + strings.Join(refs, ", ")))
		}
	}
	return sb.String()
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
