package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"librarian/internal/domain"
)

// SearchPort is the TUI-facing subset of the library service.
type SearchPort interface {
	Search(ctx context.Context, query string, k int, filters domain.SearchFilters) (domain.Answer, error)
}

// Model is the Bubble Tea model for the interactive search screen.
type Model struct {
	service   SearchPort
	input     textinput.Model
	viewport  viewport.Model
	answer    string
	results   []domain.BookMatch
	status    string
	cursor    int
	k         int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(service SearchPort, k int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask your library and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if k <= 0 {
		k = 10
	}
	return Model{service: service, input: ti, viewport: vp, k: k, status: "Ready. Type to search your library."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				answer, err := m.service.Search(context.Background(), q, m.k, domain.SearchFilters{})
				if err != nil {
					m.status = "Error: " + err.Error()
					m.answer = ""
					m.results = nil
				} else {
					m.status = fmt.Sprintf("Results for %q", q)
					m.answer = answer.Response
					m.results = answer.Books
					m.cursor = 0
					m.lastQuery = q
				}
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Librarian")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.answer == "" && len(m.results) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(answerStyle.Render(m.answer))
		b.WriteString("\n\n")
	}
	for i, r := range m.results {
		line := fmt.Sprintf("%d. %s by %s  (%.3f)", i+1, r.Title, r.Author, r.Similarity)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(renderDetails(r))
		}
	}
	return b.String()
}

func renderDetails(r domain.BookMatch) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("   Format: %s, Status: %s", r.Format, r.ReadingStatus))
	if len(r.Categories) > 0 {
		lines = append(lines, "   Categories: "+strings.Join(r.Categories, ", "))
	}
	if len(r.Moods) > 0 {
		lines = append(lines, "   Moods: "+strings.Join(r.Moods, ", "))
	}
	return dimStyle.Render(strings.Join(lines, "\n")) + "\n"
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
