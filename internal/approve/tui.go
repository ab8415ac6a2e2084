package approve

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kvit-s/applydiff/internal/patch"
)

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	tuiHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// TUI shows the preview in a scrollable full-screen viewer. y/enter approves,
// n/esc/q rejects; closing the program any other way also rejects.
type TUI struct {
	Style DiffStyle
}

// NewTUI returns a terminal UI approver.
func NewTUI(style DiffStyle) *TUI {
	return &TUI{Style: style}
}

// RequestApproval runs the viewer and returns the decision. Context
// cancellation tears the program down and counts as rejection.
func (t *TUI) RequestApproval(ctx context.Context, preview patch.Preview) (bool, error) {
	m := newApprovalModel(preview, t.Style)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := prog.Run()
	if err != nil {
		return false, fmt.Errorf("approval ui: %w", err)
	}
	fm, ok := final.(approvalModel)
	if !ok {
		return false, nil
	}
	return fm.approved, nil
}

type approvalModel struct {
	title    string
	viewport viewport.Model
	content  string
	ready    bool
	approved bool
}

func newApprovalModel(preview patch.Preview, style DiffStyle) approvalModel {
	title := "Apply change to " + preview.Path
	if preview.Description != "" {
		title += " - " + preview.Description
	}
	return approvalModel{
		title:   title,
		content: RenderPreview(preview, style),
	}
}

func (m approvalModel) Init() tea.Cmd {
	return nil
}

func (m approvalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "enter":
			m.approved = true
			return m, tea.Quit
		case "n", "q", "esc", "ctrl+c":
			m.approved = false
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m approvalModel) View() string {
	if !m.ready {
		return "loading preview..."
	}
	return tuiTitleStyle.Render(m.title) + "\n\n" +
		m.viewport.View() + "\n" +
		tuiHelpStyle.Render("y/enter apply - n/esc reject - arrows scroll")
}
