package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/titleplot/pkg/batch"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// CandidateListModel - Interactive drawing selection
// =============================================================================

// CandidateListModel is the bubbletea model for choosing which drawings a
// batch plots. It toggles Selected on the candidates it was given.
type CandidateListModel struct {
	Candidates []*batch.Candidate
	Cursor     int
	Height     int
	Offset     int
	// Confirmed is set when the list was closed with enter.
	Confirmed bool
}

// NewCandidateListModel creates a new candidate list model.
func NewCandidateListModel(cs []*batch.Candidate) CandidateListModel {
	return CandidateListModel{Candidates: cs, Height: 15}
}

func (m CandidateListModel) Init() tea.Cmd {
	return nil
}

func (m CandidateListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Candidates)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "space", "x":
			if len(m.Candidates) > 0 {
				c := m.Candidates[m.Cursor]
				c.Selected = !c.Selected
			}
		case "a":
			all := len(batch.Selected(m.Candidates)) == len(m.Candidates)
			for _, c := range m.Candidates {
				c.Selected = !all
			}
		case "c":
			for _, c := range m.Candidates {
				c.Selected = c.Outdated
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m CandidateListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Drawings"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  c changed  ⏎ plot  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Candidates))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		c := m.Candidates[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "[ ]"
		if c.Selected {
			mark = "[x]"
		}
		state := "up to date"
		if c.Outdated {
			state = "changed"
		}
		if c.Status != "" && c.Status != state {
			state = c.Status
		}
		rows = append(rows, []string{cursor, mark, c.Source(), state})
	}

	t := newTable("", "", "Drawing", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Candidates) {
				return lipgloss.NewStyle()
			}
			c := m.Candidates[idx]
			base := lipgloss.NewStyle()
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			switch {
			case col == 3:
				return base.Foreground(colorGray)
			case c.Selected:
				return base.Foreground(colorGreen)
			}
			return base.Foreground(colorDim)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d selected",
		m.Cursor+1, len(m.Candidates), len(batch.Selected(m.Candidates)))))

	return b.String()
}

// selectCandidates lets the user pick drawings. It reports false when the
// list was closed without confirming.
func selectCandidates(ctx context.Context, cs []*batch.Candidate) (bool, error) {
	p := tea.NewProgram(NewCandidateListModel(cs), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	fm, ok := final.(CandidateListModel)
	return ok && fm.Confirmed, nil
}
