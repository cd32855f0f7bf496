package review

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/c2cradar/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// AllCompanies is returned by RunCompanyPicker when the first entry is chosen.
const AllCompanies = ""

type pickerModel struct {
	companies []model.Count
	total     int
	cursor    int // 0 is "all companies"
	chosen    int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.companies) {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Review postings — select a company")
	s += "\n"

	labels := make([]string, 0, len(m.companies)+1)
	labels = append(labels, fmt.Sprintf("All companies (%d)", m.total))
	for _, c := range m.companies {
		labels = append(labels, fmt.Sprintf("%s (%d)", c.Label, c.N))
	}
	for i, label := range labels {
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// company maps the chosen row to a company name.
func (m pickerModel) company() (string, bool) {
	switch {
	case m.chosen < 0:
		return "", false
	case m.chosen == 0:
		return AllCompanies, true
	default:
		return m.companies[m.chosen-1].Label, true
	}
}

// RunCompanyPicker lets the user narrow the review to one company.
// ok is false when the user quit; company is AllCompanies for no narrowing.
func RunCompanyPicker(companies []model.Count, total int) (company string, ok bool, err error) {
	m := pickerModel{
		companies: companies,
		total:     total,
		chosen:    -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return "", false, err
	}

	company, ok = result.(pickerModel).company()
	return company, ok, nil
}
