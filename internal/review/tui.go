// Package review is the interactive terminal browser for stored postings.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/c2cradar/internal/model"
)

// Updater persists applied/favorited flips.
type Updater interface {
	UpdatePosting(ctx context.Context, id int64, upd model.PostingUpdate) error
}

const timeLayout = "2006-01-02 15:04 MST"

// Lines per posting in the list view (title + subtitle + blank separator).
const postingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// postingUpdatedMsg is sent when an async applied/favorited flip completes.
type postingUpdatedMsg struct {
	posting model.Posting
	err     error
}

type reviewModel struct {
	all           []model.Posting
	c2c           []model.Posting
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detail          model.Posting
	detailViewport  viewport.Model
	showDescription bool

	updater   Updater
	saving    bool
	saveError string
}

func newReviewModel(postings []model.Posting, updater Updater) reviewModel {
	all := append([]model.Posting(nil), postings...)
	sortByRelevance(all)

	var c2c []model.Posting
	for _, p := range all {
		if p.IsCorpToCorp {
			c2c = append(c2c, p)
		}
	}
	return reviewModel{all: all, c2c: c2c, updater: updater}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case postingUpdatedMsg:
		m.saving = false
		if msg.err != nil {
			m.saveError = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.saveError = ""
			m.replacePosting(msg.posting)
			if m.view == viewDetail && m.detail.ID == msg.posting.ID {
				m.detail = msg.posting
			}
		}
		if m.ready {
			m.recalcContent()
		}
		if m.view == viewDetail {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	case "a", "f":
		if p, ok := m.selected(); ok {
			return m.toggle(p, msg.String())
		}
		return m, nil
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.SourceURL)
		return m, nil
	case "r":
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "a", "f":
		return m.toggle(m.detail, msg.String())
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// toggle flips applied ("a") or favorited ("f") on p and saves it in the background.
func (m reviewModel) toggle(p model.Posting, key string) (tea.Model, tea.Cmd) {
	if m.updater == nil || m.saving {
		return m, nil
	}
	m.saving = true
	m.saveError = ""
	if m.view == viewDetail {
		m.detailViewport.SetContent(m.renderDetail())
	}
	return m, toggleCmd(m.updater, p, key)
}

func toggleCmd(updater Updater, p model.Posting, key string) tea.Cmd {
	return func() tea.Msg {
		var upd model.PostingUpdate
		switch key {
		case "a":
			p.IsApplied = !p.IsApplied
			upd.IsApplied = &p.IsApplied
		case "f":
			p.IsFavorited = !p.IsFavorited
			upd.IsFavorited = &p.IsFavorited
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := updater.UpdatePosting(ctx, p.ID, upd); err != nil {
			return postingUpdatedMsg{err: err}
		}
		return postingUpdatedMsg{posting: p}
	}
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.c2c)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * postingItemHeight
	cursorBottom := cursorTop + postingItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) selected() (model.Posting, bool) {
	postings := m.activePostings()
	if len(postings) == 0 {
		return model.Posting{}, false
	}
	return postings[m.activeCursor()], true
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	p, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.view = viewDetail
	m.detail = p
	m.saveError = ""
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) replacePosting(p model.Posting) {
	for _, list := range [][]model.Posting{m.all, m.c2c} {
		for i := range list {
			if list[i].ID == p.ID {
				list[i] = p
				break
			}
		}
	}
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderPostings(m.all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderPostings(m.c2c, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) activePostings() []model.Posting {
	if m.activePane == 0 {
		return m.all
	}
	return m.c2c
}

func (m reviewModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Postings (%d)", len(m.all))
	rightHeader := fmt.Sprintf(" Corp-to-Corp (%d)", len(m.c2c))

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	statusText := " ←/→/Tab switch  ↑/↓ cursor  Enter detail  a applied  f favorite  q quit"
	if m.saveError != "" {
		statusText = " " + m.saveError
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")
	if m.saving {
		title += "  (saving...)"
	}

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  a applied  f favorite  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.Description != "" {
		statusText = " o open URL  r desc  a applied  f favorite  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	p := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", p.Title)
	addField("Company", p.Company)
	addField("Location", p.Location)
	addField("Job Type", p.JobType)
	addField("Source", p.Source)

	b.WriteByte('\n')

	if p.PostedDate != nil {
		addField("Posted", p.PostedDate.Local().Format(timeLayout))
	}
	if !p.ScrapedDate.IsZero() {
		addField("Scraped", p.ScrapedDate.Local().Format(timeLayout))
	}
	addField("Salary", model.FormatSalary(p.SalaryMin, p.SalaryMax))
	addField("Corp-to-Corp", yesNo(p.IsCorpToCorp))
	addField("Relevance", fmt.Sprintf("%.0f%%", p.RelevanceScore*100))
	addField("Applied", yesNo(p.IsApplied))
	addField("Favorited", yesNo(p.IsFavorited))
	addField("Contact", strings.TrimSpace(p.ContactEmail+" "+p.ContactPhone))

	b.WriteByte('\n')
	addField("URL", p.SourceURL)

	if m.saveError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.saveError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	if a := p.Analysis; a != nil {
		b.WriteByte('\n')
		b.WriteString(divider("── Analysis ") + "\n\n")
		addField("Level", a.ExperienceLevel)
		addField("Urgency", a.UrgencyLevel)
		addField("Remote", yesNo(a.RemoteFriendly))
		if len(a.KeySkills) > 0 {
			addField("Skills", strings.Join(a.KeySkills, ", "))
		}
		addField("Salary Note", a.SalaryIndication)
		addField("Analyzed By", a.Provider)
		if a.Summary != "" {
			b.WriteByte('\n')
			b.WriteString(bodyStyle.Render(wordWrap(a.Summary, wrapWidth)) + "\n")
		}
	}

	if p.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(p.Description, wrapWidth)) + "\n")
			if p.Requirements != "" {
				b.WriteString("\n" + divider("── Requirements ") + "\n\n")
				b.WriteString(bodyStyle.Render(wordWrap(p.Requirements, wrapWidth)) + "\n")
			}
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func renderPostings(postings []model.Posting, cursor int, isActive bool) string {
	if len(postings) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, p := range postings {
		isSelected := isActive && i == cursor

		titleSt := titleStyle
		subtitleSt := subtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(marks(p) + p.Title))
		b.WriteByte('\n')

		posted := "n/a"
		if p.PostedDate != nil {
			posted = p.PostedDate.Format("2006-01-02")
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %.0f%% · %s",
			p.Company, p.Location, p.RelevanceScore*100, posted)))
		b.WriteByte('\n')

		if i < len(postings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// marks prefixes favorited (★) and applied (✓) postings.
func marks(p model.Posting) string {
	var s string
	if p.IsFavorited {
		s += "★ "
	}
	if p.IsApplied {
		s += "✓ "
	}
	return s
}

// sortByRelevance orders by score, newest first among equal scores.
func sortByRelevance(postings []model.Posting) {
	sort.SliceStable(postings, func(i, j int) bool {
		a, b := postings[i], postings[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.PostedDate == nil || b.PostedDate == nil {
			return a.PostedDate != nil
		}
		return a.PostedDate.After(*b.PostedDate)
	})
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the two-pane review TUI: every posting on the left, the
// corp-to-corp subset on the right. updater may be nil for a read-only view.
func Run(postings []model.Posting, updater Updater) error {
	p := tea.NewProgram(newReviewModel(postings, updater), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
