package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/c2cradar/internal/model"
)

type fakeUpdater struct {
	calls []model.PostingUpdate
	ids   []int64
	err   error
}

func (f *fakeUpdater) UpdatePosting(_ context.Context, id int64, upd model.PostingUpdate) error {
	f.ids = append(f.ids, id)
	f.calls = append(f.calls, upd)
	return f.err
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testPostings() []model.Posting {
	posted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []model.Posting{
		{ID: 1, Title: "Java Developer", Company: "Initech", RelevanceScore: 0.4},
		{ID: 2, Title: "Go Engineer", Company: "Acme", RelevanceScore: 0.9, IsCorpToCorp: true, PostedDate: &posted,
			Description: "Build payment rails.", Analysis: &model.Analysis{Summary: "Strong C2C fit", KeySkills: []string{"go"}}},
		{ID: 3, Title: "Data Engineer", Company: "Globex", RelevanceScore: 0.6, IsCorpToCorp: true},
	}
}

func step(t *testing.T, m reviewModel, msg tea.Msg) (reviewModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(reviewModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return rm, cmd
}

func sized(t *testing.T, postings []model.Posting, u Updater) reviewModel {
	t.Helper()
	m, _ := step(t, newReviewModel(postings, u), tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestNewReviewModel_SplitsAndSorts(t *testing.T) {
	m := newReviewModel(testPostings(), nil)

	if len(m.all) != 3 || m.all[0].ID != 2 || m.all[1].ID != 3 || m.all[2].ID != 1 {
		t.Errorf("all not sorted by relevance: %v", ids(m.all))
	}
	if len(m.c2c) != 2 || m.c2c[0].ID != 2 {
		t.Errorf("c2c = %v", ids(m.c2c))
	}
}

func TestView_ListAndDetail(t *testing.T) {
	m := sized(t, testPostings(), nil)

	out := m.View()
	for _, want := range []string{"All Postings (3)", "Corp-to-Corp (2)", "Go Engineer"} {
		if !strings.Contains(out, want) {
			t.Errorf("list view missing %q", want)
		}
	}

	m, _ = step(t, m, key("enter"))
	if m.view != viewDetail || m.detail.ID != 2 {
		t.Fatalf("enter did not open posting 2: view=%v id=%d", m.view, m.detail.ID)
	}
	detail := m.renderDetail()
	for _, want := range []string{"Acme", "Strong C2C fit", "press r"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %q", want)
		}
	}

	m, _ = step(t, m, key("r"))
	if !strings.Contains(m.renderDetail(), "Build payment rails.") {
		t.Error("r did not reveal the description")
	}

	m, _ = step(t, m, key("esc"))
	if m.view != viewList {
		t.Error("esc did not return to list")
	}
}

func TestCursorAndPaneSwitch(t *testing.T) {
	m := sized(t, testPostings(), nil)

	m, _ = step(t, m, key("down"))
	m, _ = step(t, m, key("down"))
	m, _ = step(t, m, key("down"))
	if m.leftCursor != 2 {
		t.Errorf("leftCursor = %d, want 2 (clamped)", m.leftCursor)
	}

	m, _ = step(t, m, key("tab"))
	if m.activePane != 1 {
		t.Fatal("tab did not switch pane")
	}
	m, _ = step(t, m, key("down"))
	if p, _ := m.selected(); p.ID != 3 {
		t.Errorf("selected = %d, want 3", p.ID)
	}
}

func TestToggleApplied(t *testing.T) {
	u := &fakeUpdater{}
	m := sized(t, testPostings(), u)

	m, cmd := step(t, m, key("a"))
	if cmd == nil || !m.saving {
		t.Fatal("a did not start a save")
	}
	m, _ = step(t, m, cmd())

	if len(u.calls) != 1 || u.ids[0] != 2 {
		t.Fatalf("updater calls = %v", u.ids)
	}
	if u.calls[0].IsApplied == nil || !*u.calls[0].IsApplied || u.calls[0].IsFavorited != nil {
		t.Errorf("update = %+v, want applied=true only", u.calls[0])
	}
	if m.saving {
		t.Error("still saving after reply")
	}
	if !m.all[0].IsApplied || !m.c2c[0].IsApplied {
		t.Error("posting not updated in both lists")
	}
}

func TestToggleFavorite_FromDetail(t *testing.T) {
	u := &fakeUpdater{}
	m := sized(t, testPostings(), u)
	m, _ = step(t, m, key("enter"))

	m, cmd := step(t, m, key("f"))
	m, _ = step(t, m, cmd())

	if !m.detail.IsFavorited {
		t.Error("detail not refreshed after favorite")
	}
	if !strings.Contains(m.renderDetail(), "Favorited") {
		t.Error("detail missing favorited field")
	}
}

func TestToggle_ErrorKeepsPosting(t *testing.T) {
	u := &fakeUpdater{err: errors.New("database is locked")}
	m := sized(t, testPostings(), u)

	m, cmd := step(t, m, key("a"))
	m, _ = step(t, m, cmd())

	if m.all[0].IsApplied {
		t.Error("posting changed despite save error")
	}
	if !strings.Contains(m.saveError, "database is locked") {
		t.Errorf("saveError = %q", m.saveError)
	}
}

func TestToggle_ReadOnly(t *testing.T) {
	m := sized(t, testPostings(), nil)
	if _, cmd := step(t, m, key("a")); cmd != nil {
		t.Error("read-only review should not save")
	}
}

func TestPickerCompany(t *testing.T) {
	companies := []model.Count{{Label: "Acme", N: 4}, {Label: "Initech", N: 2}}
	m := pickerModel{companies: companies, total: 6, chosen: -1}

	next, _ := m.Update(key("j"))
	next, _ = next.Update(key("j"))
	next, _ = next.Update(key("j"))
	next, _ = next.Update(key("enter"))
	if c, ok := next.(pickerModel).company(); !ok || c != "Initech" {
		t.Errorf("company = %q, %v", c, ok)
	}

	next, _ = m.Update(key("enter"))
	if c, ok := next.(pickerModel).company(); !ok || c != AllCompanies {
		t.Errorf("first row = %q, %v", c, ok)
	}

	next, _ = m.Update(key("q"))
	if _, ok := next.(pickerModel).company(); ok {
		t.Error("quit should not choose")
	}
	if !strings.Contains(m.View(), "All companies (6)") {
		t.Error("picker view missing all row")
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wordWrap = %q", got)
	}
}

func ids(ps []model.Posting) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
