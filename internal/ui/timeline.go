package ui

import (
	"fmt"
	"strings"
	"time"

	"deployconsole/internal/poll"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ResultMsg carries a poll result into the program.
type ResultMsg struct {
	Result poll.Result
}

// OpenDetailMsg asks the app to open the detail window for an item.
type OpenDetailMsg struct {
	Item poll.ResolvedItem
}

// TimelineView lists entities with their status chip and progress timeline.
type TimelineView struct {
	Title  string
	Items  []poll.ResolvedItem
	Cursor int

	lastFetch time.Time
	next      time.Duration
	err       error
	loaded    bool

	keys    KeyMap
	spinner spinner.Model
	width   int
	height  int
}

// Ensure TimelineView implements View.
var _ View = (*TimelineView)(nil)

// NewTimelineView creates an empty timeline list.
func NewTimelineView(title string) *TimelineView {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return &TimelineView{
		Title:   title,
		keys:    DefaultKeyMap(),
		spinner: sp,
		width:   100,
	}
}

// Init implements View.
func (t *TimelineView) Init() tea.Cmd {
	return t.spinner.Tick
}

// Update implements View.
func (t *TimelineView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultMsg:
		t.apply(msg.Result)
		return t, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		return t, cmd
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		return t, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, t.keys.Up):
			if t.Cursor > 0 {
				t.Cursor--
			}
		case key.Matches(msg, t.keys.Down):
			if t.Cursor < len(t.Items)-1 {
				t.Cursor++
			}
		case key.Matches(msg, t.keys.Detail):
			if it, ok := t.Selected(); ok {
				return t, func() tea.Msg { return OpenDetailMsg{Item: it} }
			}
		}
	}
	return t, nil
}

// apply swaps in a new result, keeping the cursor on the same entity when it
// is still listed. Failed polls keep the previous items on screen.
func (t *TimelineView) apply(res poll.Result) {
	t.loaded = true
	t.lastFetch = res.FetchedAt
	t.next = res.Next
	t.err = res.Err
	if res.Err != nil {
		return
	}

	selected := ""
	if it, ok := t.Selected(); ok {
		selected = it.Key
	}
	t.Items = res.Items
	t.Cursor = 0
	for i, it := range t.Items {
		if it.Key == selected {
			t.Cursor = i
			break
		}
	}
}

// Selected returns the item under the cursor.
func (t *TimelineView) Selected() (poll.ResolvedItem, bool) {
	if t.Cursor < 0 || t.Cursor >= len(t.Items) {
		return poll.ResolvedItem{}, false
	}
	return t.Items[t.Cursor], true
}

// View implements View.
func (t *TimelineView) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(t.Title))
	b.WriteString("  ")
	b.WriteString(Styles.Muted.Render(t.status()))
	b.WriteString("\n")
	if t.err != nil {
		b.WriteString(Styles.Error.Render("fetch failed: " + t.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if !t.loaded {
		b.WriteString(Styles.Empty.Render(t.spinner.View() + " Loading..."))
		return b.String()
	}
	if len(t.Items) == 0 {
		b.WriteString(Styles.Empty.Render("Nothing to show"))
		return b.String()
	}

	frame := t.spinner.View()
	for i, it := range t.Items {
		row := RenderRow(it, frame, t.width-2)
		if i == t.Cursor {
			b.WriteString(Styles.Selected.Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (t *TimelineView) status() string {
	if t.lastFetch.IsZero() {
		return "waiting for first poll"
	}
	s := "updated " + t.lastFetch.Format("15:04:05")
	if t.next > 0 {
		s += fmt.Sprintf(" · next in %s", formatDuration(t.next))
	} else {
		s += " · polling stopped"
	}
	return s
}
