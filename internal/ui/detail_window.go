package ui

import (
	"fmt"
	"strings"

	"deployconsole/internal/phase"
	"deployconsole/internal/poll"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DismissModalMsg closes the topmost overlay.
type DismissModalMsg struct{}

// DetailWindow shows one entity's timeline steps and its message log with
// scrollback. Shown as overlay; Esc dismisses.
type DetailWindow struct {
	item     poll.ResolvedItem
	viewport viewport.Model
	keys     KeyMap
}

// Ensure DetailWindow implements View.
var _ View = (*DetailWindow)(nil)

const defaultDetailWidth = 70
const defaultDetailHeight = 14

// NewDetailWindow creates a detail window for it.
func NewDetailWindow(it poll.ResolvedItem) *DetailWindow {
	vp := viewport.New(defaultDetailWidth, defaultDetailHeight)
	vp.Style = Styles.Box
	d := &DetailWindow{item: it, viewport: vp, keys: DefaultKeyMap()}
	d.refreshContent()
	return d
}

// Key identifies the entity shown.
func (d *DetailWindow) Key() string { return d.item.Key }

// Init implements View.
func (d *DetailWindow) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (d *DetailWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultMsg:
		for _, it := range msg.Result.Items {
			if it.Key == d.item.Key {
				d.item = it
				d.refreshContent()
				break
			}
		}
		return d, nil
	case tea.KeyMsg:
		if key.Matches(msg, d.keys.Close) {
			return d, func() tea.Msg { return DismissModalMsg{} }
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 4
		h := msg.Height/2 + 4
		if w < 40 {
			w = 40
		}
		if h < 10 {
			h = 10
		}
		d.viewport.Width = w
		d.viewport.Height = h
		d.refreshContent()
		return d, nil
	}

	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

// View implements View.
func (d *DetailWindow) View() string {
	header := Styles.Title.Render(d.item.Title) + Styles.Hint.Render("  "+d.keys.Close.Help().Key+": "+d.keys.Close.Help().Desc)
	return header + "\n" + d.viewport.View()
}

// refreshContent rebuilds the viewport content from the current item.
func (d *DetailWindow) refreshContent() {
	r := d.item.Resolved
	var lines []string
	lines = append(lines, fmt.Sprintf("%s %s", Styles.Label.Render("Phase:"), RenderChip(r.Phase)))
	lines = append(lines, fmt.Sprintf("%s %q (rule %s)", Styles.Label.Render("Status:"), d.item.Snapshot.RawStatus, r.Rule))
	if !d.item.Updated.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", Styles.Label.Render("Updated:"), d.item.Updated.Format("2006-01-02 15:04:05")))
	}
	lines = append(lines, "")

	for i, s := range r.Steps {
		glyph := lipgloss.NewStyle().Foreground(StepColor(s, r.Phase)).Render(StepGlyph(s, r.Phase, ""))
		lines = append(lines, fmt.Sprintf("%s %-10s %s", glyph, phase.StepNames[i], Styles.Muted.Render(r.Tooltips[i])))
	}

	lines = append(lines, "", Styles.Label.Render("Messages:"))
	msgs := d.item.Snapshot.Messages
	if len(msgs) == 0 && d.item.Snapshot.DetailText != "" {
		msgs = []string{d.item.Snapshot.DetailText}
	}
	if len(msgs) == 0 {
		lines = append(lines, Styles.Empty.Render("No messages reported"))
	}
	for _, m := range msgs {
		lines = append(lines, "  "+Styles.Normal.Render(m))
	}

	d.viewport.SetContent(strings.Join(lines, "\n"))
	d.viewport.GotoBottom()
}
