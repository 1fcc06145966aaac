package ui

import (
	"fmt"
	"strings"
	"time"

	"deployconsole/internal/phase"
	"deployconsole/internal/poll"
	"deployconsole/internal/ui/textutil"

	"github.com/charmbracelet/lipgloss"
)

// Timeline glyphs.
const (
	GlyphPending   = "○"
	GlyphActive    = "◉"
	GlyphCompleted = "✓"
	GlyphError     = "✗"
	connector      = "──"
)

const (
	chipWidth  = 11
	titleWidth = 28
)

// RenderChip renders the status chip of a phase, e.g. "● Running".
func RenderChip(p phase.Phase) string {
	text := textutil.PadRight(p.Icon()+" "+p.Label(), chipWidth)
	return lipgloss.NewStyle().Foreground(PhaseColor(p)).Bold(p.Terminal()).Render(text)
}

// StepGlyph returns the glyph for a step. frame replaces the active glyph
// for animated phases; pass "" for a static rendering.
func StepGlyph(s phase.StepState, p phase.Phase, frame string) string {
	switch s {
	case phase.StepCompleted:
		return GlyphCompleted
	case phase.StepError:
		return GlyphError
	case phase.StepActive:
		if p.Animated() && frame != "" {
			return frame
		}
		return GlyphActive
	default:
		return GlyphPending
	}
}

// RenderTimeline draws the 3-node timeline, e.g. "✓──◉──○".
func RenderTimeline(r phase.Resolved, frame string) string {
	var b strings.Builder
	for i, s := range r.Steps {
		if i > 0 {
			c := lipgloss.Color(ColorMuted)
			if s != phase.StepPending {
				c = lipgloss.Color(ColorSuccess)
			}
			b.WriteString(lipgloss.NewStyle().Foreground(c).Render(connector))
		}
		glyph := StepGlyph(s, r.Phase, frame)
		b.WriteString(lipgloss.NewStyle().Foreground(StepColor(s, r.Phase)).Render(glyph))
	}
	return b.String()
}

// RenderRow renders one entity line: chip, timeline, title and caption.
func RenderRow(it poll.ResolvedItem, frame string, width int) string {
	title := textutil.PadRight(textutil.SingleLine(it.Title), titleWidth)
	left := fmt.Sprintf("%s %s  %s", RenderChip(it.Resolved.Phase), RenderTimeline(it.Resolved, frame), title)

	caption := textutil.SingleLine(it.Resolved.Caption())
	if caption == "" || width <= 0 {
		return left
	}
	room := width - lipgloss.Width(left) - 2
	if room < 8 {
		return left
	}
	return left + "  " + Styles.Muted.Render(textutil.Truncate(caption, room))
}

// RenderReport renders a static, non-interactive listing of res.
func RenderReport(title string, res poll.Result, width int) string {
	var lines []string
	lines = append(lines, Styles.Title.Render(title))
	if res.Err != nil {
		lines = append(lines, Styles.Error.Render("error: "+res.Err.Error()))
	}
	if len(res.Items) == 0 && res.Err == nil {
		lines = append(lines, Styles.Empty.Render("Nothing to show"))
	}
	for _, it := range res.Items {
		lines = append(lines, RenderRow(it, "", width))
	}
	lines = append(lines, Styles.Muted.Render(summary(res)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// summary renders per-phase counts, e.g. "2 running · 1 finished".
func summary(res poll.Result) string {
	counts := res.Counts()
	var parts []string
	for _, p := range []phase.Phase{phase.Pending, phase.Scheduled, phase.Running, phase.Finished, phase.Error} {
		if n := counts[p]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, p))
		}
	}
	if len(parts) == 0 {
		return "0 items"
	}
	return strings.Join(parts, " · ")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
