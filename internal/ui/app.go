package ui

import (
	"context"
	"errors"
	"fmt"

	"deployconsole/internal/log"
	"deployconsole/internal/poll"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Refresher triggers an immediate poll.
type Refresher interface {
	Refresh()
}

// AppModel is the root model: a TimelineView with optional overlays.
type AppModel struct {
	Timeline  *TimelineView
	Overlays  OverlayStack
	Refresher Refresher

	keys KeyMap
	help help.Model
	size tea.WindowSizeMsg
}

// Ensure AppModel implements tea.Model.
var _ tea.Model = (*AppModel)(nil)

// NewAppModel creates the root model. r may be nil.
func NewAppModel(title string, r Refresher) *AppModel {
	h := help.New()
	h.Styles.ShortKey = Styles.Selected
	h.Styles.ShortDesc = Styles.Hint
	h.Styles.ShortSeparator = Styles.Hint
	return &AppModel{
		Timeline:  NewTimelineView(title),
		Refresher: r,
		keys:      DefaultKeyMap(),
		help:      h,
	}
}

// Init implements tea.Model.
func (a *AppModel) Init() tea.Cmd {
	return a.Timeline.Init()
}

// Update implements tea.Model.
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultMsg:
		_, cmd := a.Timeline.Update(msg)
		return a, tea.Batch(cmd, a.Overlays.Broadcast(msg))
	case OpenDetailMsg:
		d := NewDetailWindow(msg.Item)
		if a.size.Width > 0 {
			d.Update(a.size)
		}
		a.Overlays.Push(d)
		return a, d.Init()
	case DismissModalMsg:
		a.Overlays.Pop()
		return a, nil
	case tea.WindowSizeMsg:
		a.size = msg
		a.help.Width = msg.Width
		_, cmd := a.Timeline.Update(msg)
		return a, tea.Batch(cmd, a.Overlays.Broadcast(msg))
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) && (msg.String() == "ctrl+c" || a.Overlays.Len() == 0) {
			return a, tea.Quit
		}
		if key.Matches(msg, a.keys.Refresh) && a.Refresher != nil {
			a.Refresher.Refresh()
			return a, nil
		}
		if cmd, ok := a.Overlays.UpdateTop(msg); ok {
			return a, cmd
		}
	}

	_, cmd := a.Timeline.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *AppModel) View() string {
	if top, ok := a.Overlays.Top(); ok {
		return top.View()
	}
	return a.Timeline.View() + "\n" + a.help.View(a.keys)
}

// Scheduler is the part of poll.Scheduler the app drives.
type Scheduler interface {
	Refresher
	Run(ctx context.Context, emit func(poll.Result)) error
}

// Run starts the full-screen console and polls s until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, title string, s Scheduler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := log.WithComponent("ui")
	m := NewAppModel(title, s)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(res poll.Result) {
			p.Send(ResultMsg{Result: res})
		})
	}()

	_, err := p.Run()
	cancel()
	if perr := <-done; perr != nil && !errors.Is(perr, context.Canceled) {
		logger.Error().Err(perr).Msg("poller stopped")
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
