package ui

import tea "github.com/charmbracelet/bubbletea"

// OverlayStack holds modal views drawn over the base view; the topmost one
// receives key input.
type OverlayStack struct {
	views []View
}

// Push adds an overlay on top.
func (s *OverlayStack) Push(v View) {
	s.views = append(s.views, v)
}

// Pop removes the top overlay.
func (s *OverlayStack) Pop() (View, bool) {
	if len(s.views) == 0 {
		return nil, false
	}
	top := s.views[len(s.views)-1]
	s.views = s.views[:len(s.views)-1]
	return top, true
}

// Top returns the top overlay without removing it.
func (s *OverlayStack) Top() (View, bool) {
	if len(s.views) == 0 {
		return nil, false
	}
	return s.views[len(s.views)-1], true
}

// Len returns the number of overlays.
func (s *OverlayStack) Len() int {
	return len(s.views)
}

// UpdateTop passes msg to the top overlay only.
func (s *OverlayStack) UpdateTop(msg tea.Msg) (tea.Cmd, bool) {
	if len(s.views) == 0 {
		return nil, false
	}
	i := len(s.views) - 1
	v, cmd := s.views[i].Update(msg)
	s.views[i] = v
	return cmd, true
}

// Broadcast passes msg to every overlay, e.g. fresh poll data.
func (s *OverlayStack) Broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(s.views))
	for i, v := range s.views {
		nv, cmd := v.Update(msg)
		s.views[i] = nv
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}
