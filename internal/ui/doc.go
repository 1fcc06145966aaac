// Package ui renders resolved action and rollout phases in the terminal with
// Bubble Tea.
//
// Core pieces:
//   - View: a screen region with its own Init/Update/View (Elm-style)
//   - TimelineView: one row per entity with a status chip and a 3-step timeline
//   - DetailWindow: overlay with the selected entity's steps and message log
//   - OverlayStack: modal views with a dismiss key
//   - App: root model fed by a poll.Scheduler
package ui
