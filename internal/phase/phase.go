package phase

import (
	"encoding/json"
	"fmt"
)

// Phase is the canonical lifecycle phase used for display.
type Phase int

const (
	Pending Phase = iota
	Scheduled
	Running
	Finished
	Error
)

var phaseNames = [...]string{
	Pending:   "pending",
	Scheduled: "scheduled",
	Running:   "running",
	Finished:  "finished",
	Error:     "error",
}

// String returns the lowercase token used in JSON and logs.
func (p Phase) String() string {
	if p < Pending || p > Error {
		return "unknown"
	}
	return phaseNames[p]
}

// ParsePhase is the inverse of String.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return Pending, parseEnumError("phase", s)
}

// Order is the ordinal used to place a phase on the 3-step timeline.
// Finished and Error share the last position.
func (p Phase) Order() int {
	switch p {
	case Scheduled:
		return 1
	case Running:
		return 2
	case Finished, Error:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether the server will not move the entity any further.
func (p Phase) Terminal() bool {
	return p == Finished || p == Error
}

// Animated reports whether the phase should be drawn with a moving indicator.
func (p Phase) Animated() bool {
	return p == Running
}

// Label is the human readable chip text.
func (p Phase) Label() string {
	switch p {
	case Scheduled:
		return "Scheduled"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	case Error:
		return "Error"
	default:
		return "Pending"
	}
}

// Icon is the glyph drawn on status chips.
func (p Phase) Icon() string {
	switch p {
	case Scheduled:
		return "◷"
	case Running:
		return "●"
	case Finished:
		return "✓"
	case Error:
		return "✗"
	default:
		return "○"
	}
}

// MarshalJSON implements json.Marshaler.
func (p Phase) MarshalJSON() ([]byte, error) {
	return marshalEnumJSON(p)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phase) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnumJSON(data, ParsePhase)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// StepState is the rendering state of one timeline node.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepCompleted
	StepError
)

var stepStateNames = [...]string{
	StepPending:   "pending",
	StepActive:    "active",
	StepCompleted: "completed",
	StepError:     "error",
}

func (s StepState) String() string {
	if s < StepPending || s > StepError {
		return "unknown"
	}
	return stepStateNames[s]
}

// ParseStepState is the inverse of String.
func ParseStepState(s string) (StepState, error) {
	for i, name := range stepStateNames {
		if name == s {
			return StepState(i), nil
		}
	}
	return StepPending, parseEnumError("step state", s)
}

// MarshalJSON implements json.Marshaler.
func (s StepState) MarshalJSON() ([]byte, error) {
	return marshalEnumJSON(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StepState) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnumJSON(data, ParseStepState)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// stringEnum is a constraint for enum types that have a String() method.
type stringEnum interface {
	String() string
}

func marshalEnumJSON[T stringEnum](v T) ([]byte, error) {
	return json.Marshal(v.String())
}

func unmarshalEnumJSON[T stringEnum](data []byte, parse func(string) (T, error)) (T, error) {
	var zero T
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return zero, err
	}
	return parse(s)
}

func parseEnumError(enumName, value string) error {
	return fmt.Errorf("unknown %s: %s", enumName, value)
}
