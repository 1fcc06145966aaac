package phase

import (
	"slices"
	"strings"
)

// Snapshot is one read of an entity's status fields as reported by the server.
// Missing fields decode to their zero values.
type Snapshot struct {
	RawStatus  string   `json:"status"`
	DetailText string   `json:"detailStatus,omitempty"`
	Messages   []string `json:"messages,omitempty"` // oldest first
}

// NumSteps is the number of nodes on a progress timeline.
const NumSteps = 3

// Fixed step tooltips.
const (
	TooltipQueued     = "Queued"
	TooltipProcessing = "Processing"
	TooltipCompleted  = "Completed"
	TooltipFailed     = "Failed"
)

// Step names, indexed like Resolved.Steps.
var StepNames = [NumSteps]string{"Queued", "Processing", "Done"}

// Resolved is the display state derived from a Snapshot. It is recomputed on
// every poll and never stored.
type Resolved struct {
	Phase         Phase               `json:"phase"`
	DisplayDetail string              `json:"displayDetail"`
	Steps         [NumSteps]StepState `json:"steps"`
	Tooltips      [NumSteps]string    `json:"tooltips"`
	Rule          string              `json:"rule"`
}

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name  string
	Match func(status, detail string) bool
	Phase Phase
}

// rules is evaluated top to bottom; the first match wins. The fallback to
// Pending is applied by Resolve when nothing matches.
var rules = []Rule{
	{Name: "failed", Match: statusIn("error", "failed", "canceled"), Phase: Error},
	{Name: "finished", Match: statusIn("finished"), Phase: Finished},
	{Name: "running", Match: statusIn("running", "retrieving", "retrieved", "downloading", "download"), Phase: Running},
	{Name: "live-detail", Match: liveDetail, Phase: Running},
	{Name: "scheduled", Match: statusIn("scheduled", "pending", "wait_for_confirmation"), Phase: Scheduled},
}

// Rules returns a copy of the classification table in evaluation order.
func Rules() []Rule {
	return slices.Clone(rules)
}

// FallbackRule names the result when no entry in Rules matched.
const FallbackRule = "fallback"

func statusIn(codes ...string) func(string, string) bool {
	return func(status, _ string) bool {
		for _, c := range codes {
			if status == c {
				return true
			}
		}
		return false
	}
}

// liveDetail treats progress text as stronger evidence of activity than the
// coarse status code, except for states that are waiting on someone else.
func liveDetail(status, detail string) bool {
	if detail == "" {
		return false
	}
	return status != "scheduled" && status != "wait_for_confirmation"
}

// DisplayDetail picks the text to show: the newest message, else the detail
// status, else "".
func DisplayDetail(s Snapshot) string {
	if n := len(s.Messages); n > 0 {
		return s.Messages[n-1]
	}
	return s.DetailText
}

// Classify returns the phase for s and the name of the rule that produced it.
func Classify(s Snapshot) (Phase, string) {
	status := strings.ToLower(strings.TrimSpace(s.RawStatus))
	detail := DisplayDetail(s)
	for _, r := range rules {
		if r.Match(status, detail) {
			return r.Phase, r.Name
		}
	}
	return Pending, FallbackRule
}

// Resolve classifies s and derives the timeline. It never fails.
func Resolve(s Snapshot) Resolved {
	p, rule := Classify(s)
	detail := DisplayDetail(s)
	return Resolved{
		Phase:         p,
		DisplayDetail: detail,
		Steps:         StepStates(p),
		Tooltips:      Tooltips(p, detail),
		Rule:          rule,
	}
}

// StepStates lays p out on the 3-step timeline.
func StepStates(p Phase) [NumSteps]StepState {
	var steps [NumSteps]StepState
	order := p.Order()
	for idx := range steps {
		i := idx + 1
		switch {
		case p == Error && i == NumSteps:
			steps[idx] = StepError
		case i < order:
			steps[idx] = StepCompleted
		case i == order:
			steps[idx] = StepActive
		default:
			steps[idx] = StepPending
		}
	}
	// Terminal phases land on the last step; draw it as done rather than active.
	if p == Finished {
		steps[NumSteps-1] = StepCompleted
	}
	return steps
}

// Tooltips returns the hover text for each step.
func Tooltips(p Phase, detail string) [NumSteps]string {
	processing := TooltipProcessing
	if p == Running && detail != "" {
		processing = detail
	}
	last := TooltipCompleted
	if p == Error {
		last = TooltipFailed
	}
	return [NumSteps]string{TooltipQueued, processing, last}
}

// ActiveStep returns the index of the active step, or -1 when none is active.
func (r Resolved) ActiveStep() int {
	for i, s := range r.Steps {
		if s == StepActive {
			return i
		}
	}
	return -1
}

// Caption is the tooltip of the step the user most likely cares about: the
// active one, or the last one for terminal phases.
func (r Resolved) Caption() string {
	if i := r.ActiveStep(); i >= 0 {
		return r.Tooltips[i]
	}
	if r.Phase.Terminal() {
		return r.Tooltips[NumSteps-1]
	}
	return ""
}
