// Package phase classifies the loosely typed status fields reported by the
// deployment management server into a small closed set of lifecycle phases
// and derives the 3-step progress timeline (Queued, Processing, Done/Failed)
// shown for every action.
//
// Classification is a pure function of a [Snapshot]. The rules are kept as an
// ordered table (see [Rules]) evaluated first-match-wins, so precedence is data
// and each rule can be tested on its own.
//
// Known fragility: the "live detail" rule treats any non-empty detail or
// message text as evidence that work is in progress unless the status is
// scheduled or wait_for_confirmation. The server does not document this; it
// is inferred from how it behaves. A server that fills in detail text for an
// idle action will be shown as Running.
package phase
