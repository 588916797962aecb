package workflow

import (
	"time"
)

// State is a step of the per-item lifecycle.
type State string

const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateTranscoding State = "transcoding"
	StateUploading   State = "uploading"
	StateRecording   State = "recording"
	StateCleaning    State = "cleaning"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition records one state change of an item.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Outcome is the result of processing one item.
type Outcome struct {
	SourceURL   string
	Identity    string
	State       State
	FailedStage State
	Err         error
	// Skipped is set when the identity was already published for this URL.
	Skipped bool
	// Deferred is set when another worker holds the identity claim.
	Deferred    bool
	PlaylistURL string
	Bytes       int64
	Transitions []Transition
	Duration    time.Duration
}

// Succeeded reports whether the item was published during this call.
func (o Outcome) Succeeded() bool {
	return o.State == StateDone && !o.Skipped
}

func (o *Outcome) transition(to State, at time.Time) {
	from := o.State
	if from == "" {
		from = StatePending
	}
	o.Transitions = append(o.Transitions, Transition{From: from, To: to, At: at})
	o.State = to
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	RunID     string
	Started   time.Time
	Duration  time.Duration
	Succeeded int
	Skipped   int
	Deferred  int
	Failed    int
	Bytes     int64
	// Failures keeps the failed outcomes in completion order.
	Failures []Outcome
}

// Total returns the number of items the run looked at.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Deferred + s.Failed
}

func (s *Summary) add(o Outcome) {
	switch {
	case o.State == StateFailed:
		s.Failed++
		s.Failures = append(s.Failures, o)
	case o.Deferred:
		s.Deferred++
	case o.Skipped:
		s.Skipped++
	case o.State == StateDone:
		s.Succeeded++
		s.Bytes += o.Bytes
	}
}
