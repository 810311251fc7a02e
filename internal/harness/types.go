package harness

import (
	"strings"

	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/refdriver"
)

// callPrefix is trimmed from driver call names in the trace.
const callPrefix = "RecordReplay"

// TraceEvent is one driver call observed while the scenario ran.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Call   string `json:"call"`
	Thread uint64 `json:"thread,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

// traceOf converts observed driver calls to trace events numbered from 1.
func traceOf(calls []refdriver.Call) []TraceEvent {
	trace := make([]TraceEvent, len(calls))
	for i, c := range calls {
		trace[i] = TraceEvent{
			Seq:    int64(i + 1),
			Call:   strings.TrimPrefix(c.Name, callPrefix),
			Thread: uint64(c.Thread),
			Args:   c.Args,
		}
	}
	return trace
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// RecordingID is the ID of the recording the steps produced.
	RecordingID string `json:"recording_id"`

	// Trace contains the driver calls the steps made while recording.
	Trace []TraceEvent `json:"trace"`

	// ReplayTrace contains the driver calls the steps made while replaying.
	ReplayTrace []TraceEvent `json:"replay_trace,omitempty"`

	// Notices are the control notices the gateway sent.
	Notices []control.Notice `json:"notices,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final gateway and driver state, keyed by name.
	// See gateway_state assertions.
	State map[string]interface{} `json:"state,omitempty"`
}

// Keys of Result.State.
const (
	StateCheckpoints   = "checkpoints"
	StateInvalidReason = "invalid_reason"
	StateCrashNote     = "crash_note"
	StateCrashReason   = "crash_reason"
	StateDiverged      = "diverged"
	StateDivergence    = "divergence"
	StateRemaining     = "remaining"
)

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]interface{}),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
