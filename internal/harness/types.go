package harness

import "github.com/normwrite/normcache/internal/nodeid"

// StepTrace records one merge step's outcome, in the order steps ran.
// Used for golden comparison and the edited_node_ids assertion.
type StepTrace struct {
	Query         string          `json:"query"`
	RootID        nodeid.NodeId   `json:"root_id"`
	EditedNodeIds []nodeid.NodeId `json:"edited_node_ids,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true only if every step executed as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds one StepTrace per merge step, in execution order.
	Trace []StepTrace `json:"trace"`

	// Errors collects human-readable failure messages: unmet
	// expectations, failed assertions, or a step that errored when it
	// was not expected to.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result with no trace yet recorded.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError appends a failure message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddStepTrace appends one step's outcome to the trace.
func (r *Result) AddStepTrace(t StepTrace) {
	r.Trace = append(r.Trace, t)
}
