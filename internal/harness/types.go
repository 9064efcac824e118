package harness

// TraceEvent is one entry of a scenario trace: either the invocation of an
// operation or its completion.
type TraceEvent struct {
	Type       string         `json:"type"` // "invocation" or "completion"
	Seq        int64          `json:"seq"`
	Op         string         `json:"op,omitempty"`
	As         string         `json:"as,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	OutputCase string         `json:"output_case,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
}

// Event type names.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and every assertion matched.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(op, as string, args map[string]any, traceID string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventInvocation,
		Seq:     seq,
		Op:      op,
		As:      as,
		Args:    args,
		TraceID: traceID,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outputCase string, result map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		Seq:        seq,
		OutputCase: outputCase,
		Result:     result,
	})
}

// Invocations returns the number of invocations of op in the trace.
func (r *Result) Invocations(op string) int {
	count := 0
	for _, event := range r.Trace {
		if event.Type == EventInvocation && event.Op == op {
			count++
		}
	}
	return count
}
