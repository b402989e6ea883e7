package harness

// TraceEvent records one executed case.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Input  string `json:"input"`
	Args   []any  `json:"args,omitempty"`
	Result any    `json:"result,omitempty"`
	Panic  string `json:"panic,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every case matched its expectation.
	Pass bool `json:"pass"`

	// RunID is the fixed run ID the scenario executed under.
	RunID string `json:"run_id"`

	// Trace contains every case in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per mismatched case.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:   true,
		RunID:  runID,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
