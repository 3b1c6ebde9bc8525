package agent

// Action types a planner may emit.
const (
	ActionReasoning = "reasoning"
	ActionToolCall  = "tool_call"
	ActionSynthesis = "synthesis"
	// ActionNote marks the trailing skip summary appended on partial
	// success; it is produced by the executor, never by a planner.
	ActionNote = "note"
)

// Step statuses recorded in a trace.
const (
	StatusCompleted = "completed"
	StatusSuccess   = "success"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Step is one planned unit of work. Steps are never mutated after
// planning; fallback and replanning derive modified copies.
type Step struct {
	Number         int            `json:"step"`
	Description    string         `json:"description"`
	ActionType     string         `json:"action_type"`
	Tool           string         `json:"tool,omitempty"`
	ToolParameters map[string]any `json:"tool_parameters,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

// WithParameters returns a copy of the step carrying a fresh parameter
// map seeded from params. The receiver's map is left untouched.
func (s Step) WithParameters(params map[string]any) Step {
	clone := s
	clone.ToolParameters = make(map[string]any, len(params))
	for k, v := range params {
		clone.ToolParameters[k] = v
	}
	return clone
}

// StepResult is the recorded outcome of one step. Only the final attempt
// of a step enters the trace.
type StepResult struct {
	Step           int            `json:"step"`
	Description    string         `json:"description"`
	ActionType     string         `json:"action_type"`
	Status         string         `json:"status"`
	Tool           string         `json:"tool,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Output         any            `json:"output,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Error          string         `json:"error,omitempty"`
	PartialSuccess bool           `json:"partial_success,omitempty"`
	SkippedSteps   []string       `json:"skipped_steps,omitempty"`
}

// Trace is the ordered record of a run: either fully successful, or ending
// in exactly one failed entry optionally followed by a skip note.
type Trace []StepResult

// Partial reports whether the run ended before completing every step.
func (t Trace) Partial() bool {
	for _, r := range t {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Attempt is per-retry bookkeeping for one step. It exists only for the
// duration of the step's retry loop, to suppress repeats and feed the
// replanner.
type Attempt struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Error      string         `json:"error"`
}
