package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rahul/secagent/internal/governance"
	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/tools"
)

// scriptedTool returns canned responses in order, then repeats the last.
type scriptedTool struct {
	name      string
	responses []tools.Response
	errs      []error
	calls     []map[string]any
}

func (s *scriptedTool) Name() string               { return s.name }
func (s *scriptedTool) Description() string        { return "scripted test tool" }
func (s *scriptedTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (s *scriptedTool) Execute(ctx context.Context, params map[string]any) (tools.Response, error) {
	s.calls = append(s.calls, params)
	i := len(s.calls) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func testLogger(t *testing.T) *observability.Logger {
	t.Helper()
	return observability.NewLoggerAt(filepath.Join(t.TempDir(), "llm.jsonl"))
}

func newTestExecutor(t *testing.T, registry *tools.Registry) *Executor {
	t.Helper()
	return NewExecutor(registry, NewFallbackEngine(), nil, governance.NewDefaultPolicyEngine(), testLogger(t))
}

// stubReplanner returns a fixed step, or nothing.
type stubReplanner struct {
	step  Step
	ok    bool
	calls int
}

func (s *stubReplanner) Replan(ctx context.Context, run RunContext, failed Step, errMsg string, completed Trace, attempts []Attempt) (Step, bool) {
	s.calls++
	return s.step, s.ok
}

func TestExecutePlan_AllStepsSucceed(t *testing.T) {
	cikTool := &scriptedTool{
		name:      "get_cik_by_ticker",
		responses: []tools.Response{tools.Ok(map[string]any{"cik": "0000320193"})},
	}
	finTool := &scriptedTool{
		name:      "get_financial_data",
		responses: []tools.Response{tools.Ok(map[string]any{"value": 383285000000.0})},
	}
	registry := tools.NewRegistry()
	registry.Register(cikTool)
	registry.Register(finTool)

	plan := []Step{
		{Number: 1, Description: "Resolve 'last year' to 2023", ActionType: ActionReasoning, ExpectedOutput: "2023"},
		{Number: 2, Description: "Look up CIK", ActionType: ActionToolCall, Tool: "get_cik_by_ticker",
			ToolParameters: map[string]any{"ticker": "AAPL"}},
		{Number: 3, Description: "Fetch revenue", ActionType: ActionToolCall, Tool: "get_financial_data",
			ToolParameters: map[string]any{"identifier": "AAPL", "metric": "revenue", "year": 2023}},
		{Number: 4, Description: "Format the answer", ActionType: ActionSynthesis},
	}

	exec := newTestExecutor(t, registry)
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test", Query: "AAPL revenue last year"}, plan)

	if len(trace) != 4 {
		t.Fatalf("expected 4 results, got %d", len(trace))
	}
	wantStatus := []string{StatusCompleted, StatusSuccess, StatusSuccess, StatusPending}
	for i, want := range wantStatus {
		if trace[i].Status != want {
			t.Errorf("step %d: status = %s, want %s", i+1, trace[i].Status, want)
		}
	}
	if trace.Partial() {
		t.Error("fully successful run must not be partial")
	}
	if trace[0].Output != "2023" {
		t.Errorf("reasoning step should carry its expected output, got %v", trace[0].Output)
	}
}

func TestExecutePlan_FallbackRecoversWithinBudget(t *testing.T) {
	// First call fails for 2023, the form-swap probe fails too, the year
	// probe succeeds. Two replannings, exactly at the per-step budget.
	filings := &scriptedTool{
		name: "get_recent_filings",
		responses: []tools.Response{
			tools.Fail("No 10-K filings found for NEWCO in 2023"),
			tools.Fail("No 10-Q filings found for NEWCO in 2023"),
			tools.Ok(map[string]any{"filings": []any{"10-K 2022"}}),
		},
	}
	registry := tools.NewRegistry()
	registry.Register(filings)

	plan := []Step{{
		Number: 1, Description: "Get filings", ActionType: ActionToolCall, Tool: "get_recent_filings",
		ToolParameters: map[string]any{"identifier": "NEWCO", "form_type": "10-K", "year": 2023},
	}}

	exec := newTestExecutor(t, registry)
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if len(trace) != 1 || trace[0].Status != StatusSuccess {
		t.Fatalf("expected one successful result, got %+v", trace)
	}
	if len(filings.calls) != 3 {
		t.Fatalf("expected 3 tool invocations, got %d", len(filings.calls))
	}
	if filings.calls[1]["form_type"] != "10-Q" {
		t.Errorf("second attempt should swap the form, got %v", filings.calls[1]["form_type"])
	}
	if filings.calls[2]["form_type"] != "10-K" || filings.calls[2]["year"] != 2022 {
		t.Errorf("third attempt should probe 10-K/2022, got %v", filings.calls[2])
	}
}

func TestExecutePlan_PerStepBudgetExhaustionYieldsPartialTrace(t *testing.T) {
	filings := &scriptedTool{
		name:      "get_recent_filings",
		responses: []tools.Response{tools.Fail("No 10-K filings found for NEWCO in 2023")},
	}
	registry := tools.NewRegistry()
	registry.Register(filings)

	plan := []Step{
		{Number: 1, Description: "Get filings", ActionType: ActionToolCall, Tool: "get_recent_filings",
			ToolParameters: map[string]any{"identifier": "NEWCO", "form_type": "10-K", "year": 2023}},
		{Number: 2, Description: "Read filing content", ActionType: ActionToolCall, Tool: "get_filing_content"},
		{Number: 3, Description: "Summarize", ActionType: ActionSynthesis},
	}

	exec := newTestExecutor(t, registry)
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	// Budget of 2 means three executions of step 1, then abort.
	if len(filings.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(filings.calls))
	}
	if !trace.Partial() {
		t.Fatal("expected a partial trace")
	}
	if len(trace) != 2 {
		t.Fatalf("expected failed record plus skip note, got %d entries", len(trace))
	}

	failed := trace[0]
	if failed.Status != StatusFailed || !failed.PartialSuccess {
		t.Errorf("failed record malformed: %+v", failed)
	}
	if failed.Error == "" {
		t.Error("failed record must carry the final error message")
	}

	note := trace[1]
	if note.ActionType != ActionNote || note.Status != StatusSkipped {
		t.Errorf("skip note malformed: %+v", note)
	}
	if len(note.SkippedSteps) != 2 {
		t.Errorf("expected 2 skipped step descriptions, got %v", note.SkippedSteps)
	}
}

func TestExecutePlan_GlobalBudgetCapsRecoveryAcrossSteps(t *testing.T) {
	filings := &scriptedTool{
		name:      "get_recent_filings",
		responses: []tools.Response{tools.Fail("No 10-K filings found for NEWCO in 2023")},
	}
	registry := tools.NewRegistry()
	registry.Register(filings)

	plan := []Step{{
		Number: 1, Description: "Get filings", ActionType: ActionToolCall, Tool: "get_recent_filings",
		ToolParameters: map[string]any{"identifier": "NEWCO", "form_type": "10-K", "year": 2023},
	}}

	exec := newTestExecutor(t, registry)
	exec.MaxTotalReplannings = 0

	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if len(filings.calls) != 1 {
		t.Fatalf("expected a single attempt under a zero global budget, got %d", len(filings.calls))
	}
	if trace[0].Error != "Exceeded maximum replanning attempts for this query" {
		t.Errorf("unexpected abort message: %q", trace[0].Error)
	}
}

func TestExecutePlan_UnrecoverableErrorAbortsImmediately(t *testing.T) {
	tool := &scriptedTool{
		name:      "get_cik_by_ticker",
		responses: []tools.Response{tools.Fail("Invalid CIK format: ABC123")},
	}
	registry := tools.NewRegistry()
	registry.Register(tool)

	replanner := &stubReplanner{}
	exec := NewExecutor(registry, NewFallbackEngine(), replanner, nil, testLogger(t))

	plan := []Step{{Number: 1, Description: "Lookup", ActionType: ActionToolCall, Tool: "get_cik_by_ticker",
		ToolParameters: map[string]any{"ticker": "ABC123"}}}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if len(tool.calls) != 1 {
		t.Errorf("unrecoverable failures must not be retried, got %d attempts", len(tool.calls))
	}
	if replanner.calls != 0 {
		t.Error("unrecoverable failures must not reach the replanner")
	}
	if !trace.Partial() {
		t.Error("expected a partial trace")
	}
}

func TestExecutePlan_ReplannerRunsAfterFallbacksExhausted(t *testing.T) {
	// An error no fallback strategy matches goes straight to the replanner.
	flaky := &scriptedTool{
		name:      "get_filing_content",
		responses: []tools.Response{tools.Fail("document parse error")},
	}
	facts := &scriptedTool{
		name:      "get_company_facts",
		responses: []tools.Response{tools.Ok(map[string]any{"facts": "ok"})},
	}
	registry := tools.NewRegistry()
	registry.Register(flaky)
	registry.Register(facts)

	replanner := &stubReplanner{
		step: Step{Number: 1, Description: "Use facts instead", ActionType: ActionToolCall,
			Tool: "get_company_facts", ToolParameters: map[string]any{"identifier": "AAPL"}},
		ok: true,
	}
	exec := NewExecutor(registry, NewFallbackEngine(), replanner, nil, testLogger(t))

	plan := []Step{{Number: 1, Description: "Read filing", ActionType: ActionToolCall, Tool: "get_filing_content",
		ToolParameters: map[string]any{"identifier": "AAPL"}}}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if replanner.calls != 1 {
		t.Fatalf("expected one replanner call, got %d", replanner.calls)
	}
	if len(trace) != 1 || trace[0].Status != StatusSuccess || trace[0].Tool != "get_company_facts" {
		t.Fatalf("expected recovery via replanned step, got %+v", trace)
	}
}

func TestExecutePlan_NoAlternativeFoundAborts(t *testing.T) {
	flaky := &scriptedTool{
		name:      "get_filing_content",
		responses: []tools.Response{tools.Fail("document parse error")},
	}
	registry := tools.NewRegistry()
	registry.Register(flaky)

	replanner := &stubReplanner{ok: false}
	exec := NewExecutor(registry, NewFallbackEngine(), replanner, nil, testLogger(t))

	plan := []Step{{Number: 1, Description: "Read filing", ActionType: ActionToolCall, Tool: "get_filing_content",
		ToolParameters: map[string]any{"identifier": "AAPL"}}}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if trace[0].Error != "Could not find alternative approach" {
		t.Errorf("unexpected abort message: %q", trace[0].Error)
	}
}

func TestExecutePlan_UnknownActionTypeAborts(t *testing.T) {
	registry := tools.NewRegistry()
	exec := newTestExecutor(t, registry)

	plan := []Step{
		{Number: 1, Description: "Bogus", ActionType: "teleport"},
		{Number: 2, Description: "Never reached", ActionType: ActionSynthesis},
	}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if !trace.Partial() {
		t.Fatal("expected a partial trace")
	}
	if trace[0].Error != "Unknown action_type 'teleport'" {
		t.Errorf("unexpected error: %q", trace[0].Error)
	}
	if len(trace) != 2 || trace[1].Status != StatusSkipped {
		t.Errorf("expected a skip note for the remaining step, got %+v", trace)
	}
}

func TestExecutePlan_UnknownToolIsUnrecoverable(t *testing.T) {
	registry := tools.NewRegistry()
	exec := newTestExecutor(t, registry)

	plan := []Step{{Number: 1, Description: "Call ghost", ActionType: ActionToolCall, Tool: "get_stock_price",
		ToolParameters: map[string]any{}}}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if !trace.Partial() {
		t.Fatal("expected a partial trace")
	}
	if trace[0].Error != "Invalid tool 'get_stock_price'" {
		t.Errorf("unexpected error: %q", trace[0].Error)
	}
}

func TestExecutePlan_PolicyDenialBlocksTool(t *testing.T) {
	tool := &scriptedTool{
		name:      "get_filing_content",
		responses: []tools.Response{tools.Ok(nil)},
	}
	registry := tools.NewRegistry()
	registry.Register(tool)

	gov := governance.NewDefaultPolicyEngine()
	gov.DenyTool("get_filing_content")

	exec := NewExecutor(registry, NewFallbackEngine(), nil, gov, testLogger(t))

	plan := []Step{{Number: 1, Description: "Read filing", ActionType: ActionToolCall, Tool: "get_filing_content",
		ToolParameters: map[string]any{"identifier": "AAPL"}}}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if len(tool.calls) != 0 {
		t.Error("denied tool must never execute")
	}
	if !trace.Partial() {
		t.Fatal("expected a partial trace")
	}
}

func TestExecutePlan_ReasoningOnlyPlan(t *testing.T) {
	exec := newTestExecutor(t, tools.NewRegistry())
	plan := []Step{
		{Number: 1, Description: "Deduce", ActionType: ActionReasoning, ExpectedOutput: "fiscal year 2024"},
		{Number: 2, Description: "Answer", ActionType: ActionSynthesis},
	}
	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)

	if trace.Partial() {
		t.Error("reasoning-only plan should complete")
	}
	if trace[0].Status != StatusCompleted || trace[1].Status != StatusPending {
		t.Errorf("unexpected statuses: %s, %s", trace[0].Status, trace[1].Status)
	}
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	first := &scriptedTool{name: "get_company_facts", responses: []tools.Response{tools.Fail("old")}}
	second := &scriptedTool{name: "get_company_facts", responses: []tools.Response{tools.Ok(nil)}}

	registry := tools.NewRegistry()
	registry.Register(first)
	registry.Register(second)

	got := registry.Get("get_company_facts")
	if got != tools.Tool(second) {
		t.Error("expected the second registration to win")
	}
	if len(registry.Names()) != 1 {
		t.Errorf("expected one name, got %v", registry.Names())
	}
}

// Exercise the invalid-parameter path end to end.
type strictTool struct{}

func (strictTool) Name() string               { return "strict" }
func (strictTool) Description() string        { return "rejects unknown params" }
func (strictTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (strictTool) Execute(ctx context.Context, params map[string]any) (tools.Response, error) {
	var args struct {
		Ticker string `json:"ticker"`
	}
	if err := tools.DecodeParams(params, &args); err != nil {
		return tools.Response{}, err
	}
	return tools.Ok(map[string]any{"ticker": args.Ticker}), nil
}

func TestExecutePlan_InvalidParametersAbortWithoutRecovery(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(strictTool{})

	exec := newTestExecutor(t, registry)
	plan := []Step{{Number: 1, Description: "Strict call", ActionType: ActionToolCall, Tool: "strict",
		ToolParameters: map[string]any{"nonsense": true}}}

	trace := exec.ExecutePlan(context.Background(), RunContext{ChatID: "test"}, plan)
	if !trace.Partial() {
		t.Fatal("expected a partial trace")
	}
	// No fallback matches a parameter contract violation and there is no
	// replanner, so the step aborts after one attempt.
	if trace[0].Error != "Could not find alternative approach" {
		t.Errorf("unexpected error: %q", trace[0].Error)
	}
}
