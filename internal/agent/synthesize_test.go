package agent

import (
	"context"
	"strings"
	"testing"
)

func TestBuildTranscript_FullSuccess(t *testing.T) {
	trace := Trace{
		{Step: 1, Description: "Resolve year", ActionType: ActionReasoning, Status: StatusCompleted, Output: "2023"},
		{Step: 2, Description: "Fetch revenue", ActionType: ActionToolCall, Status: StatusSuccess,
			Tool: "get_financial_data", Output: map[string]any{"value": 383285000000.0}},
		{Step: 3, Description: "Answer", ActionType: ActionSynthesis, Status: StatusPending},
	}

	transcript := buildTranscript("AAPL revenue last year", trace)

	for _, want := range []string{
		"Original Question: AAPL revenue last year",
		"Step 1: Resolve year [reasoning]",
		"Output: 2023",
		"Tool Used: get_financial_data",
		"Be concise and accurate.",
	} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if strings.Contains(transcript, "PARTIAL SUCCESS") {
		t.Error("successful run must not carry partial-success instructions")
	}
}

func TestBuildTranscript_PartialSuccessDisclosure(t *testing.T) {
	trace := Trace{
		{Step: 1, Description: "Look up CIK", ActionType: ActionToolCall, Status: StatusSuccess, Tool: "get_cik_by_ticker"},
		{Step: 2, Description: "Get filings", ActionType: ActionToolCall, Status: StatusFailed,
			Tool: "get_recent_filings", Error: "No 10-K filings found for XYZ in 2023", PartialSuccess: true},
		{Description: "Skipped 2 remaining steps due to failure", ActionType: ActionNote, Status: StatusSkipped,
			SkippedSteps: []string{"Read filing", "Answer"}},
	}

	transcript := buildTranscript("XYZ 10-K 2023", trace)

	for _, want := range []string{
		"Tool Attempted: get_recent_filings",
		"Error: No 10-K filings found for XYZ in 2023",
		"Note: Skipped 2 remaining steps due to failure",
		"PARTIAL SUCCESS",
		"Explain what could not be retrieved and why",
	} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
}

func TestSynthesize_ReturnsModelAnswer(t *testing.T) {
	model := &fakeModel{reply: "Apple's revenue in fiscal 2023 was $383.3 billion."}
	synth := NewSynthesizer(model, NewPromptManager(""), testLogger(t))

	answer, err := synth.Synthesize(context.Background(), "test", "AAPL revenue", Trace{
		{Step: 1, ActionType: ActionToolCall, Status: StatusSuccess, Tool: "get_financial_data"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if answer != model.reply {
		t.Errorf("answer = %q", answer)
	}
}

func TestSynthesize_EmptyReplyGetsPlaceholder(t *testing.T) {
	model := &fakeModel{reply: ""}
	synth := NewSynthesizer(model, NewPromptManager(""), testLogger(t))

	answer, err := synth.Synthesize(context.Background(), "test", "q", Trace{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "couldn't generate a response") {
		t.Errorf("unexpected placeholder: %q", answer)
	}
}
