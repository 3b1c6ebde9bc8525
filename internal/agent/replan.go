package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// LLMReplanner generates a single alternative step after every predefined
// fallback has failed or did not apply. It makes exactly one model call
// per invocation; a reply that fails to parse or lacks the required
// fields counts as "no alternative found", never as a crash.
type LLMReplanner struct {
	Model    llms.Model
	Registry *tools.Registry
	Logger   *observability.Logger
}

func NewLLMReplanner(model llms.Model, registry *tools.Registry, logger *observability.Logger) *LLMReplanner {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &LLMReplanner{Model: model, Registry: registry, Logger: logger}
}

func (r *LLMReplanner) Replan(ctx context.Context, run RunContext, failed Step, errMsg string, completed Trace, attempts []Attempt) (Step, bool) {
	prompt := r.buildPrompt(run, failed, errMsg, completed, attempts)

	content, err := generateText(ctx, r.Model, []llms.MessageContent{humanMessage(prompt)})
	if err != nil {
		log.Printf("[Replanner] LLM call failed: %v", err)
		return Step{}, false
	}
	r.Logger.LogLLM(run.ChatID, "replan", prompt, content)

	var step Step
	if err := json.Unmarshal([]byte(extractJSON(content)), &step); err != nil {
		log.Printf("[Replanner] Failed to parse replanning response: %v", err)
		return Step{}, false
	}
	if step.Tool == "" || step.ToolParameters == nil {
		log.Printf("[Replanner] Replanned step missing required fields")
		return Step{}, false
	}

	step.Number = failed.Number
	step.ActionType = ActionToolCall
	return step, true
}

func (r *LLMReplanner) buildPrompt(run RunContext, failed Step, errMsg string, completed Trace, attempts []Attempt) string {
	entities, _ := json.MarshalIndent(run.Entities, "", "  ")
	failedJSON, _ := json.MarshalIndent(failed, "", "  ")
	attemptsJSON, _ := json.MarshalIndent(attempts, "", "  ")

	// Summarize completed steps; full tool payloads would blow up the
	// prompt without helping the model pick an alternative.
	type stepSummary struct {
		Step        int    `json:"step"`
		Description string `json:"description"`
		Tool        string `json:"tool,omitempty"`
		Status      string `json:"status"`
	}
	summaries := make([]stepSummary, 0, len(completed))
	for _, s := range completed {
		summaries = append(summaries, stepSummary{
			Step: s.Step, Description: s.Description, Tool: s.Tool, Status: s.Status,
		})
	}
	completedJSON, _ := json.MarshalIndent(summaries, "", "  ")

	return fmt.Sprintf(`You are helping an SEC filing analysis agent recover from a failed step.

Original User Query: %s

Extracted Entities: %s

Steps Completed Successfully:
%s

Failed Step:
%s

Error: %s

Attempted Approaches (all failed):
%s

Available Tools:
%s

Task: Generate an ALTERNATIVE approach to achieve the goal of the failed step.

Requirements:
1. Use DIFFERENT tools or parameters than what's been tried
2. Consider using data from completed steps if helpful
3. If exact data is unavailable, suggest the closest alternative
4. Return ONLY a single JSON step object with this structure:
{
  "step": %d,
  "description": "New approach description",
  "action_type": "tool_call",
  "tool": "tool_name",
  "tool_parameters": {"param": "value"},
  "expected_output": "What this should return",
  "reasoning": "Why this alternative might work"
}

Return ONLY the JSON object, no other text.`,
		run.Query, entities, completedJSON, failedJSON, errMsg, attemptsJSON,
		FormatToolCatalog(r.Registry), failed.Number)
}
