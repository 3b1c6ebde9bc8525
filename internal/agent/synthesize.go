package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/secagent/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// Synthesizer turns an execution trace into a natural-language answer.
type Synthesizer struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewSynthesizer(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Synthesizer {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Synthesizer{Model: model, Prompts: prompts, Logger: logger}
}

// Synthesize builds the transcript of what happened and asks the model
// for an answer. A partial trace gets honest-disclosure instructions.
func (s *Synthesizer) Synthesize(ctx context.Context, chatID, query string, trace Trace) (string, error) {
	transcript := buildTranscript(query, trace)

	content, err := generateText(ctx, s.Model, []llms.MessageContent{
		systemMessage(s.Prompts.SynthesisPrompt()),
		humanMessage(transcript),
	})
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	s.Logger.LogLLM(chatID, "synthesis", transcript, content)

	if content == "" {
		return "I processed your query but couldn't generate a response.", nil
	}
	return content, nil
}

func buildTranscript(query string, trace Trace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original Question: %s\n\nExecution Plan and Results:\n", query)

	for _, r := range trace {
		fmt.Fprintf(&b, "\nStep %d: %s [%s]\n", r.Step, r.Description, r.ActionType)
		fmt.Fprintf(&b, "Status: %s\n", r.Status)

		switch r.ActionType {
		case ActionReasoning:
			fmt.Fprintf(&b, "Output: %v\n", r.Output)
		case ActionToolCall:
			if r.Status == StatusFailed {
				fmt.Fprintf(&b, "Tool Attempted: %s\n", r.Tool)
				fmt.Fprintf(&b, "Error: %s\n", r.Error)
			} else {
				fmt.Fprintf(&b, "Tool Used: %s\n", r.Tool)
				fmt.Fprintf(&b, "Result: %v\n", r.Output)
			}
		case ActionNote:
			fmt.Fprintf(&b, "Note: %s\n", r.Description)
		}
	}

	if trace.Partial() {
		b.WriteString(`

IMPORTANT: This query resulted in PARTIAL SUCCESS. Some steps failed.

Instructions for your response:
1. Present the information from successful steps clearly
2. Explain what could not be retrieved and why
3. Suggest what the user could try instead
4. Be helpful and transparent about limitations

Provide a clear, honest answer based on what was successfully retrieved.`)
	} else {
		b.WriteString("\nBased on the execution results above, provide a clear, natural language answer to the user's question. Be concise and accurate.")
	}
	return b.String()
}
