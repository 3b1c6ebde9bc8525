package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/secagent/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// RejectionMessage is returned verbatim for out-of-scope queries.
const RejectionMessage = "My purpose is to answer questions about public companies using SEC filings. Please ask a relevant question."

// Verdict is the scope-check result.
type Verdict struct {
	IsRelated bool   `json:"is_related"`
	Reason    string `json:"reason"`
}

// Validator gates queries on topical scope before any planning happens.
type Validator struct {
	Model  llms.Model
	Logger *observability.Logger
}

func NewValidator(model llms.Model, logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Validator{Model: model, Logger: logger}
}

// CheckScope asks the model whether the query belongs to the financial
// domain. On an unparseable response the query is let through; the
// planner is the next line of defense.
func (v *Validator) CheckScope(ctx context.Context, chatID, query string) (Verdict, error) {
	prompt := fmt.Sprintf(`Is the following user query related to public companies, finance, the stock market, or SEC filings?
Respond with a JSON object containing two keys: "is_related" (boolean) and "reason" (string).

User Query: "%s"`, query)

	resp, err := v.Model.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prompt)}},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("scope check failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("scope check returned no choices")
	}
	content := resp.Choices[0].Content

	v.Logger.Log(observability.Event{
		Type:   observability.EventTypeScope,
		ChatID: chatID,
		Data:   map[string]any{"query": query, "response": content},
	})

	var verdict Verdict
	if err := json.Unmarshal([]byte(stripFences(content)), &verdict); err != nil {
		return Verdict{IsRelated: true, Reason: "scope response unparseable"}, nil
	}
	return verdict, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
