package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// Planner turns a validated query plus its extracted entities into an
// ordered step list. The executor treats the planner as an opaque
// upstream producer; a nil plan means the query should be answered with
// an apology instead of executed.
type Planner struct {
	Model    llms.Model
	Registry *tools.Registry
	Prompts  *PromptManager
	Logger   *observability.Logger
}

func NewPlanner(model llms.Model, registry *tools.Registry, prompts *PromptManager, logger *observability.Logger) *Planner {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Planner{Model: model, Registry: registry, Prompts: prompts, Logger: logger}
}

type planEnvelope struct {
	Plan []Step `json:"plan"`
}

// CreatePlan asks the model for a JSON plan. Parse failures return nil,
// not an error: an unplannable query is an expected outcome.
func (p *Planner) CreatePlan(ctx context.Context, chatID, query string, entities any) []Step {
	instructions := p.Prompts.PlannerPrompt()

	prompt := fmt.Sprintf("%s\n\n%s\n\n%s",
		instructions,
		buildQueryContext(query, entities),
		FormatToolCatalog(p.Registry))

	content, err := generateText(ctx, p.Model, []llms.MessageContent{humanMessage(prompt)})
	if err != nil {
		log.Printf("[Planner] LLM call failed: %v", err)
		return nil
	}
	p.Logger.LogLLM(chatID, "plan", prompt, content)

	var envelope planEnvelope
	if err := json.Unmarshal([]byte(extractJSON(content)), &envelope); err != nil {
		log.Printf("[Planner] Failed to parse plan JSON: %v", err)
		return nil
	}
	if len(envelope.Plan) == 0 {
		log.Printf("[Planner] Model returned an empty plan")
		return nil
	}

	p.Logger.Log(observability.Event{
		Type:   observability.EventTypePlan,
		ChatID: chatID,
		Data:   map[string]any{"steps": len(envelope.Plan)},
	})
	return envelope.Plan
}

// buildQueryContext renders the query and extracted entities for the
// planning prompt.
func buildQueryContext(query string, entities any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Query: %s\n\n", query)
	if entities != nil {
		data, err := json.MarshalIndent(entities, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "Extracted Information:\n%s\n", data)
		}
	}
	b.WriteString("\nPlease use the available tools to answer this query accurately.")
	return b.String()
}

// FormatToolCatalog renders every registered tool contract as prompt text.
func FormatToolCatalog(registry *tools.Registry) string {
	var b strings.Builder
	b.WriteString("Available Tools:\n\n")

	names := registry.Names()
	sort.Strings(names)

	for _, name := range names {
		t := registry.Get(name)
		fmt.Fprintf(&b, "Tool: %s\n", t.Name())
		fmt.Fprintf(&b, "Description: %s\n", t.Description())
		b.WriteString("Parameters:\n")

		schema := t.Parameters()
		props, _ := schema["properties"].(map[string]any)
		required := map[string]bool{}
		if req, ok := schema["required"].([]string); ok {
			for _, r := range req {
				required[r] = true
			}
		}

		propNames := make([]string, 0, len(props))
		for p := range props {
			propNames = append(propNames, p)
		}
		sort.Strings(propNames)

		for _, pname := range propNames {
			info, _ := props[pname].(map[string]any)
			ptype, _ := info["type"].(string)
			pdesc, _ := info["description"].(string)
			requiredness := "optional"
			if required[pname] {
				requiredness = "REQUIRED"
			}
			fmt.Fprintf(&b, "  - %s (%s, %s): %s\n", pname, ptype, requiredness, pdesc)

			if enum, ok := info["enum"].([]string); ok && len(enum) > 0 {
				fmt.Fprintf(&b, "    Valid values: %s\n", strings.Join(enum, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
