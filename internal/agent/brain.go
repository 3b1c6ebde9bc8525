package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/query"
)

// Brain defines the core intelligence interface for the agent.
type Brain interface {
	Think(ctx context.Context, chatID string, input string) (string, error)
}

// HistoryStore is the persistence the agent needs per conversation.
type HistoryStore interface {
	AddMessage(chatID string, role string, content string) error
	SaveRun(chatID, userQuery string, trace any, answer string, partial bool) error
}

// ScopeChecker gates queries before any planning happens.
type ScopeChecker interface {
	CheckScope(ctx context.Context, chatID, userQuery string) (query.Verdict, error)
}

// EntityParser extracts companies, metrics and time periods from a query.
type EntityParser interface {
	Parse(ctx context.Context, userQuery string) query.Parsed
}

// SecAgent is the full pipeline: scope check, entity extraction,
// planning, plan execution with recovery, answer synthesis.
type SecAgent struct {
	Validator   ScopeChecker
	Parser      EntityParser
	Planner     *Planner
	Executor    *Executor
	Synthesizer *Synthesizer
	History     HistoryStore
	Logger      *observability.Logger
}

func NewSecAgent(validator ScopeChecker, parser EntityParser, planner *Planner, executor *Executor, synthesizer *Synthesizer, history HistoryStore, logger *observability.Logger) *SecAgent {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &SecAgent{
		Validator:   validator,
		Parser:      parser,
		Planner:     planner,
		Executor:    executor,
		Synthesizer: synthesizer,
		History:     history,
		Logger:      logger,
	}
}

func (a *SecAgent) Think(ctx context.Context, chatID string, input string) (string, error) {
	defer observability.SetStatus(observability.PhaseIdle, "")

	// 1. Scope check
	observability.SetStatus(observability.PhaseValidating, input)
	verdict, err := a.Validator.CheckScope(ctx, chatID, input)
	if err != nil {
		return "", err
	}
	if !verdict.IsRelated {
		log.Printf("[Agent] Query rejected as out of scope: %s", verdict.Reason)
		a.remember(chatID, input, query.RejectionMessage)
		return query.RejectionMessage, nil
	}

	// 2. Entity extraction
	entities := a.Parser.Parse(ctx, input)

	// 3. Planning
	observability.SetStatus(observability.PhasePlanning, input)
	plan := a.Planner.CreatePlan(ctx, chatID, input, entities)
	if plan == nil {
		answer := "I couldn't work out a plan to answer that. Could you rephrase the question?"
		a.remember(chatID, input, answer)
		return answer, nil
	}

	// 4. Execution
	observability.SetStatus(observability.PhaseExecuting, input)
	run := RunContext{ChatID: chatID, Query: input, Entities: entities}
	trace := a.Executor.ExecutePlan(ctx, run, plan)

	// 5. Synthesis
	observability.SetStatus(observability.PhaseSynthesizing, input)
	answer, err := a.Synthesizer.Synthesize(ctx, chatID, input, trace)
	if err != nil {
		log.Printf("[Agent] Synthesis failed: %v", err)
		answer = fmt.Sprintf("I retrieved the data but encountered an error formatting the response: %v", err)
	}

	a.remember(chatID, input, answer)
	if err := a.History.SaveRun(chatID, input, trace, answer, trace.Partial()); err != nil {
		log.Printf("[Agent] Failed to persist run: %v", err)
	}
	return answer, nil
}

func (a *SecAgent) remember(chatID, input, answer string) {
	if err := a.History.AddMessage(chatID, "human", input); err != nil {
		log.Printf("[Agent] Failed to persist message: %v", err)
	}
	if err := a.History.AddMessage(chatID, "ai", answer); err != nil {
		log.Printf("[Agent] Failed to persist message: %v", err)
	}
}
