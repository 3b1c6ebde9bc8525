package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/rahul/secagent/internal/governance"
	"github.com/rahul/secagent/internal/observability"
	"github.com/rahul/secagent/internal/tools"
)

// Recovery budgets. Attempts reset per step; the replanning total is
// shared across the whole run.
const (
	DefaultMaxReplanningAttempts = 2
	DefaultMaxTotalReplannings   = 5
)

// RunContext carries the per-run inputs recovery needs. Each run owns its
// context and budget counters; an Executor holds no per-run state and may
// serve concurrent runs.
type RunContext struct {
	ChatID   string
	Query    string
	Entities any
}

// StepReplanner generates a brand-new step after deterministic fallbacks
// are exhausted. A false return means no alternative was found.
type StepReplanner interface {
	Replan(ctx context.Context, run RunContext, failed Step, errMsg string, completed Trace, attempts []Attempt) (Step, bool)
}

// Executor runs a plan step by step, recovering from tool failures with
// predefined fallbacks first and LLM replanning last, within strict
// budgets. On exhaustion it fails fast: the remaining plan is abandoned
// and the trace ends with a failed record plus a skip note.
type Executor struct {
	Registry  *tools.Registry
	Fallback  *FallbackEngine
	Replanner StepReplanner
	Policy    governance.PolicyEngine
	Logger    *observability.Logger

	MaxReplanningAttempts int
	MaxTotalReplannings   int
}

func NewExecutor(registry *tools.Registry, fallback *FallbackEngine, replanner StepReplanner, policy governance.PolicyEngine, logger *observability.Logger) *Executor {
	if fallback == nil {
		fallback = NewFallbackEngine()
	}
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Executor{
		Registry:              registry,
		Fallback:              fallback,
		Replanner:             replanner,
		Policy:                policy,
		Logger:                logger,
		MaxReplanningAttempts: DefaultMaxReplanningAttempts,
		MaxTotalReplannings:   DefaultMaxTotalReplannings,
	}
}

// ExecutePlan executes the plan in order. It always returns a trace: fully
// successful, or partial with the failure recorded as the last real entry.
func (e *Executor) ExecutePlan(ctx context.Context, run RunContext, plan []Step) Trace {
	results := make(Trace, 0, len(plan))
	totalReplannings := 0

	for stepIndex, step := range plan {
		log.Printf("[Executor] Step %d: %s (type: %s)", step.Number, step.Description, step.ActionType)

		switch step.ActionType {
		case ActionReasoning:
			// Reasoning is resolved during planning; carry the declared
			// output through.
			results = append(results, StepResult{
				Step:        step.Number,
				Description: step.Description,
				ActionType:  ActionReasoning,
				Status:      StatusCompleted,
				Output:      step.ExpectedOutput,
				Reasoning:   step.Reasoning,
			})
			e.Logger.LogStep(run.ChatID, step.Number, step.Description, StatusCompleted)
			continue

		case ActionSynthesis:
			// Synthesis happens once, after the whole trace is built.
			results = append(results, StepResult{
				Step:           step.Number,
				Description:    step.Description,
				ActionType:     ActionSynthesis,
				Status:         StatusPending,
				ExpectedOutput: step.ExpectedOutput,
			})
			e.Logger.LogStep(run.ChatID, step.Number, step.Description, StatusPending)
			continue

		case ActionToolCall:
			// handled below

		default:
			errMsg := fmt.Sprintf("Unknown action_type '%s'", step.ActionType)
			return e.partialResult(run, results, step, plan[stepIndex+1:], errMsg)
		}

		var attempts []Attempt
		replanAttempts := 0
		current := step

		for {
			result, errMsg := e.executeToolStep(ctx, run, current)
			if errMsg == "" {
				results = append(results, result)
				e.Logger.LogStep(run.ChatID, current.Number, current.Description, StatusSuccess)
				break
			}

			log.Printf("[Executor] Step %d attempt %d failed: %s", current.Number, replanAttempts+1, errMsg)
			attempts = append(attempts, Attempt{
				Tool:       current.Tool,
				Parameters: current.ToolParameters,
				Error:      errMsg,
			})

			if replanAttempts >= e.MaxReplanningAttempts {
				log.Printf("[Executor] Step %d: exhausted per-step recovery budget", current.Number)
				return e.partialResult(run, results, current, plan[stepIndex+1:], errMsg)
			}
			if totalReplannings >= e.MaxTotalReplannings {
				log.Printf("[Executor] Exceeded total replanning budget (%d)", e.MaxTotalReplannings)
				return e.partialResult(run, results, current, plan[stepIndex+1:],
					"Exceeded maximum replanning attempts for this query")
			}

			class := ClassifyError(errMsg)
			e.Logger.LogClassification(run.ChatID, errMsg, string(class))
			if class == ErrorUnrecoverable {
				log.Printf("[Executor] Step %d: unrecoverable error", current.Number)
				return e.partialResult(run, results, current, plan[stepIndex+1:], errMsg)
			}

			if next, ok := e.Fallback.Propose(current, errMsg, attempts); ok {
				e.Logger.LogFallback(run.ChatID, current.Number, next.Description)
				current = next
				replanAttempts++
				totalReplannings++
				continue
			}

			if e.Replanner != nil {
				if next, ok := e.Replanner.Replan(ctx, run, current, errMsg, results, attempts); ok {
					e.Logger.Log(observability.Event{
						Type:   observability.EventTypeReplan,
						ChatID: run.ChatID,
						Data:   map[string]any{"step": current.Number, "tool": next.Tool},
					})
					current = next
					replanAttempts++
					totalReplannings++
					continue
				}
			}

			return e.partialResult(run, results, current, plan[stepIndex+1:],
				"Could not find alternative approach")
		}
	}

	log.Printf("[Executor] All %d steps executed successfully (with %d replannings)", len(results), totalReplannings)
	return results
}

// executeToolStep performs exactly one tool invocation. A non-empty errMsg
// is the uniform failure signal consumed by the recovery loop; no error
// ever propagates out of an attempt.
func (e *Executor) executeToolStep(ctx context.Context, run RunContext, step Step) (StepResult, string) {
	tool := e.Registry.Get(step.Tool)
	if step.Tool == "" || tool == nil {
		return StepResult{}, fmt.Sprintf("Invalid tool '%s'", step.Tool)
	}

	if e.Policy != nil {
		argsJSON, _ := json.Marshal(step.ToolParameters)
		verdict, err := e.Policy.Evaluate(ctx, governance.Request{
			Tool:      step.Tool,
			Arguments: string(argsJSON),
			ChatID:    run.ChatID,
		})
		if err == nil && verdict.Effect == governance.EffectDeny {
			e.Logger.Log(observability.Event{
				Type:   observability.EventTypePolicyCheck,
				ChatID: run.ChatID,
				Data:   map[string]any{"tool": step.Tool, "effect": verdict.Effect, "reason": verdict.Reason},
			})
			return StepResult{}, fmt.Sprintf("Tool '%s' blocked by policy: %s", step.Tool, verdict.Reason)
		}
	}

	e.Logger.LogToolCall(run.ChatID, step.Tool, step.ToolParameters)
	resp, err := tool.Execute(ctx, step.ToolParameters)
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrCapabilityNotFound):
			return StepResult{}, fmt.Sprintf("Method not found on tool '%s'", step.Tool)
		case errors.Is(err, tools.ErrInvalidParameters):
			return StepResult{}, fmt.Sprintf("Invalid parameters for %s: %v", step.Tool, err)
		default:
			return StepResult{}, err.Error()
		}
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return StepResult{}, msg
	}

	e.Logger.Log(observability.Event{
		Type:   observability.EventTypeToolResult,
		ChatID: run.ChatID,
		Data:   map[string]any{"tool": step.Tool, "success": true},
	})

	return StepResult{
		Step:           step.Number,
		Description:    step.Description,
		ActionType:     ActionToolCall,
		Status:         StatusSuccess,
		Tool:           step.Tool,
		Parameters:     step.ToolParameters,
		Output:         resp.Data,
		ExpectedOutput: step.ExpectedOutput,
	}, ""
}

// partialResult closes out an aborted run: one failed record for the step
// that exhausted recovery, then a note covering every step never reached.
func (e *Executor) partialResult(run RunContext, completed Trace, failed Step, remaining []Step, errMsg string) Trace {
	log.Printf("[Executor] Partial success: %d completed, step %d failed", len(completed), failed.Number)

	completed = append(completed, StepResult{
		Step:           failed.Number,
		Description:    failed.Description,
		ActionType:     ActionToolCall,
		Status:         StatusFailed,
		Tool:           failed.Tool,
		Parameters:     failed.ToolParameters,
		Error:          errMsg,
		PartialSuccess: true,
	})
	e.Logger.LogStep(run.ChatID, failed.Number, failed.Description, StatusFailed)

	if len(remaining) > 0 {
		skipped := make([]string, 0, len(remaining))
		for _, s := range remaining {
			skipped = append(skipped, s.Description)
		}
		completed = append(completed, StepResult{
			Description:  fmt.Sprintf("Skipped %d remaining steps due to failure", len(remaining)),
			ActionType:   ActionNote,
			Status:       StatusSkipped,
			SkippedSteps: skipped,
		})
	}
	return completed
}
