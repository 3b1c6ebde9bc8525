package agent

import (
	"log"
	"os"
	"path/filepath"
)

// Default prompts compiled into the binary. Files in the prompts
// directory override these, so operators can tune wording without a
// rebuild.
const defaultPlannerPrompt = `You are an expert SEC financial data analyst. Create a detailed step-by-step plan to answer the user's query.

Create a JSON plan with the following structure:
{
  "plan": [
    {
      "step": 1,
      "description": "What this step does",
      "action_type": "reasoning | tool_call | synthesis",
      "tool": "tool_name or null",
      "tool_parameters": {"param": "value"} or null,
      "expected_output": "What you expect to get from this step",
      "reasoning": "Why this step is needed"
    }
  ]
}

Action types:
- "reasoning": Pure logical deduction (e.g., resolving "last year" to a concrete year)
- "tool_call": Execute a tool to fetch data
- "synthesis": Format final answer for user

IMPORTANT GUIDELINES:
1. Resolve vague time periods (e.g., "last year", "current") to concrete years
2. Map user terminology to correct metrics (e.g., "profit" -> "net_income")
3. Use exact tool names and parameter names as defined below
4. Ensure all required parameters are provided
5. Keep the plan focused - only necessary steps
6. The last step should usually be "synthesis" to format the answer

Return ONLY the JSON, no other text.`

const defaultSynthesisPrompt = `You are a helpful SEC financial data assistant. Synthesize the execution results into a clear, natural language answer. If there were failures, be transparent about what couldn't be retrieved.`

// PromptManager loads prompt text from a directory, falling back to the
// compiled-in defaults when a file is missing.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) load(name, fallback string) string {
	if pm == nil || pm.Directory == "" {
		return fallback
	}
	path := filepath.Join(pm.Directory, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
		}
		return fallback
	}
	return string(data)
}

// PlannerPrompt returns the planning instructions.
func (pm *PromptManager) PlannerPrompt() string {
	return pm.load("planner.md", defaultPlannerPrompt)
}

// SynthesisPrompt returns the system message for answer synthesis.
func (pm *PromptManager) SynthesisPrompt() string {
	return pm.load("synthesis.md", defaultSynthesisPrompt)
}
