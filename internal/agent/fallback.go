package agent

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed strategies.yaml
var strategiesYAML []byte

// fallbackStrategy is one static, named parameter transform keyed by
// failure category. The table is read-only after startup.
type fallbackStrategy struct {
	Description      string            `yaml:"description"`
	AlternativeForms map[string]string `yaml:"alternative_forms"`
	Action           string            `yaml:"action"`
	Offset           int               `yaml:"offset"`
	RemoveSuffixes   []string          `yaml:"remove_suffixes"`
}

var fallbackStrategies map[string][]fallbackStrategy

func init() {
	if err := yaml.Unmarshal(strategiesYAML, &fallbackStrategies); err != nil {
		panic(fmt.Sprintf("malformed embedded strategy table: %v", err))
	}
}

// DefaultMinFallbackYear bounds how far back the year-decrement strategy
// will probe for older filings.
const DefaultMinFallbackYear = 2010

// FallbackEngine proposes deterministic alternative steps for known
// failure categories. Every proposal is checked against the attempt
// history so the retry loop never repeats an identical approach.
type FallbackEngine struct {
	MinYear int
}

func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{MinYear: DefaultMinFallbackYear}
}

// Propose returns a substitute step for the failed one, or ok=false when
// no predefined strategy applies and LLM replanning should take over.
func (e *FallbackEngine) Propose(failed Step, errMsg string, attempts []Attempt) (Step, bool) {
	lower := strings.ToLower(errMsg)
	if !strings.Contains(lower, "not found") && !strings.Contains(lower, "filings found") {
		return Step{}, false
	}

	switch {
	case strings.Contains(lower, "filing") || strings.Contains(lower, "10-k") || strings.Contains(lower, "10-q"):
		return e.filingNotFound(failed, attempts)
	case strings.Contains(lower, "company") || strings.Contains(lower, "cik"):
		return e.companyNotFound(failed, attempts)
	default:
		return e.dataNotFound(failed, attempts)
	}
}

func (e *FallbackEngine) filingNotFound(failed Step, attempts []Attempt) (Step, bool) {
	params := failed.ToolParameters

	for _, strat := range fallbackStrategies["filing_not_found"] {
		if len(strat.AlternativeForms) > 0 {
			form, _ := params["form_type"].(string)
			alt, ok := strat.AlternativeForms[form]
			if ok && !attemptedValue(attempts, "form_type", alt) {
				next := failed.WithParameters(params)
				next.ToolParameters["form_type"] = alt
				return next, true
			}
		}

		if strat.Action == "adjust_year" {
			year, ok := yearParam(params)
			if !ok {
				continue
			}
			offset := strat.Offset
			if offset == 0 {
				offset = -1
			}
			next := year + offset
			minYear := e.MinYear
			if minYear == 0 {
				minYear = DefaultMinFallbackYear
			}
			if next < minYear || attemptedYear(attempts, next) {
				continue
			}
			// Single-dimension probe: the year change applies to the
			// originally planned parameters, undoing any form swap from
			// an earlier fallback pass.
			base := params
			if len(attempts) > 0 && attempts[0].Parameters != nil {
				base = attempts[0].Parameters
			}
			step := failed.WithParameters(base)
			step.ToolParameters["year"] = next
			return step, true
		}
	}
	return Step{}, false
}

func (e *FallbackEngine) companyNotFound(failed Step, attempts []Attempt) (Step, bool) {
	params := failed.ToolParameters
	identifier := identifierParam(params)
	if identifier == "" {
		return Step{}, false
	}

	for _, strat := range fallbackStrategies["company_not_found"] {
		if strat.Action == "use_search_tool" && !attemptedTool(attempts, "search_companies") {
			return Step{
				Number:         failed.Number,
				Description:    fmt.Sprintf("Search for company: %s", identifier),
				ActionType:     ActionToolCall,
				Tool:           "search_companies",
				ToolParameters: map[string]any{"query": identifier, "limit": 5},
				ExpectedOutput: fmt.Sprintf("Company search results for %s", identifier),
			}, true
		}

		for _, suffix := range strat.RemoveSuffixes {
			if !strings.HasSuffix(identifier, suffix) {
				continue
			}
			clean := strings.TrimSpace(strings.TrimSuffix(identifier, suffix))
			if attemptedValue(attempts, "identifier", clean) {
				continue
			}
			next := failed.WithParameters(params)
			next.ToolParameters["identifier"] = clean
			return next, true
		}
	}
	return Step{}, false
}

func (e *FallbackEngine) dataNotFound(failed Step, attempts []Attempt) (Step, bool) {
	identifier := identifierParam(failed.ToolParameters)
	if identifier == "" {
		return Step{}, false
	}

	for _, strat := range fallbackStrategies["data_not_found"] {
		if strat.Action == "use_facts_api" && !attemptedTool(attempts, "get_company_facts") {
			return Step{
				Number:         failed.Number,
				Description:    "Get company facts as alternative",
				ActionType:     ActionToolCall,
				Tool:           "get_company_facts",
				ToolParameters: map[string]any{"identifier": identifier},
				ExpectedOutput: "Company financial facts",
			}, true
		}
	}
	return Step{}, false
}

func identifierParam(params map[string]any) string {
	for _, key := range []string{"identifier", "cik_or_ticker", "ticker"} {
		if v, ok := params[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func yearParam(params map[string]any) (int, bool) {
	switch v := params["year"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func attemptedTool(attempts []Attempt, tool string) bool {
	for _, a := range attempts {
		if a.Tool == tool {
			return true
		}
	}
	return false
}

func attemptedValue(attempts []Attempt, key, value string) bool {
	for _, a := range attempts {
		if v, ok := a.Parameters[key].(string); ok && v == value {
			return true
		}
	}
	return false
}

func attemptedYear(attempts []Attempt, year int) bool {
	for _, a := range attempts {
		if y, ok := yearParam(a.Parameters); ok && y == year {
			return true
		}
	}
	return false
}
