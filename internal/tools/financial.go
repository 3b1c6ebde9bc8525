package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/secagent/internal/edgar"
)

// metricTags maps user-facing metric names to candidate us-gaap tags,
// tried in order. Companies differ in which tag they report under.
var metricTags = map[string][]string{
	"revenue": {
		"Revenues",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"SalesRevenueNet",
	},
	"net_income": {
		"NetIncomeLoss",
		"ProfitLoss",
	},
	"cash_flow": {
		"NetCashProvidedByUsedInOperatingActivities",
	},
	"assets":      {"Assets"},
	"liabilities": {"Liabilities"},
	"equity":      {"StockholdersEquity"},
	"eps":         {"EarningsPerShareBasic", "EarningsPerShareDiluted"},
}

// FinancialDataTool extracts a single financial metric for a company and
// fiscal year from the XBRL companyconcept endpoint.
type FinancialDataTool struct {
	Client *edgar.Client
}

func NewFinancialDataTool(client *edgar.Client) *FinancialDataTool {
	return &FinancialDataTool{Client: client}
}

func (t *FinancialDataTool) Name() string { return "get_financial_data" }

func (t *FinancialDataTool) Description() string {
	return "Get a specific financial metric (revenue, net_income, cash_flow, assets, liabilities, equity, eps) for a company and fiscal year."
}

func (t *FinancialDataTool) Parameters() map[string]any {
	metrics := make([]string, 0, len(metricTags))
	for m := range metricTags {
		metrics = append(metrics, m)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{
				"type":        "string",
				"description": "Company ticker (e.g., AAPL) or CIK number",
			},
			"metric": map[string]any{
				"type":        "string",
				"enum":        metrics,
				"description": "The financial metric to retrieve",
			},
			"year": map[string]any{
				"type":        "integer",
				"description": "Fiscal year to retrieve the metric for",
			},
		},
		"required": []string{"identifier", "metric"},
	}
}

func (t *FinancialDataTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	identifier := StringParam(params, "identifier", "cik_or_ticker", "ticker")
	metric := strings.ToLower(StringParam(params, "metric"))
	year, hasYear := IntParam(params, "year")

	if identifier == "" || metric == "" {
		return Response{}, fmt.Errorf("%w: identifier and metric are required", ErrInvalidParameters)
	}
	tags, ok := metricTags[metric]
	if !ok {
		return Response{}, fmt.Errorf("%w: unknown metric %q", ErrInvalidParameters, metric)
	}

	record, err := t.Client.ResolveCompany(ctx, identifier)
	if err != nil {
		return Fail("%v", err), nil
	}

	// Companies report the same economic quantity under different GAAP
	// tags; walk the alternatives until one yields data.
	for _, tag := range tags {
		concept, err := t.Client.CompanyConcept(ctx, record.CIK, tag)
		if err != nil {
			if errors.Is(err, edgar.ErrNotFound) {
				continue
			}
			return Fail("failed to get %s: %v", metric, err), nil
		}

		if unit, value, found := pickAnnualValue(concept.Units, year, hasYear); found {
			return Ok(map[string]any{
				"company":       record.Name,
				"cik":           record.CIK,
				"metric":        metric,
				"gaap_tag":      tag,
				"value":         value.Value,
				"unit":          unit,
				"fiscal_year":   value.FiscalYear,
				"fiscal_period": value.FiscalPeriod,
				"period_end":    value.End,
				"form":          value.Form,
			}), nil
		}
	}

	if hasYear {
		return Fail("Metric '%s' not found for %s in %d", metric, record.Name, year), nil
	}
	return Fail("Metric '%s' not found for %s", metric, record.Name), nil
}

// pickAnnualValue prefers full-year (FY) 10-K values; when no year is
// requested it returns the most recent one.
func pickAnnualValue(units map[string][]edgar.FactValue, year int, hasYear bool) (string, edgar.FactValue, bool) {
	var (
		bestUnit string
		best     edgar.FactValue
		found    bool
	)
	for unit, values := range units {
		for _, v := range values {
			if v.FiscalPeriod != "FY" {
				continue
			}
			if hasYear && v.FiscalYear != year {
				continue
			}
			if !found || v.End > best.End {
				bestUnit, best, found = unit, v, true
			}
		}
	}
	return bestUnit, best, found
}
