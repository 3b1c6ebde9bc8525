package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rahul/secagent/internal/edgar"
)

// CIKLookupTool resolves a ticker symbol to its SEC Central Index Key.
type CIKLookupTool struct {
	Client *edgar.Client
}

func NewCIKLookupTool(client *edgar.Client) *CIKLookupTool {
	return &CIKLookupTool{Client: client}
}

func (t *CIKLookupTool) Name() string { return "get_cik_by_ticker" }

func (t *CIKLookupTool) Description() string {
	return "Get the CIK (Central Index Key) for a company based on its ticker symbol."
}

func (t *CIKLookupTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": "Company ticker symbol (e.g., AAPL, TSLA, MSFT)",
			},
		},
		"required": []string{"ticker"},
	}
}

func (t *CIKLookupTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	var args struct {
		Ticker string `json:"ticker"`
	}
	if err := DecodeParams(params, &args); err != nil {
		return Response{}, err
	}
	if args.Ticker == "" {
		return Response{}, fmt.Errorf("%w: ticker is required", ErrInvalidParameters)
	}

	cik, err := t.Client.CIKByTicker(ctx, args.Ticker)
	if err != nil {
		return Fail("%v", err), nil
	}
	return Ok(map[string]any{
		"cik":        cik,
		"ticker":     args.Ticker,
		"suggestion": fmt.Sprintf("Use CIK '%s' instead of ticker '%s' for more reliable API calls", cik, args.Ticker),
	}), nil
}

// CompanyInfoTool returns company metadata from the submissions index.
type CompanyInfoTool struct {
	Client *edgar.Client
}

func NewCompanyInfoTool(client *edgar.Client) *CompanyInfoTool {
	return &CompanyInfoTool{Client: client}
}

func (t *CompanyInfoTool) Name() string { return "get_company_info" }

func (t *CompanyInfoTool) Description() string {
	return "Get detailed company information including CIK, name, ticker, SIC and industry classification."
}

func (t *CompanyInfoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{
				"type":        "string",
				"description": "Company ticker (e.g., AAPL) or CIK number",
			},
		},
		"required": []string{"identifier"},
	}
}

func (t *CompanyInfoTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	identifier := StringParam(params, "identifier", "cik_or_ticker", "ticker")
	if identifier == "" {
		return Response{}, fmt.Errorf("%w: identifier is required", ErrInvalidParameters)
	}

	record, err := t.Client.ResolveCompany(ctx, identifier)
	if err != nil {
		return Fail("%v", err), nil
	}

	company := map[string]any{
		"cik":    record.CIK,
		"name":   record.Name,
		"ticker": record.Ticker,
	}
	// Enrich from the submissions index when reachable; the basic record
	// is still a valid answer if this lookup fails.
	if subs, err := t.Client.Submissions(ctx, record.CIK); err == nil {
		company["sic"] = subs.SIC
		company["sic_description"] = subs.SICDesc
	}

	return Ok(map[string]any{"company": company}), nil
}

// CompanySearchTool finds companies by full or partial name.
type CompanySearchTool struct {
	Client *edgar.Client
}

func NewCompanySearchTool(client *edgar.Client) *CompanySearchTool {
	return &CompanySearchTool{Client: client}
}

func (t *CompanySearchTool) Name() string { return "search_companies" }

func (t *CompanySearchTool) Description() string {
	return "Search for companies by name and get a list of matching companies with their CIKs and tickers."
}

func (t *CompanySearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Company name or partial name to search for",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return",
			},
		},
		"required": []string{"query"},
	}
}

func (t *CompanySearchTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	query := StringParam(params, "query", "identifier")
	if query == "" {
		return Response{}, fmt.Errorf("%w: query is required", ErrInvalidParameters)
	}
	limit, _ := IntParam(params, "limit")

	matches, err := t.Client.SearchCompanies(ctx, query, limit)
	if err != nil {
		return Fail("failed to search companies: %v", err), nil
	}

	companies := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		companies = append(companies, map[string]any{
			"cik": m.CIK, "name": m.Name, "ticker": m.Ticker,
		})
	}
	return Ok(map[string]any{"companies": companies, "count": len(companies)}), nil
}

// CompanyFactsTool returns the key GAAP metrics a company most recently
// reported, extracted from the companyfacts XBRL endpoint.
type CompanyFactsTool struct {
	Client *edgar.Client
}

func NewCompanyFactsTool(client *edgar.Client) *CompanyFactsTool {
	return &CompanyFactsTool{Client: client}
}

func (t *CompanyFactsTool) Name() string { return "get_company_facts" }

func (t *CompanyFactsTool) Description() string {
	return "Get comprehensive company facts and financial data including assets, liabilities, revenues, net income, EPS and cash."
}

func (t *CompanyFactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{
				"type":        "string",
				"description": "Company ticker (e.g., AAPL) or CIK number",
			},
		},
		"required": []string{"identifier"},
	}
}

// keyMetrics is the subset of GAAP tags surfaced by get_company_facts.
var keyMetrics = []string{
	"Assets",
	"Liabilities",
	"StockholdersEquity",
	"Revenues",
	"NetIncomeLoss",
	"EarningsPerShareBasic",
	"CashAndCashEquivalentsAtCarryingValue",
	"CommonStockSharesOutstanding",
}

func (t *CompanyFactsTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	identifier := StringParam(params, "identifier", "cik_or_ticker", "ticker")
	if identifier == "" {
		return Response{}, fmt.Errorf("%w: identifier is required", ErrInvalidParameters)
	}

	record, err := t.Client.ResolveCompany(ctx, identifier)
	if err != nil {
		return Fail("%v", err), nil
	}

	facts, err := t.Client.CompanyFacts(ctx, record.CIK)
	if err != nil {
		if errors.Is(err, edgar.ErrNotFound) {
			return Fail("no facts available for company %s", record.Name), nil
		}
		return Fail("failed to get company facts: %v", err), nil
	}

	gaap := facts.Facts["us-gaap"]
	metrics := map[string]any{}
	for _, name := range keyMetrics {
		concept, ok := gaap[name]
		if !ok {
			continue
		}
		if unit, latest, ok := latestFact(concept.Units); ok {
			metrics[name] = map[string]any{
				"value":         latest.Value,
				"unit":          unit,
				"period":        latest.End,
				"form":          latest.Form,
				"fiscal_year":   latest.FiscalYear,
				"fiscal_period": latest.FiscalPeriod,
			}
		}
	}

	return Ok(map[string]any{
		"cik":     record.CIK,
		"name":    facts.Name,
		"metrics": metrics,
	}), nil
}

// latestFact picks the most recently ended value across all unit types.
func latestFact(units map[string][]edgar.FactValue) (string, edgar.FactValue, bool) {
	var (
		bestUnit string
		best     edgar.FactValue
		found    bool
	)
	for unit, values := range units {
		sorted := make([]edgar.FactValue, len(values))
		copy(sorted, values)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].End > sorted[j].End })
		if len(sorted) > 0 && (!found || sorted[0].End > best.End) {
			bestUnit, best, found = unit, sorted[0], true
		}
	}
	return bestUnit, best, found
}
