// Package query turns raw user text into validated, enriched input for
// planning: a scope verdict plus the companies, metrics and time periods
// the query mentions.
package query

import (
	"context"
	"regexp"
	"strings"

	"github.com/rahul/secagent/internal/edgar"
)

// Company is one resolved company mention.
type Company struct {
	Type  string `json:"type"` // cik, ticker or name
	Value string `json:"value"`
	CIK   string `json:"cik,omitempty"`
}

// Parsed holds everything the regex pass extracted from a query.
type Parsed struct {
	Companies        []Company `json:"companies"`
	FinancialMetrics []string  `json:"financial_metrics"`
	TimePeriod       []string  `json:"time_period"`
}

// CompanyResolver is the slice of the EDGAR client the parser needs.
type CompanyResolver interface {
	CIKByTicker(ctx context.Context, ticker string) (string, error)
	ResolveCompany(ctx context.Context, identifier string) (edgar.CompanyRecord, error)
	FindCompanyInText(ctx context.Context, text string) (edgar.CompanyRecord, bool)
}

// Metric keys match the metric names the financial data tool accepts.
var metricPatterns = []struct {
	metric   string
	patterns []*regexp.Regexp
}{
	{"revenue", compileAll(`\brevenue\b`, `\bsales\b`, `\btop.?line\b`, `\bturnover\b`)},
	{"net_income", compileAll(`\bnet.?income\b`, `\bprofit\b`, `\bearnings\b`, `\bbottom.?line\b`, `\bpnl\b`)},
	{"cash_flow", compileAll(`\bcash.?flow\b`, `\boperating.?cash\b`)},
	{"assets", compileAll(`\btotal.?assets\b`, `\bassets\b`)},
	{"liabilities", compileAll(`\btotal.?liabilities\b`, `\bliabilities\b`)},
	{"equity", compileAll(`\bequity\b`, `\bshareholders.?equity\b`)},
	{"eps", compileAll(`\beps\b`, `\bearnings.?per.?share\b`)},
}

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bQ[1-4]\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\bFY\s*\d{4}\b`),
	regexp.MustCompile(`\b(19|20)\d{2}\b`),
	regexp.MustCompile(`(?i)\blast\s+year\b`),
	regexp.MustCompile(`(?i)\blast\s+quarter\b`),
}

var (
	tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	// CIK mentions need an explicit prefix or enough digits to not be a
	// year; bare 4-digit numbers are treated as time periods instead.
	cikPattern = regexp.MustCompile(`(?i)\bCIK[:\s]*(\d{1,10})\b|\b(\d{7,10})\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Parser extracts entities from user queries against the live SEC
// company directory.
type Parser struct {
	Resolver CompanyResolver
}

func NewParser(resolver CompanyResolver) *Parser {
	return &Parser{Resolver: resolver}
}

// Parse runs the full extraction pass.
func (p *Parser) Parse(ctx context.Context, query string) Parsed {
	return Parsed{
		Companies:        p.extractCompanies(ctx, query),
		FinancialMetrics: extractMetrics(query),
		TimePeriod:       extractTimePeriods(query),
	}
}

// extractCompanies resolves mentions in SEC identifier priority: explicit
// CIK numbers first, then ticker symbols, then company names. Lower
// priority tiers are only consulted when higher ones found nothing.
func (p *Parser) extractCompanies(ctx context.Context, query string) []Company {
	var companies []Company

	for _, m := range cikPattern.FindAllStringSubmatch(query, -1) {
		cik := m[1]
		if cik == "" {
			cik = m[2]
		}
		record, err := p.Resolver.ResolveCompany(ctx, cik)
		if err != nil {
			continue
		}
		companies = append(companies, Company{Type: "cik", Value: record.Name, CIK: record.CIK})
	}
	if len(companies) > 0 {
		return companies
	}

	for _, ticker := range tickerPattern.FindAllString(query, -1) {
		cik, err := p.Resolver.CIKByTicker(ctx, ticker)
		if err != nil {
			continue
		}
		record, err := p.Resolver.ResolveCompany(ctx, cik)
		if err != nil {
			continue
		}
		companies = append(companies, Company{Type: "ticker", Value: record.Name, CIK: record.CIK})
	}
	if len(companies) > 0 {
		return companies
	}

	if record, ok := p.Resolver.FindCompanyInText(ctx, query); ok {
		companies = append(companies, Company{Type: "name", Value: record.Name, CIK: record.CIK})
	}
	return companies
}

func extractMetrics(query string) []string {
	var metrics []string
	for _, mp := range metricPatterns {
		for _, re := range mp.patterns {
			if re.MatchString(query) {
				metrics = append(metrics, mp.metric)
				break
			}
		}
	}
	return metrics
}

func extractTimePeriods(query string) []string {
	var periods []string
	seen := map[string]bool{}
	for _, re := range timePatterns {
		for _, m := range re.FindAllString(query, -1) {
			m = strings.TrimSpace(m)
			if !seen[m] {
				seen[m] = true
				periods = append(periods, m)
			}
		}
	}
	if len(periods) == 0 {
		periods = []string{"current"}
	}
	return periods
}
