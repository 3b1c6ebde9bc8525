package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/secagent/internal/edgar"
)

const maxFilingContentChars = 50000

// RecentFilingsTool lists a company's recent SEC filings, optionally
// filtered by form type and fiscal year.
type RecentFilingsTool struct {
	Client *edgar.Client
}

func NewRecentFilingsTool(client *edgar.Client) *RecentFilingsTool {
	return &RecentFilingsTool{Client: client}
}

func (t *RecentFilingsTool) Name() string { return "get_recent_filings" }

func (t *RecentFilingsTool) Description() string {
	return "Get recent SEC filings for a specific company, filtered by form type (e.g., '10-K', '10-Q', '8-K') and year."
}

func (t *RecentFilingsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{
				"type":        "string",
				"description": "Company ticker (e.g., AAPL) or CIK number",
			},
			"form_type": map[string]any{
				"type":        "string",
				"description": "Type of SEC filing to retrieve (e.g., '10-K', '10-Q', '8-K')",
			},
			"year": map[string]any{
				"type":        "integer",
				"description": "Restrict to filings whose report period falls in this year",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of filings to return",
			},
		},
		"required": []string{"identifier"},
	}
}

func (t *RecentFilingsTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	identifier := StringParam(params, "identifier", "cik_or_ticker", "ticker")
	if identifier == "" {
		return Response{}, fmt.Errorf("%w: identifier is required", ErrInvalidParameters)
	}
	formType := StringParam(params, "form_type")
	year, hasYear := IntParam(params, "year")
	limit, hasLimit := IntParam(params, "limit")
	if !hasLimit || limit <= 0 {
		limit = 50
	}

	record, err := t.Client.ResolveCompany(ctx, identifier)
	if err != nil {
		return Fail("%v", err), nil
	}

	subs, err := t.Client.Submissions(ctx, record.CIK)
	if err != nil {
		return Fail("failed to get recent filings: %v", err), nil
	}

	var filings []edgar.Filing
	for _, f := range subs.Filings.Recent.Rows() {
		if formType != "" && !strings.EqualFold(f.Form, formType) {
			continue
		}
		if hasYear && filingYear(f) != year {
			continue
		}
		filings = append(filings, f)
		if len(filings) >= limit {
			break
		}
	}

	if len(filings) == 0 {
		label := formType
		if label == "" {
			label = "recent"
		}
		if hasYear {
			return Fail("No %s filings found for %s in %d", label, identifier, year), nil
		}
		return Fail("No %s filings found for %s", label, identifier), nil
	}

	rows := make([]map[string]any, 0, len(filings))
	for _, f := range filings {
		rows = append(rows, map[string]any{
			"accession_number": f.AccessionNumber,
			"form_type":        f.Form,
			"filing_date":      f.FilingDate,
			"report_date":      f.ReportDate,
			"primary_document": f.PrimaryDocument,
			"company_name":     subs.Name,
			"cik":              record.CIK,
		})
	}
	return Ok(map[string]any{"filings": rows, "count": len(rows)}), nil
}

// filingYear keys off the report period when present, else the filing date.
func filingYear(f edgar.Filing) int {
	date := f.ReportDate
	if date == "" {
		date = f.FilingDate
	}
	if len(date) < 4 {
		return 0
	}
	var y int
	fmt.Sscanf(date[:4], "%d", &y)
	return y
}

// FilingContentTool fetches a filing's primary document and extracts its
// readable text.
type FilingContentTool struct {
	Client *edgar.Client
}

func NewFilingContentTool(client *edgar.Client) *FilingContentTool {
	return &FilingContentTool{Client: client}
}

func (t *FilingContentTool) Name() string { return "get_filing_content" }

func (t *FilingContentTool) Description() string {
	return "Get the full text content and metadata of a specific SEC filing by accession number."
}

func (t *FilingContentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifier": map[string]any{
				"type":        "string",
				"description": "Company ticker (e.g., AAPL) or CIK number",
			},
			"accession_number": map[string]any{
				"type":        "string",
				"description": "SEC filing accession number (e.g., '0000320193-23-000077')",
			},
		},
		"required": []string{"identifier", "accession_number"},
	}
}

func (t *FilingContentTool) Execute(ctx context.Context, params map[string]any) (Response, error) {
	identifier := StringParam(params, "identifier", "cik_or_ticker", "ticker")
	accession := StringParam(params, "accession_number")
	if identifier == "" || accession == "" {
		return Response{}, fmt.Errorf("%w: identifier and accession_number are required", ErrInvalidParameters)
	}

	record, err := t.Client.ResolveCompany(ctx, identifier)
	if err != nil {
		return Fail("%v", err), nil
	}

	subs, err := t.Client.Submissions(ctx, record.CIK)
	if err != nil {
		return Fail("failed to look up filing %s: %v", accession, err), nil
	}

	normalized := strings.ReplaceAll(accession, "-", "")
	var filing *edgar.Filing
	for _, f := range subs.Filings.Recent.Rows() {
		if strings.ReplaceAll(f.AccessionNumber, "-", "") == normalized {
			filing = &f
			break
		}
	}
	if filing == nil {
		return Fail("Filing %s not found for %s", accession, identifier), nil
	}

	raw, docURL, err := t.Client.FilingDocument(ctx, record.CIK, filing.AccessionNumber, filing.PrimaryDocument)
	if err != nil {
		return Fail("failed to fetch filing document: %v", err), nil
	}

	content := extractReadableText(raw, docURL)

	return Ok(map[string]any{
		"accession_number": filing.AccessionNumber,
		"form_type":        filing.Form,
		"filing_date":      filing.FilingDate,
		"url":              docURL,
		"content":          content,
	}), nil
}

// extractReadableText runs the filing HTML through readability and strips
// any remaining markup. Filings that defeat readability degrade to the
// sanitized raw document.
func extractReadableText(raw []byte, docURL string) string {
	policy := bluemonday.StrictPolicy()

	parsedURL, _ := url.Parse(docURL)
	article, err := readability.FromReader(bytes.NewReader(raw), parsedURL)

	text := ""
	if err == nil {
		text = article.TextContent
	}
	if strings.TrimSpace(text) == "" {
		text = string(raw)
	}
	text = policy.Sanitize(text)

	if len(text) > maxFilingContentChars {
		text = text[:maxFilingContentChars] + "\n... (content truncated) ..."
	}
	return strings.TrimSpace(text)
}
