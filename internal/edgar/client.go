package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://www.sec.gov"
	defaultDataURL = "https://data.sec.gov"
)

// ErrNotFound is wrapped by all lookup failures so tools can build
// consistent "not found" error messages.
var ErrNotFound = fmt.Errorf("not found")

// Client is a thin HTTP client for the SEC EDGAR public endpoints.
// SEC requires a declared User-Agent identifying the caller.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	BaseURL   string
	DataURL   string

	cache *companyCache

	mu        sync.RWMutex
	companies []CompanyRecord
	byTicker  map[string]int
	byCIK     map[string]int
}

// CompanyRecord is one row of the SEC company tickers file.
type CompanyRecord struct {
	CIK    string `json:"cik"`
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

func NewClient(userAgent, cacheDir string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		UserAgent: userAgent,
		BaseURL:   defaultBaseURL,
		DataURL:   defaultDataURL,
		cache:     newCompanyCache(cacheDir),
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network unreachable: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limit exceeded (429) fetching %s", url)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s returned 404", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// loadCompanies populates the in-memory ticker/CIK indexes, preferring the
// local cache file and falling back to a fresh download.
func (c *Client) loadCompanies(ctx context.Context) error {
	c.mu.RLock()
	loaded := len(c.companies) > 0
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	records, ok := c.cache.load()
	if !ok {
		data, err := c.get(ctx, c.BaseURL+"/files/company_tickers.json")
		if err != nil {
			return fmt.Errorf("failed to fetch company tickers: %w", err)
		}
		records, err = parseCompanyTickers(data)
		if err != nil {
			return err
		}
		c.cache.save(records)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.companies = records
	c.byTicker = make(map[string]int, len(records))
	c.byCIK = make(map[string]int, len(records))
	for i, r := range records {
		c.byTicker[strings.ToLower(r.Ticker)] = i
		c.byCIK[r.CIK] = i
	}
	return nil
}

// RefreshCompanyData discards the cached ticker file and re-downloads it.
func (c *Client) RefreshCompanyData(ctx context.Context) error {
	c.cache.clear()
	c.mu.Lock()
	c.companies = nil
	c.mu.Unlock()
	return c.loadCompanies(ctx)
}

func parseCompanyTickers(data []byte) ([]CompanyRecord, error) {
	// The SEC file is an object keyed by row index, not an array.
	var raw map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
		Title  string      `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse company tickers: %v", err)
	}
	records := make([]CompanyRecord, 0, len(raw))
	for _, row := range raw {
		records = append(records, CompanyRecord{
			CIK:    PadCIK(row.CIK.String()),
			Name:   row.Title,
			Ticker: strings.ToUpper(row.Ticker),
		})
	}
	return records, nil
}

// PadCIK left-pads a CIK to the 10 digits the data.sec.gov endpoints expect.
func PadCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// CIKByTicker resolves a ticker symbol to its zero-padded CIK.
func (c *Client) CIKByTicker(ctx context.Context, ticker string) (string, error) {
	if err := c.loadCompanies(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.byTicker[strings.ToLower(strings.TrimSpace(ticker))]; ok {
		return c.companies[i].CIK, nil
	}
	return "", fmt.Errorf("%w: CIK not found for ticker %q", ErrNotFound, ticker)
}

// ResolveCompany accepts a ticker, a CIK (padded or not) or a company name
// and returns the matching record. Resolution priority follows the SEC
// identifier hierarchy: CIK, then ticker, then name.
func (c *Client) ResolveCompany(ctx context.Context, identifier string) (CompanyRecord, error) {
	if err := c.loadCompanies(ctx); err != nil {
		return CompanyRecord{}, err
	}
	id := strings.TrimSpace(identifier)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if isDigits(id) {
		if i, ok := c.byCIK[PadCIK(id)]; ok {
			return c.companies[i], nil
		}
		return CompanyRecord{}, fmt.Errorf("%w: company not found for CIK %q", ErrNotFound, id)
	}
	if i, ok := c.byTicker[strings.ToLower(id)]; ok {
		return c.companies[i], nil
	}
	lower := strings.ToLower(id)
	for _, r := range c.companies {
		if strings.EqualFold(r.Name, id) || strings.Contains(strings.ToLower(r.Name), lower) {
			return r, nil
		}
	}
	return CompanyRecord{}, fmt.Errorf("%w: company not found for identifier %q", ErrNotFound, identifier)
}

// FindCompanyInText scans for a company whose registered name appears
// verbatim inside the given text. Names shorter than four characters are
// skipped to avoid matching stray words.
func (c *Client) FindCompanyInText(ctx context.Context, text string) (CompanyRecord, bool) {
	if err := c.loadCompanies(ctx); err != nil {
		return CompanyRecord{}, false
	}
	lower := strings.ToLower(text)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.companies {
		name := strings.ToLower(r.Name)
		if len(name) >= 4 && strings.Contains(lower, name) {
			return r, true
		}
	}
	return CompanyRecord{}, false
}

// SearchCompanies returns up to limit companies whose name contains query.
func (c *Client) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyRecord, error) {
	if err := c.loadCompanies(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	lower := strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	var matches []CompanyRecord
	for _, r := range c.companies {
		if strings.Contains(strings.ToLower(r.Name), lower) || strings.EqualFold(r.Ticker, query) {
			matches = append(matches, r)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Submissions fetches the filing index for a company.
func (c *Client) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	data, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.DataURL, PadCIK(cik)))
	if err != nil {
		return nil, err
	}
	var subs Submissions
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse submissions: %v", err)
	}
	return &subs, nil
}

// CompanyFacts fetches all XBRL facts reported by a company.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error) {
	data, err := c.get(ctx, fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.DataURL, PadCIK(cik)))
	if err != nil {
		return nil, err
	}
	var facts CompanyFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse company facts: %v", err)
	}
	return &facts, nil
}

// CompanyConcept fetches the reported values for a single us-gaap tag.
func (c *Client) CompanyConcept(ctx context.Context, cik, tag string) (*CompanyConcept, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyconcept/CIK%s/us-gaap/%s.json", c.DataURL, PadCIK(cik), tag)
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var concept CompanyConcept
	if err := json.Unmarshal(data, &concept); err != nil {
		return nil, fmt.Errorf("failed to parse company concept: %v", err)
	}
	return &concept, nil
}

// FilingDocument fetches the primary document of a filing from the archive.
func (c *Client) FilingDocument(ctx context.Context, cik, accessionNumber, primaryDocument string) ([]byte, string, error) {
	accession := strings.ReplaceAll(accessionNumber, "-", "")
	url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.BaseURL, strings.TrimLeft(PadCIK(cik), "0"), accession, primaryDocument)
	data, err := c.get(ctx, url)
	return data, url, err
}
