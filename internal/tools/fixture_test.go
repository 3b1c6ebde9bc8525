package tools

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rahul/secagent/internal/edgar"
)

// newEdgarFixture stands up a stub EDGAR with two companies: Apple (a 10-K
// and a 10-Q in fiscal 2023, plus XBRL facts) and XYZ Holdings (a single
// 8-K from 2022 and no XBRL data at all).
func newEdgarFixture(t *testing.T) *edgar.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", serveJSON(`{
		"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
		"1": {"cik_str": 999999, "ticker": "XYZ", "title": "XYZ Holdings Corp"}
	}`))
	mux.HandleFunc("/submissions/CIK0000320193.json", serveJSON(`{
		"cik": "320193",
		"name": "Apple Inc.",
		"tickers": ["AAPL"],
		"sic": "3571",
		"sicDescription": "Electronic Computers",
		"filings": {
			"recent": {
				"accessionNumber": ["0000320193-23-000106", "0000320193-23-000077"],
				"filingDate": ["2023-11-03", "2023-08-04"],
				"reportDate": ["2023-09-30", "2023-07-01"],
				"form": ["10-K", "10-Q"],
				"primaryDocument": ["aapl-20230930.htm", "aapl-20230701.htm"]
			}
		}
	}`))
	mux.HandleFunc("/submissions/CIK0000999999.json", serveJSON(`{
		"cik": "999999",
		"name": "XYZ Holdings Corp",
		"tickers": ["XYZ"],
		"filings": {
			"recent": {
				"accessionNumber": ["0000999999-22-000001"],
				"filingDate": ["2022-03-15"],
				"reportDate": ["2022-03-10"],
				"form": ["8-K"],
				"primaryDocument": ["xyz-8k.htm"]
			}
		}
	}`))
	mux.HandleFunc("/api/xbrl/companyfacts/CIK0000320193.json", serveJSON(`{
		"cik": 320193,
		"entityName": "Apple Inc.",
		"facts": {
			"us-gaap": {
				"Assets": {
					"units": {
						"USD": [
							{"end": "2022-09-24", "val": 352755000000, "fy": 2022, "fp": "FY", "form": "10-K", "filed": "2022-10-28"},
							{"end": "2023-09-30", "val": 352583000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
						]
					}
				},
				"NetIncomeLoss": {
					"units": {
						"USD": [
							{"end": "2023-09-30", "val": 96995000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
						]
					}
				}
			}
		}
	}`))
	// Apple reports revenue under the contract-revenue tag, not Revenues,
	// so the first candidate 404s and the walk must continue.
	mux.HandleFunc("/api/xbrl/companyconcept/CIK0000320193/us-gaap/RevenueFromContractWithCustomerExcludingAssessedTax.json", serveJSON(`{
		"cik": 320193,
		"entityName": "Apple Inc.",
		"tag": "RevenueFromContractWithCustomerExcludingAssessedTax",
		"units": {
			"USD": [
				{"end": "2022-09-24", "val": 394328000000, "fy": 2022, "fp": "FY", "form": "10-K", "filed": "2022-10-28"},
				{"end": "2023-07-01", "val": 81797000000, "fy": 2023, "fp": "Q3", "form": "10-Q", "filed": "2023-08-04"},
				{"end": "2023-09-30", "val": 383285000000, "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03"}
			]
		}
	}`))
	mux.HandleFunc("/Archives/edgar/data/320193/000032019323000106/aapl-20230930.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Form 10-K</title></head><body>
			<article><h1>Annual Report</h1>
			<p>Item 1. Business. The Company designs and sells consumer electronics worldwide.</p>
			<p>Item 7. Management discussion of results of operations for fiscal 2023.</p>
			</article></body></html>`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := edgar.NewClient("secagent test test@example.com", t.TempDir())
	client.BaseURL = server.URL
	client.DataURL = server.URL
	return client
}

func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}
