package edgar

// Submissions mirrors data.sec.gov/submissions/CIK##########.json.
// The recent filings block is columnar: index i across every slice
// describes one filing.
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	SIC     string   `json:"sic"`
	SICDesc string   `json:"sicDescription"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
	FileNumber      []string `json:"fileNumber"`
}

// Filing is one de-columnized row of RecentFilings.
type Filing struct {
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"`
	ReportDate      string `json:"report_date"`
	Form            string `json:"form_type"`
	PrimaryDocument string `json:"primary_document"`
	FileNumber      string `json:"file_number,omitempty"`
}

// Rows converts the columnar recent block into filing records.
func (r RecentFilings) Rows() []Filing {
	filings := make([]Filing, 0, len(r.AccessionNumber))
	for i := range r.AccessionNumber {
		f := Filing{AccessionNumber: r.AccessionNumber[i]}
		if i < len(r.FilingDate) {
			f.FilingDate = r.FilingDate[i]
		}
		if i < len(r.ReportDate) {
			f.ReportDate = r.ReportDate[i]
		}
		if i < len(r.Form) {
			f.Form = r.Form[i]
		}
		if i < len(r.PrimaryDocument) {
			f.PrimaryDocument = r.PrimaryDocument[i]
		}
		if i < len(r.FileNumber) {
			f.FileNumber = r.FileNumber[i]
		}
		filings = append(filings, f)
	}
	return filings
}

// CompanyFacts mirrors the companyfacts XBRL endpoint. Facts are keyed by
// taxonomy ("us-gaap", "dei") then tag name.
type CompanyFacts struct {
	CIK   int64                         `json:"cik"`
	Name  string                        `json:"entityName"`
	Facts map[string]map[string]Concept `json:"facts"`
}

// CompanyConcept mirrors the companyconcept endpoint for one tag.
type CompanyConcept struct {
	CIK   int64                  `json:"cik"`
	Name  string                 `json:"entityName"`
	Tag   string                 `json:"tag"`
	Units map[string][]FactValue `json:"units"`
}

type Concept struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is a single reported XBRL value.
type FactValue struct {
	Start        string  `json:"start,omitempty"`
	End          string  `json:"end"`
	Value        float64 `json:"val"`
	FiscalYear   int     `json:"fy"`
	FiscalPeriod string  `json:"fp"`
	Form         string  `json:"form"`
	Filed        string  `json:"filed"`
}
