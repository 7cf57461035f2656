// Package harvest implements the discovery-and-enrichment pipeline: link
// discovery over a paginated directory, bounded-concurrency profile
// extraction, and checkpointed CSV output.
package harvest

import "strings"

// NotAvailable is the sentinel recorded when an optional field cannot be
// resolved from the profile page.
const NotAvailable = "N/A"

// failureName marks records produced after retry exhaustion.
const failureName = "Error"

// CompanyRecord is the extraction result for one profile page. A failed
// fetch degrades to the same type with Name set to the failure marker and
// only SourceURL populated.
type CompanyRecord struct {
	Name         string
	Batch        string
	Description  string
	FounderNames []string
	FounderLinks []string
	SourceURL    string
	Failed       bool
}

// NewFailureRecord builds the degraded record for a URL whose retry budget
// is exhausted.
func NewFailureRecord(url string) CompanyRecord {
	return CompanyRecord{
		Name:      failureName,
		SourceURL: url,
		Failed:    true,
	}
}

// CSVHeader returns the column names of the tabular output.
func CSVHeader() []string {
	return []string{
		"Company Name",
		"Batch",
		"Short Description",
		"Founder Name(s)",
		"Founder LinkedIn URL(s)",
		"URL",
	}
}

// CSVRow flattens the record into one output row. Multi-valued fields are
// comma-joined; the URL column is only populated on failure rows.
func (r CompanyRecord) CSVRow() []string {
	url := ""
	if r.Failed {
		url = r.SourceURL
	}
	return []string{
		r.Name,
		r.Batch,
		r.Description,
		strings.Join(r.FounderNames, ", "),
		strings.Join(r.FounderLinks, ", "),
		url,
	}
}
