package search

import "encoding/json"

// Record is one normalized search result. A record with a non-empty Error
// is a degraded record: enrichment failed and only Name and Error are
// meaningful.
type Record struct {
	ContentType string
	Name        string
	Link        string
	IconLink    string
	ModifiedAt  *int64
	Highlights  map[string][]string
	Error       string
}

// ErrorRecord builds a degraded record for name.
func ErrorRecord(name string, err error) Record {
	return Record{Name: name, Error: err.Error()}
}

// Degraded reports whether r is an error record.
func (r Record) Degraded() bool {
	return r.Error != ""
}

type recordJSON struct {
	ContentType string              `json:"content_type"`
	Name        string              `json:"name"`
	Link        string              `json:"link"`
	IconLink    string              `json:"icon_link"`
	ModifiedAt  *int64              `json:"modified_at"`
	Highlights  map[string][]string `json:"highlights"`
}

type errorRecordJSON struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Degraded() {
		return json.Marshal(errorRecordJSON{Name: r.Name, Error: r.Error})
	}
	hl := r.Highlights
	if hl == nil {
		hl = map[string][]string{}
	}
	return json.Marshal(recordJSON{
		ContentType: r.ContentType,
		Name:        r.Name,
		Link:        r.Link,
		IconLink:    r.IconLink,
		ModifiedAt:  r.ModifiedAt,
		Highlights:  hl,
	})
}

// Response is one page of results.
type Response struct {
	// Hits is the total reported by the backend. The files backend has no
	// separate total and reports the number of nodes it returned.
	Hits    int      `json:"hits"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
	Backend string   `json:"backend"`
	Files   []Record `json:"files"`
}
