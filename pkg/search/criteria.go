package search

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Criteria is the raw, user supplied search input.
type Criteria struct {
	// Content is a free text query matched against file contents.
	Content string `json:"content,omitempty"`
	// Filename is a wildcard pattern using * and ?. A leading * is implied.
	Filename string `json:"filename,omitempty"`
	// FileTypes holds category names such as "images" or "pdfs".
	FileTypes []string `json:"file_types,omitempty"`
	// BeforeDate and AfterDate bound the modification time.
	BeforeDate string `json:"before_date,omitempty"`
	AfterDate  string `json:"after_date,omitempty"`
	// ExcludeFolders lists folders, relative to the user root, whose
	// contents are left out of the results.
	ExcludeFolders []string `json:"exclude_folders,omitempty"`
}

// Validated is Criteria after validation: terms trimmed, dates converted
// to epoch seconds and folders cleaned.
type Validated struct {
	Content        string
	Filename       string
	FileTypes      []string
	Before         *int64
	After          *int64
	ExcludeFolders []string
}

// HasSearchTerm reports whether content or filename is present.
func (v *Validated) HasSearchTerm() bool {
	return v != nil && (strings.TrimSpace(v.Content) != "" || strings.TrimSpace(v.Filename) != "")
}

// Validate checks c and converts it into a Validated value. Rules are
// applied in order and the first failure wins: a missing search term, then
// an unparsable before date, then an unparsable after date.
func Validate(c Criteria, dates *DateParser) (*Validated, error) {
	v := &Validated{
		Content:  strings.TrimSpace(c.Content),
		Filename: norm.NFC.String(strings.TrimSpace(c.Filename)),
	}
	if !v.HasSearchTerm() {
		return nil, ErrMissingSearchTerm()
	}

	if s := strings.TrimSpace(c.BeforeDate); s != "" {
		ts, err := dates.Parse(s)
		if err != nil {
			return nil, &QueryError{Kind: InvalidDate, Field: "before", Message: "invalid before date provided"}
		}
		v.Before = &ts
	}
	if s := strings.TrimSpace(c.AfterDate); s != "" {
		ts, err := dates.Parse(s)
		if err != nil {
			return nil, &QueryError{Kind: InvalidDate, Field: "after", Message: "invalid after date provided"}
		}
		v.After = &ts
	}

	for _, t := range c.FileTypes {
		if t = strings.TrimSpace(t); t != "" {
			v.FileTypes = append(v.FileTypes, t)
		}
	}
	v.ExcludeFolders = CleanFolders(c.ExcludeFolders)
	return v, nil
}

// CleanFolders normalizes folder entries: surrounding slashes and spaces
// are removed and empty entries dropped.
func CleanFolders(folders []string) []string {
	var out []string
	for _, f := range folders {
		f = strings.Trim(strings.TrimSpace(f), "/")
		if f == "" {
			continue
		}
		out = append(out, norm.NFC.String(f))
	}
	return out
}

// SortField selects result ordering.
type SortField string

const (
	SortScore    SortField = "score"
	SortModified SortField = "modified"
	SortPath     SortField = "path"
)

// ParseSortField maps unknown values to SortScore.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortModified:
		return SortModified
	case SortPath:
		return SortPath
	default:
		return SortScore
	}
}

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder returns Asc only for "asc"; anything else is Desc.
func ParseOrder(s string) Order {
	if strings.ToLower(strings.TrimSpace(s)) == string(Asc) {
		return Asc
	}
	return Desc
}

// DefaultPageSize is used when a request does not specify a size.
const DefaultPageSize = 20

// Paging holds the zero based page, the page size and the ordering.
type Paging struct {
	Page  int
	Size  int
	Sort  SortField
	Order Order
}

// Offset is the index of the first hit of the page.
func (p Paging) Offset() int {
	return p.Page * p.Size
}

// MaxResultWindow bounds Page*Size. It matches the default
// index.max_result_window of Elasticsearch.
const MaxResultWindow = 10000

// ValidatePaging rejects negative pages, non-positive sizes and pages whose
// offset lies beyond MaxResultWindow. The size is capped at maxSize when
// maxSize is positive.
func ValidatePaging(p Paging, maxSize int) (Paging, error) {
	if p.Page < 0 {
		return p, &QueryError{Kind: InvalidParameter, Field: "page", Message: "page must not be negative"}
	}
	if p.Size <= 0 {
		return p, &QueryError{Kind: InvalidParameter, Field: "size", Message: "size must be positive"}
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	if p.Page > MaxResultWindow/p.Size {
		return p, &QueryError{Kind: InvalidParameter, Field: "page", Message: fmt.Sprintf("page %d is beyond the last %d results", p.Page, MaxResultWindow)}
	}
	p.Sort = ParseSortField(string(p.Sort))
	p.Order = ParseOrder(string(p.Order))
	return p, nil
}

// ParseRequest reads criteria and paging from flat query parameters.
//
// Supported parameters:
//   - content, filename: search terms
//   - file_types: category, repeatable
//   - before_date, after_date: dates understood by DateParser
//   - exclude_folders: folder, repeatable
//   - page (default 0), size (default DefaultPageSize)
//   - sort: score, modified or path
//   - sort_order: asc or desc
func ParseRequest(values url.Values) (Criteria, Paging, error) {
	c := Criteria{
		Content:        values.Get("content"),
		Filename:       values.Get("filename"),
		FileTypes:      values["file_types"],
		BeforeDate:     values.Get("before_date"),
		AfterDate:      values.Get("after_date"),
		ExcludeFolders: values["exclude_folders"],
	}

	p := Paging{
		Size:  DefaultPageSize,
		Sort:  ParseSortField(values.Get("sort")),
		Order: ParseOrder(values.Get("sort_order")),
	}
	var err error
	if s := values.Get("page"); s != "" {
		if p.Page, err = strconv.Atoi(s); err != nil {
			return c, p, &QueryError{Kind: InvalidParameter, Field: "page", Message: fmt.Sprintf("invalid page %q", s)}
		}
	}
	if s := values.Get("size"); s != "" {
		if p.Size, err = strconv.Atoi(s); err != nil {
			return c, p, &QueryError{Kind: InvalidParameter, Field: "size", Message: fmt.Sprintf("invalid size %q", s)}
		}
	}
	return c, p, nil
}

// Request is the JSON body accepted by the search endpoint.
type Request struct {
	SearchCriteria rawCriteria `json:"search_criteria"`
	Page           int         `json:"page"`
	Size           *int        `json:"size"`
	Sort           string      `json:"sort"`
	SortOrder      string      `json:"sort_order"`
}

// rawCriteria accepts loosely typed lists; entries that are not strings
// are ignored.
type rawCriteria struct {
	Content        string `json:"content"`
	Filename       string `json:"filename"`
	FileTypes      []any  `json:"file_types"`
	BeforeDate     string `json:"before_date"`
	AfterDate      string `json:"after_date"`
	ExcludeFolders []any  `json:"exclude_folders"`
}

// DecodeRequest reads a JSON search request from r.
func DecodeRequest(r io.Reader) (Criteria, Paging, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Criteria{}, Paging{}, &QueryError{Kind: InvalidParameter, Field: "body", Message: fmt.Sprintf("invalid request body: %v", err)}
	}

	c := Criteria{
		Content:        req.SearchCriteria.Content,
		Filename:       req.SearchCriteria.Filename,
		FileTypes:      stringsOnly(req.SearchCriteria.FileTypes),
		BeforeDate:     req.SearchCriteria.BeforeDate,
		AfterDate:      req.SearchCriteria.AfterDate,
		ExcludeFolders: stringsOnly(req.SearchCriteria.ExcludeFolders),
	}
	p := Paging{
		Page:  req.Page,
		Size:  DefaultPageSize,
		Sort:  ParseSortField(req.Sort),
		Order: ParseOrder(req.SortOrder),
	}
	if req.Size != nil {
		p.Size = *req.Size
	}
	return c, p, nil
}

func stringsOnly(in []any) []string {
	var out []string
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
