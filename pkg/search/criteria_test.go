package search

import (
	"errors"
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestValidateRuleOrder(t *testing.T) {
	tests := []struct {
		name      string
		criteria  Criteria
		wantKind  QueryErrorKind
		wantField string
	}{
		{"empty", Criteria{}, MissingSearchTerm, ""},
		{"whitespace only", Criteria{Content: "  ", Filename: "\t"}, MissingSearchTerm, ""},
		{"missing term wins over bad date", Criteria{BeforeDate: "garbage"}, MissingSearchTerm, ""},
		{"bad before", Criteria{Content: "x", BeforeDate: "garbage", AfterDate: "garbage"}, InvalidDate, "before"},
		{"bad after", Criteria{Filename: "x", BeforeDate: "2024-01-01", AfterDate: "garbage"}, InvalidDate, "after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.criteria, nil)
			var qe *QueryError
			if !errors.As(err, &qe) {
				t.Fatalf("expected QueryError, got %v", err)
			}
			if qe.Kind != tt.wantKind || qe.Field != tt.wantField {
				t.Errorf("got %s/%s, want %s/%s", qe.Kind, qe.Field, tt.wantKind, tt.wantField)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	v, err := Validate(Criteria{
		Content:        "  invoice ",
		FileTypes:      []string{"pdfs", " ", "images"},
		BeforeDate:     "2024-01-01",
		AfterDate:      "2023-01-01T10:00:00Z",
		ExcludeFolders: []string{"Archive/", "", "/Photos/2020/", "  "},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v.Content != "invoice" {
		t.Errorf("content not trimmed: %q", v.Content)
	}
	if !reflect.DeepEqual(v.FileTypes, []string{"pdfs", "images"}) {
		t.Errorf("unexpected file types %v", v.FileTypes)
	}
	if v.Before == nil || *v.Before != time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("unexpected before %v", v.Before)
	}
	if v.After == nil || *v.After != time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("unexpected after %v", v.After)
	}
	if !reflect.DeepEqual(v.ExcludeFolders, []string{"Archive", "Photos/2020"}) {
		t.Errorf("unexpected folders %v", v.ExcludeFolders)
	}
}

func TestValidateFilenameIsNFC(t *testing.T) {
	// "e" followed by a combining acute accent
	v, err := Validate(Criteria{Filename: "cafe\u0301*.txt"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Filename != "caf\u00e9*.txt" {
		t.Errorf("filename not NFC normalized: %q", v.Filename)
	}
}

func TestDateParserLocation(t *testing.T) {
	p, err := NewDateParser("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Parse("2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}

	if _, err := NewDateParser("Nowhere/Invalid"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestValidatePaging(t *testing.T) {
	tests := []struct {
		name    string
		in      Paging
		max     int
		want    Paging
		wantErr bool
	}{
		{"defaults sort", Paging{Page: 1, Size: 10}, 0, Paging{Page: 1, Size: 10, Sort: SortScore, Order: Desc}, false},
		{"capped", Paging{Size: 500, Sort: SortPath, Order: Asc}, 100, Paging{Size: 100, Sort: SortPath, Order: Asc}, false},
		{"unknown sort", Paging{Size: 5, Sort: "size", Order: "ASC"}, 0, Paging{Size: 5, Sort: SortScore, Order: Asc}, false},
		{"negative page", Paging{Page: -1, Size: 5}, 0, Paging{}, true},
		{"zero size", Paging{Size: 0}, 0, Paging{}, true},
		{"last page in window", Paging{Page: 500, Size: 20}, 100, Paging{Page: 500, Size: 20, Sort: SortScore, Order: Desc}, false},
		{"page beyond window", Paging{Page: 501, Size: 20}, 100, Paging{}, true},
		{"offset overflow", Paging{Page: math.MaxInt / 10, Size: 20}, 100, Paging{}, true},
		{"window checked after cap", Paging{Page: 200, Size: 500}, 50, Paging{Page: 200, Size: 50, Sort: SortScore, Order: Desc}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePaging(tt.in, tt.max)
			if tt.wantErr {
				var qe *QueryError
				if !errors.As(err, &qe) || qe.Kind != InvalidParameter {
					t.Fatalf("expected InvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{"asc": Asc, "ASC": Asc, "desc": Desc, "": Desc, "up": Desc} {
		if got := ParseOrder(in); got != want {
			t.Errorf("ParseOrder(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseRequest(t *testing.T) {
	values := url.Values{
		"content":         {"invoice"},
		"file_types":      {"pdfs", "images"},
		"exclude_folders": {"Archive", "Trash"},
		"page":            {"2"},
		"size":            {"15"},
		"sort":            {"modified"},
		"sort_order":      {"asc"},
	}

	c, p, err := ParseRequest(values)
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "invoice" || len(c.FileTypes) != 2 || len(c.ExcludeFolders) != 2 {
		t.Errorf("unexpected criteria %+v", c)
	}
	if p != (Paging{Page: 2, Size: 15, Sort: SortModified, Order: Asc}) {
		t.Errorf("unexpected paging %+v", p)
	}

	_, p, err = ParseRequest(url.Values{"filename": {"x"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Size != DefaultPageSize || p.Page != 0 || p.Sort != SortScore || p.Order != Desc {
		t.Errorf("unexpected default paging %+v", p)
	}

	if _, _, err := ParseRequest(url.Values{"page": {"two"}}); err == nil {
		t.Error("expected error for non numeric page")
	}
}

func TestDecodeRequestIgnoresNonStrings(t *testing.T) {
	body := `{
		"search_criteria": {
			"filename": "report.pdf",
			"file_types": ["pdfs", 3],
			"exclude_folders": ["Archive/", 42, null, {"x": 1}, "Trash"]
		},
		"page": 1,
		"size": 5,
		"sort": "path"
	}`

	c, p, err := DecodeRequest(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.ExcludeFolders, []string{"Archive/", "Trash"}) {
		t.Errorf("unexpected folders %v", c.ExcludeFolders)
	}
	if !reflect.DeepEqual(c.FileTypes, []string{"pdfs"}) {
		t.Errorf("unexpected file types %v", c.FileTypes)
	}
	if p != (Paging{Page: 1, Size: 5, Sort: SortPath, Order: Desc}) {
		t.Errorf("unexpected paging %+v", p)
	}

	if _, _, err := DecodeRequest(strings.NewReader("{")); err == nil {
		t.Error("expected error for truncated body")
	}
}
