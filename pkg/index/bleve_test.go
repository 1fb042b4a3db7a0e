package index

import (
	"context"
	"sort"
	"testing"

	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/search"
)

func newTestBleve(t *testing.T) *Backend {
	t.Helper()
	idx, err := OpenBleve("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	docs := []Document{
		{FileID: "1", Title: "Documents/invoice-2023.pdf", Content: "invoice for consulting services", LastModified: 1690000000,
			ShareNames: map[string]string{"alice": "/Documents/invoice-2023.pdf"}},
		{FileID: "2", Title: "Documents/Scan.PDF", Content: "scanned invoice", LastModified: 1710000000,
			ShareNames: map[string]string{"alice": "/Documents/Scan.PDF"}},
		{FileID: "3", Title: "Archive/2023/invoice-old.pdf", Content: "old invoice", LastModified: 1600000000,
			ShareNames: map[string]string{"alice": "/Archive/2023/invoice-old.pdf"}},
		{FileID: "4", Title: "notes.txt", Content: "grocery list", LastModified: 1700000000,
			ShareNames: map[string]string{"alice": "/notes.txt"}},
		{FileID: "5", Title: "bob/invoice.pdf", Content: "invoice of bob", LastModified: 1700000000,
			ShareNames: map[string]string{"bob": "/invoice.pdf"}},
	}
	if err := NewIndexer(idx).Index(docs...); err != nil {
		t.Fatal(err)
	}
	return NewBackend(NewBleveExecutor(idx), enrich.NewMimeResolver(""), enrich.NewLinkBuilder(""))
}

func runSearch(t *testing.T, b *Backend, user string, c search.Criteria, p search.Paging) *search.Response {
	t.Helper()
	if p.Size == 0 {
		p.Size = 20
	}
	resp, err := search.NewService(b, search.StaticIdentity(user), nil).Search(context.Background(), c, p)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func names(resp *search.Response) []string {
	var out []string
	for _, f := range resp.Files {
		out = append(out, f.Name)
	}
	return out
}

func sortedNames(resp *search.Response) []string {
	out := names(resp)
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBleveContentOnlySharedDocuments(t *testing.T) {
	b := newTestBleve(t)

	resp := runSearch(t, b, "alice", search.Criteria{Content: "invoice"}, search.Paging{})
	want := []string{"Archive/2023/invoice-old.pdf", "Documents/Scan.PDF", "Documents/invoice-2023.pdf"}
	if got := sortedNames(resp); !equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if resp.Hits != 3 {
		t.Errorf("expected total 3, got %d", resp.Hits)
	}

	resp = runSearch(t, b, "bob", search.Criteria{Content: "invoice"}, search.Paging{})
	if got := names(resp); !equal(got, []string{"bob/invoice.pdf"}) {
		t.Errorf("bob sees %v", got)
	}
}

func TestBleveFilenameAndTypes(t *testing.T) {
	b := newTestBleve(t)

	resp := runSearch(t, b, "alice", search.Criteria{Filename: "invoice*.pdf"}, search.Paging{})
	if got := sortedNames(resp); !equal(got, []string{"Archive/2023/invoice-old.pdf", "Documents/invoice-2023.pdf"}) {
		t.Errorf("filename search got %v", got)
	}

	resp = runSearch(t, b, "alice", search.Criteria{Filename: "*", FileTypes: []string{"pdfs"}}, search.Paging{})
	if len(resp.Files) != 3 {
		t.Errorf("expected 3 pdfs including upper case extension, got %v", names(resp))
	}
}

func TestBleveDatesAndExclusions(t *testing.T) {
	b := newTestBleve(t)

	resp := runSearch(t, b, "alice", search.Criteria{
		Content:    "invoice",
		AfterDate:  "2023-01-01",
		BeforeDate: "2024-01-01",
	}, search.Paging{})
	if got := names(resp); !equal(got, []string{"Documents/invoice-2023.pdf"}) {
		t.Errorf("date range got %v", got)
	}

	resp = runSearch(t, b, "alice", search.Criteria{Content: "invoice", ExcludeFolders: []string{"Archive/"}}, search.Paging{})
	for _, n := range names(resp) {
		if n == "Archive/2023/invoice-old.pdf" {
			t.Errorf("excluded folder returned: %v", names(resp))
		}
	}
}

func TestBleveSortAndPaging(t *testing.T) {
	b := newTestBleve(t)

	resp := runSearch(t, b, "alice", search.Criteria{Filename: "*"}, search.Paging{Sort: search.SortPath, Order: search.Asc, Size: 2})
	want := []string{"Archive/2023/invoice-old.pdf", "Documents/Scan.PDF"}
	if got := names(resp); !equal(got, want) {
		t.Errorf("page 0 got %v, want %v", got, want)
	}

	resp = runSearch(t, b, "alice", search.Criteria{Filename: "*"}, search.Paging{Sort: search.SortPath, Order: search.Asc, Size: 2, Page: 1})
	want = []string{"Documents/invoice-2023.pdf", "notes.txt"}
	if got := names(resp); !equal(got, want) {
		t.Errorf("page 1 got %v, want %v", got, want)
	}

	resp = runSearch(t, b, "alice", search.Criteria{Filename: "*"}, search.Paging{Sort: search.SortModified, Order: search.Desc})
	if got := names(resp); len(got) == 0 || got[0] != "Documents/Scan.PDF" {
		t.Errorf("modified desc got %v", got)
	}
}

func TestBleveHighlightsAndModified(t *testing.T) {
	b := newTestBleve(t)

	resp := runSearch(t, b, "alice", search.Criteria{Content: "grocery"}, search.Paging{})
	if len(resp.Files) != 1 {
		t.Fatalf("expected one hit, got %v", names(resp))
	}
	rec := resp.Files[0]
	if len(rec.Highlights["content"]) == 0 {
		t.Errorf("expected content highlights, got %v", rec.Highlights)
	}
	if rec.ModifiedAt == nil || *rec.ModifiedAt != 1700000000 {
		t.Errorf("unexpected modified %v", rec.ModifiedAt)
	}
	if rec.ContentType != "text/plain" {
		t.Errorf("unexpected content type %s", rec.ContentType)
	}
}

func TestIndexerDelete(t *testing.T) {
	idx, err := OpenBleve("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	ix := NewIndexer(idx)
	if err := ix.Index(Document{FileID: "1", Title: "a.txt"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Index(Document{Title: "missing id"}); err == nil {
		t.Error("expected error for a document without id")
	}
	if err := ix.Delete("1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := ix.Count(); n != 0 {
		t.Errorf("expected empty index, got %d", n)
	}
}
