package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/index"
	"github.com/rubiojr/filefinder/pkg/search"
)

func TestCollectAndSearchDocuments(t *testing.T) {
	home := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(home, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("Documents/invoice.txt", "total amount due for the invoice")
	write("Documents/letter.md", "dear friend")
	write("photo.jpg", "\xff\xd8binary")

	store, err := files.OpenStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	mime := enrich.NewMimeResolver("https://cloud.example.com")
	scanner := files.NewScanner(store, mime, map[string]string{"alice": home})
	if _, err := scanner.Scan(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}

	docs, err := collectDocuments(context.Background(), store, "alice", home)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("collected %d documents, want 3", len(docs))
	}
	byTitle := map[string]index.Document{}
	for _, d := range docs {
		byTitle[d.Title] = d
	}
	if byTitle["Documents/invoice.txt"].Content == "" {
		t.Error("text content was not collected")
	}
	if byTitle["photo.jpg"].Content != "" {
		t.Error("binary content should not be indexed")
	}
	if byTitle["Documents/letter.md"].ShareNames["alice"] != "/Documents/letter.md" {
		t.Errorf("unexpected share names %v", byTitle["Documents/letter.md"].ShareNames)
	}

	idx, err := index.OpenBleve("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := index.NewIndexer(idx).Index(docs...); err != nil {
		t.Fatal(err)
	}

	backend := index.NewBackend(index.NewBleveExecutor(idx), mime, enrich.NewLinkBuilder("https://cloud.example.com"))
	svc := search.NewService(backend, search.StaticIdentity("alice"), nil)
	resp, err := svc.Search(context.Background(), search.Criteria{Content: "invoice"}, search.Paging{Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Hits != 1 || len(resp.Files) != 1 || resp.Files[0].Name != "Documents/invoice.txt" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
