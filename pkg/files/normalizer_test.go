package files

import (
	"errors"
	"net/url"
	"testing"

	"github.com/rubiojr/filefinder/pkg/enrich"
)

type failingLinks struct{}

func (failingLinks) AbsoluteLink(string, string) (string, error) {
	return "", errors.New("url generator offline")
}

func newNormalizer() *Normalizer {
	return &Normalizer{
		Mime:  enrich.NewMimeResolver("https://cloud.example.com"),
		Links: enrich.NewLinkBuilder("https://cloud.example.com"),
	}
}

func TestNormalizeFile(t *testing.T) {
	node := Node{FileID: 42, Path: "/alice/files/Documents/report.pdf", MTime: 1700000000, MimeType: "application/pdf"}

	rec, ok := newNormalizer().Normalize(node, "alice")
	if !ok || rec.Degraded() {
		t.Fatalf("unexpected result %+v, %v", rec, ok)
	}
	if rec.Name != "Documents/report.pdf" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.ModifiedAt == nil || *rec.ModifiedAt != 1700000000 {
		t.Errorf("modified at = %v", rec.ModifiedAt)
	}
	if rec.Highlights == nil || len(rec.Highlights) != 0 {
		t.Errorf("highlights = %v", rec.Highlights)
	}

	u, err := url.Parse(rec.Link)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Query().Get("dir"); got != "/Documents" {
		t.Errorf("dir = %q", got)
	}
	if got := u.Query().Get("fileid"); got != "42" {
		t.Errorf("fileid = %q", got)
	}
}

func TestNormalizeDirectoryAndRootFile(t *testing.T) {
	n := newNormalizer()

	rec, ok := n.Normalize(Node{FileID: 7, Path: "/alice/files/Photos", IsDir: true}, "alice")
	if !ok || rec.Name != "Photos/" || rec.ContentType != enrich.DirectoryMimeType {
		t.Errorf("directory record %+v", rec)
	}

	rec, ok = n.Normalize(Node{FileID: 8, Path: "/alice/files/todo.txt"}, "alice")
	if !ok || rec.Degraded() {
		t.Fatalf("root file record %+v", rec)
	}
	if rec.ContentType != "text/plain" {
		t.Errorf("detected %q", rec.ContentType)
	}
	u, _ := url.Parse(rec.Link)
	if got := u.Query().Get("dir"); got != "/" {
		t.Errorf("dir = %q", got)
	}
}

func TestNormalizeDropsNodesOutsideHome(t *testing.T) {
	n := newNormalizer()
	for _, p := range []string{"/bob/files/secret.txt", "/alice/filesystem/x", "/alice/files"} {
		if _, ok := n.Normalize(Node{FileID: 1, Path: p}, "alice"); ok {
			t.Errorf("%s was not dropped", p)
		}
	}
}

func TestNormalizeDegradesOnLinkFailure(t *testing.T) {
	n := &Normalizer{Mime: enrich.NewMimeResolver(""), Links: failingLinks{}}
	rec, ok := n.Normalize(Node{FileID: 1, Path: "/alice/files/a.txt"}, "alice")
	if !ok || !rec.Degraded() {
		t.Fatalf("expected degraded record, got %+v", rec)
	}
	if rec.Name != "a.txt" || rec.Error != "url generator offline" {
		t.Errorf("unexpected record %+v", rec)
	}
}
