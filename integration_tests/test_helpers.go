package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/filefinder/pkg/config"
	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/search"
)

const testBaseURL = "https://cloud.example.com"

// TestFile is a file created in a test home with a fixed modification time.
type TestFile struct {
	Path     string
	Content  string
	Modified time.Time
}

// CreateTestHome writes files below a new temporary directory and returns it.
func CreateTestHome(t *testing.T, testFiles []TestFile) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range testFiles {
		p := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", f.Path, err)
		}
		if err := os.WriteFile(p, []byte(f.Content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", f.Path, err)
		}
		if !f.Modified.IsZero() {
			if err := os.Chtimes(p, f.Modified, f.Modified); err != nil {
				t.Fatalf("Failed to set times on %s: %v", f.Path, err)
			}
		}
	}
	return root
}

// CreateTestConfig writes a configuration for homes to tempDir and loads it
// back the same way the CLI does.
func CreateTestConfig(t *testing.T, tempDir string, homes map[string]string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		StorageDir: tempDir,
		BaseURL:    testBaseURL,
		Timezone:   "UTC",
		Files:      config.FilesConfig{Homes: homes},
	}

	configPath := filepath.Join(tempDir, "config.toml")
	if err := cfg.SaveConfig(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return loaded
}

// OpenTestStore opens the file cache named by cfg and scans every home.
func OpenTestStore(t *testing.T, cfg *config.Config) (*files.Store, *files.Scanner) {
	t.Helper()
	store, err := files.OpenStore(cfg.Files.DBPath)
	if err != nil {
		t.Fatalf("Failed to open file cache: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: failed to close file cache: %v", err)
		}
	})

	scanner := files.NewScanner(store, enrich.NewMimeResolver(cfg.BaseURL), cfg.Files.Homes)
	if err := scanner.ScanAll(context.Background()); err != nil {
		t.Fatalf("Failed to scan homes: %v", err)
	}
	return store, scanner
}

// NewTestService returns a search service over store answering as user.
func NewTestService(t *testing.T, cfg *config.Config, store *files.Store, identity search.IdentityProvider) *search.Service {
	t.Helper()
	dates, err := search.NewDateParser(cfg.Timezone)
	if err != nil {
		t.Fatalf("Failed to create date parser: %v", err)
	}
	backend := files.NewBackend(store, enrich.NewMimeResolver(cfg.BaseURL), enrich.NewLinkBuilder(cfg.BaseURL))
	svc := search.NewService(backend, identity, dates)
	svc.SetMaxPageSize(cfg.MaxPageSize)
	return svc
}

// RecordNames returns the names of resp's records in order.
func RecordNames(resp *search.Response) []string {
	names := make([]string, 0, len(resp.Files))
	for _, r := range resp.Files {
		names = append(names, r.Name)
	}
	return names
}
