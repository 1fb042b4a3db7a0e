package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/filefinder/pkg/auth"
	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/search"
)

const testKey = "alice-key"

func setupTestAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := files.OpenStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	entries := []files.Entry{
		{Path: "Documents", IsDir: true, MTime: 1690000000},
		{Path: "Documents/report-2023.pdf", MimeType: "application/pdf", MTime: 1690000000},
		{Path: "Documents/report-2024.pdf", MimeType: "application/pdf", MTime: 1710000000},
		{Path: "Archive/report-2019.pdf", MimeType: "application/pdf", MTime: 1560000000},
		{Path: "notes.txt", MimeType: "text/plain", MTime: 1700000000},
	}
	if err := store.Replace(context.Background(), "alice", "/srv/alice", entries, time.Now()); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	base := "https://cloud.example.com"
	backend := files.NewBackend(store, enrich.NewMimeResolver(base), enrich.NewLinkBuilder(base))
	svc := search.NewService(backend, auth.ContextIdentity{}, nil)
	svc.SetMaxPageSize(50)

	server := NewServer(svc, false)
	ts := httptest.NewServer(server.Handler(auth.Chain{auth.NewAPIKeys(map[string]string{testKey: "alice"})}))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func get(t *testing.T, ts *httptest.Server, path string, authenticated bool) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if authenticated {
		req.Header.Set(auth.APIKeyHeader, testKey)
	}
	return do(t, req)
}

func TestHandleSearch(t *testing.T) {
	ts := setupTestAPIServer(t)

	q := url.Values{}
	q.Set("filename", "report*.pdf")
	q.Add("exclude_folders", "Archive")
	q.Set("sort", "modified")
	q.Set("sort_order", "asc")
	resp, body := get(t, ts, "/api/search?"+q.Encode(), true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var result search.Response
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Backend != "files" || result.Hits != 2 || result.Size != 20 {
		t.Fatalf("unexpected response %s", body)
	}
	if result.Files[0].Name != "Documents/report-2023.pdf" || result.Files[1].Name != "Documents/report-2024.pdf" {
		t.Errorf("unexpected order %s", body)
	}
	if !strings.Contains(string(body), `"highlights":{}`) {
		t.Errorf("highlights should be an empty object: %s", body)
	}
}

func TestHandleSearchJSON(t *testing.T) {
	ts := setupTestAPIServer(t)

	payload := `{"search_criteria": {"filename": "*", "exclude_folders": ["Documents", 42, null]}, "size": 10, "sort": "path", "sort_order": "asc"}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/search", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testKey)

	resp, body := do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var result search.Response
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range result.Files {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "Archive/report-2019.pdf,notes.txt" {
		t.Errorf("unexpected files %v", names)
	}
}

func TestSearchErrors(t *testing.T) {
	ts := setupTestAPIServer(t)

	tests := []struct {
		name          string
		path          string
		authenticated bool
		wantStatus    int
		wantError     string
	}{
		{"missing search term", "/api/search?file_types=pdfs", true, http.StatusExpectationFailed, "missing_search_term"},
		{"invalid date", "/api/search?filename=a&before_date=someday", true, http.StatusExpectationFailed, "invalid_date"},
		{"invalid page", "/api/search?filename=a&page=x", true, http.StatusExpectationFailed, "invalid_parameter"},
		{"negative page", "/api/search?filename=a&page=-1", true, http.StatusExpectationFailed, "invalid_parameter"},
		{"page beyond result window", "/api/search?filename=a&size=20&page=922337203685477580", true, http.StatusExpectationFailed, "invalid_parameter"},
		{"no user", "/api/search?filename=a", false, http.StatusServiceUnavailable, "no_user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts, tt.path, tt.authenticated)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, body)
			}
			var e ErrorResponse
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if e.Error != tt.wantError || e.Message == "" {
				t.Errorf("unexpected error %+v", e)
			}
		})
	}
}

func TestBadCredentials(t *testing.T) {
	ts := setupTestAPIServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/search?filename=a", nil)
	req.Header.Set(auth.APIKeyHeader, "wrong")
	resp, _ := do(t, req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandleCapabilities(t *testing.T) {
	ts := setupTestAPIServer(t)

	resp, body := get(t, ts, "/api/capabilities", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var caps CapabilitiesResponse
	if err := json.Unmarshal(body, &caps); err != nil {
		t.Fatal(err)
	}
	if caps.Backend != "files" || caps.FullTextSearchAvailable || len(caps.FileTypes) == 0 {
		t.Errorf("unexpected capabilities %+v", caps)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	ts := setupTestAPIServer(t)

	resp, body := get(t, ts, "/health", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Backend != "files" {
		t.Errorf("unexpected health %+v", health)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("missing request id: %q", resp.Header.Get(RequestIDHeader))
	}

	id := uuid.New().String()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, _ = do(t, req)
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestGzipResponses(t *testing.T) {
	ts := setupTestAPIServer(t)

	q := url.Values{"filename": {"*"}, "size": {"50"}}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/search?"+q.Encode(), nil)
	req.Header.Set(auth.APIKeyHeader, testKey)
	req.Header.Set("Accept-Encoding", "gzip")

	// Setting Accept-Encoding disables transparent decompression.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Skip("response too small to be compressed")
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var result search.Response
	if err := json.NewDecoder(zr).Decode(&result); err != nil {
		t.Fatalf("decoding gzipped body: %v", err)
	}
	if result.Backend != "files" {
		t.Errorf("unexpected response %+v", result)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestAPIServer(t)

	get(t, ts, "/api/search?filename=notes.txt", true)
	resp, body := get(t, ts, "/metrics", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "filefinder_search_requests_total") {
		t.Error("search metrics not exported")
	}
}
