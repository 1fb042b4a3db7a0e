package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/search"
)

const sampleResponse = `{
	"hits": {
		"total": {"value": 2, "relation": "eq"},
		"hits": [
			{"_id": "files:10", "_score": 1.5, "_source": {"title": "Documents/a.pdf", "lastModified": 1700000000, "share_names": {"alice": "/Documents/a.pdf"}}},
			{"_id": "files:11", "_score": 1.1, "_source": {"title": "b.pdf", "lastModified": 1700000001, "share_names": {"alice": null, "bob": "/b.pdf"}}}
		]
	}
}`

// elasticHandler answers like an Elasticsearch node, which the client
// checks through the product header.
func elasticHandler(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		h(w, r)
	})
}

func TestNewElasticExecutorConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ElasticConfig
		wantErr bool
	}{
		{"no hosts", ElasticConfig{Hosts: " , ", Index: "files"}, true},
		{"no index", ElasticConfig{Hosts: "http://localhost:9200"}, true},
		{"bad host", ElasticConfig{Hosts: "localhost", Index: "files"}, true},
		{"ok", ElasticConfig{Hosts: "http://a:9200/, https://b:9200", Index: "files"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewElasticExecutor(tt.cfg)
			if tt.wantErr {
				var ce *search.ConfigError
				if !errors.As(err, &ce) || ce.Kind != search.NotConfigured {
					t.Fatalf("expected NotConfigured, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(e.Hosts(), ","); got != "http://a:9200,https://b:9200" {
				t.Errorf("unexpected hosts %s", got)
			}
		})
	}
}

func TestElasticExecute(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]any
	srv := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	host := strings.Replace(srv.URL, "http://", "http://elastic:secret@", 1)
	exec, err := NewElasticExecutor(ElasticConfig{Hosts: host + "/", Index: "nextcloud"})
	if err != nil {
		t.Fatal(err)
	}

	backend := NewBackend(exec, enrich.NewMimeResolver(""), enrich.NewLinkBuilder(""))
	svc := search.NewService(backend, search.StaticIdentity("alice"), nil)

	resp, err := svc.Search(context.Background(), search.Criteria{Content: "report"}, search.Paging{Page: 1, Size: 2})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/nextcloud/_search" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotUser != "elastic" || gotPass != "secret" {
		t.Errorf("basic auth not taken from host: %q/%q", gotUser, gotPass)
	}
	if gotBody["from"] != float64(2) || gotBody["size"] != float64(2) {
		t.Errorf("unexpected paging in body: %v", gotBody)
	}
	if resp.Hits != 2 || resp.Backend != "elasticsearch" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Files) != 1 || resp.Files[0].Name != "Documents/a.pdf" {
		t.Errorf("expected only the hit shared with alice, got %+v", resp.Files)
	}
}

func TestElasticNon200IsBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"cluster red"}`))
	}))
	defer srv.Close()

	exec, err := NewElasticExecutor(ElasticConfig{Hosts: srv.URL, Index: "files"})
	if err != nil {
		t.Fatal(err)
	}
	backend := NewBackend(exec, enrich.NewMimeResolver(""), enrich.NewLinkBuilder(""))

	q, err := backend.Compile(&search.Validated{Filename: "x"}, "alice", search.Paging{Size: 5})
	if err != nil {
		t.Fatal(err)
	}
	_, err = backend.Execute(context.Background(), q, "alice")
	var ce *search.ConfigError
	if !errors.As(err, &ce) || ce.Kind != search.BackendUnavailable {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
	if !strings.Contains(ce.Message, "cluster red") {
		t.Errorf("expected response body in message, got %q", ce.Message)
	}
}

func TestElasticRetriesNextHost(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"hits":{"total":7,"hits":[]}}`))
	}))
	defer srv.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	exec, err := NewElasticExecutor(ElasticConfig{Hosts: deadURL + "," + srv.URL, Index: "files"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := exec.Execute(context.Background(), &Query{Size: 1, Bool: &Bool{}})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || res.Total != 7 {
		t.Errorf("expected one call to the live host and total 7, got calls=%d total=%d", calls, res.Total)
	}
}

func TestElasticPing(t *testing.T) {
	srv := httptest.NewServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.Path != "/files" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec, err := NewElasticExecutor(ElasticConfig{Hosts: srv.URL, Index: "files"})
	if err != nil {
		t.Fatal(err)
	}
	if err := exec.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	missing, _ := NewElasticExecutor(ElasticConfig{Hosts: srv.URL, Index: "other"})
	if err := missing.Ping(context.Background()); err == nil {
		t.Error("expected ping error for a missing index")
	}
}

func TestElasticSelfSignedCertificates(t *testing.T) {
	srv := httptest.NewTLSServer(elasticHandler(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hits":{"total":3,"hits":[]}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name            string
		allowSelfSigned bool
		wantErr         bool
	}{
		{"verified", false, true},
		{"self signed allowed", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := NewElasticExecutor(ElasticConfig{
				Hosts:           srv.URL,
				Index:           "files",
				AllowSelfSigned: tt.allowSelfSigned,
				Retries:         1,
			})
			if err != nil {
				t.Fatal(err)
			}
			res, err := exec.Execute(context.Background(), &Query{Size: 1, Bool: &Bool{}})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected certificate error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != 3 {
				t.Errorf("expected total 3, got %d", res.Total)
			}
		})
	}
}

func TestParseTotal(t *testing.T) {
	for raw, want := range map[string]int{`5`: 5, `{"value": 9}`: 9, `null`: 0} {
		got, err := parseTotal(json.RawMessage(raw))
		if err != nil || got != want {
			t.Errorf("parseTotal(%s) = %d, %v", raw, got, err)
		}
	}
	if _, err := parseTotal(json.RawMessage(`"x"`)); err == nil {
		t.Error("expected error for string total")
	}
}
