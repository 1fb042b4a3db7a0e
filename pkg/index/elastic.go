package index

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/search"
)

// DefaultRetries is the number of extra attempts made when a host cannot
// be reached.
const DefaultRetries = 3

// ElasticConfig configures an ElasticExecutor.
type ElasticConfig struct {
	// Hosts is a comma separated list of base URLs. Credentials embedded in
	// a host URL are used for basic auth when Username is empty.
	Hosts           string
	Index           string
	Username        string
	Password        string
	AllowSelfSigned bool
	Retries         int
	Timeout         time.Duration
}

// ElasticExecutor runs queries against an Elasticsearch cluster through the
// official client.
type ElasticExecutor struct {
	client  *elasticsearch.Client
	hosts   []string
	index   string
	timeout time.Duration
	logger  *log.Logger
}

var _ Executor = (*ElasticExecutor)(nil)

// NewElasticExecutor validates cfg and returns an executor. A missing host
// or index is reported as a NotConfigured ConfigError.
func NewElasticExecutor(cfg ElasticConfig) (*ElasticExecutor, error) {
	hosts, user, pass, err := parseHosts(cfg.Hosts)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, &search.ConfigError{Kind: search.NotConfigured, Message: "no elasticsearch host configured"}
	}
	if strings.TrimSpace(cfg.Index) == "" {
		return nil, &search.ConfigError{Kind: search.NotConfigured, Message: "no elasticsearch index configured"}
	}
	if cfg.Username != "" {
		user, pass = cfg.Username, cfg.Password
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AllowSelfSigned {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  hosts,
		Username:   user,
		Password:   pass,
		MaxRetries: retries,
		Transport:  transport,
	})
	if err != nil {
		return nil, &search.ConfigError{Kind: search.NotConfigured, Message: "creating elasticsearch client", Err: err}
	}

	return &ElasticExecutor{
		client:  client,
		hosts:   hosts,
		index:   strings.TrimSpace(cfg.Index),
		timeout: timeout,
		logger:  log.ForService("elasticsearch"),
	}, nil
}

// parseHosts splits and cleans the host list. Userinfo is stripped from
// the URLs and the first credentials found are returned.
func parseHosts(list string) (hosts []string, user, pass string, err error) {
	for _, h := range strings.Split(list, ",") {
		h = strings.TrimRight(strings.TrimSpace(h), "/")
		if h == "" {
			continue
		}
		u, perr := url.Parse(h)
		if perr != nil || u.Host == "" {
			return nil, "", "", &search.ConfigError{
				Kind:    search.NotConfigured,
				Message: fmt.Sprintf("invalid elasticsearch host %q", h),
				Err:     perr,
			}
		}
		if u.User != nil {
			if user == "" && pass == "" {
				user = u.User.Username()
				pass, _ = u.User.Password()
			}
			u.User = nil
		}
		hosts = append(hosts, u.String())
	}
	return hosts, user, pass, nil
}

func (e *ElasticExecutor) Name() string {
	return "elasticsearch"
}

// Hosts returns the cleaned host URLs without credentials.
func (e *ElasticExecutor) Hosts() []string {
	return e.hosts
}

type elasticResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []Hit           `json:"hits"`
	} `json:"hits"`
}

// Execute runs q on the _search endpoint of the index. The client retries
// unreachable hosts on the next host in the list. An error answer from the
// cluster is returned as a Result carrying its status and body.
func (e *ElasticExecutor) Execute(ctx context.Context, q *Query) (*Result, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}
	e.logger.Debugf("query: %s", body)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	es := e.client
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(e.index),
		es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, e.requestError(ctx, err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return &Result{StatusCode: res.StatusCode, Body: string(respBody)}, nil
	}

	var parsed elasticResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	total, err := parseTotal(parsed.Hits.Total)
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: res.StatusCode, Total: total, Hits: parsed.Hits.Hits}, nil
}

// Ping checks that the index exists and is reachable.
func (e *ElasticExecutor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	es := e.client
	res, err := es.Indices.Exists([]string{e.index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return e.requestError(ctx, err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &search.ConfigError{
			Kind:    search.BackendUnavailable,
			Message: fmt.Sprintf("index %s answered with status %d", e.index, res.StatusCode),
		}
	}
	return nil
}

func (e *ElasticExecutor) requestError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("elasticsearch request canceled: %w", ctx.Err())
	}
	e.logger.Warnf("request to %s failed: %v", strings.Join(e.hosts, ","), err)
	return fmt.Errorf("elasticsearch request failed: %w", err)
}

// parseTotal accepts both the legacy numeric total and the {"value": n}
// object.
func parseTotal(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, errors.New("unexpected hits.total format: " + string(raw))
	}
	return obj.Value, nil
}
