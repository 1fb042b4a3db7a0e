package index

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rubiojr/filefinder/pkg/search"
)

// Result is the answer of an executor to one query.
type Result struct {
	StatusCode int
	Total      int
	Hits       []Hit
	// Body carries the raw response body of unsuccessful requests.
	Body string
}

// Executor runs compiled queries against an index.
type Executor interface {
	Name() string
	Execute(ctx context.Context, q *Query) (*Result, error)
}

// Backend adapts an Executor to search.Backend.
type Backend struct {
	exec       Executor
	compiler   Compiler
	normalizer *Normalizer
}

var _ search.Backend = (*Backend)(nil)

// NewBackend returns a search backend running queries on exec.
func NewBackend(exec Executor, mime search.MimeResolver, links search.LinkBuilder) *Backend {
	return &Backend{
		exec:       exec,
		normalizer: &Normalizer{Mime: mime, Links: links},
	}
}

func (b *Backend) Name() string {
	return b.exec.Name()
}

func (b *Backend) Compile(v *search.Validated, user string, p search.Paging) (search.Query, error) {
	q, err := b.compiler.Compile(v, user, p)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (b *Backend) Execute(ctx context.Context, q search.Query, user string) (*search.RawPage, error) {
	iq, ok := q.(*Query)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}

	res, err := b.exec.Execute(ctx, iq)
	if err != nil {
		return nil, fmt.Errorf("executing %s query: %w", b.exec.Name(), err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, &search.ConfigError{
			Kind:    search.BackendUnavailable,
			Message: fmt.Sprintf("%s answered with status %d: %s", b.exec.Name(), res.StatusCode, res.Body),
		}
	}

	page := &search.RawPage{Total: res.Total, Hits: make([]search.RawHit, len(res.Hits))}
	for i, h := range res.Hits {
		page.Hits[i] = h
	}
	return page, nil
}

func (b *Backend) Normalize(hit search.RawHit, user string) (search.Record, bool) {
	h, ok := hit.(Hit)
	if !ok {
		return search.ErrorRecord(fmt.Sprintf("%v", hit), fmt.Errorf("unexpected hit type %T", hit)), true
	}
	return b.normalizer.Normalize(h, user)
}
