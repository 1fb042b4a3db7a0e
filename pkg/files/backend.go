package files

import (
	"context"
	"fmt"

	"github.com/rubiojr/filefinder/pkg/search"
)

// Backend searches the file cache. It is used when no full-text index is
// available.
type Backend struct {
	store      *Store
	compiler   Compiler
	normalizer *Normalizer
}

var _ search.Backend = (*Backend)(nil)

// NewBackend returns a search backend over store.
func NewBackend(store *Store, mime search.MimeResolver, links search.LinkBuilder) *Backend {
	return &Backend{
		store:      store,
		normalizer: &Normalizer{Mime: mime, Links: links},
	}
}

func (b *Backend) Name() string {
	return "files"
}

func (b *Backend) Compile(v *search.Validated, user string, p search.Paging) (search.Query, error) {
	q, err := b.compiler.Compile(v, user, p)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Execute runs q. The cache cannot count matches beyond the page, so the
// total is the number of nodes returned.
func (b *Backend) Execute(ctx context.Context, q search.Query, user string) (*search.RawPage, error) {
	fq, ok := q.(*Query)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}
	if fq.User != user {
		return nil, fmt.Errorf("query compiled for %q executed for %q", fq.User, user)
	}

	nodes, err := b.store.Search(ctx, fq)
	if err != nil {
		return nil, &search.ConfigError{Kind: search.BackendUnavailable, Message: "file cache search failed", Err: err}
	}

	page := &search.RawPage{Total: len(nodes), Hits: make([]search.RawHit, len(nodes))}
	for i, n := range nodes {
		page.Hits[i] = n
	}
	return page, nil
}

func (b *Backend) Normalize(hit search.RawHit, user string) (search.Record, bool) {
	n, ok := hit.(Node)
	if !ok {
		return search.ErrorRecord(fmt.Sprintf("%v", hit), fmt.Errorf("unexpected hit type %T", hit)), true
	}
	return b.normalizer.Normalize(n, user)
}
