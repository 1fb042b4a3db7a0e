package search

import "context"

// Query is a compiled, backend native query.
type Query interface {
	Offset() int
	Limit() int
}

// RawHit is one unnormalized item returned by a backend. Its concrete type
// belongs to the backend that produced it.
type RawHit any

// RawPage is what a backend returns for one executed query.
type RawPage struct {
	Total int
	Hits  []RawHit
}

// Backend is one searchable store. Compile, Execute and Normalize are
// called in that order for every search.
type Backend interface {
	// Name identifies the backend in responses, logs and metrics.
	Name() string
	// Compile turns validated criteria into a backend query for user. It
	// fails with MissingSearchTerm when neither content nor filename is set.
	Compile(v *Validated, user string, p Paging) (Query, error)
	// Execute runs q on behalf of user. A backend answering with a
	// non-success status yields a ConfigError of kind BackendUnavailable.
	Execute(ctx context.Context, q Query, user string) (*RawPage, error)
	// Normalize maps a hit to a record. It returns false when the hit must
	// be dropped because user cannot access it. It never panics; enrichment
	// failures produce a degraded record.
	Normalize(hit RawHit, user string) (Record, bool)
}

// IdentityProvider resolves the user a request acts for.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// StaticIdentity always resolves to the same user. The CLI uses it.
type StaticIdentity string

func (s StaticIdentity) CurrentUser(context.Context) (string, bool) {
	return string(s), s != ""
}

// MimeResolver detects content types and resolves their icons.
type MimeResolver interface {
	Detect(path string) (string, error)
	IconFor(mimeType string) (string, error)
}

// LinkBuilder creates the link that opens a result.
type LinkBuilder interface {
	AbsoluteLink(dir, fileID string) (string, error)
}
