package search

import "fmt"

// QueryErrorKind distinguishes caller caused failures.
type QueryErrorKind string

const (
	MissingSearchTerm QueryErrorKind = "missing_search_term"
	InvalidDate       QueryErrorKind = "invalid_date"
	InvalidParameter  QueryErrorKind = "invalid_parameter"
)

// QueryError reports malformed search criteria. It is never retried.
type QueryError struct {
	Kind QueryErrorKind
	// Field names the offending input, e.g. "before" for InvalidDate.
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrMissingSearchTerm is returned whenever neither content nor filename is given.
func ErrMissingSearchTerm() *QueryError {
	return &QueryError{Kind: MissingSearchTerm, Message: "either content or filename needs to be provided"}
}

// ConfigErrorKind distinguishes environment caused failures.
type ConfigErrorKind string

const (
	NotConfigured      ConfigErrorKind = "not_configured"
	NoUser             ConfigErrorKind = "no_user"
	BackendUnavailable ConfigErrorKind = "backend_unavailable"
)

// ConfigError reports a problem with the environment the search runs in:
// a missing backend, an unresolvable user or a backend answering with a
// non-success status.
type ConfigError struct {
	Kind    ConfigErrorKind
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
