package search

import (
	"context"
	"errors"
	"time"

	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/metrics"
)

// Service runs searches against a single backend chosen at startup.
type Service struct {
	backend     Backend
	identity    IdentityProvider
	dates       *DateParser
	maxPageSize int
	logger      *log.Logger
}

// NewService creates a search service. dates may be nil, in which case
// dates are parsed in UTC.
func NewService(backend Backend, identity IdentityProvider, dates *DateParser) *Service {
	if dates == nil {
		dates = &DateParser{Location: time.UTC}
	}
	return &Service{
		backend:  backend,
		identity: identity,
		dates:    dates,
		logger:   log.ForService("search"),
	}
}

// SetMaxPageSize caps the page size of every request. Zero disables the cap.
func (s *Service) SetMaxPageSize(n int) {
	s.maxPageSize = n
}

// Backend returns the backend name, or an empty string when none is set.
func (s *Service) Backend() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.Name()
}

// Search validates c, compiles it for the configured backend, executes it
// and normalizes the hits into a Response.
//
// Errors are either *QueryError (bad input, nothing was sent to the
// backend) or *ConfigError (no backend, no user, backend failure).
// Transport errors from the backend are returned wrapped as they are.
// Hits that fail enrichment are kept as degraded records and never fail
// the search.
func (s *Service) Search(ctx context.Context, c Criteria, p Paging) (*Response, error) {
	resp, err := s.search(ctx, c, p)
	metrics.SearchRequestsTotal.WithLabelValues(s.Backend(), outcome(err)).Inc()
	return resp, err
}

func (s *Service) search(ctx context.Context, c Criteria, p Paging) (*Response, error) {
	if s.backend == nil {
		return nil, &ConfigError{Kind: NotConfigured, Message: "no search backend configured"}
	}

	user, ok := "", false
	if s.identity != nil {
		user, ok = s.identity.CurrentUser(ctx)
	}
	if !ok || user == "" {
		return nil, &ConfigError{Kind: NoUser, Message: "no user could be resolved for this request"}
	}

	v, err := Validate(c, s.dates)
	if err != nil {
		return nil, err
	}
	p, err = ValidatePaging(p, s.maxPageSize)
	if err != nil {
		return nil, err
	}

	q, err := s.backend.Compile(v, user, p)
	if err != nil {
		return nil, err
	}

	name := s.backend.Name()
	s.logger.Debugf("user %s: %s query offset=%d limit=%d", user, name, q.Offset(), q.Limit())

	start := time.Now()
	page, err := s.backend.Execute(ctx, q, user)
	metrics.ObserveBackend(name, start)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Hits:    page.Total,
		Page:    p.Page,
		Size:    p.Size,
		Backend: name,
		Files:   make([]Record, 0, len(page.Hits)),
	}
	for _, hit := range page.Hits {
		rec, keep := s.backend.Normalize(hit, user)
		if !keep {
			metrics.DroppedHitsTotal.WithLabelValues(name).Inc()
			continue
		}
		if rec.Degraded() {
			metrics.DegradedRecordsTotal.WithLabelValues(name).Inc()
			s.logger.Warnf("user %s: result %q degraded: %s", user, rec.Name, rec.Error)
		}
		resp.Files = append(resp.Files, rec)
	}
	return resp, nil
}

func outcome(err error) string {
	var qe *QueryError
	var ce *ConfigError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &qe):
		return metrics.OutcomeQueryError
	case errors.As(err, &ce):
		return metrics.OutcomeConfigError
	default:
		return metrics.OutcomeError
	}
}
