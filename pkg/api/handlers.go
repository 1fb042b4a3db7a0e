package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rubiojr/filefinder/pkg/filetypes"
	"github.com/rubiojr/filefinder/pkg/search"
	"github.com/rubiojr/filefinder/pkg/version"
)

// maxBodyBytes bounds JSON search requests.
const maxBodyBytes = 1 << 20

// HandleSearch searches with flat query parameters.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	criteria, paging, err := search.ParseRequest(r.URL.Query())
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	s.runSearch(w, r, criteria, paging)
}

// HandleSearchJSON searches with a JSON body.
func (s *Server) HandleSearchJSON(w http.ResponseWriter, r *http.Request) {
	criteria, paging, err := search.DecodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	s.runSearch(w, r, criteria, paging)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, criteria search.Criteria, paging search.Paging) {
	resp, err := s.search.Search(r.Context(), criteria, paging)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	if resp.Files == nil {
		resp.Files = []search.Record{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *search.QueryError
	var ce *search.ConfigError
	switch {
	case errors.As(err, &qe):
		s.writeError(w, http.StatusExpectationFailed, string(qe.Kind), qe.Message)
	case errors.As(err, &ce):
		s.logger.Warnf("search unavailable [%s]: %v", r.Header.Get(RequestIDHeader), err)
		s.writeError(w, http.StatusServiceUnavailable, string(ce.Kind), ce.Message)
	case errors.Is(err, context.Canceled):
		s.logger.Debugf("search cancelled [%s]", r.Header.Get(RequestIDHeader))
	default:
		s.logger.Errorf("search failed [%s]: %v", r.Header.Get(RequestIDHeader), err)
		s.writeError(w, http.StatusBadGateway, "backend_error", "the search backend could not be reached")
	}
}

func (s *Server) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, CapabilitiesResponse{
		Backend:                 s.search.Backend(),
		FullTextSearchAvailable: s.fullText,
		FileTypes:               filetypes.Categories(),
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Backend:   s.search.Backend(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
