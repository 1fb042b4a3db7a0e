package api

import (
	"net/http"

	"github.com/rubiojr/filefinder/pkg/metrics"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/search", metrics.Middleware("/api/search", http.HandlerFunc(s.HandleSearch)))
	mux.Handle("POST /api/search", metrics.Middleware("/api/search", http.HandlerFunc(s.HandleSearchJSON)))
	mux.Handle("GET /api/capabilities", metrics.Middleware("/api/capabilities", http.HandlerFunc(s.HandleCapabilities)))
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}
