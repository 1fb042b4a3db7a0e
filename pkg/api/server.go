package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/filefinder/pkg/auth"
	"github.com/rubiojr/filefinder/pkg/log"
	"github.com/rubiojr/filefinder/pkg/search"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	search   *search.Service
	fullText bool
	logger   *log.Logger
}

// NewServer returns an API server for svc. fullText reports whether the
// backend searches file contents.
func NewServer(svc *search.Service, fullText bool) *Server {
	return &Server{
		search:   svc,
		fullText: fullText,
		logger:   log.ForService("api"),
	}
}

// Handler returns the API with its middleware stack: compression, request
// ids, CORS and authentication.
func (s *Server) Handler(chain auth.Chain) http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var h http.Handler = mux
	h = auth.Middleware(chain, "/health", "/metrics")(h)
	h = CorsMiddleware(h)
	h = RequestIDMiddleware(h)
	return gzhttp.GzipHandler(h)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware keeps a caller supplied X-Request-ID or assigns a
// new one, and echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
