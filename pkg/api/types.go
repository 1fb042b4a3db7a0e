package api

import (
	"time"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CapabilitiesResponse struct {
	Backend                 string   `json:"backend"`
	FullTextSearchAvailable bool     `json:"fulltextsearch_available"`
	FileTypes               []string `json:"file_types"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
}
