package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateParser turns user supplied dates into epoch seconds. Dates without an
// explicit zone are interpreted in Location.
type DateParser struct {
	Location *time.Location
}

// NewDateParser returns a parser for the named IANA zone. An empty name
// selects UTC.
func NewDateParser(zone string) (*DateParser, error) {
	if zone == "" {
		return &DateParser{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", zone, err)
	}
	return &DateParser{Location: loc}, nil
}

// Parse returns the epoch seconds of s.
func (p *DateParser) Parse(s string) (int64, error) {
	loc := time.UTC
	if p != nil && p.Location != nil {
		loc = p.Location
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(s), loc)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
