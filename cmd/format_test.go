package cmd

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		7:       "7",
		999:     "999",
		1500:    "1.5K",
		2500000: "2.5M",
	}
	for n, want := range tests {
		if got := formatNumber(n); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		250 * time.Millisecond:  "250ms",
		1500 * time.Millisecond: "1.5 seconds",
		90 * time.Second:        "1.5 minutes",
		3 * time.Hour:           "3.0 hours",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	if got := formatTime(now.Add(-10 * time.Second)); got != "just now" {
		t.Errorf("got %q", got)
	}
	if got := formatTime(now.Add(-3 * time.Hour)); got != "3 hours ago" {
		t.Errorf("got %q", got)
	}
	old := time.Date(2001, 2, 3, 4, 5, 0, 0, time.Local)
	if got := formatTime(old); got != "Feb 3, 2001" {
		t.Errorf("got %q", got)
	}
}
