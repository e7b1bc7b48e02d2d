package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-05-01T18:30:00Z", time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC), true},
		{"2026-05-01T18:30:00.250+05:30", time.Date(2026, 5, 1, 13, 0, 0, 250_000_000, time.UTC), true},
		{"2026-05-01T18:30:15", time.Date(2026, 5, 1, 18, 30, 15, 0, time.UTC), true},
		{"2026-05-01T18:30", time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC), true},
		{" 2026-05-01 ", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"tomorrow", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseExpiry(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
