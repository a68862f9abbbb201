// Package timespec parses the --since/--until flags of the CLI.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse parses a time specification into a Unix timestamp in milliseconds,
// relative to now. Supported forms:
//   - Go durations: "90m", "1h30m"
//   - day and week counts: "2d", "1w"
//   - RFC3339 timestamps: "2026-10-01T09:00:00Z"
//   - calendar dates: "2026-10-01" (midnight UTC)
//
// Relative forms mean "that long ago".
func Parse(spec string, now time.Time) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse(time.DateOnly, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if d, ok := parseDays(spec); ok {
		return now.Add(-d).UnixMilli(), nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '90m' or '2d', a date like '2026-10-01', or RFC3339)", spec)
}

// parseDays handles "Nd" and "Nw", which time.ParseDuration does not.
func parseDays(spec string) (time.Duration, bool) {
	if len(spec) < 2 {
		return 0, false
	}
	unit := spec[len(spec)-1]
	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	switch unit {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	}
	return 0, false
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
func ParseRange(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		if sinceMS, err = Parse(since, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if untilMS, err = Parse(until, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
