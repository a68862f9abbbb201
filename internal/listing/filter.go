package listing

import (
	"fmt"
	"path/filepath"

	"github.com/dyluth/huddle/pkg/activity"
)

// State filters sessions by lifecycle state.
type State string

const (
	StateAny    State = ""
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// ParseState validates a --state flag value.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateAny, StateOpen, StateClosed:
		return State(s), nil
	}
	return "", fmt.Errorf("invalid state %q: must be open or closed", s)
}

// Criteria defines filtering criteria for sessions.
// All filters are ANDed together - a session must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	TypeGlob         string // Glob pattern for the activity type, e.g. "*-board"
	CreatedBy        string // Exact match on the creator's actor id
	Channel          string // Exact match on channel_ref
	State            State
}

// Matches returns true if the session matches all filter criteria.
func (c *Criteria) Matches(s *activity.Session) bool {
	if c.SinceTimestampMs > 0 && s.CreatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && s.CreatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, string(s.Type))
		if err != nil || !matched {
			return false
		}
	}

	if c.CreatedBy != "" && s.CreatedBy != c.CreatedBy {
		return false
	}
	if c.Channel != "" && s.ChannelRef != c.Channel {
		return false
	}

	switch c.State {
	case StateOpen:
		return !s.Closed
	case StateClosed:
		return s.Closed
	}
	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.TypeGlob != "" ||
		c.CreatedBy != "" ||
		c.Channel != "" ||
		c.State != StateAny
}
