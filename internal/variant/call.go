package variant

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dyluth/huddle/pkg/activity"
)

// Limits are the generic guards shared by every variant.
type Limits struct {
	MaxTextLength int // runes per text field
	MaxEntries    int // entries per collection
}

// DefaultLimits returns the limits used when configuration leaves them unset.
func DefaultLimits() Limits {
	return Limits{MaxTextLength: 2000, MaxEntries: 200}
}

// Call is the context one action is applied in.
type Call struct {
	Session *activity.Session // metadata only; the payload is decoded separately
	Actor   activity.Actor
	Now     time.Time
	Limits  Limits

	// NewIDFunc overrides entry id generation. Defaults to random UUIDs.
	NewIDFunc func() string
}

// NewCall builds a call with default limits and id generation.
func NewCall(session *activity.Session, actor activity.Actor, now time.Time) *Call {
	return &Call{Session: session, Actor: actor, Now: now, Limits: DefaultLimits()}
}

// NewID returns a fresh entry id.
func (c *Call) NewID() string {
	if c.NewIDFunc != nil {
		return c.NewIDFunc()
	}
	return uuid.New().String()
}

// NowMs returns the call time in Unix milliseconds.
func (c *Call) NowMs() int64 {
	return c.Now.UnixMilli()
}

// Text trims a text field and checks it against the length guard.
// Required fields must be non-empty after trimming.
func (c *Call) Text(field, value string, required bool) (string, error) {
	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", activity.InvalidField(field, "must not be empty")
	}
	max := c.Limits.MaxTextLength
	if max <= 0 {
		max = DefaultLimits().MaxTextLength
	}
	if n := utf8.RuneCountInString(value); n > max {
		return "", activity.InvalidField(field, "is %d characters, limit is %d", n, max)
	}
	return value, nil
}

// Room checks that a collection currently holding n entries can take one more.
func (c *Call) Room(collection string, n int) error {
	max := c.Limits.MaxEntries
	if max <= 0 {
		max = DefaultLimits().MaxEntries
	}
	if n >= max {
		return activity.LimitExceeded("%s is full (%d entries)", collection, max)
	}
	return nil
}

// Entry is the common header of every collection entry.
type Entry struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// EntryID returns the entry id.
func (e Entry) EntryID() string { return e.ID }

// Author returns the author's actor id.
func (e Entry) Author() string { return e.AuthorID }
