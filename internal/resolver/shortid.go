package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/huddle/pkg/activity"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// Store is what resolution needs from a session store. Both the Redis
// client and the SQLite store implement it.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
	ScanSessionIDs(ctx context.Context, prefix string) ([]string, error)
}

// ResolveSessionID resolves a short ID prefix to a full session UUID.
//
// A full UUID is checked for existence and returned as-is. Anything else
// must be at least MinShortIDLength characters and match exactly one
// session.
func ResolveSessionID(ctx context.Context, store Store, shortID string) (string, error) {
	if IsFullID(shortID) {
		if _, err := store.GetSession(ctx, shortID); err != nil {
			if activity.IsNotFound(err) {
				return "", &NotFoundError{ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify session existence: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := store.ScanSessionIDs(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for session: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// IsFullID reports whether id is shaped like a full session UUID.
func IsFullID(id string) bool {
	return len(id) == 36 && strings.Count(id, "-") == 4
}

// NotFoundError indicates no sessions matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sessions found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple sessions matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d sessions", e.ShortID, len(e.Matches))
}

// Suggestions lists the matching ids (up to 10, then "...and N more") for
// display under an error title.
func (e *AmbiguousError) Suggestions() []string {
	shown := e.Matches
	if len(shown) > 10 {
		shown = shown[:10]
	}
	out := make([]string, 0, len(shown)+1)
	out = append(out, shown...)
	if rest := len(e.Matches) - len(shown); rest > 0 {
		out = append(out, fmt.Sprintf("...and %d more", rest))
	}
	return out
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
