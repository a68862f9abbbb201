package variant

import "github.com/dyluth/huddle/pkg/activity"

const maxClientIDLength = 64

// Owned is satisfied by every type embedding Entry.
type Owned interface {
	EntryID() string
	Author() string
}

// indexOf returns the position of the entry with id, or -1.
func indexOf[E Owned](items []E, id string) int {
	for i, item := range items {
		if item.EntryID() == id {
			return i
		}
	}
	return -1
}

// authorOf resolves the author of an entry for owner-or-admin checks.
func authorOf[E Owned](items []E, id string) (string, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return "", false
	}
	return items[i].Author(), true
}

// removeAt drops the entry at i, keeping order.
func removeAt[E any](items []E, i int) []E {
	return append(items[:i:i], items[i+1:]...)
}

// mustFind returns the index of id or an InvalidInput error.
func mustFind[E Owned](items []E, field, id string) (int, error) {
	if id == "" {
		return -1, activity.InvalidField(field, "is required")
	}
	i := indexOf(items, id)
	if i < 0 {
		return -1, activity.InvalidField(field, "no entry with id %q", id)
	}
	return i, nil
}

// newEntry prepares the header of an entry about to be appended to items.
//
// clientID is the optional idempotency key supplied by the caller. When an
// entry with that id exists and belongs to the actor, replay is true and
// the caller must return without mutating; when it belongs to someone else
// the input is rejected. Capacity is checked only for genuinely new entries.
func newEntry[E Owned](c *Call, items []E, collection, clientID string) (entry Entry, replay bool, err error) {
	if clientID != "" {
		if len(clientID) > maxClientIDLength {
			return Entry{}, false, activity.InvalidField("id", "must be at most %d characters", maxClientIDLength)
		}
		if i := indexOf(items, clientID); i >= 0 {
			if items[i].Author() == c.Actor.ID {
				return Entry{}, true, nil
			}
			return Entry{}, false, activity.InvalidField("id", "id %q is already used by another participant", clientID)
		}
	}

	if err := c.Room(collection, len(items)); err != nil {
		return Entry{}, false, err
	}

	id := clientID
	if id == "" {
		id = c.NewID()
	}
	return Entry{
		ID:          id,
		AuthorID:    c.Actor.ID,
		AuthorName:  c.Actor.DisplayName(),
		CreatedAtMs: c.NowMs(),
	}, false, nil
}

// toggle adds id to set if absent and removes it if present. Returns the
// new set and whether id is now a member.
func toggle(set []string, id string) ([]string, bool) {
	for i, v := range set {
		if v == id {
			return append(set[:i:i], set[i+1:]...), false
		}
	}
	return append(set, id), true
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// oneOf checks enum membership for a field.
func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return activity.InvalidField(field, "must be one of %v, got %q", allowed, value)
}

// inRange checks an integer field against inclusive bounds.
func inRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return activity.InvalidField(field, "must be between %d and %d, got %d", lo, hi, value)
	}
	return nil
}
