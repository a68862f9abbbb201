// Package notify tells the people who took part in a session that it has
// been closed.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dyluth/huddle/pkg/activity"
)

// KindSessionClosed is the only notification kind huddle sends.
const KindSessionClosed = "session_closed"

// Notification is one message for one recipient, handed to the external
// delivery worker.
type Notification struct {
	Kind          string        `json:"kind"`
	RecipientID   string        `json:"recipient_id"`
	SessionID     string        `json:"session_id"`
	Type          activity.Type `json:"type"`
	ChannelRef    string        `json:"channel_ref"`
	HostMessageID string        `json:"host_message_id"`
	ClosedBy      string        `json:"closed_by"`
	ClosedByName  string        `json:"closed_by_name"`
	ClosedAtMs    int64         `json:"closed_at_ms"`
}

// Dispatcher delivers notifications (email, push).
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// Queue is where RedisDispatcher hands notifications off.
type Queue interface {
	EnqueueNotification(ctx context.Context, v interface{}) error
}

// RedisDispatcher pushes notifications onto the instance notification list.
type RedisDispatcher struct {
	queue Queue
}

// NewRedisDispatcher creates a dispatcher backed by q, usually an
// *activity.Client.
func NewRedisDispatcher(q Queue) *RedisDispatcher {
	return &RedisDispatcher{queue: q}
}

// Send enqueues n.
func (r *RedisDispatcher) Send(ctx context.Context, n Notification) error {
	return r.queue.EnqueueNotification(ctx, n)
}

// Notifier fans a closed session out to its participants.
type Notifier struct {
	dispatcher Dispatcher
}

// New creates a notifier.
func New(d Dispatcher) *Notifier {
	return &Notifier{dispatcher: d}
}

// NotifyClosed notifies every participant of s except the closer. A failed
// send does not stop the others; all failures are returned joined.
func (n *Notifier) NotifyClosed(ctx context.Context, s *activity.Session, closer activity.Actor) error {
	recipients, err := Participants(s)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range recipients {
		if id == closer.ID {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		note := Notification{
			Kind:          KindSessionClosed,
			RecipientID:   id,
			SessionID:     s.ID,
			Type:          s.Type,
			ChannelRef:    s.ChannelRef,
			HostMessageID: s.HostMessageID,
			ClosedBy:      closer.ID,
			ClosedByName:  closer.DisplayName(),
			ClosedAtMs:    s.ClosedAtMs,
		}
		if err := n.dispatcher.Send(ctx, note); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// participantKeys are the payload fields that name an actor.
var participantKeys = map[string]bool{
	"author_id":    true,
	"actor_id":     true,
	"assignee_id":  true,
	"voter_ids":    true,
	"attendee_ids": true,
}

// Participants returns the creator and every actor named anywhere in the
// session payload, sorted and de-duplicated.
func Participants(s *activity.Session) ([]string, error) {
	seen := map[string]bool{s.CreatedBy: true}

	if len(s.Payload) > 0 {
		var doc interface{}
		if err := json.Unmarshal(s.Payload, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", s.ID, err)
		}
		collect(doc, seen)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// collect walks a decoded JSON document iteratively.
func collect(doc interface{}, seen map[string]bool) {
	stack := []interface{}{doc}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := v.(type) {
		case map[string]interface{}:
			for key, child := range node {
				if participantKeys[key] {
					addIDs(child, seen)
					continue
				}
				stack = append(stack, child)
			}
		case []interface{}:
			stack = append(stack, node...)
		}
	}
}

func addIDs(v interface{}, seen map[string]bool) {
	switch id := v.(type) {
	case string:
		seen[id] = true
	case []interface{}:
		for _, item := range id {
			if s, ok := item.(string); ok {
				seen[s] = true
			}
		}
	}
}
