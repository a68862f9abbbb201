// Package relay delivers domain events emitted after a committed mutation to
// the side-effect collaborators: the broadcaster, the closure notifier and
// the gamification counters.
//
// Delivery is best-effort. Emit never blocks the caller; a full buffer drops
// the event, and every delivery failure is logged and swallowed.
package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/dyluth/huddle/pkg/activity"
)

// Kind is the type of a domain event.
type Kind string

const (
	// SessionMutated follows every committed create or action.
	SessionMutated Kind = "session_mutated"

	// SessionClosed follows the one committed close transition.
	SessionClosed Kind = "session_closed"
)

// Event is a committed change. Session is a private copy of the state that
// was saved.
type Event struct {
	Kind    Kind
	Session *activity.Session
	Actor   activity.Actor
	Action  string
}

// Broadcaster publishes the full session snapshot to its channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, s *activity.Session) error
}

// Notifier tells prior participants that a session closed.
type Notifier interface {
	NotifyClosed(ctx context.Context, s *activity.Session, closer activity.Actor) error
}

// Counters records gamification/analytics counters.
type Counters interface {
	IncrementCounter(ctx context.Context, actorID, metric string, by int64) error
}

// Options tune the relay.
type Options struct {
	InstanceName    string
	BufferSize      int
	DeliveryTimeout time.Duration
}

// Relay is an in-process outbox with a single delivery worker, which keeps
// snapshots of one session in commit order. Closure notifications run on
// their own goroutines so a slow notifier never delays broadcasts.
type Relay struct {
	opts        Options
	broadcaster Broadcaster
	notifier    Notifier
	counters    Counters

	mu     sync.RWMutex
	closed bool
	events chan Event
	wg     sync.WaitGroup
}

// New creates a relay. Any collaborator may be nil, in which case that
// side effect is skipped.
func New(opts Options, b Broadcaster, n Notifier, c Counters) *Relay {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 5 * time.Second
	}
	return &Relay{
		opts:        opts,
		broadcaster: b,
		notifier:    n,
		counters:    c,
		events:      make(chan Event, opts.BufferSize),
	}
}

// Start launches the delivery worker. Cancelling ctx aborts in-flight
// deliveries; Stop drains what is buffered.
func (r *Relay) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for e := range r.events {
			r.deliver(ctx, e)
		}
	}()
	log.Printf("[Relay] Started (buffer=%d)", r.opts.BufferSize)
}

// Stop stops accepting events, waits for buffered events and pending
// notifications to be delivered, then returns. Safe to call twice.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Emit queues an event without blocking.
func (r *Relay) Emit(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logDrop(e, "relay stopped")
		return
	}
	select {
	case r.events <- e:
	default:
		r.logDrop(e, "buffer full")
	}
}

func (r *Relay) deliver(ctx context.Context, e Event) {
	switch e.Kind {
	case SessionMutated:
		r.broadcast(ctx, e)
		r.count(ctx, e)
	case SessionClosed:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.notify(ctx, e)
		}()
	default:
		log.Printf("[Relay] Unknown event kind %q", e.Kind)
	}
}

func (r *Relay) broadcast(ctx context.Context, e Event) {
	if r.broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.DeliveryTimeout)
	defer cancel()
	if err := r.broadcaster.Broadcast(ctx, e.Session); err != nil {
		r.logEvent("broadcast_failed", "warn", map[string]interface{}{
			"session_id": e.Session.ID,
			"channel":    e.Session.ChannelRef,
			"version":    e.Session.Version,
			"error":      err.Error(),
		})
	}
}

func (r *Relay) notify(ctx context.Context, e Event) {
	if r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.DeliveryTimeout)
	defer cancel()
	if err := r.notifier.NotifyClosed(ctx, e.Session, e.Actor); err != nil {
		r.logEvent("notify_failed", "warn", map[string]interface{}{
			"session_id": e.Session.ID,
			"closed_by":  e.Actor.ID,
			"error":      err.Error(),
		})
	}
}

func (r *Relay) count(ctx context.Context, e Event) {
	if r.counters == nil || e.Actor.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.DeliveryTimeout)
	defer cancel()
	for _, metric := range []string{"actions", string(e.Session.Type) + "." + e.Action} {
		if err := r.counters.IncrementCounter(ctx, e.Actor.ID, metric, 1); err != nil {
			r.logEvent("counter_failed", "warn", map[string]interface{}{
				"actor_id": e.Actor.ID,
				"metric":   metric,
				"error":    err.Error(),
			})
		}
	}
}

func (r *Relay) logDrop(e Event, reason string) {
	r.logEvent("event_dropped", "warn", map[string]interface{}{
		"kind":       string(e.Kind),
		"session_id": e.Session.ID,
		"reason":     reason,
	})
}

// logEvent logs a structured event in JSON format.
func (r *Relay) logEvent(eventType, level string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = level
	data["component"] = "relay"
	data["event_type"] = eventType
	data["instance"] = r.opts.InstanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Relay] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
