// Package dispatch is the single entry point for every session operation.
// It loads the session, gates the action through the variant's rules,
// persists the new state under an optimistic version check and hands the
// committed state to the relay for side effects.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/huddle/internal/relay"
	"github.com/dyluth/huddle/internal/variant"
	"github.com/dyluth/huddle/pkg/activity"
)

// Store persists sessions. Implemented by *activity.Client (Redis) and
// *sqlite.Store.
type Store interface {
	CreateSession(ctx context.Context, s *activity.Session) error
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
	GetSessionByMessage(ctx context.Context, messageID string) (*activity.Session, error)
	SaveSession(ctx context.Context, s *activity.Session, expectedVersion int64) error
}

// Messages resolves the chat messages sessions are attached to.
type Messages interface {
	GetHostMessage(ctx context.Context, messageID string) (*activity.HostMessage, error)
}

// Emitter receives committed domain events. *relay.Relay implements it.
type Emitter interface {
	Emit(e relay.Event)
}

// Options tune the dispatcher. Zero values take defaults.
type Options struct {
	InstanceName    string
	MaxWriteRetries int
	MaxPayloadBytes int
	Limits          variant.Limits

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

const (
	defaultMaxWriteRetries = 3
	defaultMaxPayloadBytes = 256 * 1024
)

// Dispatcher implements createSession, performAction, closeSession and
// getSession on top of a Store.
type Dispatcher struct {
	store    Store
	messages Messages
	emitter  Emitter
	registry *variant.Registry
	opts     Options
}

// New creates a dispatcher. A nil emitter disables side effects.
func New(store Store, messages Messages, emitter Emitter, registry *variant.Registry, opts Options) *Dispatcher {
	if opts.MaxWriteRetries < 0 {
		opts.MaxWriteRetries = 0
	} else if opts.MaxWriteRetries == 0 {
		opts.MaxWriteRetries = defaultMaxWriteRetries
	}
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = defaultMaxPayloadBytes
	}
	if opts.Limits.MaxTextLength <= 0 || opts.Limits.MaxEntries <= 0 {
		defaults := variant.DefaultLimits()
		if opts.Limits.MaxTextLength <= 0 {
			opts.Limits.MaxTextLength = defaults.MaxTextLength
		}
		if opts.Limits.MaxEntries <= 0 {
			opts.Limits.MaxEntries = defaults.MaxEntries
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if registry == nil {
		registry = variant.Builtin()
	}
	return &Dispatcher{
		store:    store,
		messages: messages,
		emitter:  emitter,
		registry: registry,
		opts:     opts,
	}
}

// CreateSession attaches a new activity of type kind to a host message.
//
// Creation is idempotent per message: if the message already hosts a
// session of the same type created by the same actor, that session is
// returned unchanged. Any other existing session makes the call fail.
func (d *Dispatcher) CreateSession(ctx context.Context, hostMessageID string, kind activity.Type, creator activity.Actor, setup json.RawMessage) (*activity.Session, error) {
	if err := creator.Validate(); err != nil {
		return nil, activity.Forbidden("%v", err)
	}
	handler, err := d.registry.Resolve(kind)
	if err != nil {
		return nil, err
	}

	msg, err := d.messages.GetHostMessage(ctx, hostMessageID)
	if err != nil {
		return nil, err
	}

	if existing, err := d.existingSession(ctx, hostMessageID, kind, creator); existing != nil || err != nil {
		return existing, err
	}

	now := d.opts.Now()
	s := &activity.Session{
		ID:            d.opts.NewID(),
		Type:          kind,
		HostMessageID: msg.ID,
		ChannelRef:    msg.ChannelID,
		CreatedBy:     creator.ID,
		Version:       1,
		CreatedAtMs:   now.UnixMilli(),
		UpdatedAtMs:   now.UnixMilli(),
	}

	payload, err := handler.Create(d.call(s, creator, now), setup)
	if err != nil {
		d.logEvent("session_rejected", map[string]interface{}{
			"type":     string(kind),
			"actor_id": creator.ID,
			"code":     string(activity.CodeOf(err)),
			"error":    err.Error(),
		})
		return nil, err
	}
	if err := d.checkSize(payload); err != nil {
		return nil, err
	}
	s.Payload = payload

	if err := d.store.CreateSession(ctx, s); err != nil {
		if errors.Is(err, activity.ErrSessionExists) {
			// Lost a creation race on the same message.
			if existing, lookupErr := d.existingSession(ctx, hostMessageID, kind, creator); existing != nil || lookupErr != nil {
				return existing, lookupErr
			}
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	d.logEvent("session_created", map[string]interface{}{
		"session_id":      s.ID,
		"type":            string(kind),
		"host_message_id": s.HostMessageID,
		"channel_ref":     s.ChannelRef,
		"actor_id":        creator.ID,
	})
	d.emit(relay.SessionMutated, s, creator, "create")

	return s.Clone(), nil
}

// existingSession applies the idempotent-create rule to whatever the message
// already hosts. It returns (nil, nil) when the message hosts nothing.
func (d *Dispatcher) existingSession(ctx context.Context, hostMessageID string, kind activity.Type, creator activity.Actor) (*activity.Session, error) {
	existing, err := d.store.GetSessionByMessage(ctx, hostMessageID)
	if errors.Is(err, activity.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session for message %s: %w", hostMessageID, err)
	}
	if existing.Type == kind && existing.CreatedBy == creator.ID {
		return existing, nil
	}
	return nil, activity.InvalidField("host_message_id", "message %s already hosts a %s session", hostMessageID, existing.Type)
}

// Dispatch applies one action to a session and returns the committed state.
//
// A conflicting concurrent write is retried on freshly loaded state up to
// MaxWriteRetries times before StaleWrite reaches the caller. Side effects
// are emitted only after the write commits and never delay the return.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, kind activity.Type, action string, actor activity.Actor, input json.RawMessage) (*activity.Session, error) {
	s, err := d.dispatch(ctx, sessionID, kind, action, actor, input)
	if err != nil {
		d.logEvent("action_rejected", map[string]interface{}{
			"session_id": sessionID,
			"type":       string(kind),
			"action":     action,
			"actor_id":   actor.ID,
			"code":       string(activity.CodeOf(err)),
			"error":      err.Error(),
		})
		return nil, err
	}
	d.logEvent("action_applied", map[string]interface{}{
		"session_id": s.ID,
		"type":       string(s.Type),
		"action":     action,
		"actor_id":   actor.ID,
		"version":    s.Version,
		"closed":     s.Closed,
	})
	return s, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, sessionID string, kind activity.Type, action string, actor activity.Actor, input json.RawMessage) (*activity.Session, error) {
	if err := actor.Validate(); err != nil {
		return nil, activity.Forbidden("%v", err)
	}

	for attempt := 0; ; attempt++ {
		s, changed, err := d.attempt(ctx, sessionID, kind, action, actor, input)
		if err == nil {
			if !changed {
				return s.Clone(), nil
			}
			d.emit(relay.SessionMutated, s, actor, action)
			if s.Closed {
				d.emit(relay.SessionClosed, s, actor, action)
			}
			return s.Clone(), nil
		}
		if !errors.Is(err, activity.ErrStaleWrite) || attempt >= d.opts.MaxWriteRetries {
			return nil, err
		}
		d.logEvent("stale_write_retry", map[string]interface{}{
			"session_id": sessionID,
			"action":     action,
			"attempt":    attempt + 1,
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// attempt runs load, check, mutate and save once. The session is loaded
// before the type and action are resolved, so a missing session reports
// SessionNotFound whatever else is wrong with the request.
//
// An action that leaves the payload byte-identical, such as a replayed
// entry id, is not saved: the stored session is returned with changed=false.
// A changed session that comes back closed was closed by this call.
func (d *Dispatcher) attempt(ctx context.Context, sessionID string, kind activity.Type, action string, actor activity.Actor, input json.RawMessage) (*activity.Session, bool, error) {
	s, err := d.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	handler, err := d.registry.Resolve(kind)
	if err != nil {
		return nil, false, err
	}
	if !handler.Supports(action) {
		return nil, false, activity.Errorf(activity.CodeUnsupportedAction, "%s does not support action %q", kind, action)
	}
	if s.Type != kind {
		return nil, false, activity.Errorf(activity.CodeTypeMismatch, "session %s is a %s, not a %s", s.ID, s.Type, kind)
	}
	closing := handler.Closes(action)
	if s.Closed {
		if closing {
			return nil, false, activity.Errorf(activity.CodeAlreadyClosed, "session %s is already closed", s.ID)
		}
		return nil, false, activity.Errorf(activity.CodeSessionClosed, "session %s is closed", s.ID)
	}

	now := d.opts.Now()
	payload, err := handler.Apply(d.call(s, actor, now), s.Payload, action, input)
	if err != nil {
		return nil, false, err
	}
	if !closing && bytes.Equal(payload, s.Payload) {
		return s, false, nil
	}
	if err := d.checkSize(payload); err != nil {
		return nil, false, err
	}

	next := s.Clone()
	next.Payload = payload
	next.UpdatedAtMs = now.UnixMilli()
	if closing {
		next.Closed = true
		next.ClosedBy = actor.ID
		next.ClosedAtMs = now.UnixMilli()
	}
	if err := d.store.SaveSession(ctx, next, s.Version); err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// CloseSession closes a session of whatever type it is.
func (d *Dispatcher) CloseSession(ctx context.Context, sessionID string, actor activity.Actor) (*activity.Session, error) {
	s, err := d.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, sessionID, s.Type, variant.CloseAction, actor, nil)
}

// GetSession returns the stored session.
func (d *Dispatcher) GetSession(ctx context.Context, sessionID string) (*activity.Session, error) {
	return d.store.GetSession(ctx, sessionID)
}

// Registry exposes the variant catalog, e.g. for listing supported actions.
func (d *Dispatcher) Registry() *variant.Registry {
	return d.registry
}

func (d *Dispatcher) call(s *activity.Session, actor activity.Actor, now time.Time) *variant.Call {
	c := variant.NewCall(s, actor, now)
	c.Limits = d.opts.Limits
	return c
}

func (d *Dispatcher) checkSize(payload json.RawMessage) error {
	if len(payload) > d.opts.MaxPayloadBytes {
		return activity.LimitExceeded("payload is %d bytes, limit is %d", len(payload), d.opts.MaxPayloadBytes)
	}
	return nil
}

func (d *Dispatcher) emit(kind relay.Kind, s *activity.Session, actor activity.Actor, action string) {
	if d.emitter == nil {
		return
	}
	d.emitter.Emit(relay.Event{Kind: kind, Session: s.Clone(), Actor: actor, Action: action})
}

// logEvent logs a structured event in JSON format.
func (d *Dispatcher) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "dispatcher"
	data["event_type"] = eventType
	data["instance"] = d.opts.InstanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Dispatcher] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
