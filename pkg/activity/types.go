// Package activity provides the session model, error taxonomy and Redis schema
// for huddle activity sessions. A session is the shared, versioned state of one
// facilitation activity (a poll, a risk matrix, a lean coffee board...) that
// lives inside a chat message and is mutated by every participant of the channel.
//
// All Redis keys and channels are namespaced by instance name so several huddle
// deployments can share one Redis server.
package activity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session is one activity instance embedded in a hosting chat message.
// Only Payload, Closed (false→true, once) and the bookkeeping fields change
// after creation.
type Session struct {
	ID            string          `json:"id"`              // UUID - stable for the lifetime of the session
	Type          Type            `json:"type"`            // Variant tag, fixed at creation
	HostMessageID string          `json:"host_message_id"` // Chat message hosting the session (one session per message)
	ChannelRef    string          `json:"channel_ref"`     // Real-time channel snapshots are published to
	CreatedBy     string          `json:"created_by"`      // Actor ID of the creator, immutable
	Closed        bool            `json:"closed"`          // Monotonic: never goes back to false
	ClosedBy      string          `json:"closed_by,omitempty"`
	ClosedAtMs    int64           `json:"closed_at_ms,omitempty"`
	Version       int64           `json:"version"` // Optimistic concurrency token, starts at 1
	CreatedAtMs   int64           `json:"created_at_ms"`
	UpdatedAtMs   int64           `json:"updated_at_ms"`
	Payload       json.RawMessage `json:"payload"` // Variant-specific document
}

// Type is the variant tag of a session.
type Type string

const (
	TypePoll            Type = "poll"
	TypeEstimationPoker Type = "estimation-poker"
	TypeBrainwriting    Type = "brainwriting"
	TypeLeanCoffee      Type = "lean-coffee"
	TypeParkingLot      Type = "parking-lot"
	TypeRiskMatrix      Type = "risk-matrix"
	TypeDACI            Type = "daci"
	TypeRomanVoting     Type = "roman-voting"
	TypeFiveWhys        Type = "five-whys"
	TypeOpportunityTree Type = "opportunity-tree"
	TypeImpactMapping   Type = "impact-mapping"
	TypeJTBDCanvas      Type = "jtbd-canvas"
	TypeKanoModel       Type = "kano-model"
	TypeFuturesWheel    Type = "futures-wheel"
	TypeHopesFears      Type = "hopes-fears"
	TypeLotusBlossom    Type = "lotus-blossom"
	TypeLightningDemos  Type = "lightning-demos"
	TypeOpenSpace       Type = "open-space"
	TypeReframingBoard  Type = "reframing-board"
	TypeVAKOGBoard      Type = "vakog-board"
	TypeActionItems     Type = "action-items"
)

// AllTypes lists every variant tag in a stable order.
func AllTypes() []Type {
	return []Type{
		TypePoll, TypeEstimationPoker, TypeBrainwriting, TypeLeanCoffee,
		TypeParkingLot, TypeRiskMatrix, TypeDACI, TypeRomanVoting,
		TypeFiveWhys, TypeOpportunityTree, TypeImpactMapping, TypeJTBDCanvas,
		TypeKanoModel, TypeFuturesWheel, TypeHopesFears, TypeLotusBlossom,
		TypeLightningDemos, TypeOpenSpace, TypeReframingBoard, TypeVAKOGBoard,
		TypeActionItems,
	}
}

// Validate checks that the Type is one of the known variant tags.
func (t Type) Validate() error {
	for _, known := range AllTypes() {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("unknown activity type: %q", t)
}

// PlatformRole is the role an actor holds in the surrounding platform,
// as reported by the identity provider.
type PlatformRole string

const (
	// RoleMember is a regular authenticated user
	RoleMember PlatformRole = "member"

	// RoleAdmin is a platform administrator; admins pass creator-only and
	// owner-or-admin checks on every session
	RoleAdmin PlatformRole = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Role PlatformRole `json:"role,omitempty"`
}

// IsAdmin reports whether the actor is a platform administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DisplayName returns the actor's name, falling back to the ID.
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Name) == "" {
		return a.ID
	}
	return a.Name
}

// Validate checks that the actor carries an identity.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("actor id cannot be empty")
	}
	switch a.Role {
	case "", RoleMember, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("unknown actor role: %q", a.Role)
	}
}

// HostMessage is the slice of the chat message store huddle depends on:
// a message exists and lives in a channel.
type HostMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Snapshot is the real-time broadcast body. Subscribers treat it as an
// authoritative full replacement of their copy of the session, not a diff.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Closed    bool            `json:"closed"`
	Version   int64           `json:"version"`
}

// NewSnapshot builds the broadcast body for a session.
func NewSnapshot(s *Session) Snapshot {
	return Snapshot{
		SessionID: s.ID,
		Type:      s.Type,
		Payload:   s.Payload,
		Closed:    s.Closed,
		Version:   s.Version,
	}
}

// Clone returns a deep copy of the session so a failed write attempt never
// leaks a half-applied payload to the caller.
func (s *Session) Clone() *Session {
	clone := *s
	if s.Payload != nil {
		clone.Payload = append(json.RawMessage(nil), s.Payload...)
	}
	return &clone
}

// Validate checks if the Session has valid field values.
func (s *Session) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("invalid session ID: not a valid UUID")
	}

	if err := s.Type.Validate(); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}

	if s.HostMessageID == "" {
		return fmt.Errorf("host_message_id cannot be empty")
	}

	if s.ChannelRef == "" {
		return fmt.Errorf("channel_ref cannot be empty")
	}

	if s.CreatedBy == "" {
		return fmt.Errorf("created_by cannot be empty")
	}

	if s.Version < 1 {
		return fmt.Errorf("invalid version: must be >= 1, got %d", s.Version)
	}

	if s.Closed && s.ClosedBy == "" {
		return fmt.Errorf("closed session must record closed_by")
	}

	if len(s.Payload) > 0 && !json.Valid(s.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
