package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting sessions to and from Redis hashes.
// Scalar fields are kept as individual hash fields so the store can check
// version and closed without decoding the payload.

// SessionToHash converts a Session to a Redis hash.
func SessionToHash(s *Session) map[string]interface{} {
	payload := string(s.Payload)
	if payload == "" {
		payload = "{}"
	}

	return map[string]interface{}{
		"id":              s.ID,
		"type":            string(s.Type),
		"host_message_id": s.HostMessageID,
		"channel_ref":     s.ChannelRef,
		"created_by":      s.CreatedBy,
		"closed":          strconv.FormatBool(s.Closed),
		"closed_by":       s.ClosedBy,
		"closed_at_ms":    s.ClosedAtMs,
		"version":         s.Version,
		"created_at_ms":   s.CreatedAtMs,
		"updated_at_ms":   s.UpdatedAtMs,
		"payload":         payload,
	}
}

// HashToSession converts a Redis hash to a Session.
func HashToSession(hash map[string]string) (*Session, error) {
	version, err := strconv.ParseInt(hash["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version field: %w", err)
	}

	closed, err := parseClosed(hash["closed"])
	if err != nil {
		return nil, err
	}

	payload := hash["payload"]
	if payload == "" {
		payload = "{}"
	}
	if !json.Valid([]byte(payload)) {
		return nil, fmt.Errorf("payload field is not valid JSON")
	}

	closedAtMs, _ := strconv.ParseInt(hash["closed_at_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &Session{
		ID:            hash["id"],
		Type:          Type(hash["type"]),
		HostMessageID: hash["host_message_id"],
		ChannelRef:    hash["channel_ref"],
		CreatedBy:     hash["created_by"],
		Closed:        closed,
		ClosedBy:      hash["closed_by"],
		ClosedAtMs:    closedAtMs,
		Version:       version,
		CreatedAtMs:   createdAtMs,
		UpdatedAtMs:   updatedAtMs,
		Payload:       json.RawMessage(payload),
	}, nil
}

func parseClosed(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	closed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid closed field: %w", err)
	}
	return closed, nil
}
