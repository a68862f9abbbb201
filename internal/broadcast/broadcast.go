// Package broadcast publishes session snapshots to the channel a session's
// host message lives in.
package broadcast

import (
	"context"
	"fmt"

	"github.com/dyluth/huddle/pkg/activity"
)

// Publisher is the pub/sub transport. Implemented by *activity.Client.
type Publisher interface {
	PublishSnapshot(ctx context.Context, channelRef string, snap activity.Snapshot) error
}

// Broadcaster turns committed sessions into full-replace snapshots.
type Broadcaster struct {
	publisher Publisher
}

// New creates a broadcaster.
func New(p Publisher) *Broadcaster {
	return &Broadcaster{publisher: p}
}

// Broadcast publishes the session's current state. Subscribers may see
// snapshots of one session out of order across processes and should keep
// the highest version.
func (b *Broadcaster) Broadcast(ctx context.Context, s *activity.Session) error {
	if s.ChannelRef == "" {
		return fmt.Errorf("session %s has no channel", s.ID)
	}
	if err := b.publisher.PublishSnapshot(ctx, s.ChannelRef, activity.NewSnapshot(s)); err != nil {
		return fmt.Errorf("failed to publish snapshot of %s to %s: %w", s.ID, s.ChannelRef, err)
	}
	return nil
}
