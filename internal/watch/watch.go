// Package watch follows sessions from the command line: streaming the
// snapshots broadcast on a channel and waiting for a session to reach a
// given state.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/huddle/internal/listing"
	"github.com/dyluth/huddle/pkg/activity"
)

// PollInterval is how often PollForClose and WaitForVersion re-read the session.
const PollInterval = 200 * time.Millisecond

// Getter loads sessions.
type Getter interface {
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
}

// Subscriber opens snapshot subscriptions. *activity.Client implements it.
type Subscriber interface {
	SubscribeChannel(ctx context.Context, channelRef string) (*activity.Subscription, error)
}

// PollForClose polls until the session is closed and returns it, or fails
// when timeout elapses.
func PollForClose(ctx context.Context, getter Getter, sessionID string, timeout time.Duration) (*activity.Session, error) {
	return poll(ctx, getter, sessionID, timeout, "close", func(s *activity.Session) bool {
		return s.Closed
	})
}

// WaitForVersion polls until the session has reached at least version.
func WaitForVersion(ctx context.Context, getter Getter, sessionID string, version int64, timeout time.Duration) (*activity.Session, error) {
	return poll(ctx, getter, sessionID, timeout, fmt.Sprintf("version %d", version), func(s *activity.Session) bool {
		return s.Version >= version
	})
}

func poll(ctx context.Context, getter Getter, sessionID string, timeout time.Duration, what string, done func(*activity.Session) bool) (*activity.Session, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		s, err := getter.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to query session: %w", err)
		}
		if done(s) {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s after %v", what, timeout)
		case <-ticker.C:
		}
	}
}

// OutputFormat controls how Stream renders snapshots.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSONL   OutputFormat = "jsonl"
)

// Options narrow a stream.
type Options struct {
	// Channel is the channel to follow, or activity.AllChannels.
	Channel string

	// SessionID, when set, drops snapshots of other sessions.
	SessionID string

	// ExitOnClose ends the stream after the followed session's closing
	// snapshot. Only meaningful with SessionID.
	ExitOnClose bool

	// OnError receives subscription errors. The stream keeps going after
	// one. When nil they are written to the output inline.
	OnError func(error)
}

// Stream writes snapshots to w until ctx is cancelled, the subscription
// ends, or the followed session closes with ExitOnClose set.
func Stream(ctx context.Context, sub Subscriber, opts Options, format OutputFormat, w io.Writer) error {
	if format == "" {
		format = OutputFormatDefault
	}
	if format != OutputFormatDefault && format != OutputFormatJSONL {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	channel := opts.Channel
	if channel == "" {
		channel = activity.AllChannels
	}

	subscription, err := sub.SubscribeChannel(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer subscription.Close()

	events := subscription.Events()
	errs := subscription.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if opts.OnError != nil {
				opts.OnError(err)
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)
		case snap, ok := <-events:
			if !ok {
				return nil
			}
			if opts.SessionID != "" && snap.SessionID != opts.SessionID {
				continue
			}
			if err := writeSnapshot(w, snap, format); err != nil {
				return err
			}
			if opts.ExitOnClose && opts.SessionID != "" && snap.Closed {
				return nil
			}
		}
	}
}

func writeSnapshot(w io.Writer, snap *activity.Snapshot, format OutputFormat) error {
	if format == OutputFormatJSONL {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, FormatSnapshot(snap, time.Now()))
	return err
}

// FormatSnapshot renders one human-readable stream line.
func FormatSnapshot(snap *activity.Snapshot, now time.Time) string {
	icon, state := "📨", "open"
	if snap.Closed {
		icon, state = "🔒", "closed"
	}
	id := snap.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("[%s] %s %s %s v%d %s  %s",
		now.Format("15:04:05"), icon, snap.Type, id, snap.Version, state, listing.Summarize(snap.Payload))
}
