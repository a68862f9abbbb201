package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/huddle/pkg/activity"
)

func setupClient(t *testing.T) (*miniredis.Miniredis, *activity.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := activity.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newSession(id, msg string) *activity.Session {
	return &activity.Session{
		ID: id, Type: activity.TypePoll, HostMessageID: msg, ChannelRef: "general",
		CreatedBy: "alice", Version: 1, Payload: json.RawMessage(`{"question":"Lunch?"}`),
	}
}

func TestPollForClose(t *testing.T) {
	_, client := setupClient(t)
	ctx := context.Background()

	s := newSession("11111111-0000-4000-8000-000000000001", "msg-1")
	require.NoError(t, client.CreateSession(ctx, s))

	t.Run("returns once closed", func(t *testing.T) {
		go func() {
			time.Sleep(300 * time.Millisecond)
			next := s.Clone()
			next.Closed = true
			next.ClosedBy = "alice"
			next.ClosedAtMs = 1
			_ = client.SaveSession(context.Background(), next, 1)
		}()

		got, err := PollForClose(ctx, client, s.ID, 3*time.Second)
		require.NoError(t, err)
		assert.True(t, got.Closed)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("version already reached", func(t *testing.T) {
		got, err := WaitForVersion(ctx, client, s.ID, 2, time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("times out", func(t *testing.T) {
		_, err := WaitForVersion(ctx, client, s.ID, 9, 500*time.Millisecond)
		assert.ErrorContains(t, err, "timeout waiting for version 9")
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := PollForClose(ctx, client, "99999999-0000-4000-8000-000000000000", time.Second)
		assert.True(t, activity.IsNotFound(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := WaitForVersion(cctx, client, s.ID, 9, time.Second)
		assert.Error(t, err)
	})
}

// syncBuffer is a bytes.Buffer safe to read while Stream writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStream(t *testing.T) {
	mr, client := setupClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	followed := newSession("22222222-0000-4000-8000-000000000002", "msg-2")
	other := newSession("33333333-0000-4000-8000-000000000003", "msg-3")

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, client, Options{Channel: "general", SessionID: followed.ID, ExitOnClose: true}, OutputFormatJSONL, out)
	}()

	channel := activity.ChannelName("test-instance", "general")
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.PublishSnapshot(ctx, "general", activity.NewSnapshot(other)))
	require.NoError(t, client.PublishSnapshot(ctx, "general", activity.NewSnapshot(followed)))
	closed := followed.Clone()
	closed.Version = 2
	closed.Closed = true
	require.NoError(t, client.PublishSnapshot(ctx, "general", activity.NewSnapshot(closed)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("stream did not exit after the closing snapshot")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var first, last activity.Snapshot
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, followed.ID, first.SessionID)
	assert.Equal(t, int64(1), first.Version)
	assert.True(t, last.Closed)
}

func TestStreamReportsSubscriptionErrors(t *testing.T) {
	mr, client := setupClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	followed := newSession("44444444-0000-4000-8000-000000000004", "msg-4")
	errs := make(chan error, 1)
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, client, Options{
			Channel:     "general",
			SessionID:   followed.ID,
			ExitOnClose: true,
			OnError:     func(err error) { errs <- err },
		}, OutputFormatJSONL, out)
	}()

	channel := activity.ChannelName("test-instance", "general")
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish(channel, "not a snapshot")
	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "failed to unmarshal snapshot")
	case <-ctx.Done():
		t.Fatal("malformed message was not reported")
	}

	closed := followed.Clone()
	closed.Closed = true
	require.NoError(t, client.PublishSnapshot(ctx, "general", activity.NewSnapshot(closed)))
	select {
	case err := <-done:
		require.NoError(t, err, "the stream survives a bad message")
	case <-ctx.Done():
		t.Fatal("stream did not exit after the closing snapshot")
	}

	assert.NotContains(t, out.String(), "⚠️", "errors go to OnError, not the output")
	assert.Contains(t, out.String(), followed.ID)
}

func TestStreamRejectsUnknownFormat(t *testing.T) {
	_, client := setupClient(t)
	err := Stream(context.Background(), client, Options{}, "xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestFormatSnapshot(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	snap := &activity.Snapshot{
		SessionID: "abcdef12-0000-4000-8000-000000000000",
		Type:      activity.TypePoll,
		Payload:   json.RawMessage(`{"question":"Lunch?","options":["a","b"]}`),
		Version:   3,
	}

	assert.Equal(t, "[09:30:00] 📨 poll abcdef12 v3 open  Lunch? options=2", FormatSnapshot(snap, now))

	snap.Closed = true
	assert.Contains(t, FormatSnapshot(snap, now), "🔒 poll abcdef12 v3 closed")
}
