package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// AllChannels subscribes to every channel of the instance when passed to
// SubscribeChannel.
const AllChannels = "*"

// ErrSessionExists is returned by CreateSession when the hosting message
// already carries a session.
var ErrSessionExists = errors.New("host message already hosts a session")

// Client provides instance-scoped Redis operations for activity sessions.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new session client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client writes under.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// CreateSession stores a new session and indexes it by its hosting message.
// The index and the hash are written in one transaction; ErrSessionExists
// is returned when the message already hosts a session.
func (c *Client) CreateSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	key := SessionKey(c.instanceName, s.ID)
	indexKey := SessionByMessageKey(c.instanceName, s.HostMessageID)
	hash := SessionToHash(s)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, indexKey, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSessionExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			pipe.Set(ctx, indexKey, s.ID, 0)
			return nil
		})
		return err
	}

	err := c.rdb.Watch(ctx, txf, indexKey, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionExists), errors.Is(err, redis.TxFailedErr):
		return ErrSessionExists
	default:
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
}

// GetSession retrieves a session by ID.
// Returns ErrSessionNotFound if the session doesn't exist.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	key := SessionKey(c.instanceName, sessionID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, Errorf(CodeSessionNotFound, "session %s not found", sessionID)
	}

	session, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	return session, nil
}

// GetSessionByMessage looks up the session hosted by a chat message.
func (c *Client) GetSessionByMessage(ctx context.Context, messageID string) (*Session, error) {
	sessionID, err := c.rdb.Get(ctx, SessionByMessageKey(c.instanceName, messageID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, Errorf(CodeSessionNotFound, "no session hosted by message %s", messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}
	return c.GetSession(ctx, sessionID)
}

// SaveSession replaces a session if and only if the stored version equals
// expectedVersion. On success s.Version is set to expectedVersion+1.
//
// The session key is WATCHed for the duration of the check so a concurrent
// writer aborts the EXEC; both the version mismatch and the aborted
// transaction are reported as StaleWrite. A write that would turn a closed
// session back to open is refused.
func (c *Client) SaveSession(ctx context.Context, s *Session, expectedVersion int64) error {
	next := s.Clone()
	next.Version = expectedVersion + 1
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	key := SessionKey(c.instanceName, s.ID)
	hash := SessionToHash(next)

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HMGet(ctx, key, "version", "closed").Result()
		if err != nil {
			return err
		}
		if fields[0] == nil {
			return Errorf(CodeSessionNotFound, "session %s not found", s.ID)
		}

		stored, err := strconv.ParseInt(fmt.Sprint(fields[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stored version: %w", err)
		}
		if stored != expectedVersion {
			return StaleWrite(s.ID, expectedVersion, stored)
		}

		storedClosed, _ := strconv.ParseBool(fmt.Sprint(fields[1]))
		if storedClosed && !next.Closed {
			return Errorf(CodeSessionClosed, "session %s is closed and cannot be reopened", s.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			return nil
		})
		return err
	}

	err := c.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return StaleWrite(s.ID, expectedVersion, -1)
	}
	if err != nil {
		if _, ok := AsError(err); ok {
			return err
		}
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}

	s.Version = next.Version
	return nil
}

// ListSessions returns every session of the instance, oldest first.
// Uses SCAN so large keyspaces don't block the server.
func (c *Client) ListSessions(ctx context.Context) ([]*Session, error) {
	var sessions []*Session

	iter := c.rdb.Scan(ctx, 0, SessionKeyPattern(c.instanceName), 100).Iterator()
	for iter.Next(ctx) {
		hashData, err := c.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read session %s: %w", iter.Val(), err)
		}
		if len(hashData) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		session, err := HashToSession(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize %s: %w", iter.Val(), err)
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAtMs == sessions[j].CreatedAtMs {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAtMs < sessions[j].CreatedAtMs
	})

	return sessions, nil
}

// ScanSessionIDs returns the ids of sessions whose id starts with prefix.
// Used to resolve short ids typed by operators.
func (c *Client) ScanSessionIDs(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := SessionKey(c.instanceName, "")
	var ids []string

	iter := c.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// PutHostMessage records a hosting message. In production the chat system
// owns these records; huddle writes them only from tooling and tests.
func (c *Client) PutHostMessage(ctx context.Context, msg *HostMessage) error {
	if msg.ID == "" || msg.ChannelID == "" {
		return fmt.Errorf("host message requires id and channel_id")
	}
	key := HostMessageKey(c.instanceName, msg.ID)
	if err := c.rdb.HSet(ctx, key, "id", msg.ID, "channel_id", msg.ChannelID).Err(); err != nil {
		return fmt.Errorf("failed to write host message: %w", err)
	}
	return nil
}

// GetHostMessage reads a hosting message record.
// Returns ErrHostMessageNotFound if the message doesn't exist.
func (c *Client) GetHostMessage(ctx context.Context, messageID string) (*HostMessage, error) {
	hashData, err := c.rdb.HGetAll(ctx, HostMessageKey(c.instanceName, messageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read host message: %w", err)
	}
	if len(hashData) == 0 || hashData["channel_id"] == "" {
		return nil, Errorf(CodeHostMessageNotFound, "message %s not found", messageID)
	}
	return &HostMessage{ID: messageID, ChannelID: hashData["channel_id"]}, nil
}

// PublishSnapshot publishes a full session snapshot to a channel.
func (c *Client) PublishSnapshot(ctx context.Context, channelRef string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.rdb.Publish(ctx, ChannelName(c.instanceName, channelRef), data).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// EnqueueNotification pushes a JSON-encoded notification onto the queue
// drained by the external delivery worker.
func (c *Client) EnqueueNotification(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := c.rdb.LPush(ctx, NotificationQueueKey(c.instanceName), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// IncrementCounter bumps one gamification counter of an actor.
func (c *Client) IncrementCounter(ctx context.Context, actorID, metric string, by int64) error {
	if err := c.rdb.HIncrBy(ctx, CountersKey(c.instanceName, actorID), metric, by).Err(); err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", metric, err)
	}
	return nil
}

// Counters returns every counter recorded for an actor.
func (c *Client) Counters(ctx context.Context, actorID string) (map[string]int64, error) {
	raw, err := c.rdb.HGetAll(ctx, CountersKey(c.instanceName, actorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	counters := make(map[string]int64, len(raw))
	for metric, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter %s: %w", metric, err)
		}
		counters[metric] = n
	}
	return counters, nil
}

// Subscription represents an active Pub/Sub subscription to session snapshots.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Snapshot
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of snapshots.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Snapshot {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChannel subscribes to the snapshots published on one channel,
// or on every channel of the instance when channelRef is AllChannels.
//
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once, so a slow subscriber may miss snapshots; since every
// snapshot is a full replacement the next one repairs the view.
func (c *Client) SubscribeChannel(ctx context.Context, channelRef string) (*Subscription, error) {
	if channelRef == "" {
		return nil, fmt.Errorf("channel cannot be empty")
	}

	var pubsub *redis.PubSub
	name := ChannelName(c.instanceName, channelRef)
	if channelRef == AllChannels {
		pubsub = c.rdb.PSubscribe(ctx, name)
	} else {
		pubsub = c.rdb.Subscribe(ctx, name)
	}

	// Wait for the subscription confirmation so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", name, err)
	}

	eventsChan := make(chan *Snapshot, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var snap Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal snapshot: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &snap:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
