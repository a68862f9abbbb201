package activity

import "fmt"

// Redis key pattern helpers
//
// Key pattern: huddle:{instance_name}:{entity}:{id}
// Channel pattern: huddle:{instance_name}:channel:{channel_ref}

// SessionKey returns the Redis key for a session hash.
// Pattern: huddle:{instance_name}:session:{session_id}
func SessionKey(instanceName, sessionID string) string {
	return fmt.Sprintf("huddle:%s:session:%s", instanceName, sessionID)
}

// SessionKeyPattern returns the SCAN pattern matching every session hash.
func SessionKeyPattern(instanceName string) string {
	return fmt.Sprintf("huddle:%s:session:*", instanceName)
}

// SessionByMessageKey returns the Redis key for the message->session index.
// One session per hosting message; the index makes creation idempotent.
// Pattern: huddle:{instance_name}:session_by_message:{message_id}
func SessionByMessageKey(instanceName, messageID string) string {
	return fmt.Sprintf("huddle:%s:session_by_message:%s", instanceName, messageID)
}

// HostMessageKey returns the Redis key of a hosting chat message record,
// written by the chat system.
// Pattern: huddle:{instance_name}:message:{message_id}
func HostMessageKey(instanceName, messageID string) string {
	return fmt.Sprintf("huddle:%s:message:%s", instanceName, messageID)
}

// ChannelName returns the Pub/Sub channel snapshots are published to.
// Pattern: huddle:{instance_name}:channel:{channel_ref}
func ChannelName(instanceName, channelRef string) string {
	return fmt.Sprintf("huddle:%s:channel:%s", instanceName, channelRef)
}

// NotificationQueueKey returns the list drained by the external
// email/push worker.
// Pattern: huddle:{instance_name}:notifications
func NotificationQueueKey(instanceName string) string {
	return fmt.Sprintf("huddle:%s:notifications", instanceName)
}

// CountersKey returns the hash of gamification counters for an actor.
// Pattern: huddle:{instance_name}:counters:{actor_id}
func CountersKey(instanceName, actorID string) string {
	return fmt.Sprintf("huddle:%s:counters:%s", instanceName, actorID)
}
