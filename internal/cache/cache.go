// Package cache provides the short-lived interaction cache. Entries are
// keyed per user and task and carry a TTL; the durable record always lives
// in the store, so every cache failure is survivable.
package cache

import (
	"context"
	"fmt"
	"time"
)

// InteractionTTL is how long a cached interaction list stays fresh.
const InteractionTTL = 7 * 24 * time.Hour

// Cache is the minimal surface the interaction layer needs. Get reports a
// miss with ok=false and a nil error; errors mean the backend itself failed.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// InteractionKey returns the cache key for a user's interactions on a task.
func InteractionKey(userID, taskID int64) string {
	return fmt.Sprintf("interaction:%d:%d", userID, taskID)
}
