package contracts

import (
	"context"
	"time"
)

// MembershipStore is the durable per-room online-user set. Backed by a
// Redis ZSET per room; every mutation is atomic per room. Scores carry
// the last-seen timestamp so stale sessions can be pruned.
type MembershipStore interface {
	// Add records the user online in the room.
	Add(ctx context.Context, roomName, userID string) error
	// Remove takes the user out of the room's online set. Removing a
	// user who is not present is a no-op, not an error.
	Remove(ctx context.Context, roomName, userID string) error
	Contains(ctx context.Context, roomName, userID string) (bool, error)
	Count(ctx context.Context, roomName string) (int, error)
	Members(ctx context.Context, roomName string) ([]string, error)
	// Touch refreshes the user's last-seen score. Heartbeats call this.
	Touch(ctx context.Context, roomName, userID string) error
	// PruneExpired removes members whose last-seen score is older than
	// maxAge and returns the removed user ids.
	PruneExpired(ctx context.Context, roomName string, maxAge time.Duration) ([]string, error)
}
