package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMembershipStore keeps one ZSET per room, keyed "online:<room>",
// member = user id, score = last-seen unix time. Redis executes each
// command atomically, which gives the per-room atomicity the membership
// operations need. The score doubles as a liveness timestamp for the
// sweeper.
type RedisMembershipStore struct {
	rdb *redis.Client
}

func NewRedisMembershipStore(rdb *redis.Client) *RedisMembershipStore {
	return &RedisMembershipStore{rdb: rdb}
}

func membershipKey(roomName string) string {
	return "online:" + roomName
}

func (m *RedisMembershipStore) Add(ctx context.Context, roomName, userID string) error {
	return m.rdb.ZAdd(ctx, membershipKey(roomName), redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: userID,
	}).Err()
}

func (m *RedisMembershipStore) Remove(ctx context.Context, roomName, userID string) error {
	return m.rdb.ZRem(ctx, membershipKey(roomName), userID).Err()
}

func (m *RedisMembershipStore) Contains(ctx context.Context, roomName, userID string) (bool, error) {
	err := m.rdb.ZScore(ctx, membershipKey(roomName), userID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *RedisMembershipStore) Count(ctx context.Context, roomName string) (int, error) {
	n, err := m.rdb.ZCard(ctx, membershipKey(roomName)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (m *RedisMembershipStore) Members(ctx context.Context, roomName string) ([]string, error) {
	return m.rdb.ZRange(ctx, membershipKey(roomName), 0, -1).Result()
}

// Touch refreshes the user's last-seen score. Same command as Add; ZADD
// updates the score of an existing member in place.
func (m *RedisMembershipStore) Touch(ctx context.Context, roomName, userID string) error {
	return m.Add(ctx, roomName, userID)
}

// PruneExpired drops members whose last-seen score is older than maxAge
// and returns their ids so the caller can trigger recounts.
func (m *RedisMembershipStore) PruneExpired(
	ctx context.Context,
	roomName string,
	maxAge time.Duration,
) ([]string, error) {
	key := membershipKey(roomName)
	cutoff := strconv.FormatInt(time.Now().Add(-maxAge).Unix(), 10)

	stale, err := m.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}
	if err := m.rdb.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		return nil, err
	}
	return stale, nil
}
