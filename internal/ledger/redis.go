// Package ledger records which (alert, posting) pairs were already e-mailed
// when the delivery ledger lives in Redis instead of the SQLite store.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps delivery keys a little longer than the alert window so a
// posting is never re-sent while it can still match.
const DefaultTTL = 48 * time.Hour

// RedisLedger stores one key per delivered pair with a TTL.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisLedger uses keys "<prefix>delivered:<alert>:<posting>". A zero ttl
// means DefaultTTL.
func NewRedisLedger(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *RedisLedger) key(alertID, postingID int64) string {
	return fmt.Sprintf("%sdelivered:%d:%d", l.prefix, alertID, postingID)
}

// Delivered reports whether the pair was marked within the TTL.
func (l *RedisLedger) Delivered(ctx context.Context, alertID, postingID int64) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(alertID, postingID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %d/%d: %w", alertID, postingID, err)
	}
	return n > 0, nil
}

// MarkDelivered records the pair. Marking twice keeps the first timestamp.
func (l *RedisLedger) MarkDelivered(ctx context.Context, alertID, postingID int64) error {
	err := l.rdb.SetNX(ctx, l.key(alertID, postingID), time.Now().Unix(), l.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis setnx %d/%d: %w", alertID, postingID, err)
	}
	return nil
}
