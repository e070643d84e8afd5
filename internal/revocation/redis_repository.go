package revocation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger implements Ledger using Redis. Entries are stored as JSON under
// key "revoked:<token>" with TTL = expiresAt - now, so Redis itself reclaims
// entries at the token's natural expiry.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger creates a Redis-backed ledger. Prefix may be empty.
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "revoked:"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) key(token string) string {
	return l.prefix + token
}

func (l *RedisLedger) prepare(e *Entry) ([]byte, time.Duration, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, 0, err
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		// minimal TTL so Redis won't keep an entry that is already stale
		ttl = time.Second
	}
	return b, ttl, nil
}

func (l *RedisLedger) Revoke(ctx context.Context, e *Entry) error {
	b, ttl, err := l.prepare(e)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, l.key(e.Token), b, ttl).Err()
}

func (l *RedisLedger) Claim(ctx context.Context, e *Entry) (bool, error) {
	b, ttl, err := l.prepare(e)
	if err != nil {
		return false, err
	}
	return l.client.SetNX(ctx, l.key(e.Token), b, ttl).Result()
}

func (l *RedisLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	b, err := l.client.Get(ctx, l.key(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return false, err
	}
	// Normally the key TTL expires first; the stored timestamp is still
	// checked in case the entry outlived it (clock drift, restored dumps).
	if e.Expired(time.Now().UTC()) {
		_ = l.client.Del(ctx, l.key(token)).Err()
		return false, nil
	}
	return true, nil
}

// SweepExpired is a no-op for Redis: key TTLs already bound entry lifetime.
func (l *RedisLedger) SweepExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
