package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger maps a caller-chosen idempotency key to the sale it committed.
type Ledger struct {
	RDB *redis.Client
	TTL time.Duration // defaults to TTLIdempotency
}

func (l *Ledger) key(k string) string { return fmt.Sprintf(KeyIdemSaleCommit, k) }

func (l *Ledger) Lookup(ctx context.Context, key string) (int64, bool, error) {
	v, err := l.RDB.Get(ctx, l.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("ledger %q holds %q: %w", key, v, err)
	}
	return id, true, nil
}

func (l *Ledger) Remember(ctx context.Context, key string, saleID int64) error {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return l.RDB.Set(ctx, l.key(key), strconv.FormatInt(saleID, 10), ttl).Err()
}
