package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLedgerRoundTrip(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := &Ledger{RDB: rdb}
	ctx := context.Background()

	_, ok, err := l.Lookup(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Remember(ctx, "till-1-0001", 42))
	id, ok, err := l.Lookup(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	assert.True(t, mr.Exists("idem:sale:commit:till-1-0001"))
}

func TestLedgerExpires(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := &Ledger{RDB: rdb, TTL: time.Minute}
	ctx := context.Background()

	require.NoError(t, l.Remember(ctx, "k", 7))
	assert.Equal(t, time.Minute, mr.TTL("idem:sale:commit:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := l.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerDefaultTTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	require.NoError(t, (&Ledger{RDB: rdb}).Remember(context.Background(), "k", 1))
	assert.Equal(t, TTLIdempotency, mr.TTL("idem:sale:commit:k"))
}

func TestLedgerCorruptValue(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	require.NoError(t, mr.Set("idem:sale:commit:bad", "not-a-number"))

	_, ok, err := (&Ledger{RDB: rdb}).Lookup(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}
