package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	pkgcache "github.com/budgee/family/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ pkgcache.RunJournal = (*MemoryRunJournal)(nil)
	_ pkgcache.RunJournal = (*RedisRunJournal)(nil)
)

func TestMemoryRunJournal(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryRunJournal()

	_, ok, err := j.LastRun(ctx, "update-payment-dates")
	require.NoError(t, err)
	assert.False(t, ok)

	day := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(ctx, "update-payment-dates", day))
	got, ok, err := j.LastRun(ctx, "update-payment-dates")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day, got)
}

func TestRedisRunJournal_Key(t *testing.T) {
	j := NewRedisRunJournal(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "budgee:", slog.Default())
	defer j.Close() //nolint: errcheck
	assert.Equal(t, "budgee:run:update-payment-dates", j.key("update-payment-dates"))
}

func TestRedisRunJournal_UnreachableServer(t *testing.T) {
	j := NewRedisRunJournalWithOptions(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}, "", nil)
	defer j.Close() //nolint: errcheck

	_, _, err := j.LastRun(context.Background(), "job")
	assert.Error(t, err)
}
