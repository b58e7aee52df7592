package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRunJournal implements RunJournal using Redis string keys holding a date.
type RedisRunJournal struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisRunJournalWithOptions creates a RedisRunJournal from redis.Options.
func NewRedisRunJournalWithOptions(
	opt *redis.Options,
	prefix string,
	logger *slog.Logger,
) *RedisRunJournal {
	return NewRedisRunJournal(redis.NewClient(opt), prefix, logger)
}

// NewRedisRunJournal wraps an existing client.
func NewRedisRunJournal(client *redis.Client, prefix string, logger *slog.Logger) *RedisRunJournal {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRunJournal{client: client, prefix: prefix, logger: logger}
}

func (r *RedisRunJournal) key(job string) string {
	return r.prefix + "run:" + job
}

func (r *RedisRunJournal) LastRun(ctx context.Context, job string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, r.key(job)).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Run journal miss", "job", job)
		return time.Time{}, false, nil
	}
	if err != nil {
		r.logger.Error("Run journal get error", "job", job, "error", err)
		return time.Time{}, false, err
	}
	d, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("run journal %s: %w", job, err)
	}
	return d, true, nil
}

func (r *RedisRunJournal) RecordRun(ctx context.Context, job string, runDate time.Time) error {
	if err := r.client.Set(ctx, r.key(job), runDate.Format(time.DateOnly), 0).Err(); err != nil {
		r.logger.Error("Run journal set error", "job", job, "error", err)
		return err
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisRunJournal) Close() error {
	return r.client.Close()
}
