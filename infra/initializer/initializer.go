package initializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/budgee/family/infra"
	infra_cache "github.com/budgee/family/infra/cache"
	infra_eventbus "github.com/budgee/family/infra/eventbus"
	infra_repository "github.com/budgee/family/infra/repository"
	"github.com/budgee/family/pkg/cache"
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// InitializeDependencies connects the database, applies migrations when enabled and
// picks the notification bus.
func InitializeDependencies(cfg *config.App) (*config.Deps, error) {
	logger := SetupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	if cfg.DB.MigrateOnStart {
		if err := infra.Migrate(db, logger); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	journal, err := initJournal(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &config.Deps{
		Uow:      infra_repository.NewUoW(db),
		EventBus: bus,
		Journal:  journal,
		Logger:   logger,
		Config:   cfg,
	}, nil
}

// initEventBus selects the notifier driver. An unreachable Redis server falls back
// to the in-memory bus so the daily job still runs; the summaries are then only logged.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	n := cfg.Notifier
	if n == nil {
		n = &config.Notifier{Driver: "memory"}
	}
	switch strings.ToLower(strings.TrimSpace(n.Driver)) {
	case "", "memory":
		return infra_eventbus.NewWithMemory(logger), nil
	case "redis":
		rc := cfg.Redis
		if rc == nil || rc.URL == "" {
			return nil, fmt.Errorf("redis notifier requires REDIS_URL")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bus, err := infra_eventbus.NewWithRedis(ctx, infra_eventbus.RedisEventBusConfig{
			URL:          rc.URL,
			Stream:       rc.KeyPrefix + n.Stream,
			Group:        n.Group,
			PoolSize:     rc.PoolSize,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		}, logger)
		if err != nil {
			logger.Warn("Redis notifier unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	case "kafka":
		return infra_eventbus.NewWithKafka(n.KafkaBrokers, infra_eventbus.KafkaEventBusConfig{
			GroupID:     n.Group,
			TopicPrefix: n.KafkaTopicPrefix,
		}, logger)
	}
	return nil, fmt.Errorf("unknown notifier driver %q", n.Driver)
}

// initJournal selects where batch jobs record their last run date.
func initJournal(cfg *config.App, logger *slog.Logger) (cache.RunJournal, error) {
	driver := "memory"
	if cfg.Journal != nil {
		driver = strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))
	}
	switch driver {
	case "", "memory":
		return infra_cache.NewMemoryRunJournal(), nil
	case "redis":
		rc := cfg.Redis
		if rc == nil || rc.URL == "" {
			return nil, fmt.Errorf("redis journal requires REDIS_URL")
		}
		opt, err := redis.ParseURL(rc.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		if rc.PoolSize > 0 {
			opt.PoolSize = rc.PoolSize
		}
		opt.DialTimeout = rc.DialTimeout
		opt.ReadTimeout = rc.ReadTimeout
		opt.WriteTimeout = rc.WriteTimeout
		return infra_cache.NewRedisRunJournalWithOptions(opt, rc.KeyPrefix, logger), nil
	}
	return nil, fmt.Errorf("unknown journal driver %q", driver)
}
