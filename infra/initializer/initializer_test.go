package initializer

import (
	"io"
	"log/slog"
	"testing"

	infra_cache "github.com/budgee/family/infra/cache"
	infra_eventbus "github.com/budgee/family/infra/eventbus"
	"github.com/budgee/family/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitEventBus_DefaultsToMemory(t *testing.T) {
	bus, err := initEventBus(&config.App{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &infra_eventbus.MemoryEventBus{}, bus)

	bus, err = initEventBus(&config.App{Notifier: &config.Notifier{Driver: "Memory"}}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &infra_eventbus.MemoryEventBus{}, bus)
}

func TestInitEventBus_RedisRequiresURL(t *testing.T) {
	_, err := initEventBus(&config.App{
		Notifier: &config.Notifier{Driver: "redis", Stream: "s", Group: "g"},
		Redis:    &config.Redis{},
	}, discardLogger())
	assert.Error(t, err)
}

func TestInitEventBus_UnreachableRedisFallsBackToMemory(t *testing.T) {
	bus, err := initEventBus(&config.App{
		Notifier: &config.Notifier{Driver: "redis", Stream: "s", Group: "g"},
		Redis:    &config.Redis{URL: "redis://127.0.0.1:1/0"},
	}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &infra_eventbus.MemoryEventBus{}, bus)
}

func TestInitEventBus_Kafka(t *testing.T) {
	_, err := initEventBus(&config.App{Notifier: &config.Notifier{Driver: "kafka"}}, discardLogger())
	assert.Error(t, err)

	bus, err := initEventBus(&config.App{
		Notifier: &config.Notifier{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, Group: "mailer"},
	}, discardLogger())
	require.NoError(t, err)
	kb, ok := bus.(*infra_eventbus.KafkaEventBus)
	require.True(t, ok)
	require.NoError(t, kb.Close())
}

func TestInitEventBus_UnknownDriver(t *testing.T) {
	_, err := initEventBus(&config.App{Notifier: &config.Notifier{Driver: "smtp"}}, discardLogger())
	assert.ErrorContains(t, err, "unknown notifier driver")
}

func TestInitJournal(t *testing.T) {
	j, err := initJournal(&config.App{}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &infra_cache.MemoryRunJournal{}, j)

	_, err = initJournal(&config.App{Journal: &config.Journal{Driver: "redis"}}, discardLogger())
	assert.ErrorContains(t, err, "REDIS_URL")

	j, err = initJournal(&config.App{
		Journal: &config.Journal{Driver: "redis"},
		Redis:   &config.Redis{URL: "redis://127.0.0.1:6379/0", KeyPrefix: "budgee:"},
	}, discardLogger())
	require.NoError(t, err)
	rj, ok := j.(*infra_cache.RedisRunJournal)
	require.True(t, ok)
	require.NoError(t, rj.Close())

	_, err = initJournal(&config.App{Journal: &config.Journal{Driver: "etcd"}}, discardLogger())
	assert.ErrorContains(t, err, "unknown journal driver")
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Log{Format: "json", Prefix: "[test]"})
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())
	assert.NotNil(t, SetupLogger(nil))
}
