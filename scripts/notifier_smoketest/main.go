// Command notifier_smoketest publishes one payment-dates summary through the Kafka
// notifier and waits for it to come back, to verify a local broker setup.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/budgee/family/infra/eventbus"
	"github.com/budgee/family/pkg/domain/events"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunSmokeTest round-trips a PaymentDatesUpdated event over Kafka.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = "budgee-smoketest"
	}

	bus, err := infra_eventbus.NewWithKafka([]string{brokers}, infra_eventbus.KafkaEventBusConfig{
		GroupID:     groupID,
		TopicPrefix: "budgee.smoketest",
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sent := events.NewPaymentDatesUpdated(uuid.New(), schedule.Today(time.Now(), time.UTC), []events.PaymentDateItem{{
		SourceType: "subscription",
		SourceID:   uuid.New(),
		Name:       "Smoke test",
		Amount:     decimal.RequireFromString("1.00"),
		Currency:   "EUR",
		Realised:   []time.Time{schedule.Today(time.Now(), time.UTC)},
	}})

	received := make(chan events.Event, 1)
	bus.Register(events.EventTypePaymentDatesUpdated, func(_ context.Context, e events.Event) error {
		if got, ok := e.(*events.PaymentDatesUpdated); ok && got.ID == sent.ID {
			select {
			case received <- e:
			default:
			}
		}
		return nil
	})

	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("publish failed", "error", err)
		return err
	}
	logger.Info("produced", "event_id", sent.ID)

	select {
	case <-received:
		logger.Info("consumed", "event_id", sent.ID)
	case <-ctx.Done():
		logger.Error("no message received", "error", ctx.Err())
		return ctx.Err()
	}

	logger.Info("notifier smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
