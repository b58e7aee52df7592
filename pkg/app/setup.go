// Package app wires the services together and registers the event bus handlers.
package app

import (
	"context"
	"log/slog"

	"github.com/budgee/family/pkg/domain/events"
	"github.com/budgee/family/pkg/eventbus"
)

// SetupBus registers the in-process handlers. Delivery to users belongs to the
// external mailer reading the bus; locally the summaries are logged.
func SetupBus(bus eventbus.Bus, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	bus.Register(events.EventTypePaymentDatesUpdated, LogPaymentDates(logger))
}

// LogPaymentDates logs one line per source touched by a daily run.
func LogPaymentDates(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		evt, ok := e.(*events.PaymentDatesUpdated)
		if !ok {
			return nil
		}
		for _, item := range evt.Items {
			logger.InfoContext(ctx, "payment dates updated",
				"user_id", evt.UserID,
				"source_id", item.SourceID,
				"kind", item.SourceType,
				"realised", len(item.Realised),
				"next_due_date", item.NextDueDate.Format("2006-01-02"),
				"completed", item.Completed,
				"terminated", item.Terminated,
			)
		}
		return nil
	}
}
