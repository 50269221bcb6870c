package services

import (
	"context"
	"log/slog"

	"pivik/internal/amqp"
)

// EventPublisher announces acknowledged mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// publish never fails the caller: the mutation is already stored.
func publish(ctx context.Context, logger *slog.Logger, events EventPublisher, e *amqp.LedgerEvent) {
	if events == nil {
		return
	}
	if err := events.PublishLedgerEvent(ctx, e); err != nil {
		logger.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", e.Kind,
			"action", e.Action,
			"id", e.ID,
			"error", err)
	}
}
