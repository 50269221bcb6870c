package services

import (
	"context"
	"fmt"
	"log/slog"

	"pivik/internal/amqp"
	"pivik/internal/core"
	"pivik/internal/store"
)

type EarningService struct {
	ledger store.EarningsLedger
	events EventPublisher
	logger *slog.Logger
}

func NewEarningService(ledger store.EarningsLedger, events EventPublisher) *EarningService {
	return &EarningService{
		ledger: ledger,
		events: events,
		logger: slog.With("component", "earning-service"),
	}
}

// List returns earnings by date, newest first.
func (s *EarningService) List(ctx context.Context) ([]core.Earning, error) {
	es, err := s.ledger.ListEarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	core.SortEarningsByDateDesc(es)
	return es, nil
}

func (s *EarningService) Create(ctx context.Context, e core.Earning) (core.Earning, error) {
	created, err := s.ledger.CreateEarning(ctx, e)
	if err != nil {
		return core.Earning{}, err
	}
	publish(ctx, s.logger, s.events, amqp.NewLedgerEvent(amqp.KindEarning, amqp.ActionCreated, created.ID))
	return created, nil
}

func (s *EarningService) Delete(ctx context.Context, id int64) error {
	if err := s.ledger.DeleteEarning(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.logger, s.events, amqp.NewLedgerEvent(amqp.KindEarning, amqp.ActionDeleted, id))
	return nil
}
