package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pivik/internal/amqp"
	"pivik/internal/core"
	"pivik/internal/sheets"
	"pivik/internal/store"
)

// MirrorWorker turns ledger events into audit rows of the spreadsheet mirror.
type MirrorWorker struct {
	store  store.Store
	sheets sheets.LedgerWriter
}

func NewMirrorWorker(st store.Store, w sheets.LedgerWriter) *MirrorWorker {
	return &MirrorWorker{store: st, sheets: w}
}

// HandleLedgerEvent processes a single ledger event from AMQP. The current
// record is read back from the store; a record removed since the event was
// published is mirrored as identity only.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", e.Kind,
		"action", e.Action,
		"id", e.ID)

	row, err := w.buildRow(ctx, e)
	if err != nil {
		return err
	}

	ref, err := w.sheets.AppendLedgerRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger event",
		"kind", e.Kind,
		"action", e.Action,
		"id", e.ID,
		"sheets_ref", ref)
	return nil
}

func (w *MirrorWorker) buildRow(ctx context.Context, e *amqp.LedgerEvent) (sheets.LedgerRow, error) {
	row := sheets.LedgerRow{At: e.Timestamp, Kind: e.Kind, Action: e.Action, ID: e.ID, Status: e.Status}
	if e.Action == amqp.ActionDeleted {
		return row, nil
	}

	switch e.Kind {
	case amqp.KindInvoice:
		inv, err := w.store.GetInvoice(ctx, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Invoice gone before mirroring", "id", e.ID)
			return row, nil
		}
		if err != nil {
			return row, fmt.Errorf("get invoice %d: %w", e.ID, err)
		}
		return InvoiceRow(row, inv), nil
	case amqp.KindEarning:
		earnings, err := w.store.ListEarnings(ctx)
		if err != nil {
			return row, fmt.Errorf("list earnings: %w", err)
		}
		for _, earning := range earnings {
			if earning.ID == e.ID {
				return EarningRow(row, earning), nil
			}
		}
		slog.WarnContext(ctx, "Earning gone before mirroring", "id", e.ID)
		return row, nil
	default:
		return row, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// InvoiceRow fills row with the invoice fields. An event status wins over the
// stored one so a row reflects the transition it reports.
func InvoiceRow(row sheets.LedgerRow, inv core.Invoice) sheets.LedgerRow {
	row.Date = inv.Date.String()
	row.Vendor = inv.Vendor
	row.InvoiceNumber = inv.InvoiceNumber
	row.Amount = core.FormatAmount(inv.Amount)
	row.Category = inv.Category
	row.Project = inv.Project
	if row.Status == "" {
		row.Status = inv.Status.String()
	}
	return row
}

func EarningRow(row sheets.LedgerRow, e core.Earning) sheets.LedgerRow {
	row.Date = e.Date.String()
	row.Amount = e.Amount.String()
	row.Source = e.Source
	return row
}
