package store

import (
	"context"

	"pivik/internal/core"
)

// Ports for the record stores. Every read path derives its numbers from
// ListInvoices and ListEarnings; nothing caches aggregates.
type (
	InvoiceStore interface {
		// CreateInvoice assigns a new id. An empty status becomes
		// core.StatusOnPaymentTerm.
		CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		// UpdateInvoice replaces only the fields present in the patch.
		UpdateInvoice(ctx context.Context, id int64, patch core.InvoicePatch) (core.Invoice, error)
		DeleteInvoice(ctx context.Context, id int64) error
		// SetStatus is the only status transition primitive. Any label is
		// accepted and the previous one is discarded.
		SetStatus(ctx context.Context, id int64, status core.Status) (core.Invoice, error)
		GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
		// ListInvoices returns every invoice in no particular order.
		ListInvoices(ctx context.Context) ([]core.Invoice, error)
	}

	EarningsLedger interface {
		CreateEarning(ctx context.Context, e core.Earning) (core.Earning, error)
		DeleteEarning(ctx context.Context, id int64) error
		ListEarnings(ctx context.Context) ([]core.Earning, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		InvoiceStore
		EarningsLedger
	}
)

// NormalizeNew applies the creation defaults shared by every backend.
func NormalizeNew(inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	if inv.Status == "" {
		inv.Status = core.StatusOnPaymentTerm
	}
	return inv.Clone(), nil
}
