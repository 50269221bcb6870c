package services

import (
	"context"
	"fmt"
	"log/slog"

	"pivik/internal/core"
	"pivik/internal/store"
)

// SeedSampleData inserts a demo invoice when the store is empty. It reports
// whether anything was written.
func SeedSampleData(ctx context.Context, st store.InvoiceStore) (bool, error) {
	existing, err := st.ListInvoices(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	amount := core.MustAmount("250.00")
	// "Paid" is not "PAID"; the sample deliberately lands in the not-paid class.
	inv, err := st.CreateInvoice(ctx, core.Invoice{
		Vendor:   "Pepsi",
		Amount:   &amount,
		Date:     core.Today(),
		Category: "Beverages",
		Status:   "Paid",
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	slog.InfoContext(ctx, "Sample data loaded", "id", inv.ID, "vendor", inv.Vendor)
	return true, nil
}
