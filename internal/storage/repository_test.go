package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pivik/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "pivik.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestInvoiceRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateInvoice(ctx, core.Invoice{
		Vendor:        "Costco",
		InvoiceNumber: "INV-1",
		Date:          core.NewDate(2025, 12, 1),
		Amount:        &core.Money{Cents: 12345},
		Category:      "Groceries",
		Project:       core.ProjectFedUp,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Status != core.StatusOnPaymentTerm {
		t.Fatalf("unexpected created invoice: %+v", created)
	}

	got, err := repo.GetInvoice(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Vendor != "Costco" || got.Amount == nil || got.Amount.Cents != 12345 ||
		got.Date.String() != "2025-12-01" || got.Project != core.ProjectFedUp {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestMissingAmountStaysNull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created, _ := repo.CreateInvoice(ctx, core.Invoice{Date: core.NewDate(2025, 1, 1)})
	got, _ := repo.GetInvoice(ctx, created.ID)
	if got.Amount != nil {
		t.Fatalf("expected nil amount, got %v", got.Amount)
	}
}

func TestStatusTransitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inv, _ := repo.CreateInvoice(ctx, core.Invoice{Date: core.NewDate(2025, 1, 1), Status: "PENDING"})

	paid, err := repo.SetStatus(ctx, inv.ID, core.StatusPaid)
	if err != nil || !paid.Status.IsPaid() {
		t.Fatalf("pay: %+v %v", paid, err)
	}
	reverted, err := repo.SetStatus(ctx, inv.ID, core.StatusOnPaymentTerm)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != core.StatusOnPaymentTerm {
		t.Fatalf("expected sentinel after revert, got %q", reverted.Status)
	}
}

func TestUpdateInvoice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inv, _ := repo.CreateInvoice(ctx, core.Invoice{Vendor: "A", Date: core.NewDate(2025, 1, 1), Amount: &core.Money{Cents: 10}})

	cat := "Supplies"
	got, err := repo.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Category: &cat, ClearAmount: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Category != "Supplies" || got.Vendor != "A" || got.Amount != nil {
		t.Fatalf("unexpected update: %+v", got)
	}

	_, err = repo.UpdateInvoice(ctx, inv.ID, core.InvoicePatch{Amount: &core.Money{Cents: -1}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	stored, _ := repo.GetInvoice(ctx, inv.ID)
	if stored.Category != "Supplies" || stored.Amount != nil {
		t.Fatalf("failed update changed the row: %+v", stored)
	}
}

func TestNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, _ = repo.CreateInvoice(ctx, core.Invoice{Date: core.NewDate(2025, 1, 1)})

	if err := repo.DeleteInvoice(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
	if _, err := repo.SetStatus(ctx, 404, core.StatusPaid); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("set status: expected not found, got %v", err)
	}
	if _, err := repo.UpdateInvoice(ctx, 404, core.InvoicePatch{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if _, err := repo.GetInvoice(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	if err := repo.DeleteEarning(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete earning: expected not found, got %v", err)
	}

	list, _ := repo.ListInvoices(ctx)
	if len(list) != 1 {
		t.Fatalf("collection changed after failed delete: %d", len(list))
	}
}

func TestEarningsLedger(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e, err := repo.CreateEarning(ctx, core.Earning{Date: core.NewDate(2025, 2, 1), Amount: core.Money{Cents: 20000}})
	if err != nil {
		t.Fatalf("create earning: %v", err)
	}
	if e.Source != core.DefaultEarningSource {
		t.Fatalf("expected default source, got %q", e.Source)
	}
	if _, err := repo.CreateEarning(ctx, core.Earning{Date: core.NewDate(2025, 2, 1), Amount: core.Money{Cents: -1}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	list, err := repo.ListEarnings(ctx)
	if err != nil || len(list) != 1 || list[0].Amount.Cents != 20000 {
		t.Fatalf("unexpected list: %+v %v", list, err)
	}
	if err := repo.DeleteEarning(ctx, e.ID); err != nil {
		t.Fatalf("delete earning: %v", err)
	}
	list, _ = repo.ListEarnings(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(list))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pivik.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = repo.CreateInvoice(context.Background(), core.Invoice{Date: core.NewDate(2025, 1, 1)})
	_ = repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	list, _ := repo.ListInvoices(context.Background())
	if len(list) != 1 {
		t.Fatalf("expected persisted invoice, got %d", len(list))
	}
}
