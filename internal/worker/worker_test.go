package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pivik/internal/aggregate"
	"pivik/internal/amqp"
	"pivik/internal/budget"
	"pivik/internal/core"
	"pivik/internal/services"
	"pivik/internal/sheets"
	sheetsmem "pivik/internal/sheets/memory"
	"pivik/internal/store/memory"
)

type failingWriter struct{}

func (failingWriter) AppendLedgerRow(context.Context, sheets.LedgerRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleLedgerEvent_Invoice(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	amt := core.Money{Cents: 4599}
	inv, _ := st.CreateInvoice(ctx, core.Invoice{Vendor: "Costco", Date: core.NewDate(2025, 3, 1), Amount: &amt, Project: "FED UP"})

	mirror := sheetsmem.New()
	w := NewMirrorWorker(st, mirror)

	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionCreated, inv.ID)); err != nil {
		t.Fatalf("handle created: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionStatus, inv.ID).WithStatus("PAID")); err != nil {
		t.Fatalf("handle status: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Vendor != "Costco" || rows[0].Amount != "$45.99" || rows[0].Date != "2025-03-01" || rows[0].Status != "On Payment Term" {
		t.Errorf("unexpected created row: %+v", rows[0])
	}
	if rows[1].Status != "PAID" {
		t.Errorf("status row must carry the event status, got %q", rows[1].Status)
	}
}

func TestHandleLedgerEvent_Earning(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	e, _ := st.CreateEarning(ctx, core.Earning{Date: core.NewDate(2025, 3, 1), Amount: core.Money{Cents: 20000}})

	mirror := sheetsmem.New()
	w := NewMirrorWorker(st, mirror)
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindEarning, amqp.ActionCreated, e.ID)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].Amount != "$200.00" || rows[0].Source != core.DefaultEarningSource {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestHandleLedgerEvent_DeletedAndMissing(t *testing.T) {
	mirror := sheetsmem.New()
	w := NewMirrorWorker(memory.New(), mirror)
	ctx := context.Background()

	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionDeleted, 9)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionUpdated, 10)); err != nil {
		t.Fatalf("missing invoice must still mirror: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.KindEarning, amqp.ActionCreated, 11)); err != nil {
		t.Fatalf("missing earning must still mirror: %v", err)
	}
	for _, r := range mirror.Rows() {
		if r.Vendor != "" || r.Amount != "" {
			t.Errorf("identity-only row expected, got %+v", r)
		}
	}
}

func TestHandleLedgerEvent_WriterFailureIsReturned(t *testing.T) {
	w := NewMirrorWorker(memory.New(), failingWriter{})
	err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionDeleted, 1))
	if err == nil {
		t.Fatal("writer failure must requeue the event")
	}
}

func TestInvoiceRow_MissingAmount(t *testing.T) {
	row := InvoiceRow(sheets.LedgerRow{}, core.Invoice{Vendor: "X", Status: "PENDING"})
	if row.Amount != "N/A" || row.Status != "PENDING" {
		t.Errorf("unexpected row: %+v", row)
	}
}

func newSummaryProcessor(t *testing.T, interval time.Duration) (*SummaryProcessor, *sheetsmem.Mirror) {
	t.Helper()
	st := memory.New()
	amt := core.Money{Cents: 10000}
	_, _ = st.CreateInvoice(context.Background(), core.Invoice{Date: core.NewDate(2025, 1, 1), Amount: &amt})
	mirror := sheetsmem.New()
	d := services.NewDashboardService(st, budget.Tracker{})
	return NewSummaryProcessor(d, mirror, SummaryProcessorConfig{Interval: interval}), mirror
}

func TestSummaryProcessor_Refresh(t *testing.T) {
	p, mirror := newSummaryProcessor(t, time.Hour)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := mirror.Summary()
	if len(got) == 0 || got[0][1] != "$100.00" {
		t.Errorf("unexpected summary: %v", got)
	}
}

func TestSummaryProcessor_Lifecycle(t *testing.T) {
	p, mirror := newSummaryProcessor(t, time.Hour)
	ctx := context.Background()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop when not running: %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after stop")
	}
	// The loop refreshes once on startup, before the first tick.
	if mirror.Summary() == nil {
		t.Error("expected the startup refresh to write a summary")
	}
}

func TestDefaultSummaryProcessorConfig(t *testing.T) {
	p := NewSummaryProcessor(nil, nil, SummaryProcessorConfig{})
	if p.config.Interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", p.config.Interval)
	}
}

type blockingSummaryWriter struct {
	release chan struct{}
}

func (w blockingSummaryWriter) WriteSummary(context.Context, aggregate.Summary, budget.Status) error {
	<-w.release
	return nil
}

func TestSummaryProcessor_StopAfterTimeout(t *testing.T) {
	st := memory.New()
	writer := blockingSummaryWriter{release: make(chan struct{})}
	p := NewSummaryProcessor(services.NewDashboardService(st, budget.Tracker{}), writer,
		SummaryProcessorConfig{Interval: time.Hour})

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("stop with a stuck refresh = %v, want deadline exceeded", err)
	}
	if p.IsRunning() {
		t.Error("processor should not report running after a timed-out stop")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	close(writer.release)
	if err := p.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	stopCtx, stopCancel := context.WithTimeout(ctx, 2*time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop after restart: %v", err)
	}
}
