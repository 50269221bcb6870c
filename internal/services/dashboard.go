package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pivik/internal/aggregate"
	"pivik/internal/budget"
	"pivik/internal/core"
	"pivik/internal/store"
)

// DashboardService recomputes every figure from the current records on each
// call.
type DashboardService struct {
	store   store.Store
	tracker budget.Tracker
}

func NewDashboardService(st store.Store, tracker budget.Tracker) *DashboardService {
	return &DashboardService{store: st, tracker: tracker}
}

// load reads both collections concurrently.
func (d *DashboardService) load(ctx context.Context) ([]core.Invoice, []core.Earning, error) {
	var (
		invoices []core.Invoice
		earnings []core.Earning
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = d.store.ListInvoices(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		earnings, err = d.store.ListEarnings(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load dashboard: %w", err)
	}
	return invoices, earnings, nil
}

func (d *DashboardService) Summary(ctx context.Context) (aggregate.Summary, error) {
	invoices, earnings, err := d.load(ctx)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(invoices, earnings), nil
}

func (d *DashboardService) Vendors(ctx context.Context) ([]aggregate.VendorTotal, error) {
	invoices, err := d.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("vendor totals: %w", err)
	}
	return aggregate.VendorTotals(invoices), nil
}

// Budget evaluates the configured program. Its invoices are listed newest
// first.
func (d *DashboardService) Budget(ctx context.Context) (budget.Status, error) {
	invoices, err := d.store.ListInvoices(ctx)
	if err != nil {
		return budget.Status{}, fmt.Errorf("budget: %w", err)
	}
	st := d.tracker.Evaluate(invoices)
	core.SortNewestFirst(st.Invoices)
	return st, nil
}
