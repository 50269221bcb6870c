package memory

import (
	"context"
	"fmt"
	"sync"

	"pivik/internal/core"
	"pivik/internal/store"
)

// Store keeps invoices and earnings in process memory. One mutex serializes
// every call, so each mutation is atomic with respect to the others.
type Store struct {
	mu       sync.Mutex
	nextInv  int64
	nextEarn int64
	invoices map[int64]core.Invoice
	earnings map[int64]core.Earning
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		invoices: make(map[int64]core.Invoice),
		earnings: make(map[int64]core.Earning),
	}
}

func (s *Store) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	inv, err := store.NormalizeNew(inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextInv++
	inv.ID = s.nextInv
	s.invoices[inv.ID] = inv
	return inv.Clone(), nil
}

func (s *Store) UpdateInvoice(_ context.Context, id int64, patch core.InvoicePatch) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, core.ErrNotFound)
	}
	next := patch.Apply(cur.Clone())
	if err := next.Validate(); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}
	s.invoices[id] = next
	return next.Clone(), nil
}

func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; !ok {
		return fmt.Errorf("delete invoice %d: %w", id, core.ErrNotFound)
	}
	delete(s.invoices, id)
	return nil
}

// SetStatus overwrites the label. Reverting a paid invoice to
// core.StatusOnPaymentTerm does not restore whatever label it had before.
func (s *Store) SetStatus(_ context.Context, id int64, status core.Status) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, fmt.Errorf("set status %d: %w", id, core.ErrNotFound)
	}
	cur.Status = status
	s.invoices[id] = cur
	return cur.Clone(), nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, fmt.Errorf("get invoice %d: %w", id, core.ErrNotFound)
	}
	return inv.Clone(), nil
}

func (s *Store) ListInvoices(_ context.Context) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv.Clone())
	}
	return out, nil
}

func (s *Store) CreateEarning(_ context.Context, e core.Earning) (core.Earning, error) {
	if err := e.Validate(); err != nil {
		return core.Earning{}, fmt.Errorf("create earning: %w", err)
	}
	if e.Source == "" {
		e.Source = core.DefaultEarningSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEarn++
	e.ID = s.nextEarn
	s.earnings[e.ID] = e
	return e, nil
}

func (s *Store) DeleteEarning(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.earnings[id]; !ok {
		return fmt.Errorf("delete earning %d: %w", id, core.ErrNotFound)
	}
	delete(s.earnings, id)
	return nil
}

func (s *Store) ListEarnings(_ context.Context) ([]core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Earning, 0, len(s.earnings))
	for _, e := range s.earnings {
		out = append(out, e)
	}
	return out, nil
}
