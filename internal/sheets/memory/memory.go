package memory

import (
	"context"
	"fmt"
	"sync"

	"pivik/internal/aggregate"
	"pivik/internal/budget"
	"pivik/internal/sheets"
)

// Mirror keeps ledger rows and the latest summary in memory. The worker
// falls back to it when no spreadsheet is configured.
type Mirror struct {
	mu      sync.Mutex
	rows    []sheets.LedgerRow
	summary [][]any
}

var (
	_ sheets.LedgerWriter  = (*Mirror)(nil)
	_ sheets.SummaryWriter = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{}
}

// AppendLedgerRow stores the row and returns a synthetic row reference.
func (m *Mirror) AppendLedgerRow(_ context.Context, r sheets.LedgerRow) (string, error) {
	if r.ID <= 0 {
		return "", fmt.Errorf("invalid ledger row id %d", r.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) WriteSummary(_ context.Context, sum aggregate.Summary, b budget.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = sheets.SummaryValues(sum, b)
	return nil
}

// Rows returns a copy of everything appended so far.
func (m *Mirror) Rows() []sheets.LedgerRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.LedgerRow(nil), m.rows...)
}

// Summary returns the last summary written, or nil.
func (m *Mirror) Summary() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.summary...)
}
