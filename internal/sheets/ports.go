package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pivik/internal/aggregate"
	"pivik/internal/budget"
)

// LedgerHeader names the audit sheet columns in LedgerRow.Values order.
var LedgerHeader = []any{
	"Timestamp", "Kind", "Action", "ID", "Date", "Vendor",
	"Invoice #", "Amount", "Category", "Project", "Status", "Source",
}

// LedgerRow is one audit line of the spreadsheet mirror. Deleted records
// carry only their identity.
type LedgerRow struct {
	At            time.Time
	Kind          string
	Action        string
	ID            int64
	Date          string
	Vendor        string
	InvoiceNumber string
	Amount        string
	Category      string
	Project       string
	Status        string
	Source        string
}

func (r LedgerRow) Values() []any {
	return []any{
		r.At.UTC().Format(time.RFC3339),
		r.Kind, r.Action, r.ID, r.Date, r.Vendor,
		r.InvoiceNumber, r.Amount, r.Category, r.Project, r.Status, r.Source,
	}
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendLedgerRow(ctx context.Context, r LedgerRow) (rowRef string, err error)
	}

	SummaryWriter interface {
		WriteSummary(ctx context.Context, sum aggregate.Summary, b budget.Status) error
	}
)

// SummaryValues lays the dashboard out as label/value pairs.
func SummaryValues(sum aggregate.Summary, b budget.Status) [][]any {
	rows := [][]any{
		{"Total Due", sum.TotalDue.String()},
		{"Total Paid", sum.TotalPaid.String()},
		{"Total Expenses", sum.TotalExpenses.String()},
		{"Total Revenue", sum.TotalRevenue.String()},
		{"Net Profit", sum.NetProfit.String()},
		{"Pending Invoices", sum.PendingCount},
		{"Paid Invoices", sum.PaidCount},
		{b.Project + " Spend", b.Spend.String()},
		{b.Project + " Remaining", b.Remaining.String()},
		{b.Project + " Usage", fmt.Sprintf("%.1f%%", b.Percent)},
		{b.Project + " Alert", string(b.Level)},
	}
	for _, v := range sum.Vendors {
		rows = append(rows, []any{"Vendor: " + strings.TrimSpace(v.Vendor), v.Total.String()})
	}
	return rows
}
