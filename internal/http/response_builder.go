// This file shapes domain values into the JSON records the API returns and
// maps errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pivik/internal/aggregate"
	"pivik/internal/budget"
	"pivik/internal/core"
	"pivik/internal/report"
)

type (
	invoiceJSON struct {
		ID            int64           `json:"id"`
		Vendor        string          `json:"vendor"`
		InvoiceNumber string          `json:"invoiceNumber"`
		Date          string          `json:"date"`
		Amount        json.RawMessage `json:"amount"`
		Category      string          `json:"category"`
		Project       string          `json:"project"`
		Status        string          `json:"status"`
		FileURL       string          `json:"fileUrl"`
	}

	earningJSON struct {
		ID     int64           `json:"id"`
		Date   string          `json:"date"`
		Amount json.RawMessage `json:"amount"`
		Source string          `json:"source"`
	}

	vendorTotalJSON struct {
		Vendor string          `json:"vendor"`
		Total  json.RawMessage `json:"total"`
	}

	projectTotalJSON struct {
		Project string          `json:"project"`
		Total   json.RawMessage `json:"total"`
	}

	summaryJSON struct {
		TotalDue      json.RawMessage    `json:"totalDue"`
		TotalPaid     json.RawMessage    `json:"totalPaid"`
		TotalExpenses json.RawMessage    `json:"totalExpenses"`
		TotalRevenue  json.RawMessage    `json:"totalRevenue"`
		NetProfit     json.RawMessage    `json:"netProfit"`
		Profitable    bool               `json:"profitable"`
		PendingCount  int                `json:"pendingCount"`
		PaidCount     int                `json:"paidCount"`
		Vendors       []vendorTotalJSON  `json:"vendors"`
		Projects      []projectTotalJSON `json:"projects"`
	}

	budgetJSON struct {
		Project   string          `json:"project"`
		Limit     json.RawMessage `json:"limit"`
		Spend     json.RawMessage `json:"spend"`
		Remaining json.RawMessage `json:"remaining"`
		Percent   float64         `json:"percent"`
		Level     string          `json:"level"`
		LowFunds  bool            `json:"lowFunds"`
		Invoices  []invoiceJSON   `json:"invoices"`
	}

	vendorGroupJSON struct {
		Vendor   string          `json:"vendor"`
		Invoices []invoiceJSON   `json:"invoices"`
		Subtotal json.RawMessage `json:"subtotal"`
	}

	scopeJSON struct {
		StartDate  string            `json:"startDate"`
		EndDate    string            `json:"endDate"`
		Count      int               `json:"count"`
		Groups     []vendorGroupJSON `json:"groups"`
		GrandTotal json.RawMessage   `json:"grandTotal"`
	}
)

// moneyJSON renders cents as a JSON number with two decimals.
func moneyJSON(m core.Money) json.RawMessage {
	return json.RawMessage(m.Decimal().StringFixed(2))
}

func optionalMoneyJSON(m *core.Money) json.RawMessage {
	if m == nil {
		return json.RawMessage("null")
	}
	return moneyJSON(*m)
}

func newInvoiceJSON(inv core.Invoice) invoiceJSON {
	return invoiceJSON{
		ID:            inv.ID,
		Vendor:        inv.Vendor,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date.String(),
		Amount:        optionalMoneyJSON(inv.Amount),
		Category:      inv.Category,
		Project:       inv.Project,
		Status:        inv.Status.String(),
		FileURL:       inv.FileURL,
	}
}

func newInvoiceList(invs []core.Invoice) []invoiceJSON {
	out := make([]invoiceJSON, 0, len(invs))
	for _, inv := range invs {
		out = append(out, newInvoiceJSON(inv))
	}
	return out
}

func newEarningJSON(e core.Earning) earningJSON {
	return earningJSON{ID: e.ID, Date: e.Date.String(), Amount: moneyJSON(e.Amount), Source: e.Source}
}

func newVendorTotals(vs []aggregate.VendorTotal) []vendorTotalJSON {
	out := make([]vendorTotalJSON, 0, len(vs))
	for _, v := range vs {
		out = append(out, vendorTotalJSON{Vendor: v.Vendor, Total: moneyJSON(v.Total)})
	}
	return out
}

func newSummaryJSON(s aggregate.Summary) summaryJSON {
	projects := make([]projectTotalJSON, 0, len(s.Projects))
	for _, p := range s.Projects {
		projects = append(projects, projectTotalJSON{Project: p.Project, Total: moneyJSON(p.Total)})
	}
	return summaryJSON{
		TotalDue:      moneyJSON(s.TotalDue),
		TotalPaid:     moneyJSON(s.TotalPaid),
		TotalExpenses: moneyJSON(s.TotalExpenses),
		TotalRevenue:  moneyJSON(s.TotalRevenue),
		NetProfit:     moneyJSON(s.NetProfit),
		Profitable:    s.Profitable,
		PendingCount:  s.PendingCount,
		PaidCount:     s.PaidCount,
		Vendors:       newVendorTotals(s.Vendors),
		Projects:      projects,
	}
}

func newBudgetJSON(b budget.Status) budgetJSON {
	return budgetJSON{
		Project:   b.Project,
		Limit:     moneyJSON(b.Limit),
		Spend:     moneyJSON(b.Spend),
		Remaining: moneyJSON(b.Remaining),
		Percent:   b.Percent,
		Level:     string(b.Level),
		LowFunds:  b.LowFunds,
		Invoices:  newInvoiceList(b.Invoices),
	}
}

func newScopeJSON(s report.Scope) scopeJSON {
	groups := make([]vendorGroupJSON, 0, len(s.Groups))
	for _, g := range s.Groups {
		groups = append(groups, vendorGroupJSON{
			Vendor:   g.Vendor,
			Invoices: newInvoiceList(g.Invoices),
			Subtotal: moneyJSON(g.Subtotal),
		})
	}
	return scopeJSON{
		StartDate:  s.Start.String(),
		EndDate:    s.End.String(),
		Count:      s.Count(),
		Groups:     groups,
		GrandTotal: moneyJSON(s.GrandTotal),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends {"error": msg}. Internal failures are logged and their
// detail is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
