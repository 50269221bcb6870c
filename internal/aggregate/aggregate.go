// Package aggregate derives every dashboard figure from the raw invoice and
// earnings records. All functions are pure and recompute from scratch.
package aggregate

import (
	"sort"
	"strings"

	"pivik/internal/core"
)

// GeneralProject labels invoices without a project tag.
const GeneralProject = "General"

type (
	VendorTotal struct {
		Vendor string
		Total  core.Money
	}

	ProjectTotal struct {
		Project string
		Total   core.Money
	}

	Summary struct {
		TotalDue      core.Money
		TotalPaid     core.Money
		TotalExpenses core.Money
		TotalRevenue  core.Money
		NetProfit     core.Money
		Profitable    bool
		PendingCount  int
		PaidCount     int
		Vendors       []VendorTotal
		Projects      []ProjectTotal
	}
)

// TotalDue sums every invoice whose status is not PAID.
func TotalDue(invoices []core.Invoice) core.Money {
	var sum core.Money
	for _, inv := range invoices {
		if !inv.Status.IsPaid() {
			sum = sum.Add(core.AmountOrZero(inv.Amount))
		}
	}
	return sum
}

// TotalPaid sums every invoice whose status is PAID.
func TotalPaid(invoices []core.Invoice) core.Money {
	var sum core.Money
	for _, inv := range invoices {
		if inv.Status.IsPaid() {
			sum = sum.Add(core.AmountOrZero(inv.Amount))
		}
	}
	return sum
}

// TotalExpenses sums every invoice regardless of status.
func TotalExpenses(invoices []core.Invoice) core.Money {
	var sum core.Money
	for _, inv := range invoices {
		sum = sum.Add(core.AmountOrZero(inv.Amount))
	}
	return sum
}

func TotalRevenue(earnings []core.Earning) core.Money {
	var sum core.Money
	for _, e := range earnings {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// NetProfit is revenue minus all invoice amounts, paid or not.
func NetProfit(earnings []core.Earning, invoices []core.Invoice) core.Money {
	return TotalRevenue(earnings).Sub(TotalExpenses(invoices))
}

func IsProfitable(net core.Money) bool {
	return net.Cents >= 0
}

// VendorTotals groups amounts by vendor, largest first. Ties keep the order
// in which vendors first appear in the input.
func VendorTotals(invoices []core.Invoice) []VendorTotal {
	keys, sums := groupBy(invoices, func(inv core.Invoice) string {
		return core.VendorOrUnknown(inv.Vendor)
	})
	out := make([]VendorTotal, len(keys))
	for i, k := range keys {
		out[i] = VendorTotal{Vendor: k, Total: sums[k]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Total.Cents > out[b].Total.Cents })
	return out
}

// ProjectTotals groups amounts by project tag with the same ordering rules as
// VendorTotals.
func ProjectTotals(invoices []core.Invoice) []ProjectTotal {
	keys, sums := groupBy(invoices, func(inv core.Invoice) string {
		if strings.TrimSpace(inv.Project) == "" {
			return GeneralProject
		}
		return inv.Project
	})
	out := make([]ProjectTotal, len(keys))
	for i, k := range keys {
		out[i] = ProjectTotal{Project: k, Total: sums[k]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Total.Cents > out[b].Total.Cents })
	return out
}

func groupBy(invoices []core.Invoice, key func(core.Invoice) string) ([]string, map[string]core.Money) {
	var order []string
	sums := make(map[string]core.Money)
	for _, inv := range invoices {
		k := key(inv)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] = sums[k].Add(core.AmountOrZero(inv.Amount))
	}
	return order, sums
}

// Summarize computes the full dashboard in one pass over each collection.
func Summarize(invoices []core.Invoice, earnings []core.Earning) Summary {
	s := Summary{
		TotalDue:      TotalDue(invoices),
		TotalPaid:     TotalPaid(invoices),
		TotalExpenses: TotalExpenses(invoices),
		TotalRevenue:  TotalRevenue(earnings),
		Vendors:       VendorTotals(invoices),
		Projects:      ProjectTotals(invoices),
	}
	s.NetProfit = s.TotalRevenue.Sub(s.TotalExpenses)
	s.Profitable = IsProfitable(s.NetProfit)
	for _, inv := range invoices {
		if inv.Status.IsPaid() {
			s.PaidCount++
		} else {
			s.PendingCount++
		}
	}
	return s
}

// FilterPending drops paid invoices, keeping input order.
func FilterPending(invoices []core.Invoice) []core.Invoice {
	out := make([]core.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if !inv.Status.IsPaid() {
			out = append(out, inv)
		}
	}
	return out
}

// Search matches term case-insensitively against vendor and invoice number.
// An empty term matches everything.
func Search(invoices []core.Invoice, term string) []core.Invoice {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]core.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if term == "" ||
			strings.Contains(strings.ToLower(inv.Vendor), term) ||
			strings.Contains(strings.ToLower(inv.InvoiceNumber), term) {
			out = append(out, inv)
		}
	}
	return out
}
