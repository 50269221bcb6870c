// Package report selects the invoices of a reporting period and shapes them
// for a renderer.
package report

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pivik/internal/core"
)

type (
	VendorGroup struct {
		Vendor   string
		Invoices []core.Invoice
		Subtotal core.Money
	}

	// Scope is the input every renderer works from.
	Scope struct {
		Start      core.Date
		End        core.Date
		Groups     []VendorGroup
		GrandTotal core.Money
	}

	Renderer interface {
		Render(ctx context.Context, s Scope) ([]byte, error)
		ContentType() string
		Extension() string
	}
)

// Select returns the invoices dated within [start, end], inclusive on both
// ends. start after end selects nothing. The input is not modified.
func Select(invoices []core.Invoice, start, end core.Date) []core.Invoice {
	out := make([]core.Invoice, 0)
	if start.After(end.Time) {
		return out
	}
	for _, inv := range invoices {
		if inv.Date.Between(start, end) {
			out = append(out, inv.Clone())
		}
	}
	return out
}

// NewScope selects the period and groups it by vendor. Invoices are ordered by
// date then id, and vendors appear in the order of their first invoice.
func NewScope(invoices []core.Invoice, start, end core.Date) Scope {
	selected := Select(invoices, start, end)
	sort.SliceStable(selected, func(a, b int) bool {
		if !selected[a].Date.Equal(selected[b].Date.Time) {
			return selected[a].Date.Before(selected[b].Date.Time)
		}
		return selected[a].ID < selected[b].ID
	})

	s := Scope{Start: start, End: end}
	index := make(map[string]int)
	for _, inv := range selected {
		vendor := core.VendorOrUnknown(inv.Vendor)
		i, ok := index[vendor]
		if !ok {
			i = len(s.Groups)
			index[vendor] = i
			s.Groups = append(s.Groups, VendorGroup{Vendor: vendor})
		}
		amt := core.AmountOrZero(inv.Amount)
		s.Groups[i].Invoices = append(s.Groups[i].Invoices, inv)
		s.Groups[i].Subtotal = s.Groups[i].Subtotal.Add(amt)
		s.GrandTotal = s.GrandTotal.Add(amt)
	}
	return s
}

// Count returns the number of invoices in the scope.
func (s Scope) Count() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Invoices)
	}
	return n
}

// ProofsDir is the folder proof documents are bundled under.
const ProofsDir = "Proofs"

var unsafeVendorChars = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// ProofName is the bundle file name for an invoice's source document, e.g.
// "Costco 15-December-2025 #INV123.pdf". The invoice id stands in for a
// missing invoice number.
func ProofName(inv core.Invoice) string {
	vendor := strings.TrimSpace(unsafeVendorChars.ReplaceAllString(inv.Vendor, ""))
	date := "NoDate"
	if !inv.Date.IsZero() {
		date = inv.Date.Format("02-January-2006")
	}
	num := inv.InvoiceNumber
	if num == "" {
		num = strconv.FormatInt(inv.ID, 10)
	}
	return vendor + " " + date + " #" + num + ".pdf"
}
