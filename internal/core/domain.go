package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// StatusPaid is the only terminal status. Every other label is "not yet paid".
	StatusPaid Status = "PAID"
	// StatusOnPaymentTerm is the label new uploads start with and the fixed
	// label a revert lands on.
	StatusOnPaymentTerm Status = "On Payment Term"
)

const (
	// ProjectFedUp tags invoices charged to the FED UP grant program.
	ProjectFedUp = "FED UP"

	UnknownVendor        = "Unknown"
	DefaultCategory      = "Other"
	DefaultEarningSource = "Daily Sales"
)

const dateLayout = "2006-01-02"

type (
	// Status is free text at the storage layer. Exactly StatusPaid is paid;
	// all other values form one not-paid equivalence class.
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Invoice struct {
		ID            int64
		Vendor        string
		InvoiceNumber string
		Date          Date
		Amount        *Money // nil when the amount is unknown
		Category      string
		Project       string
		Status        Status
		FileURL       string
	}

	// InvoicePatch carries a partial edit. Nil fields are left unchanged.
	// ClearAmount removes a known amount and wins over Amount.
	InvoicePatch struct {
		Vendor        *string
		InvoiceNumber *string
		Date          *Date
		Amount        *Money
		ClearAmount   bool
		Category      *string
		Project       *string
		FileURL       *string
	}

	Earning struct {
		ID     int64
		Date   Date
		Amount Money
		Source string
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrValidation    = errors.New("validation error")

	ErrMissingDate    = fmt.Errorf("%w: date is required", ErrValidation)
	ErrNegativeAmount = fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
)

// IsPaid reports whether s is the terminal paid state.
func (s Status) IsPaid() bool {
	return s == StatusPaid
}

func (s Status) String() string {
	return string(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: malformed date %q", ErrValidation, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Between reports whether d lies in the inclusive range [start, end].
func (d Date) Between(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (i Invoice) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if i.Amount != nil {
		if err := i.Amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HasAmount reports whether the invoice carries a known amount.
func (i Invoice) HasAmount() bool {
	return i.Amount != nil
}

// Apply returns a copy of inv with the patch applied. The ID and Status are
// never touched by a patch.
func (p InvoicePatch) Apply(inv Invoice) Invoice {
	if p.Vendor != nil {
		inv.Vendor = *p.Vendor
	}
	if p.InvoiceNumber != nil {
		inv.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Date != nil {
		inv.Date = *p.Date
	}
	switch {
	case p.ClearAmount:
		inv.Amount = nil
	case p.Amount != nil:
		amt := *p.Amount
		inv.Amount = &amt
	}
	if p.Category != nil {
		inv.Category = *p.Category
	}
	if p.Project != nil {
		inv.Project = *p.Project
	}
	if p.FileURL != nil {
		inv.FileURL = *p.FileURL
	}
	return inv
}

// IsEmpty reports whether the patch changes nothing.
func (p InvoicePatch) IsEmpty() bool {
	return p.Vendor == nil && p.InvoiceNumber == nil && p.Date == nil &&
		p.Amount == nil && !p.ClearAmount && p.Category == nil &&
		p.Project == nil && p.FileURL == nil
}

func (e Earning) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return e.Amount.Validate()
}

// Clone returns a deep copy so callers can't alias a stored amount.
func (i Invoice) Clone() Invoice {
	if i.Amount != nil {
		amt := *i.Amount
		i.Amount = &amt
	}
	return i
}

// SortNewestFirst orders invoices by descending id, the canonical list order.
func SortNewestFirst(invoices []Invoice) {
	sort.SliceStable(invoices, func(a, b int) bool {
		return invoices[a].ID > invoices[b].ID
	})
}

// SortEarningsByDateDesc orders earnings by descending date, newest id first on
// the same day.
func SortEarningsByDateDesc(earnings []Earning) {
	sort.SliceStable(earnings, func(a, b int) bool {
		if !earnings[a].Date.Equal(earnings[b].Date.Time) {
			return earnings[a].Date.After(earnings[b].Date.Time)
		}
		return earnings[a].ID > earnings[b].ID
	})
}
