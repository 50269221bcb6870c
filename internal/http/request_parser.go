// This file implements utilities for parsing and validating HTTP request data:
// path ids, report date ranges and the JSON invoice and earning bodies.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pivik/internal/core"
)

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

// invoiceRequest is the body of POST and PUT on invoices. Absent fields stay
// nil; an explicit null amount clears a known amount.
type invoiceRequest struct {
	Vendor        *string         `json:"vendor"`
	InvoiceNumber *string         `json:"invoiceNumber"`
	Date          *string         `json:"date"`
	Amount        json.RawMessage `json:"amount"`
	Category      *string         `json:"category"`
	Project       *string         `json:"project"`
	Status        *string         `json:"status"`
	FileURL       *string         `json:"fileUrl"`
}

type earningRequest struct {
	Date   string          `json:"date"`
	Amount json.RawMessage `json:"amount"`
	Source string          `json:"source"`
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

// parseDateRange reads the inclusive startDate and endDate query parameters.
func parseDateRange(r *http.Request) (core.Date, core.Date, error) {
	q := r.URL.Query()
	start, err := core.ParseDate(q.Get("startDate"))
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := core.ParseDate(q.Get("endDate"))
	if err != nil {
		return core.Date{}, core.Date{}, fmt.Errorf("endDate: %w", err)
	}
	return start, end, nil
}

// parseAmount accepts a JSON number or a numeric string. null and "" mean the
// amount is unknown and return nil.
func parseAmount(raw json.RawMessage) (*core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: amount %s", core.ErrInvalidAmount, raw)
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
	}
	m, err := core.ParseAmount(text)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// toInvoice builds a new invoice. The date is required.
func (req invoiceRequest) toInvoice() (core.Invoice, error) {
	var inv core.Invoice
	if req.Date == nil {
		return inv, core.ErrMissingDate
	}
	date, err := core.ParseDate(*req.Date)
	if err != nil {
		return inv, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return inv, err
	}
	inv = core.Invoice{
		Vendor:        sanitizeInput(deref(req.Vendor)),
		InvoiceNumber: sanitizeInput(deref(req.InvoiceNumber)),
		Date:          date,
		Amount:        amount,
		Category:      sanitizeInput(deref(req.Category)),
		Project:       sanitizeInput(deref(req.Project)),
		Status:        core.Status(sanitizeInput(deref(req.Status))),
		FileURL:       deref(req.FileURL),
	}
	return inv, nil
}

// toPatch builds a partial edit. Status is rejected here; transitions go
// through the status endpoints.
func (req invoiceRequest) toPatch() (core.InvoicePatch, error) {
	var p core.InvoicePatch
	if req.Status != nil {
		return p, fmt.Errorf("%w: status changes use the status endpoint", core.ErrValidation)
	}
	p.Vendor = sanitized(req.Vendor)
	p.InvoiceNumber = sanitized(req.InvoiceNumber)
	p.Category = sanitized(req.Category)
	p.Project = sanitized(req.Project)
	p.FileURL = req.FileURL
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if req.Amount != nil {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return p, err
		}
		if amount == nil {
			p.ClearAmount = true
		} else {
			p.Amount = amount
		}
	}
	if p.IsEmpty() {
		return p, fmt.Errorf("%w: nothing to update", core.ErrValidation)
	}
	return p, nil
}

func (req earningRequest) toEarning() (core.Earning, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Earning{}, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Earning{}, err
	}
	if amount == nil {
		return core.Earning{}, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	return core.Earning{Date: date, Amount: *amount, Source: sanitizeInput(req.Source)}, nil
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
