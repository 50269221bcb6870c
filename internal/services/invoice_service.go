package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"pivik/internal/aggregate"
	"pivik/internal/amqp"
	"pivik/internal/core"
	"pivik/internal/documents"
	"pivik/internal/extract"
	"pivik/internal/report"
	"pivik/internal/store"
)

// Vendor labels an upload gets when extraction cannot name one.
const (
	VendorPDFEmpty   = "Unknown (PDF Empty)"
	VendorAIFailed   = "Unknown (AI Failed)"
	VendorParseError = "Unknown (Parse Error)"
)

// InvoiceService orchestrates invoice operations across the store, document
// storage, extraction and the event stream.
type InvoiceService struct {
	store     store.InvoiceStore
	docs      documents.Store
	extractor extract.Extractor
	events    EventPublisher
	renderer  report.Renderer
	today     func() core.Date
	logger    *slog.Logger
}

type InvoiceOption func(*InvoiceService)

func WithDocuments(d documents.Store) InvoiceOption {
	return func(s *InvoiceService) { s.docs = d }
}

func WithExtractor(e extract.Extractor) InvoiceOption {
	return func(s *InvoiceService) { s.extractor = e }
}

func WithEvents(p EventPublisher) InvoiceOption {
	return func(s *InvoiceService) { s.events = p }
}

func WithRenderer(r report.Renderer) InvoiceOption {
	return func(s *InvoiceService) { s.renderer = r }
}

// WithClock overrides the date uploads fall back to.
func WithClock(today func() core.Date) InvoiceOption {
	return func(s *InvoiceService) { s.today = today }
}

func NewInvoiceService(st store.InvoiceStore, opts ...InvoiceOption) *InvoiceService {
	s := &InvoiceService{
		store:     st,
		extractor: extract.Unavailable{},
		renderer:  report.XLSXRenderer{},
		today:     core.Today,
		logger:    slog.With("component", "invoice-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns invoices newest first, optionally hiding paid ones.
func (s *InvoiceService) List(ctx context.Context, pendingOnly bool) ([]core.Invoice, error) {
	invs, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	core.SortNewestFirst(invs)
	if pendingOnly {
		invs = aggregate.FilterPending(invs)
	}
	return invs, nil
}

// Search matches vendor or invoice number, newest first.
func (s *InvoiceService) Search(ctx context.Context, term string) ([]core.Invoice, error) {
	invs, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return aggregate.Search(invs, term), nil
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (core.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *InvoiceService) Create(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, err
	}
	publish(ctx, s.logger, s.events, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionCreated, created.ID))
	return created, nil
}

func (s *InvoiceService) Update(ctx context.Context, id int64, patch core.InvoicePatch) (core.Invoice, error) {
	updated, err := s.store.UpdateInvoice(ctx, id, patch)
	if err != nil {
		return core.Invoice{}, err
	}
	publish(ctx, s.logger, s.events, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionUpdated, id))
	return updated, nil
}

// Delete removes the record permanently. The stored document is kept.
func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.logger, s.events, amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionDeleted, id))
	return nil
}

// SetStatus stores any label verbatim.
func (s *InvoiceService) SetStatus(ctx context.Context, id int64, status core.Status) (core.Invoice, error) {
	inv, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return core.Invoice{}, err
	}
	publish(ctx, s.logger, s.events,
		amqp.NewLedgerEvent(amqp.KindInvoice, amqp.ActionStatus, id).WithStatus(inv.Status.String()))
	return inv, nil
}

func (s *InvoiceService) MarkPaid(ctx context.Context, id int64) (core.Invoice, error) {
	return s.SetStatus(ctx, id, core.StatusPaid)
}

// Revert always lands on core.StatusOnPaymentTerm, whatever label the invoice
// carried before it was paid.
func (s *InvoiceService) Revert(ctx context.Context, id int64) (core.Invoice, error) {
	return s.SetStatus(ctx, id, core.StatusOnPaymentTerm)
}

// Upload stores the document, extracts what it can and creates the invoice.
// Extraction problems never fail the upload; they show up as a placeholder
// vendor and today's date.
func (s *InvoiceService) Upload(ctx context.Context, filename, contentType string, content []byte) (core.Invoice, error) {
	if s.docs == nil {
		return core.Invoice{}, errors.New("upload: document storage not configured")
	}
	name, err := s.docs.Save(ctx, filename, bytes.NewReader(content), int64(len(content)), contentType)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("upload: %w", err)
	}

	inv := core.Invoice{
		FileURL: name,
		Status:  core.StatusOnPaymentTerm,
	}

	fields, err := s.extractor.Extract(ctx, filename, content)
	switch {
	case err == nil:
		inv.Vendor = fields.Vendor
		inv.InvoiceNumber = fields.InvoiceNumber
		inv.Date = fields.Date
		inv.Amount = fields.Amount
		inv.Category = fields.Category
	case errors.Is(err, extract.ErrEmptyDocument):
		inv.Vendor = VendorPDFEmpty
	case errors.Is(err, extract.ErrParse):
		inv.Vendor = VendorParseError
	default:
		inv.Vendor = VendorAIFailed
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Extraction failed, using placeholder vendor",
			"filename", filename,
			"vendor", inv.Vendor,
			"error", err)
	}
	if inv.Date.IsZero() {
		inv.Date = s.today()
	}

	created, err := s.Create(ctx, inv)
	if err != nil {
		if derr := s.docs.Delete(ctx, name); derr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned document",
				"document", name,
				"error", derr)
		}
		return core.Invoice{}, err
	}
	return created, nil
}

// OpenDocument streams a stored source document.
func (s *InvoiceService) OpenDocument(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.docs == nil {
		return nil, fmt.Errorf("open document: %w", core.ErrNotFound)
	}
	return s.docs.Open(ctx, name)
}

// Scope selects [start, end] and groups it by vendor.
func (s *InvoiceService) Scope(ctx context.Context, start, end core.Date) (report.Scope, error) {
	invs, err := s.store.ListInvoices(ctx)
	if err != nil {
		return report.Scope{}, fmt.Errorf("report scope: %w", err)
	}
	return report.NewScope(invs, start, end), nil
}

// Rendered is a finished report ready to be served.
type Rendered struct {
	Body        []byte
	ContentType string
	Filename    string
}

func (s *InvoiceService) Report(ctx context.Context, start, end core.Date) (Rendered, error) {
	scope, err := s.Scope(ctx, start, end)
	if err != nil {
		return Rendered{}, err
	}
	body, err := s.renderer.Render(ctx, scope)
	if err != nil {
		return Rendered{}, fmt.Errorf("render report: %w", err)
	}
	return Rendered{
		Body:        body,
		ContentType: s.renderer.ContentType(),
		Filename:    fmt.Sprintf("Weekly_Report_%s_to_%s%s", start, end, s.renderer.Extension()),
	}, nil
}
