package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pivik/internal/core"
	plog "pivik/internal/log"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	pendingOnly := r.URL.Query().Get("view") == "pending"
	invs, err := s.invoices.List(r.Context(), pendingOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceList(invs))
}

func (s *Server) handleSearchInvoices(w http.ResponseWriter, r *http.Request) {
	invs, err := s.invoices.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceList(invs))
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := s.invoices.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceJSON(inv))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := req.toInvoice()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.invoices.Create(r.Context(), inv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logInvoice(r, plog.OpCreate, created)
	writeJSON(w, http.StatusCreated, newInvoiceJSON(created))
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.invoices.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logInvoice(r, plog.OpUpdate, updated)
	writeJSON(w, http.StatusOK, newInvoiceJSON(updated))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.invoices.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.logInvoice(r, plog.OpDelete, core.Invoice{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus stores the status query parameter verbatim.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := sanitizeInput(r.URL.Query().Get("status"))
	if status == "" {
		writeError(w, r, fmt.Errorf("%w: status is required", core.ErrValidation))
		return
	}
	s.transition(w, r, id, func() (core.Invoice, error) {
		return s.invoices.SetStatus(r.Context(), id, core.Status(status))
	})
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.transition(w, r, id, func() (core.Invoice, error) {
		return s.invoices.MarkPaid(r.Context(), id)
	})
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.transition(w, r, id, func() (core.Invoice, error) {
		return s.invoices.Revert(r.Context(), id)
	})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, id int64, apply func() (core.Invoice, error)) {
	inv, err := apply()
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logInvoice(r, plog.OpStatus, inv)
	writeJSON(w, http.StatusOK, newInvoiceJSON(inv))
}

// handleUploadInvoice takes a multipart "file" part, stores it and creates an
// invoice from whatever extraction finds.
func (s *Server) handleUploadInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, fmt.Errorf("%w: expected multipart form: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing file part", errBadRequest))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	inv, err := s.invoices.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plog.FromContext(r.Context()).InfoContext(r.Context(), "Invoice uploaded",
		plog.FieldFilename, header.Filename,
		plog.FieldInvoiceID, inv.ID,
		plog.FieldVendor, inv.Vendor)
	writeJSON(w, http.StatusCreated, newInvoiceJSON(inv))
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rc, err := s.invoices.OpenDocument(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(name))
	if _, err := io.Copy(w, rc); err != nil {
		plog.FromContext(r.Context()).WarnContext(r.Context(), "Document stream interrupted", "error", err)
	}
}

func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope, err := s.invoices.Scope(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScopeJSON(scope))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.invoices.Report(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

func (s *Server) logInvoice(r *http.Request, op string, inv core.Invoice) {
	var cents *int64
	if inv.Amount != nil {
		c := inv.Amount.Cents
		cents = &c
	}
	s.requests.LogInvoiceChange(r.Context(), op, inv.ID, inv.Vendor, inv.Status.String(), cents)
}
