package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pivik/internal/core"
	"pivik/internal/extract"
	"pivik/internal/services"
)

func createInvoice(t *testing.T, env *testEnv, body string) invoiceJSON {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/invoices", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	return decode[invoiceJSON](t, w)
}

func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	inv := createInvoice(t, env, `{"vendor":"Sysco","invoiceNumber":"INV-1","date":"2025-03-02","amount":"120.50","project":"FED UP"}`)
	if inv.ID == 0 || inv.Status != string(core.StatusOnPaymentTerm) || string(inv.Amount) != "120.50" {
		t.Fatalf("created = %+v", inv)
	}
	path := fmt.Sprintf("/api/invoices/%d", inv.ID)

	w := env.do(t, http.MethodPost, path+"/pay", "")
	if got := decode[invoiceJSON](t, w); w.Code != http.StatusOK || got.Status != "PAID" {
		t.Fatalf("pay = %d %+v", w.Code, got)
	}

	w = env.do(t, http.MethodPut, path+"/status?status=Net%2030", "")
	if got := decode[invoiceJSON](t, w); got.Status != "Net 30" {
		t.Fatalf("status = %+v", got)
	}

	w = env.do(t, http.MethodPost, path+"/revert", "")
	if got := decode[invoiceJSON](t, w); got.Status != string(core.StatusOnPaymentTerm) {
		t.Fatalf("revert = %+v", got)
	}

	w = env.do(t, http.MethodPut, path, `{"vendor":"Sysco Foods","amount":null}`)
	got := decode[invoiceJSON](t, w)
	if w.Code != http.StatusOK || got.Vendor != "Sysco Foods" || string(got.Amount) != "null" || got.InvoiceNumber != "INV-1" {
		t.Fatalf("update = %d %+v", w.Code, got)
	}

	if w := env.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
}

func TestInvoiceErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	inv := createInvoice(t, env, `{"vendor":"Sysco","date":"2025-03-02"}`)
	path := fmt.Sprintf("/api/invoices/%d", inv.ID)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"missing date", http.MethodPost, "/api/invoices", `{"vendor":"X"}`, http.StatusUnprocessableEntity},
		{"malformed date", http.MethodPost, "/api/invoices", `{"date":"03/02/2025"}`, http.StatusUnprocessableEntity},
		{"comma amount", http.MethodPost, "/api/invoices", `{"date":"2025-03-02","amount":"1,200.00"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/invoices", `{"date":"2025-03-02","amount":-5}`, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/api/invoices", `{"date":"2025-03-02","paid":true}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/invoices", `{"date":`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/invoices/abc", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/invoices/999", "", http.StatusNotFound},
		{"pay unknown id", http.MethodPost, "/api/invoices/999/pay", "", http.StatusNotFound},
		{"delete unknown id", http.MethodDelete, "/api/invoices/999", "", http.StatusNotFound},
		{"status through update", http.MethodPut, path, `{"status":"PAID"}`, http.StatusUnprocessableEntity},
		{"empty update", http.MethodPut, path, `{}`, http.StatusUnprocessableEntity},
		{"empty status", http.MethodPut, path + "/status?status=", "", http.StatusUnprocessableEntity},
		{"scope missing dates", http.MethodGet, "/api/invoices/scope", "", http.StatusUnprocessableEntity},
		{"document traversal", http.MethodGet, "/api/invoices/file/..%2Fsecret", "", http.StatusUnprocessableEntity},
		{"unknown document", http.MethodGet, "/api/invoices/file/missing.pdf", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.target, tt.body)
			if w.Code != tt.want {
				t.Fatalf("%s %s = %d %s, want %d", tt.method, tt.target, w.Code, w.Body.String(), tt.want)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("body %q has no error field", w.Body.String())
			}
		})
	}

	got := decode[invoiceJSON](t, env.do(t, http.MethodGet, path, ""))
	if got.Status != string(core.StatusOnPaymentTerm) {
		t.Errorf("failed requests changed the invoice: %+v", got)
	}
}

func TestListPendingAndSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	a := createInvoice(t, env, `{"vendor":"Sysco","invoiceNumber":"A-1","date":"2025-03-01","amount":10}`)
	createInvoice(t, env, `{"vendor":"US Foods","invoiceNumber":"B-7","date":"2025-03-05","amount":20}`)
	env.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/pay", a.ID), "")

	all := decode[[]invoiceJSON](t, env.do(t, http.MethodGet, "/api/invoices", ""))
	if len(all) != 2 || all[0].Vendor != "US Foods" {
		t.Fatalf("list = %+v", all)
	}
	pending := decode[[]invoiceJSON](t, env.do(t, http.MethodGet, "/api/invoices?view=pending", ""))
	if len(pending) != 1 || pending[0].Vendor != "US Foods" {
		t.Fatalf("pending = %+v", pending)
	}
	found := decode[[]invoiceJSON](t, env.do(t, http.MethodGet, "/api/invoices/search?q=a-1", ""))
	if len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("search = %+v", found)
	}
}

func TestUploadCreatesInvoiceAndServesDocument(t *testing.T) {
	env := newTestEnvWithExtractor(t, stubExtractor{fields: extract.Fields{
		Vendor:        "Sysco",
		InvoiceNumber: "S-42",
		Date:          core.NewDate(2025, 3, 3),
		Amount:        &core.Money{Cents: 4599},
		Category:      "Food",
	}}, nil)

	body, contentType := multipartBody(t, "file", "invoice.pdf", []byte("%PDF-1.4 test"))
	r := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}
	inv := decode[invoiceJSON](t, w)
	if inv.Vendor != "Sysco" || string(inv.Amount) != "45.99" || inv.FileURL == "" {
		t.Fatalf("uploaded = %+v", inv)
	}

	dl := env.do(t, http.MethodGet, "/api/invoices/file/"+inv.FileURL, "")
	if dl.Code != http.StatusOK || dl.Body.String() != "%PDF-1.4 test" {
		t.Fatalf("download = %d %q", dl.Code, dl.Body.String())
	}
	if ct := dl.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestUploadFallsBackWhenExtractionFails(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, "file", "scan.pdf", []byte("%PDF"))
	r := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}
	inv := decode[invoiceJSON](t, w)
	if inv.Vendor != services.VendorAIFailed || inv.Date != "2025-06-30" || string(inv.Amount) != "null" {
		t.Fatalf("fallback invoice = %+v", inv)
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, "other", "a.pdf", []byte("x"))
	r := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file part = %d, want 400", w.Code)
	}

	small := newTestEnv(t, func(d *Deps) { d.MaxUploadBytes = 64 })
	body, contentType = multipartBody(t, "file", "big.pdf", []byte(strings.Repeat("x", 4096)))
	r = httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
	r.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	small.server.Handler.ServeHTTP(w, r)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload = %d, want 413", w.Code)
	}

	if w := env.do(t, http.MethodPost, "/api/invoices/upload", `{"not":"multipart"}`); w.Code != http.StatusBadRequest {
		t.Errorf("json upload = %d, want 400", w.Code)
	}
}

func TestScopeAndReport(t *testing.T) {
	env := newTestEnv(t, nil)
	createInvoice(t, env, `{"vendor":"Sysco","date":"2025-03-01","amount":10}`)
	createInvoice(t, env, `{"vendor":"Sysco","date":"2025-03-07","amount":5.25}`)
	createInvoice(t, env, `{"vendor":"Acme","date":"2025-03-04"}`)
	createInvoice(t, env, `{"vendor":"Late","date":"2025-03-08","amount":99}`)

	w := env.do(t, http.MethodGet, "/api/invoices/scope?startDate=2025-03-01&endDate=2025-03-07", "")
	scope := decode[scopeJSON](t, w)
	if scope.Count != 3 || string(scope.GrandTotal) != "15.25" || len(scope.Groups) != 2 {
		t.Fatalf("scope = %+v", scope)
	}
	if scope.Groups[0].Vendor != "Sysco" || string(scope.Groups[0].Subtotal) != "15.25" {
		t.Errorf("first group = %+v", scope.Groups[0])
	}
	if scope.Groups[1].Vendor != "Acme" || string(scope.Groups[1].Subtotal) != "0.00" {
		t.Errorf("second group = %+v", scope.Groups[1])
	}

	inverted := decode[scopeJSON](t, env.do(t, http.MethodGet, "/api/invoices/scope?startDate=2025-03-07&endDate=2025-03-01", ""))
	if inverted.Count != 0 {
		t.Errorf("inverted range count = %d", inverted.Count)
	}

	rep := env.do(t, http.MethodGet, "/api/invoices/report?startDate=2025-03-01&endDate=2025-03-07", "")
	if rep.Code != http.StatusOK || rep.Body.Len() == 0 {
		t.Fatalf("report = %d, %d bytes", rep.Code, rep.Body.Len())
	}
	wantDisp := `attachment; filename="Weekly_Report_2025-03-01_to_2025-03-07.xlsx"`
	if got := rep.Header().Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisp)
	}
}

func TestEarningsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-03-01","amount":"250.00"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	e := decode[earningJSON](t, w)
	if e.Source != core.DefaultEarningSource || string(e.Amount) != "250.00" {
		t.Fatalf("earning = %+v", e)
	}

	if w := env.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-03-01"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing amount = %d", w.Code)
	}

	list := decode[[]earningJSON](t, env.do(t, http.MethodGet, "/api/earnings", ""))
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/earnings/%d", e.ID), ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/earnings/%d", e.ID), ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
}

func TestDashboardVendorsAndBudget(t *testing.T) {
	env := newTestEnv(t, nil)
	paid := createInvoice(t, env, `{"vendor":"Sysco","date":"2025-03-01","amount":100,"project":"FED UP"}`)
	createInvoice(t, env, `{"vendor":"Acme","date":"2025-03-02","amount":40}`)
	env.do(t, http.MethodPost, fmt.Sprintf("/api/invoices/%d/pay", paid.ID), "")
	env.do(t, http.MethodPost, "/api/earnings", `{"date":"2025-03-01","amount":200}`)

	sum := decode[summaryJSON](t, env.do(t, http.MethodGet, "/api/dashboard", ""))
	if string(sum.TotalDue) != "40.00" || string(sum.TotalPaid) != "100.00" || string(sum.NetProfit) != "60.00" || !sum.Profitable {
		t.Fatalf("summary = %+v", sum)
	}

	vendors := decode[[]vendorTotalJSON](t, env.do(t, http.MethodGet, "/api/vendors", ""))
	if len(vendors) != 2 || vendors[0].Vendor != "Sysco" {
		t.Fatalf("vendors = %+v", vendors)
	}

	b := decode[budgetJSON](t, env.do(t, http.MethodGet, "/api/budget", ""))
	if b.Project != core.ProjectFedUp || string(b.Spend) != "100.00" || string(b.Remaining) != "29900.00" || len(b.Invoices) != 1 {
		t.Fatalf("budget = %+v", b)
	}
}
