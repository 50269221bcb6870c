package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	plog "pivik/internal/log"
	"pivik/internal/services"
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Invoices  *services.InvoiceService
	Earnings  *services.EarningService
	Dashboard *services.DashboardService
	// Ready reports whether downstream dependencies are usable; nil means
	// always ready.
	Ready          func(ctx context.Context) error
	Logger         *plog.Logger
	MaxUploadBytes int64
	RateLimit      int
}

type Server struct {
	http.Server
	invoices  *services.InvoiceService
	earnings  *services.EarningService
	dashboard *services.DashboardService
	ready     func(ctx context.Context) error
	logger    *plog.Logger
	requests  *plog.StructuredLogger
	maxUpload int64

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = plog.New(plog.DefaultConfig()).WithComponent(plog.ComponentHTTP)
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		invoices:    deps.Invoices,
		earnings:    deps.Earnings,
		dashboard:   deps.Dashboard,
		ready:       deps.Ready,
		logger:      logger,
		requests:    plog.NewStructuredLogger(logger),
		maxUpload:   maxUpload,
		rateLimiter: newRateLimiter(deps.RateLimit),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.route(mux, "GET /api/invoices", s.handleListInvoices)
	s.route(mux, "POST /api/invoices", s.handleCreateInvoice)
	s.route(mux, "GET /api/invoices/search", s.handleSearchInvoices)
	s.route(mux, "POST /api/invoices/upload", s.handleUploadInvoice)
	s.route(mux, "GET /api/invoices/report", s.handleReport)
	s.route(mux, "GET /api/invoices/scope", s.handleScope)
	s.route(mux, "GET /api/invoices/file/{name}", s.handleDownloadDocument)
	s.route(mux, "GET /api/invoices/{id}", s.handleGetInvoice)
	s.route(mux, "PUT /api/invoices/{id}", s.handleUpdateInvoice)
	s.route(mux, "DELETE /api/invoices/{id}", s.handleDeleteInvoice)
	s.route(mux, "PUT /api/invoices/{id}/status", s.handleSetStatus)
	s.route(mux, "POST /api/invoices/{id}/pay", s.handleMarkPaid)
	s.route(mux, "POST /api/invoices/{id}/revert", s.handleRevert)

	s.route(mux, "GET /api/earnings", s.handleListEarnings)
	s.route(mux, "POST /api/earnings", s.handleCreateEarning)
	s.route(mux, "DELETE /api/earnings/{id}", s.handleDeleteEarning)

	s.route(mux, "GET /api/dashboard", s.handleDashboard)
	s.route(mux, "GET /api/vendors", s.handleVendors)
	s.route(mux, "GET /api/budget", s.handleBudget)

	return s
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.withSecurityHeaders(h))
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), plog.LoggerContextKey, s.logger)
		ctx = plog.WithRequestID(ctx, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		s.requests.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				plog.FieldClientIP, clientIP,
				plog.FieldMethod, r.Method,
				plog.FieldPath, r.URL.Path)
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				plog.FieldClientIP, clientIP,
				plog.FieldMethod, r.Method,
				plog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.requests.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
