package http

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryJSON(sum))
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	vs, err := s.dashboard.Vendors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVendorTotals(vs))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.dashboard.Budget(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetJSON(b))
}
