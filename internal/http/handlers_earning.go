package http

import (
	"net/http"

	plog "pivik/internal/log"
)

func (s *Server) handleListEarnings(w http.ResponseWriter, r *http.Request) {
	es, err := s.earnings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]earningJSON, 0, len(es))
	for _, e := range es {
		out = append(out, newEarningJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEarning(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req earningRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toEarning()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.earnings.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plog.FromContext(r.Context()).InfoContext(r.Context(), "Earning recorded",
		plog.FieldEarningID, created.ID,
		plog.FieldAmountCents, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, newEarningJSON(created))
}

func (s *Server) handleDeleteEarning(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.earnings.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
