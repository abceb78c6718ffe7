package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lox/hourlyweather/internal/store"
)

// handleRunPayload serves the upstream body archived by an ingest run, so a
// failure listed on /health can be inspected as the provider sent it.
func (s *Server) handleRunPayload(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	p, err := s.store.GetRawPayloadForRun(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no payload archived for run " + strconv.FormatInt(runID, 10)})
		return
	}
	s.writePayload(w, p)
}

func (s *Server) handlePayloadByHash(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if err := s.validate.Var(hash, "required,sha256"); err != nil {
		s.badRequest(w, err)
		return
	}
	p, err := s.store.GetRawPayloadByHash(hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payload not found"})
		return
	}
	s.writePayload(w, p)
}

func (s *Server) writePayload(w http.ResponseWriter, p *store.RawPayload) {
	body, err := s.store.GetRawPayload(p.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payload not found"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Payload-Hash", p.PayloadHash)
	w.Header().Set("X-Payload-Source", p.Source+" "+p.Endpoint)
	w.Header().Set("X-Payload-Fetched-At", p.FetchedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
