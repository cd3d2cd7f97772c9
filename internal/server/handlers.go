// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/funnel/address"
	"energylab-funnel/internal/funnel/orchestrator"
	"energylab-funnel/internal/funnel/session"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.StartSession(r.Context(), r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.orch.GetView(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.EndSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w)(s.orch.Advance(r.Context(), r.PathValue("id")))
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w)(s.orch.Retreat(r.Context(), r.PathValue("id")))
}

func (s *Server) handlePostcode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Postcode string `json:"postcode"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	options, err := s.orch.LookupPostcode(r.Context(), r.PathValue("id"), body.Postcode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"addresses": options})
}

func (s *Server) handleSelectAddress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Candidate address.Candidate `json:"candidate"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	result, err := s.orch.SelectAddress(r.Context(), r.PathValue("id"), body.Candidate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConfirmEPC(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w)(s.orch.ConfirmEPC(r.Context(), r.PathValue("id")))
}

func (s *Server) handleSearchAgain(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w)(s.orch.SearchAgain(r.Context(), r.PathValue("id")))
}

func (s *Server) handleEnterManual(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w)(s.orch.EnterManualAddress(r.Context(), r.PathValue("id")))
}

func (s *Server) handleManualAddress(w http.ResponseWriter, r *http.Request) {
	var body orchestrator.ManualAddress
	if !s.decodeBody(w, r, &body) {
		return
	}
	s.respondSession(w)(s.orch.SubmitManualAddress(r.Context(), r.PathValue("id"), body))
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var body orchestrator.Contact
	if !s.decodeBody(w, r, &body) {
		return
	}
	s.respondSession(w)(s.orch.SubmitContact(r.Context(), r.PathValue("id"), body))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MarketingOptOut bool `json:"marketingOptOut"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	receipt, err := s.orch.Finalize(r.Context(), r.PathValue("id"), body.MarketingOptOut)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, errors.NewValidationError("body", "invalid JSON request body"))
		return false
	}
	return true
}

func (s *Server) respondSession(w http.ResponseWriter) func(*session.Session, error) {
	return func(sess *session.Session, err error) {
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
