// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/funnel/orchestrator"
	"energylab-funnel/internal/funnel/progress"
)

// Server exposes the funnel's session API plus health, metrics, and pprof
// endpoints.
type Server struct {
	orch   *orchestrator.Orchestrator
	script *progress.Script
	logger logger.Logger
}

// New creates the HTTP server around the orchestrator. script may be nil
// to omit the finding-deals endpoint.
func New(orch *orchestrator.Orchestrator, script *progress.Script, log logger.Logger) *Server {
	return &Server{orch: orch, script: script, logger: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/sessions/{id}/retreat", s.handleRetreat)
	mux.HandleFunc("POST /api/sessions/{id}/postcode", s.handlePostcode)
	mux.HandleFunc("POST /api/sessions/{id}/address", s.handleSelectAddress)
	mux.HandleFunc("POST /api/sessions/{id}/epc/confirm", s.handleConfirmEPC)
	mux.HandleFunc("POST /api/sessions/{id}/search-again", s.handleSearchAgain)
	mux.HandleFunc("POST /api/sessions/{id}/manual-entry", s.handleEnterManual)
	mux.HandleFunc("POST /api/sessions/{id}/manual-address", s.handleManualAddress)
	mux.HandleFunc("POST /api/sessions/{id}/contact", s.handleContact)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleFinalize)

	if s.script != nil {
		mux.HandleFunc("GET /api/progress", s.handleProgress)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request handled", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	elapsedMs := 0
	if v := r.URL.Query().Get("elapsed_ms"); v != "" {
		if err := json.Unmarshal([]byte(v), &elapsedMs); err != nil || elapsedMs < 0 {
			s.writeError(w, errors.NewValidationError("elapsed_ms", "must be a non-negative integer"))
			return
		}
	}
	elapsed := time.Duration(elapsedMs) * time.Millisecond
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.script.Visible(elapsed),
		"done":      s.script.Done(elapsed),
		"totalMs":   s.script.Total().Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps funnel errors to HTTP statuses. Only validation and
// session errors ever reach a client; everything else is degraded away
// before it gets here.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if stdErr, ok := err.(*errors.StandardError); ok {
		switch stdErr.Code {
		case errors.ErrCodeValidationFailed, errors.ErrCodePostcodeInvalid:
			status = http.StatusBadRequest
		case errors.ErrCodeNoAddressesFound, errors.ErrCodeSessionNotFound:
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]interface{}{"error": stdErr})
		return
	}
	s.logger.Error("Unhandled request error", map[string]interface{}{"error": err.Error()})
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": "internal error"},
	})
}
