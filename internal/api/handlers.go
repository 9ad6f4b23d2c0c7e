package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowlens/flowlens-api/internal/metrics"
	"github.com/flowlens/flowlens-api/internal/store"
)

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) handleSystemHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.copilot.SystemHealth())
}

func (s *Server) handlePolicyMetrics(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.copilot.PolicyMetrics())
}

func (s *Server) handleListIncidents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	incident, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeDetail(w, http.StatusNotFound, "Incident not found")
			return
		}
		s.logger.Error("get incident failed", slog.String("incident_id", id), slog.Any("error", err))
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, incident)
}

func (s *Server) handleSimulateIncident(w http.ResponseWriter, _ *http.Request) {
	incident := s.store.Simulate()
	metrics.ObserveSimulation()
	s.copilot.EnrichAsync(incident.ID)
	s.writeJSON(w, http.StatusOK, incident)
}

func (s *Server) handleApproveAction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.store.ApproveAction(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.ObserveDecision("not_found")
			s.writeDetail(w, http.StatusNotFound, "Action not found")
			return
		}
		s.logger.Error("approve action failed", slog.String("action_id", id), slog.Any("error", err))
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	metrics.ObserveDecision("approved")
	if rec, ok := s.store.Decisions()[id]; ok {
		s.copilot.ExecuteApprovedAction(rec.IncidentID, id)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDenyAction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.store.DenyAction(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.ObserveDecision("not_found")
			s.writeDetail(w, http.StatusNotFound, "Action not found")
			return
		}
		s.logger.Error("deny action failed", slog.String("action_id", id), slog.Any("error", err))
		s.writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	metrics.ObserveDecision("denied")
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDecisions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Decisions())
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.copilot.Narrative(r.Context()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", slog.Any("error", err))
	}
}

// writeDetail renders an error body in the {"detail": ...} shape the frontend
// expects.
func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
