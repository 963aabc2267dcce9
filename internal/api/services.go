package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codelaboratoryltd/netfab/internal/audit"
	"github.com/codelaboratoryltd/netfab/internal/provision"
)

// listServices returns all services, active and historical.
func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services, err := s.coordinator.Services(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"services": services,
		"count":    len(services),
	})
}

// provisionService runs the full provisioning lifecycle for one request.
// Rejections and failures return the terminal service record alongside the
// reason so callers can see what happened.
func (s *Server) provisionService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req provision.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}

	result, err := s.coordinator.Provision(ctx, &req)
	switch {
	case err == nil:
		s.auditService(ctx, audit.EventServiceProvisioned, result.Service.ID)
		respondJSON(w, http.StatusCreated, result)
	case errors.Is(err, provision.ErrValidationFailed):
		respondError(w, http.StatusBadRequest, err.Error())
	case result != nil:
		if errors.Is(err, provision.ErrRuleViolation) {
			s.auditService(ctx, audit.EventServiceRejected, result.Service.ID)
		} else {
			s.auditService(ctx, audit.EventServiceFailed, result.Service.ID)
		}
		respondJSON(w, errorStatus(err), map[string]interface{}{
			"error":      err.Error(),
			"service":    result.Service,
			"violations": result.Violations,
			"reason":     result.Reason,
		})
	default:
		respondDomainError(w, err)
	}
}

// getService returns a specific service.
func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	svc, err := s.coordinator.Service(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

// decommissionService releases a service's capacity. The record is kept
// with status decommissioned.
func (s *Server) decommissionService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	svc, err := s.coordinator.Decommission(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.auditService(ctx, audit.EventServiceDecommissioned, id)
	respondJSON(w, http.StatusOK, svc)
}

func (s *Server) auditService(ctx context.Context, eventType audit.EventType, id string) {
	if s.audit == nil {
		return
	}
	s.audit.LogServiceTransition(ctx, eventType, id, nil)
}
