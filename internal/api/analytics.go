package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// deviceUtilizationHistory returns recorded utilization samples for a
// device, oldest first.
func (s *Server) deviceUtilizationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if _, err := s.graph.Device(id); err != nil {
		respondDomainError(w, err)
		return
	}
	if s.recorder == nil {
		respondError(w, http.StatusNotImplemented, "utilization history is not enabled")
		return
	}

	samples, err := s.recorder.DeviceHistory(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": id,
		"samples":   samples,
		"count":     len(samples),
	})
}

// linkUtilizationHistory returns recorded utilization samples for a link,
// oldest first.
func (s *Server) linkUtilizationHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if _, err := s.graph.Link(id); err != nil {
		respondDomainError(w, err)
		return
	}
	if s.recorder == nil {
		respondError(w, http.StatusNotImplemented, "utilization history is not enabled")
		return
	}

	samples, err := s.recorder.LinkHistory(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"link_id": id,
		"samples": samples,
		"count":   len(samples),
	})
}

// serviceEventHistory returns the lifecycle event log for a service,
// oldest first.
func (s *Server) serviceEventHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if s.recorder == nil {
		respondError(w, http.StatusNotImplemented, "service event history is not enabled")
		return
	}

	events, err := s.recorder.ServiceEvents(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service_id": id,
		"events":     events,
		"count":      len(events),
	})
}
