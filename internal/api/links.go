package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codelaboratoryltd/netfab/internal/audit"
	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/store"
	"github.com/codelaboratoryltd/netfab/internal/topology"
	"github.com/codelaboratoryltd/netfab/internal/validation"
)

// LinkRequest represents a link creation request. Bandwidth is in Gbps,
// latency in milliseconds.
type LinkRequest struct {
	ID        string  `json:"id"`
	Source    string  `json:"source_device_id"`
	Target    string  `json:"target_device_id"`
	Type      string  `json:"type"`
	Bandwidth float64 `json:"bandwidth"`
	Latency   float64 `json:"latency"`
	Status    string  `json:"status,omitempty"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	ID          string  `json:"id"`
	Source      string  `json:"source_device_id"`
	Target      string  `json:"target_device_id"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Bandwidth   float64 `json:"bandwidth"`
	Allocated   float64 `json:"allocated"`
	Available   float64 `json:"available"`
	Latency     float64 `json:"latency"`
	Utilization float64 `json:"utilization"`
}

// listLinks returns all links.
func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	snap := s.graph.Snapshot()

	response := make([]LinkResponse, 0, len(snap.Links))
	for _, l := range s.graph.Links() {
		response = append(response, linkToResponse(snap.Links[l.ID()]))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"links": response,
		"count": len(response),
	})
}

// createLink adds a link between two existing devices.
func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}

	if err := validation.ValidateResourceID("link_id", req.ID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateResourceID("source_device_id", req.Source); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateResourceID("target_device_id", req.Target); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateBandwidth("bandwidth", req.Bandwidth); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateLatency("latency", req.Latency); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := topology.NewLink(topology.LinkConfig{
		ID:        req.ID,
		Source:    req.Source,
		Target:    req.Target,
		Type:      topology.LinkType(req.Type),
		Bandwidth: req.Bandwidth,
		Latency:   req.Latency,
		Status:    device.Status(req.Status),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := s.graph.AddLink(l); err != nil {
		s.auditLink(ctx, audit.EventLinkAdded, req.ID, err)
		respondDomainError(w, err)
		return
	}

	if err := s.linkStore.SaveLink(ctx, store.LinkRecordOf(l)); err != nil {
		if rmErr := s.graph.RemoveLink(req.ID); rmErr != nil {
			respondError(w, http.StatusInternalServerError, rmErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditLink(ctx, audit.EventLinkAdded, req.ID, nil)
	respondJSON(w, http.StatusCreated, linkToResponse(s.graph.Snapshot().Links[req.ID]))
}

// getLink returns a specific link.
func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	snap := s.graph.Snapshot()
	view, ok := snap.Links[id]
	if !ok {
		respondError(w, http.StatusNotFound, "link not found")
		return
	}

	respondJSON(w, http.StatusOK, linkToResponse(view))
}

// deleteLink removes a link. Links carrying active services are rejected
// with 409.
func (s *Server) deleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if err := s.graph.RemoveLink(id); err != nil {
		s.auditLink(ctx, audit.EventLinkRemoved, id, err)
		respondDomainError(w, err)
		return
	}

	if err := s.linkStore.DeleteLink(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditLink(ctx, audit.EventLinkRemoved, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// setLinkStatus transitions a link's operational status.
func (s *Server) setLinkStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}

	l, err := s.graph.Link(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := l.SetStatus(device.Status(req.Status)); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.linkStore.SaveLink(ctx, store.LinkRecordOf(l)); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditLink(ctx, audit.EventLinkUpdated, id, nil)
	respondJSON(w, http.StatusOK, linkToResponse(s.graph.Snapshot().Links[id]))
}

// getTopology returns the whole topology in one response.
func (s *Server) getTopology(w http.ResponseWriter, r *http.Request) {
	snap := s.graph.Snapshot()

	devices := make([]DeviceResponse, 0, len(snap.Devices))
	for _, d := range s.graph.Devices() {
		devices = append(devices, deviceToResponse(snap.Devices[d.ID()]))
	}
	links := make([]LinkResponse, 0, len(snap.Links))
	for _, l := range s.graph.Links() {
		links = append(links, linkToResponse(snap.Links[l.ID()]))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices":   devices,
		"links":     links,
		"adjacency": snap.Adjacency,
	})
}

// linkToResponse converts a topology view to an API response.
func linkToResponse(v topology.LinkView) LinkResponse {
	return LinkResponse{
		ID:          v.ID,
		Source:      v.Source,
		Target:      v.Target,
		Type:        string(v.Type),
		Status:      string(v.Status),
		Bandwidth:   v.Bandwidth,
		Allocated:   v.Allocated,
		Available:   v.Available,
		Latency:     v.Latency,
		Utilization: v.Utilization(),
	}
}

func (s *Server) auditLink(ctx context.Context, eventType audit.EventType, id string, err error) {
	if s.audit == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.audit.LogLinkChange(ctx, eventType, id, err == nil, msg)
}
