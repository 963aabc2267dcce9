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

// DeviceRequest represents a device creation request.
type DeviceRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Capacity    float64 `json:"capacity"`
	Location    string  `json:"location,omitempty"`
	Status      string  `json:"status,omitempty"`
	Wavelengths int     `json:"wavelengths,omitempty"`
	LabelSpace  int     `json:"label_space,omitempty"`
	SplitRatio  int     `json:"split_ratio,omitempty"`
	OLTID       string  `json:"olt_id,omitempty"`
}

// DeviceResponse represents a device in API responses. Available is the
// effective headroom, which for GPON ONTs is bounded by the parent OLT.
type DeviceResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Location    string  `json:"location,omitempty"`
	Capacity    float64 `json:"capacity"`
	Allocated   float64 `json:"allocated"`
	Available   float64 `json:"available"`
	Utilization float64 `json:"utilization"`
}

// StatusRequest carries a status transition for a device or link.
type StatusRequest struct {
	Status string `json:"status"`
}

// listDevices returns all devices.
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	snap := s.graph.Snapshot()

	response := make([]DeviceResponse, 0, len(snap.Devices))
	for _, d := range s.graph.Devices() {
		response = append(response, deviceToResponse(snap.Devices[d.ID()]))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"devices": response,
		"count":   len(response),
	})
}

// createDevice adds a device to the topology.
func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}

	if err := validation.ValidateResourceID("device_id", req.ID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateName("name", req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateLocation(req.Location); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateBandwidth("capacity", req.Capacity); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OLTID != "" {
		if err := validation.ValidateResourceID("olt_id", req.OLTID); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	d, err := device.New(device.Config{
		ID:          req.ID,
		Name:        req.Name,
		Type:        device.Type(req.Type),
		Capacity:    req.Capacity,
		Location:    req.Location,
		Status:      device.Status(req.Status),
		Wavelengths: req.Wavelengths,
		LabelSpace:  req.LabelSpace,
		SplitRatio:  req.SplitRatio,
		OLTID:       req.OLTID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := s.graph.AddDevice(d); err != nil {
		s.auditDevice(ctx, audit.EventDeviceAdded, req.ID, err)
		respondDomainError(w, err)
		return
	}

	if err := s.deviceStore.SaveDevice(ctx, store.DeviceRecordOf(d)); err != nil {
		// Keep graph and store consistent; the device cannot be in use yet.
		if rmErr := s.graph.RemoveDevice(req.ID); rmErr != nil {
			respondError(w, http.StatusInternalServerError, rmErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditDevice(ctx, audit.EventDeviceAdded, req.ID, nil)
	respondJSON(w, http.StatusCreated, deviceToResponse(s.graph.Snapshot().Devices[req.ID]))
}

// getDevice returns a specific device.
func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	snap := s.graph.Snapshot()
	view, ok := snap.Devices[id]
	if !ok {
		respondError(w, http.StatusNotFound, "device not found")
		return
	}

	respondJSON(w, http.StatusOK, deviceToResponse(view))
}

// deleteDevice removes a device. Devices that are link endpoints or carry
// active services are rejected with 409, never cascaded.
func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if err := s.graph.RemoveDevice(id); err != nil {
		s.auditDevice(ctx, audit.EventDeviceRemoved, id, err)
		respondDomainError(w, err)
		return
	}

	if err := s.deviceStore.DeleteDevice(ctx, id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditDevice(ctx, audit.EventDeviceRemoved, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// setDeviceStatus transitions a device's operational status.
func (s *Server) setDeviceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}

	d, err := s.graph.Device(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := d.SetStatus(device.Status(req.Status)); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.deviceStore.SaveDevice(ctx, store.DeviceRecordOf(d)); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.auditDevice(ctx, audit.EventDeviceUpdated, id, nil)
	respondJSON(w, http.StatusOK, deviceToResponse(s.graph.Snapshot().Devices[id]))
}

// deviceToResponse converts a topology view to an API response.
func deviceToResponse(v topology.DeviceView) DeviceResponse {
	util := 0.0
	if v.Capacity > 0 {
		util = v.Allocated / v.Capacity
	}
	return DeviceResponse{
		ID:          v.ID,
		Name:        v.Name,
		Type:        string(v.Type),
		Status:      string(v.Status),
		Location:    v.Location,
		Capacity:    v.Capacity,
		Allocated:   v.Allocated,
		Available:   v.Available,
		Utilization: util,
	}
}

func (s *Server) auditDevice(ctx context.Context, eventType audit.EventType, id string, err error) {
	if s.audit == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.audit.LogDeviceChange(ctx, eventType, id, err == nil, msg)
}
