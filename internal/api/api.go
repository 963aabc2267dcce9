// Package api provides the HTTP API for netfab.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codelaboratoryltd/netfab/internal/audit"
	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/metrics"
	"github.com/codelaboratoryltd/netfab/internal/pathfind"
	"github.com/codelaboratoryltd/netfab/internal/provision"
	"github.com/codelaboratoryltd/netfab/internal/rules"
	"github.com/codelaboratoryltd/netfab/internal/store"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

// Server provides the HTTP API for netfab.
type Server struct {
	graph       *topology.Graph
	coordinator *provision.Coordinator
	engine      *rules.Engine
	deviceStore store.DeviceStore
	linkStore   store.LinkStore
	recorder    *metrics.Recorder
	audit       *audit.Logger
}

// NewServer creates a new API server. recorder and auditLogger may be nil.
func NewServer(graph *topology.Graph, coordinator *provision.Coordinator, engine *rules.Engine,
	deviceStore store.DeviceStore, linkStore store.LinkStore,
	recorder *metrics.Recorder, auditLogger *audit.Logger) *Server {
	return &Server{
		graph:       graph,
		coordinator: coordinator,
		engine:      engine,
		deviceStore: deviceStore,
		linkStore:   linkStore,
		recorder:    recorder,
		audit:       auditLogger,
	}
}

// RegisterRoutes registers all API routes on the given router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	// Health endpoints
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/ready", s.readyHandler).Methods("GET")

	// API v1 endpoints
	api := r.PathPrefix("/api/v1").Subrouter()

	// Devices
	api.HandleFunc("/devices", s.listDevices).Methods("GET")
	api.HandleFunc("/devices", s.createDevice).Methods("POST")
	api.HandleFunc("/devices/{id}", s.getDevice).Methods("GET")
	api.HandleFunc("/devices/{id}", s.deleteDevice).Methods("DELETE")
	api.HandleFunc("/devices/{id}/status", s.setDeviceStatus).Methods("PUT")

	// Links
	api.HandleFunc("/links", s.listLinks).Methods("GET")
	api.HandleFunc("/links", s.createLink).Methods("POST")
	api.HandleFunc("/links/{id}", s.getLink).Methods("GET")
	api.HandleFunc("/links/{id}", s.deleteLink).Methods("DELETE")
	api.HandleFunc("/links/{id}/status", s.setLinkStatus).Methods("PUT")

	// Whole-topology view
	api.HandleFunc("/topology", s.getTopology).Methods("GET")

	// Services
	api.HandleFunc("/services", s.listServices).Methods("GET")
	api.HandleFunc("/services", s.provisionService).Methods("POST")
	api.HandleFunc("/services/{id}", s.getService).Methods("GET")
	api.HandleFunc("/services/{id}", s.decommissionService).Methods("DELETE")

	// Path search
	api.HandleFunc("/paths/optimal", s.findOptimalPath).Methods("GET")
	api.HandleFunc("/paths/shortest", s.findShortestPath).Methods("GET")

	// Rules
	api.HandleFunc("/rules", s.listRules).Methods("GET")
	api.HandleFunc("/rules/{id}/enable", s.enableRule).Methods("POST")
	api.HandleFunc("/rules/{id}/disable", s.disableRule).Methods("POST")

	// Analytics
	api.HandleFunc("/analytics/devices/{id}/utilization", s.deviceUtilizationHistory).Methods("GET")
	api.HandleFunc("/analytics/links/{id}/utilization", s.linkUtilizationHistory).Methods("GET")
	api.HandleFunc("/analytics/services/{id}/events", s.serviceEventHistory).Methods("GET")
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, topology.ErrDeviceNotFound),
		errors.Is(err, topology.ErrLinkNotFound),
		errors.Is(err, rules.ErrRuleNotFound),
		errors.Is(err, pathfind.ErrPathNotFound):
		return http.StatusNotFound
	case errors.Is(err, topology.ErrDeviceExists),
		errors.Is(err, topology.ErrLinkExists),
		errors.Is(err, topology.ErrInUse),
		errors.Is(err, rules.ErrRuleExists),
		errors.Is(err, provision.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, topology.ErrInsufficientCapacity),
		errors.Is(err, provision.ErrRuleViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provision.ErrValidationFailed),
		errors.Is(err, pathfind.ErrSameDevice),
		errors.Is(err, topology.ErrInvalidLink),
		errors.Is(err, device.ErrUnknownType),
		errors.Is(err, device.ErrInvalidConfig),
		errors.Is(err, device.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError maps err and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, errorStatus(err), err.Error())
}

// healthHandler returns health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// readyHandler returns readiness status.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
