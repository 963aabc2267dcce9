package api

import (
	"net/http"
	"strconv"

	"github.com/codelaboratoryltd/netfab/internal/pathfind"
)

// PathResponse represents a found route in API responses. Links[i]
// connects Devices[i] and Devices[i+1].
type PathResponse struct {
	Devices            []string `json:"devices"`
	Links              []string `json:"links"`
	Hops               int      `json:"hops"`
	Cost               float64  `json:"cost"`
	TotalLatency       float64  `json:"total_latency"`
	AvailableBandwidth float64  `json:"available_bandwidth"`
}

// findOptimalPath runs a cost-weighted search between two devices.
// Query parameters: source, target, min_bandwidth, max_latency.
func (s *Server) findOptimalPath(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		respondError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	var constraints pathfind.Constraints
	if raw := r.URL.Query().Get("min_bandwidth"); raw != "" {
		bw, err := strconv.ParseFloat(raw, 64)
		if err != nil || bw < 0 {
			respondError(w, http.StatusBadRequest, "min_bandwidth must be a non-negative number")
			return
		}
		constraints.MinBandwidth = bw
	}
	if raw := r.URL.Query().Get("max_latency"); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil || lat <= 0 {
			respondError(w, http.StatusBadRequest, "max_latency must be a positive number")
			return
		}
		constraints.MaxLatency = &lat
	}

	result, err := s.coordinator.FindPath(source, target, constraints)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pathToResponse(result))
}

// findShortestPath runs a hop-count search between two devices.
// Query parameters: source, target.
func (s *Server) findShortestPath(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if source == "" || target == "" {
		respondError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	result, err := s.coordinator.ShortestPath(source, target)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pathToResponse(result))
}

func pathToResponse(r *pathfind.Result) PathResponse {
	return PathResponse{
		Devices:            r.Devices,
		Links:              r.Links,
		Hops:               r.Hops,
		Cost:               r.Cost,
		TotalLatency:       r.TotalLatency,
		AvailableBandwidth: r.AvailableBandwidth,
	}
}
