// Package provision drives the service lifecycle: find a path, validate it
// against the rule engine, reserve capacity atomically across the path, and
// persist the outcome. Capacity arbitration between concurrent requests
// happens in the topology graph; the coordinator never holds its own lock
// around the reserve step.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/codelaboratoryltd/netfab/internal/pathfind"
	"github.com/codelaboratoryltd/netfab/internal/rules"
	"github.com/codelaboratoryltd/netfab/internal/store"
	"github.com/codelaboratoryltd/netfab/internal/topology"
	"github.com/codelaboratoryltd/netfab/internal/validation"
)

var log = logging.Logger("provision")

// Recorder receives utilization readings and service lifecycle events.
// Implementations must not block; the coordinator treats recording as
// fire-and-forget.
type Recorder interface {
	RecordDeviceUtilization(ctx context.Context, deviceID string, value float64, ts time.Time)
	RecordLinkUtilization(ctx context.Context, linkID string, value float64, ts time.Time)
	RecordServiceEvent(ctx context.Context, serviceID, eventType, details string)
}

// Request asks for an end-to-end bandwidth reservation between two devices.
// ID is optional; a UUID is assigned when empty. Bandwidth is in Gbps,
// LatencyRequirement in milliseconds.
type Request struct {
	ID                 string            `json:"id,omitempty"`
	Type               store.ServiceType `json:"service_type"`
	SourceDeviceID     string            `json:"source_device_id"`
	TargetDeviceID     string            `json:"target_device_id"`
	Bandwidth          float64           `json:"bandwidth"`
	LatencyRequirement *float64          `json:"latency_requirement,omitempty"`
}

// Result is the outcome of a provisioning attempt. Service is nil only
// when the request itself was invalid. Violations is populated when the
// rule engine rejected the candidate path.
type Result struct {
	Service    *store.Service    `json:"service,omitempty"`
	Violations []rules.Violation `json:"violations,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// Coordinator orchestrates provisioning over a shared topology graph.
type Coordinator struct {
	graph    *topology.Graph
	finder   *pathfind.Finder
	engine   *rules.Engine
	services store.ServiceStore
	recorder Recorder
}

// NewCoordinator wires a coordinator. recorder may be nil.
func NewCoordinator(graph *topology.Graph, finder *pathfind.Finder, engine *rules.Engine, services store.ServiceStore, recorder Recorder) *Coordinator {
	return &Coordinator{
		graph:    graph,
		finder:   finder,
		engine:   engine,
		services: services,
		recorder: recorder,
	}
}

// Provision runs the full lifecycle for one request. On success the
// returned service is active and persisted. On rejection or failure the
// returned service carries the terminal status and Reason, the error wraps
// the cause, and nothing is persisted or left allocated.
func (c *Coordinator) Provision(ctx context.Context, req *Request) (*Result, error) {
	if err := c.validateRequest(ctx, req); err != nil {
		provisionsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	svc := &store.Service{
		ID:                 req.ID,
		Type:               req.Type,
		SourceDeviceID:     req.SourceDeviceID,
		TargetDeviceID:     req.TargetDeviceID,
		Bandwidth:          req.Bandwidth,
		LatencyRequirement: req.LatencyRequirement,
		Status:             store.ServicePending,
		CreatedAt:          time.Now().UTC(),
	}
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}

	snap := c.graph.Snapshot()
	route, err := c.finder.OptimalPath(snap, req.SourceDeviceID, req.TargetDeviceID, pathfind.Constraints{
		MinBandwidth: req.Bandwidth,
		MaxLatency:   req.LatencyRequirement,
	})
	if errors.Is(err, pathfind.ErrPathNotFound) {
		// A physical route may still exist with too little headroom. Search
		// again capacity-blind and let the rule engine report the shortfall
		// as a rejection; a request only fails when no route exists at all.
		route, err = c.finder.OptimalPath(snap, req.SourceDeviceID, req.TargetDeviceID, pathfind.Constraints{})
	}
	if err != nil {
		return c.fail(ctx, svc, fmt.Sprintf("no viable path: %v", err), err)
	}
	svc.Path = route.Devices
	svc.Links = route.Links

	path, err := snap.ResolvePath(route.Devices, route.Links)
	if err != nil {
		return c.fail(ctx, svc, fmt.Sprintf("resolving path: %v", err), err)
	}

	violations := c.engine.Evaluate(rules.ServiceView{
		ID:         svc.ID,
		Bandwidth:  svc.Bandwidth,
		MaxLatency: svc.LatencyRequirement,
	}, path)
	if len(violations) > 0 {
		svc.Status = store.ServiceRejected
		c.recordEvent(ctx, svc, "rejected", violations[0].Message)
		provisionsTotal.WithLabelValues("rejected").Inc()
		log.Infow("service rejected", "service", svc.ID, "violations", len(violations))
		return &Result{Service: svc, Violations: violations, Reason: "rule violations"},
			fmt.Errorf("service %s: %w", svc.ID, ErrRuleViolation)
	}

	// The snapshot the path was found on may be stale by now; ReservePath
	// re-checks capacity under the graph lock and either reserves the whole
	// path or nothing.
	if err := c.graph.ReservePath(svc.Path, svc.Links, svc.Bandwidth); err != nil {
		return c.fail(ctx, svc, fmt.Sprintf("reserving capacity: %v", err), err)
	}

	svc.Status = store.ServiceActive
	svc.ActivatedAt = time.Now().UTC()
	if err := c.services.SaveService(ctx, svc); err != nil {
		if relErr := c.graph.ReleasePath(svc.Path, svc.Links, svc.Bandwidth); relErr != nil {
			log.Errorf("rollback after persist failure left allocations for service %s: %v", svc.ID, relErr)
		}
		svc.ActivatedAt = time.Time{}
		return c.fail(ctx, svc, fmt.Sprintf("persisting service: %v", err), err)
	}

	activeServicesGauge.Inc()
	provisionsTotal.WithLabelValues("active").Inc()
	c.recordEvent(ctx, svc, "provisioned", fmt.Sprintf("%v Gbps over %d hops", svc.Bandwidth, len(svc.Links)))
	c.recordPathUtilization(ctx, svc)
	log.Infow("service provisioned", "service", svc.ID, "type", svc.Type, "hops", len(svc.Links))
	return &Result{Service: svc}, nil
}

// Decommission releases a service's capacity and flips it to
// decommissioned. The record is kept as history. A second decommission of
// the same service returns ErrInvalidState without touching allocations.
func (c *Coordinator) Decommission(ctx context.Context, id string) (*store.Service, error) {
	svc, err := c.services.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.Status != store.ServiceActive {
		return nil, fmt.Errorf("service %s is %s: %w", id, svc.Status, ErrInvalidState)
	}

	if err := c.graph.ReleasePath(svc.Path, svc.Links, svc.Bandwidth); err != nil {
		return nil, fmt.Errorf("releasing capacity for service %s: %w", id, err)
	}

	svc.Status = store.ServiceDecommissioned
	svc.DecommissionedAt = time.Now().UTC()
	if err := c.services.SaveService(ctx, svc); err != nil {
		return nil, fmt.Errorf("persisting decommission of service %s: %w", id, err)
	}

	activeServicesGauge.Dec()
	decommissionsTotal.Inc()
	c.recordEvent(ctx, svc, "decommissioned", "")
	c.recordPathUtilization(ctx, svc)
	log.Infow("service decommissioned", "service", svc.ID)
	return svc, nil
}

// Service retrieves one service by id.
func (c *Coordinator) Service(ctx context.Context, id string) (*store.Service, error) {
	return c.services.GetService(ctx, id)
}

// Services lists all services, active and historical.
func (c *Coordinator) Services(ctx context.Context) ([]*store.Service, error) {
	return c.services.ListServices(ctx)
}

// FindPath runs an optimal-path search over the current topology without
// provisioning anything.
func (c *Coordinator) FindPath(source, target string, constraints pathfind.Constraints) (*pathfind.Result, error) {
	return c.finder.OptimalPath(c.graph.Snapshot(), source, target, constraints)
}

// ShortestPath runs a hop-count search over the current topology.
func (c *Coordinator) ShortestPath(source, target string) (*pathfind.Result, error) {
	return c.finder.ShortestPath(c.graph.Snapshot(), source, target)
}

func (c *Coordinator) validateRequest(ctx context.Context, req *Request) error {
	if req == nil {
		return fmt.Errorf("request is required: %w", validation.ErrEmptyValue)
	}
	if req.ID != "" {
		if err := validation.ValidateResourceID("service_id", req.ID); err != nil {
			return err
		}
		if _, err := c.services.GetService(ctx, req.ID); err == nil {
			return fmt.Errorf("service %s already exists", req.ID)
		}
	}
	if !store.ValidServiceType(req.Type) {
		return fmt.Errorf("unknown service type %q", req.Type)
	}
	if err := validation.ValidateResourceID("source_device_id", req.SourceDeviceID); err != nil {
		return err
	}
	if err := validation.ValidateResourceID("target_device_id", req.TargetDeviceID); err != nil {
		return err
	}
	if err := validation.ValidateBandwidth("bandwidth", req.Bandwidth); err != nil {
		return err
	}
	if req.LatencyRequirement != nil {
		if err := validation.ValidateLatency("latency_requirement", *req.LatencyRequirement); err != nil {
			return err
		}
		if *req.LatencyRequirement == 0 {
			return fmt.Errorf("latency_requirement must be greater than zero: %w", validation.ErrOutOfRange)
		}
	}
	return nil
}

// fail marks svc failed with a reason. Failed attempts are not persisted;
// the record returned to the caller is the only trace besides the event
// log.
func (c *Coordinator) fail(ctx context.Context, svc *store.Service, reason string, cause error) (*Result, error) {
	svc.Status = store.ServiceFailed
	provisionsTotal.WithLabelValues("failed").Inc()
	c.recordEvent(ctx, svc, "failed", reason)
	log.Infow("service provisioning failed", "service", svc.ID, "reason", reason)
	return &Result{Service: svc, Reason: reason}, fmt.Errorf("service %s: %w", svc.ID, cause)
}

func (c *Coordinator) recordEvent(ctx context.Context, svc *store.Service, eventType, details string) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordServiceEvent(ctx, svc.ID, eventType, details)
}

// recordPathUtilization samples the current utilization of every resource
// on the service's path after an allocation change.
func (c *Coordinator) recordPathUtilization(ctx context.Context, svc *store.Service) {
	if c.recorder == nil {
		return
	}
	now := time.Now().UTC()
	snap := c.graph.Snapshot()
	for _, did := range svc.Path {
		d, ok := snap.Devices[did]
		if !ok || d.Capacity <= 0 {
			continue
		}
		c.recorder.RecordDeviceUtilization(ctx, did, d.Allocated/d.Capacity, now)
	}
	for _, lid := range svc.Links {
		l, ok := snap.Links[lid]
		if !ok || l.Bandwidth <= 0 {
			continue
		}
		c.recorder.RecordLinkUtilization(ctx, lid, l.Allocated/l.Bandwidth, now)
	}
}
