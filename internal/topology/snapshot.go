package topology

import (
	"fmt"
	"sort"

	"github.com/codelaboratoryltd/netfab/internal/device"
)

// DeviceView is a read-only view of a device at snapshot time. Available is
// the effective headroom (GPON ONTs already bounded by their OLT).
type DeviceView struct {
	ID        string
	Name      string
	Type      device.Type
	Status    device.Status
	Location  string
	Capacity  float64
	Allocated float64
	Available float64
}

// LinkView is a read-only view of a link at snapshot time.
type LinkView struct {
	ID        string
	Source    string
	Target    string
	Type      LinkType
	Status    device.Status
	Bandwidth float64
	Allocated float64
	Latency   float64
	Available float64
}

// Other returns the peer endpoint of deviceID, or empty if deviceID is not
// an endpoint of this link.
func (v LinkView) Other(deviceID string) string {
	switch deviceID {
	case v.Source:
		return v.Target
	case v.Target:
		return v.Source
	}
	return ""
}

// Utilization returns allocated/bandwidth in [0,1].
func (v LinkView) Utilization() float64 {
	if v.Bandwidth <= 0 {
		return 0
	}
	return v.Allocated / v.Bandwidth
}

// Snapshot is a consistent read-only copy of the topology for path search
// and rule evaluation. It can go stale against concurrent reservations;
// ReservePath re-checks capacity at commit time.
type Snapshot struct {
	Devices   map[string]DeviceView
	Links     map[string]LinkView
	Adjacency map[string][]string // device id -> link ids, sorted
}

// Snapshot captures the current topology.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{
		Devices:   make(map[string]DeviceView, len(g.devices)),
		Links:     make(map[string]LinkView, len(g.links)),
		Adjacency: make(map[string][]string, len(g.adjacency)),
	}
	for id, d := range g.devices {
		snap.Devices[id] = DeviceView{
			ID:        id,
			Name:      d.Name(),
			Type:      d.Type(),
			Status:    d.Status(),
			Location:  d.Location(),
			Capacity:  d.Capacity(),
			Allocated: d.Allocated(),
			Available: g.effectiveAvailable(d),
		}
	}
	for id, l := range g.links {
		snap.Links[id] = LinkView{
			ID:        id,
			Source:    l.Source(),
			Target:    l.Target(),
			Type:      l.Type(),
			Status:    l.Status(),
			Bandwidth: l.Bandwidth(),
			Allocated: l.Allocated(),
			Latency:   l.Latency(),
			Available: l.AvailableCapacity(),
		}
	}
	for id, adj := range g.adjacency {
		linkIDs := make([]string, 0, len(adj))
		for lid := range adj {
			linkIDs = append(linkIDs, lid)
		}
		sort.Strings(linkIDs)
		snap.Adjacency[id] = linkIDs
	}
	return snap
}

// PathView is a path resolved to its device and link views, in traversal
// order. Links[i] connects Devices[i] and Devices[i+1].
type PathView struct {
	Devices []DeviceView
	Links   []LinkView
}

// TotalLatency sums the link latencies along the path.
func (p *PathView) TotalLatency() float64 {
	var total float64
	for _, l := range p.Links {
		total += l.Latency
	}
	return total
}

// ResolvePath resolves device and link id sequences against the snapshot.
func (s *Snapshot) ResolvePath(deviceIDs, linkIDs []string) (*PathView, error) {
	if len(deviceIDs) == 0 || len(linkIDs) != len(deviceIDs)-1 {
		return nil, fmt.Errorf("path with %d devices and %d links: %w", len(deviceIDs), len(linkIDs), ErrCorrupt)
	}
	pv := &PathView{
		Devices: make([]DeviceView, 0, len(deviceIDs)),
		Links:   make([]LinkView, 0, len(linkIDs)),
	}
	for _, id := range deviceIDs {
		d, ok := s.Devices[id]
		if !ok {
			return nil, fmt.Errorf("device %s: %w", id, ErrDeviceNotFound)
		}
		pv.Devices = append(pv.Devices, d)
	}
	for i, id := range linkIDs {
		l, ok := s.Links[id]
		if !ok {
			return nil, fmt.Errorf("link %s: %w", id, ErrLinkNotFound)
		}
		if l.Other(deviceIDs[i]) != deviceIDs[i+1] {
			return nil, fmt.Errorf("link %s does not connect %s and %s: %w", id, deviceIDs[i], deviceIDs[i+1], ErrCorrupt)
		}
		pv.Links = append(pv.Links, l)
	}
	return pv, nil
}
