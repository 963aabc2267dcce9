// Package topology owns the network graph: every device and link, their
// adjacency, and the single source of truth for allocation state. Entities
// are referenced by id throughout; nothing outside this package holds a
// mutable reference into the graph.
package topology

import (
	"fmt"
	"sort"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/codelaboratoryltd/netfab/internal/device"
)

var log = logging.Logger("topology")

// Graph is the in-memory topology. Structural mutations (add/remove) are
// serialised by the graph lock; per-resource allocation changes go through
// each entity's own lock so reservations on disjoint paths proceed
// concurrently.
type Graph struct {
	mu        sync.RWMutex
	devices   map[string]device.Device
	links     map[string]*Link
	adjacency map[string]map[string]struct{} // device id -> link ids

	// pin counts track how many active service paths reference a
	// resource, so removal can be rejected instead of cascading.
	pinMu       sync.Mutex
	pinnedDevs  map[string]int
	pinnedLinks map[string]int

	// gponMu serialises reservations touching GPON devices so an ONT's
	// effective-headroom check cannot race a concurrent OLT drain.
	gponMu sync.Mutex
}

// NewGraph creates an empty topology graph.
func NewGraph() *Graph {
	return &Graph{
		devices:     make(map[string]device.Device),
		links:       make(map[string]*Link),
		adjacency:   make(map[string]map[string]struct{}),
		pinnedDevs:  make(map[string]int),
		pinnedLinks: make(map[string]int),
	}
}

// AddDevice adds a device to the graph. GPON ONTs must reference an OLT
// that is already present.
func (g *Graph) AddDevice(d device.Device) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.devices[d.ID()]; ok {
		return fmt.Errorf("device %s: %w", d.ID(), ErrDeviceExists)
	}
	if gp, ok := d.(*device.GPON); ok && !gp.IsOLT() {
		parent, ok := g.devices[gp.OLTID()]
		if !ok {
			return fmt.Errorf("parent OLT %s for ONT %s: %w", gp.OLTID(), d.ID(), ErrDeviceNotFound)
		}
		if po, ok := parent.(*device.GPON); !ok || !po.IsOLT() {
			return fmt.Errorf("device %s is not a GPON OLT: %w", gp.OLTID(), device.ErrInvalidConfig)
		}
	}
	g.devices[d.ID()] = d
	g.adjacency[d.ID()] = make(map[string]struct{})
	return nil
}

// RemoveDevice removes a device. It fails with ErrInUse if the device is an
// endpoint of any link, on the path of an active service, or the parent OLT
// of a present ONT. Nothing cascades.
func (g *Graph) RemoveDevice(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.devices[id]; !ok {
		return fmt.Errorf("device %s: %w", id, ErrDeviceNotFound)
	}
	if len(g.adjacency[id]) > 0 {
		return fmt.Errorf("device %s is an endpoint of %d link(s): %w", id, len(g.adjacency[id]), ErrInUse)
	}
	if g.devicePinned(id) {
		return fmt.Errorf("device %s is on the path of an active service: %w", id, ErrInUse)
	}
	for _, d := range g.devices {
		if gp, ok := d.(*device.GPON); ok && !gp.IsOLT() && gp.OLTID() == id {
			return fmt.Errorf("device %s is the parent OLT of ONT %s: %w", id, d.ID(), ErrInUse)
		}
	}
	delete(g.devices, id)
	delete(g.adjacency, id)
	return nil
}

// AddLink adds a link between two existing devices.
func (g *Graph) AddLink(l *Link) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.links[l.ID()]; ok {
		return fmt.Errorf("link %s: %w", l.ID(), ErrLinkExists)
	}
	if _, ok := g.devices[l.Source()]; !ok {
		return fmt.Errorf("link %s source %s: %w", l.ID(), l.Source(), ErrDeviceNotFound)
	}
	if _, ok := g.devices[l.Target()]; !ok {
		return fmt.Errorf("link %s target %s: %w", l.ID(), l.Target(), ErrDeviceNotFound)
	}
	g.links[l.ID()] = l
	g.adjacency[l.Source()][l.ID()] = struct{}{}
	g.adjacency[l.Target()][l.ID()] = struct{}{}
	return nil
}

// RemoveLink removes a link. It fails with ErrInUse if the link carries an
// active service.
func (g *Graph) RemoveLink(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.links[id]
	if !ok {
		return fmt.Errorf("link %s: %w", id, ErrLinkNotFound)
	}
	if g.linkPinned(id) {
		return fmt.Errorf("link %s carries an active service: %w", id, ErrInUse)
	}
	delete(g.links, id)
	delete(g.adjacency[l.Source()], id)
	delete(g.adjacency[l.Target()], id)
	return nil
}

// Device returns the device with the given id.
func (g *Graph) Device(id string) (device.Device, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, ErrDeviceNotFound)
	}
	return d, nil
}

// Link returns the link with the given id.
func (g *Graph) Link(id string) (*Link, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	l, ok := g.links[id]
	if !ok {
		return nil, fmt.Errorf("link %s: %w", id, ErrLinkNotFound)
	}
	return l, nil
}

// Devices returns all devices, ordered by id.
func (g *Graph) Devices() []device.Device {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]device.Device, 0, len(g.devices))
	for _, d := range g.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Links returns all links, ordered by id.
func (g *Graph) Links() []*Link {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Neighbors returns the links touching the given device, ordered by id.
func (g *Graph) Neighbors(deviceID string) ([]*Link, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	adj, ok := g.adjacency[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrDeviceNotFound)
	}
	out := make([]*Link, 0, len(adj))
	for id := range adj {
		out = append(out, g.links[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// AvailableCapacity returns the effective headroom of a device. For GPON
// ONTs this is additionally bounded by the parent OLT's residual capacity
// and its per-branch split-ratio share.
func (g *Graph) AvailableCapacity(deviceID string) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.devices[deviceID]
	if !ok {
		return 0, fmt.Errorf("device %s: %w", deviceID, ErrDeviceNotFound)
	}
	return g.effectiveAvailable(d), nil
}

// effectiveAvailable must be called with the graph lock held.
func (g *Graph) effectiveAvailable(d device.Device) float64 {
	avail := d.AvailableCapacity()
	gp, ok := d.(*device.GPON)
	if !ok || gp.IsOLT() {
		return avail
	}
	olt, ok := g.devices[gp.OLTID()].(*device.GPON)
	if !ok || !olt.IsOLT() {
		// AddDevice guarantees the parent exists; a dangling reference
		// here means the graph was corrupted.
		log.Errorf("ONT %s references missing OLT %s", d.ID(), gp.OLTID())
		return 0
	}
	share := olt.Capacity() / float64(olt.SplitRatio())
	if share < avail {
		avail = share
	}
	if oltAvail := olt.AvailableCapacity(); oltAvail < avail {
		avail = oltAvail
	}
	return avail
}

// pathResource is a reservable entity with a stable ordering key.
type pathResource struct {
	id   string
	kind byte // 'd' or 'l', tie-break when a device and link share an id
	res  interface {
		Reserve(float64) bool
		Release(float64) error
	}
}

// resolvePath must be called with the graph lock held. Missing resources
// are reported with notFoundErr, which lets callers distinguish a stale
// path (reserve time, retryable) from a corrupt stored path (release time).
func (g *Graph) resolvePath(deviceIDs, linkIDs []string, notFoundErr error) ([]pathResource, error) {
	resources := make([]pathResource, 0, len(deviceIDs)+len(linkIDs))
	for _, id := range deviceIDs {
		d, ok := g.devices[id]
		if !ok {
			return nil, fmt.Errorf("device %s: %w", id, notFoundErr)
		}
		resources = append(resources, pathResource{id: id, kind: 'd', res: d})
	}
	for _, id := range linkIDs {
		l, ok := g.links[id]
		if !ok {
			return nil, fmt.Errorf("link %s: %w", id, notFoundErr)
		}
		resources = append(resources, pathResource{id: id, kind: 'l', res: l})
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].id != resources[j].id {
			return resources[i].id < resources[j].id
		}
		return resources[i].kind < resources[j].kind
	})
	return resources, nil
}

// ReservePath reserves amount on every device and link of a path,
// attempting resources in ascending id order so overlapping concurrent
// reservations cannot deadlock. If any single reservation fails, all prior
// reservations are rolled back in reverse order and ErrInsufficientCapacity
// is returned: the snapshot the path was computed from has gone stale.
// On success every resource is pinned against structural removal.
func (g *Graph) ReservePath(deviceIDs, linkIDs []string, amount float64) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	resources, err := g.resolvePath(deviceIDs, linkIDs, ErrInsufficientCapacity)
	if err != nil {
		return err
	}

	if g.pathHasGPON(deviceIDs) {
		g.gponMu.Lock()
		defer g.gponMu.Unlock()
	}
	onPath := make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		onPath[id] = struct{}{}
	}

	reserved := 0
	failedID := ""
	for _, r := range resources {
		if !r.res.Reserve(amount) {
			failedID = r.id
			break
		}
		reserved++
		if !g.withinGPONBound(r, onPath, amount) {
			failedID = r.id
			break
		}
	}
	if failedID != "" {
		// Roll back everything reserved so far, newest first.
		for j := reserved - 1; j >= 0; j-- {
			if rerr := resources[j].res.Release(amount); rerr != nil {
				// Rollback of a reservation made microseconds ago
				// cannot underflow unless state is corrupt.
				return fmt.Errorf("rollback failed: %v: %w", rerr, ErrCorrupt)
			}
		}
		return fmt.Errorf("resource %s cannot fit %v: %w", failedID, amount, ErrInsufficientCapacity)
	}

	g.pin(deviceIDs, linkIDs)
	return nil
}

// pathHasGPON must be called with the graph lock held.
func (g *Graph) pathHasGPON(deviceIDs []string) bool {
	for _, id := range deviceIDs {
		if _, ok := g.devices[id].(*device.GPON); ok {
			return true
		}
	}
	return false
}

// withinGPONBound must be called with the graph lock held and the resource's
// own reservation already applied. The split share caps an ONT's total
// allocation; the OLT residual applies only when the OLT is not reserved on
// the same path, where its own reservation already accounts for the amount.
func (g *Graph) withinGPONBound(r pathResource, onPath map[string]struct{}, amount float64) bool {
	if r.kind != 'd' {
		return true
	}
	gp, ok := g.devices[r.id].(*device.GPON)
	if !ok || gp.IsOLT() {
		return true
	}
	olt, ok := g.devices[gp.OLTID()].(*device.GPON)
	if !ok || !olt.IsOLT() {
		log.Errorf("ONT %s references missing OLT %s", r.id, gp.OLTID())
		return false
	}
	if gp.Allocated() > olt.Capacity()/float64(olt.SplitRatio()) {
		return false
	}
	if _, reservedTogether := onPath[olt.ID()]; reservedTogether {
		return true
	}
	return olt.AvailableCapacity() >= amount
}

// ReleasePath releases amount on every device and link of a stored path and
// unpins the resources. A stored path referencing a missing resource, or a
// release underflow, is an invariant breach: the operation aborts with
// ErrCorrupt before mutating anything.
func (g *Graph) ReleasePath(deviceIDs, linkIDs []string, amount float64) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	resources, err := g.resolvePath(deviceIDs, linkIDs, ErrCorrupt)
	if err != nil {
		return err
	}

	// Verify the release cannot underflow before touching anything, so a
	// corrupt path never leaves a half-released reservation behind.
	for _, id := range deviceIDs {
		if g.devices[id].Allocated() < amount {
			return fmt.Errorf("device %s has %v allocated, releasing %v: %w", id, g.devices[id].Allocated(), amount, ErrCorrupt)
		}
	}
	for _, id := range linkIDs {
		if g.links[id].Allocated() < amount {
			return fmt.Errorf("link %s has %v allocated, releasing %v: %w", id, g.links[id].Allocated(), amount, ErrCorrupt)
		}
	}

	// Release in descending id order, the reverse of reservation order.
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i].res.Release(amount); err != nil {
			return fmt.Errorf("release %s: %v: %w", resources[i].id, err, ErrCorrupt)
		}
	}

	g.unpin(deviceIDs, linkIDs)
	return nil
}

func (g *Graph) pin(deviceIDs, linkIDs []string) {
	g.pinMu.Lock()
	defer g.pinMu.Unlock()
	for _, id := range deviceIDs {
		g.pinnedDevs[id]++
	}
	for _, id := range linkIDs {
		g.pinnedLinks[id]++
	}
}

func (g *Graph) unpin(deviceIDs, linkIDs []string) {
	g.pinMu.Lock()
	defer g.pinMu.Unlock()
	for _, id := range deviceIDs {
		if g.pinnedDevs[id]--; g.pinnedDevs[id] <= 0 {
			delete(g.pinnedDevs, id)
		}
	}
	for _, id := range linkIDs {
		if g.pinnedLinks[id]--; g.pinnedLinks[id] <= 0 {
			delete(g.pinnedLinks, id)
		}
	}
}

func (g *Graph) devicePinned(id string) bool {
	g.pinMu.Lock()
	defer g.pinMu.Unlock()
	return g.pinnedDevs[id] > 0
}

func (g *Graph) linkPinned(id string) bool {
	g.pinMu.Lock()
	defer g.pinMu.Unlock()
	return g.pinnedLinks[id] > 0
}
