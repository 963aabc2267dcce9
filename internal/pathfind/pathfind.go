// Package pathfind implements constrained route search over topology
// snapshots. ShortestPath is an unweighted, capacity-blind BFS used as a
// diagnostic baseline; OptimalPath is a Dijkstra search over a combined
// latency/utilization cost with bandwidth and activity filters.
package pathfind

import (
	"container/heap"
	"fmt"

	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

// Constraints restrict which edges and devices a search may use.
// MaxLatency is carried for callers but deliberately not applied as a
// search filter; the latency requirement is a validation rule.
type Constraints struct {
	MinBandwidth float64
	MaxLatency   *float64
}

// Weights configure the optimal-path cost function
// w_lat*latency + w_util*(allocated/bandwidth).
type Weights struct {
	Latency     float64
	Utilization float64
}

// DefaultWeights weighs latency and utilization equally.
func DefaultWeights() Weights {
	return Weights{Latency: 1.0, Utilization: 1.0}
}

// Result is a found route. Links[i] connects Devices[i] and Devices[i+1].
type Result struct {
	Devices            []string
	Links              []string
	Hops               int
	Cost               float64
	TotalLatency       float64
	AvailableBandwidth float64
}

// Finder runs path searches with a fixed weight configuration.
type Finder struct {
	weights Weights
}

// NewFinder creates a Finder. Negative weights are clamped to zero.
func NewFinder(w Weights) *Finder {
	if w.Latency < 0 {
		w.Latency = 0
	}
	if w.Utilization < 0 {
		w.Utilization = 0
	}
	return &Finder{weights: w}
}

func checkEndpoints(snap *topology.Snapshot, source, target string) error {
	if source == target {
		return fmt.Errorf("%s: %w", source, ErrSameDevice)
	}
	if _, ok := snap.Devices[source]; !ok {
		return fmt.Errorf("source %s: %w", source, topology.ErrDeviceNotFound)
	}
	if _, ok := snap.Devices[target]; !ok {
		return fmt.Errorf("target %s: %w", target, topology.ErrDeviceNotFound)
	}
	return nil
}

// ShortestPath finds the minimum-hop route between two devices over active
// devices and links only, ignoring capacity.
func (f *Finder) ShortestPath(snap *topology.Snapshot, source, target string) (*Result, error) {
	if err := checkEndpoints(snap, source, target); err != nil {
		return nil, err
	}
	if snap.Devices[source].Status != device.StatusActive || snap.Devices[target].Status != device.StatusActive {
		return nil, fmt.Errorf("endpoint not active: %w", ErrPathNotFound)
	}

	type hop struct {
		prevDevice string
		viaLink    string
	}
	visited := map[string]hop{source: {}}
	frontier := []string{source}

	for len(frontier) > 0 {
		if _, found := visited[target]; found {
			break
		}
		var next []string
		for _, cur := range frontier {
			for _, lid := range snap.Adjacency[cur] {
				l := snap.Links[lid]
				if l.Status != device.StatusActive {
					continue
				}
				peer := l.Other(cur)
				pv, ok := snap.Devices[peer]
				if !ok || pv.Status != device.StatusActive {
					continue
				}
				if _, seen := visited[peer]; seen || peer == source {
					continue
				}
				visited[peer] = hop{prevDevice: cur, viaLink: lid}
				next = append(next, peer)
			}
		}
		frontier = next
	}

	if _, ok := visited[target]; !ok {
		return nil, fmt.Errorf("no route from %s to %s: %w", source, target, ErrPathNotFound)
	}

	// Walk back from the target.
	var devices, links []string
	for cur := target; cur != source; {
		h := visited[cur]
		devices = append([]string{cur}, devices...)
		links = append([]string{h.viaLink}, links...)
		cur = h.prevDevice
	}
	devices = append([]string{source}, devices...)

	return f.buildResult(snap, devices, links), nil
}

// candidate is a partial route under consideration.
type candidate struct {
	deviceID string
	cost     float64
	hops     int
	devices  []string
	links    []string
}

// less orders candidates by cost, then hops, then lexicographically
// smallest device-id path, which makes the search deterministic.
func (c *candidate) less(o *candidate) bool {
	if c.cost != o.cost {
		return c.cost < o.cost
	}
	if c.hops != o.hops {
		return c.hops < o.hops
	}
	return lexLess(c.devices, o.devices)
}

func lexLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

type candidateHeap []*candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(*candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// OptimalPath finds the minimum-cost route between two devices, restricted
// to active devices and links with at least MinBandwidth of headroom. Ties
// break by fewer hops, then by lexicographically smallest device-id path.
// Parallel links between the same pair are allowed; the cheaper (then
// lower-id) link is chosen. Latency is not filtered here.
func (f *Finder) OptimalPath(snap *topology.Snapshot, source, target string, c Constraints) (*Result, error) {
	if err := checkEndpoints(snap, source, target); err != nil {
		return nil, err
	}
	if !f.usable(snap.Devices[source], c) || !f.usable(snap.Devices[target], c) {
		return nil, fmt.Errorf("endpoint cannot carry %v: %w", c.MinBandwidth, ErrPathNotFound)
	}

	best := map[string]*candidate{}
	pq := &candidateHeap{}
	start := &candidate{deviceID: source, devices: []string{source}}
	best[source] = start
	heap.Push(pq, start)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*candidate)
		if known := best[cur.deviceID]; known != cur && known.less(cur) {
			continue // stale heap entry
		}
		if cur.deviceID == target {
			return f.buildResult(snap, cur.devices, cur.links), nil
		}

		for _, lid := range snap.Adjacency[cur.deviceID] {
			l := snap.Links[lid]
			if l.Status != device.StatusActive || l.Available < c.MinBandwidth {
				continue
			}
			peer := l.Other(cur.deviceID)
			pv, ok := snap.Devices[peer]
			if !ok || !f.usable(pv, c) {
				continue
			}
			next := &candidate{
				deviceID: peer,
				cost:     cur.cost + f.weights.Latency*l.Latency + f.weights.Utilization*l.Utilization(),
				hops:     cur.hops + 1,
				devices:  appendCopy(cur.devices, peer),
				links:    appendCopy(cur.links, lid),
			}
			if known, ok := best[peer]; ok && !next.less(known) {
				continue
			}
			best[peer] = next
			heap.Push(pq, next)
		}
	}

	return nil, fmt.Errorf("no route from %s to %s carries %v: %w", source, target, c.MinBandwidth, ErrPathNotFound)
}

func (f *Finder) usable(d topology.DeviceView, c Constraints) bool {
	return d.Status == device.StatusActive && d.Available >= c.MinBandwidth
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

func (f *Finder) buildResult(snap *topology.Snapshot, devices, links []string) *Result {
	r := &Result{
		Devices: devices,
		Links:   links,
		Hops:    len(links),
	}
	bottleneck := -1.0
	for _, lid := range links {
		l := snap.Links[lid]
		r.TotalLatency += l.Latency
		r.Cost += f.weights.Latency*l.Latency + f.weights.Utilization*l.Utilization()
		if bottleneck < 0 || l.Available < bottleneck {
			bottleneck = l.Available
		}
	}
	for _, did := range devices {
		if d := snap.Devices[did]; bottleneck < 0 || d.Available < bottleneck {
			bottleneck = d.Available
		}
	}
	if bottleneck < 0 {
		bottleneck = 0
	}
	r.AvailableBandwidth = bottleneck
	return r
}
