package pathfind

import (
	"errors"
	"testing"

	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

type testLink struct {
	id, src, dst string
	bandwidth    float64
	latency      float64
	allocated    float64
	status       device.Status
}

func buildSnapshot(t *testing.T, deviceIDs []string, links []testLink) *topology.Snapshot {
	t.Helper()
	g := topology.NewGraph()
	for _, id := range deviceIDs {
		d, err := device.New(device.Config{ID: id, Name: id, Type: device.TypeOTN, Capacity: 1000})
		if err != nil {
			t.Fatalf("device.New(%s) failed: %v", id, err)
		}
		if err := g.AddDevice(d); err != nil {
			t.Fatalf("AddDevice(%s) failed: %v", id, err)
		}
	}
	for _, tl := range links {
		status := tl.status
		if status == "" {
			status = device.StatusActive
		}
		l, err := topology.NewLink(topology.LinkConfig{
			ID: tl.id, Source: tl.src, Target: tl.dst,
			Type: topology.LinkFiber, Bandwidth: tl.bandwidth, Latency: tl.latency, Status: status,
		})
		if err != nil {
			t.Fatalf("NewLink(%s) failed: %v", tl.id, err)
		}
		if err := g.AddLink(l); err != nil {
			t.Fatalf("AddLink(%s) failed: %v", tl.id, err)
		}
		if tl.allocated > 0 && !l.Reserve(tl.allocated) {
			t.Fatalf("pre-allocating %v on %s failed", tl.allocated, tl.id)
		}
	}
	return g.Snapshot()
}

func wantPath(t *testing.T, r *Result, devices ...string) {
	t.Helper()
	if len(r.Devices) != len(devices) {
		t.Fatalf("path = %v, want %v", r.Devices, devices)
	}
	for i := range devices {
		if r.Devices[i] != devices[i] {
			t.Fatalf("path = %v, want %v", r.Devices, devices)
		}
	}
}

func TestShortestPathMinimumHops(t *testing.T) {
	// a-b-c-z is shorter in latency but longer in hops than a-m-z.
	snap := buildSnapshot(t, []string{"a", "b", "c", "m", "z"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1},
		{id: "l-bc", src: "b", dst: "c", bandwidth: 100, latency: 1},
		{id: "l-cz", src: "c", dst: "z", bandwidth: 100, latency: 1},
		{id: "l-am", src: "a", dst: "m", bandwidth: 100, latency: 50},
		{id: "l-mz", src: "m", dst: "z", bandwidth: 100, latency: 50},
	})

	f := NewFinder(DefaultWeights())
	r, err := f.ShortestPath(snap, "a", "z")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}
	wantPath(t, r, "a", "m", "z")
	if r.Hops != 2 {
		t.Errorf("hops = %d, want 2", r.Hops)
	}
}

func TestShortestPathIgnoresCapacity(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1, allocated: 100},
	})

	f := NewFinder(DefaultWeights())
	if _, err := f.ShortestPath(snap, "a", "b"); err != nil {
		t.Errorf("ShortestPath over a full link failed: %v", err)
	}
}

func TestShortestPathSkipsInactive(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b", "c"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1, status: device.StatusFailed},
		{id: "l-ac", src: "a", dst: "c", bandwidth: 100, latency: 1},
		{id: "l-cb", src: "c", dst: "b", bandwidth: 100, latency: 1},
	})

	f := NewFinder(DefaultWeights())
	r, err := f.ShortestPath(snap, "a", "b")
	if err != nil {
		t.Fatalf("ShortestPath failed: %v", err)
	}
	wantPath(t, r, "a", "c", "b")
}

func TestPathEndpointErrors(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1},
	})
	f := NewFinder(DefaultWeights())

	if _, err := f.ShortestPath(snap, "a", "a"); !errors.Is(err, ErrSameDevice) {
		t.Errorf("same-device error = %v, want ErrSameDevice", err)
	}
	if _, err := f.ShortestPath(snap, "ghost", "b"); !errors.Is(err, topology.ErrDeviceNotFound) {
		t.Errorf("unknown-source error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := f.OptimalPath(snap, "a", "ghost", Constraints{}); !errors.Is(err, topology.ErrDeviceNotFound) {
		t.Errorf("unknown-target error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := f.OptimalPath(snap, "b", "b", Constraints{}); !errors.Is(err, ErrSameDevice) {
		t.Errorf("optimal same-device error = %v, want ErrSameDevice", err)
	}
}

func TestOptimalPathPrefersCheaperRoute(t *testing.T) {
	// Direct hop costs 50; the two-hop detour costs 2.
	snap := buildSnapshot(t, []string{"a", "m", "z"}, []testLink{
		{id: "l-az", src: "a", dst: "z", bandwidth: 100, latency: 50},
		{id: "l-am", src: "a", dst: "m", bandwidth: 100, latency: 1},
		{id: "l-mz", src: "m", dst: "z", bandwidth: 100, latency: 1},
	})

	f := NewFinder(Weights{Latency: 1, Utilization: 0})
	r, err := f.OptimalPath(snap, "a", "z", Constraints{})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	wantPath(t, r, "a", "m", "z")
	if r.TotalLatency != 2 {
		t.Errorf("total latency = %v, want 2", r.TotalLatency)
	}
}

func TestOptimalPathAvoidsUtilized(t *testing.T) {
	// Same latency both ways; the loaded route loses on utilization.
	snap := buildSnapshot(t, []string{"a", "m", "n", "z"}, []testLink{
		{id: "l-am", src: "a", dst: "m", bandwidth: 100, latency: 1, allocated: 90},
		{id: "l-mz", src: "m", dst: "z", bandwidth: 100, latency: 1, allocated: 90},
		{id: "l-an", src: "a", dst: "n", bandwidth: 100, latency: 1},
		{id: "l-nz", src: "n", dst: "z", bandwidth: 100, latency: 1},
	})

	f := NewFinder(DefaultWeights())
	r, err := f.OptimalPath(snap, "a", "z", Constraints{})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	wantPath(t, r, "a", "n", "z")
}

func TestOptimalPathBandwidthFilter(t *testing.T) {
	// The cheap route has only 5G headroom and must be skipped for a 10G ask.
	snap := buildSnapshot(t, []string{"a", "m", "z"}, []testLink{
		{id: "l-az", src: "a", dst: "z", bandwidth: 100, latency: 50},
		{id: "l-am", src: "a", dst: "m", bandwidth: 100, latency: 1, allocated: 95},
		{id: "l-mz", src: "m", dst: "z", bandwidth: 100, latency: 1},
	})

	f := NewFinder(Weights{Latency: 1, Utilization: 0})
	r, err := f.OptimalPath(snap, "a", "z", Constraints{MinBandwidth: 10})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	wantPath(t, r, "a", "z")

	// With a 5G ask the cheap route qualifies again.
	r, err = f.OptimalPath(snap, "a", "z", Constraints{MinBandwidth: 5})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	wantPath(t, r, "a", "m", "z")
}

func TestOptimalPathNoRoute(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b", "z"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1},
	})

	f := NewFinder(DefaultWeights())
	if _, err := f.OptimalPath(snap, "a", "z", Constraints{}); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("disconnected target error = %v, want ErrPathNotFound", err)
	}

	// A route exists but cannot carry the bandwidth.
	if _, err := f.OptimalPath(snap, "a", "b", Constraints{MinBandwidth: 500}); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("over-asked route error = %v, want ErrPathNotFound", err)
	}
}

func TestOptimalPathParallelLinks(t *testing.T) {
	// Two links between the same pair: the cheaper one wins.
	snap := buildSnapshot(t, []string{"a", "b"}, []testLink{
		{id: "l-1", src: "a", dst: "b", bandwidth: 100, latency: 10},
		{id: "l-2", src: "a", dst: "b", bandwidth: 100, latency: 1},
	})

	f := NewFinder(Weights{Latency: 1, Utilization: 0})
	r, err := f.OptimalPath(snap, "a", "b", Constraints{})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	if len(r.Links) != 1 || r.Links[0] != "l-2" {
		t.Errorf("links = %v, want [l-2]", r.Links)
	}
}

func TestOptimalPathDeterministicTieBreak(t *testing.T) {
	// Two identical-cost routes a-m-z and a-n-z; the lexicographically
	// smaller device path must win every time.
	snap := buildSnapshot(t, []string{"a", "m", "n", "z"}, []testLink{
		{id: "l-am", src: "a", dst: "m", bandwidth: 100, latency: 1},
		{id: "l-mz", src: "m", dst: "z", bandwidth: 100, latency: 1},
		{id: "l-an", src: "a", dst: "n", bandwidth: 100, latency: 1},
		{id: "l-nz", src: "n", dst: "z", bandwidth: 100, latency: 1},
	})

	f := NewFinder(DefaultWeights())
	for i := 0; i < 10; i++ {
		r, err := f.OptimalPath(snap, "a", "z", Constraints{})
		if err != nil {
			t.Fatalf("OptimalPath failed: %v", err)
		}
		wantPath(t, r, "a", "m", "z")
	}
}

func TestOptimalPathLatencyNotFiltered(t *testing.T) {
	// MaxLatency is a validation concern; the search must still return the
	// best route even when it exceeds the requirement.
	snap := buildSnapshot(t, []string{"a", "z"}, []testLink{
		{id: "l-az", src: "a", dst: "z", bandwidth: 100, latency: 500},
	})

	maxLat := 10.0
	f := NewFinder(DefaultWeights())
	r, err := f.OptimalPath(snap, "a", "z", Constraints{MaxLatency: &maxLat})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	if r.TotalLatency != 500 {
		t.Errorf("total latency = %v, want 500", r.TotalLatency)
	}
}

func TestResultBottleneck(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b", "c"}, []testLink{
		{id: "l-ab", src: "a", dst: "b", bandwidth: 100, latency: 1, allocated: 30},
		{id: "l-bc", src: "b", dst: "c", bandwidth: 50, latency: 1},
	})

	f := NewFinder(DefaultWeights())
	r, err := f.OptimalPath(snap, "a", "c", Constraints{})
	if err != nil {
		t.Fatalf("OptimalPath failed: %v", err)
	}
	if r.AvailableBandwidth != 50 {
		t.Errorf("available bandwidth = %v, want 50", r.AvailableBandwidth)
	}
}
