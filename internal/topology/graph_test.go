package topology

import (
	"errors"
	"sync"
	"testing"

	"github.com/codelaboratoryltd/netfab/internal/device"
)

func mustDevice(t *testing.T, cfg device.Config) device.Device {
	t.Helper()
	d, err := device.New(cfg)
	if err != nil {
		t.Fatalf("device.New(%s) failed: %v", cfg.ID, err)
	}
	return d
}

func mustLink(t *testing.T, cfg LinkConfig) *Link {
	t.Helper()
	if cfg.Type == "" {
		cfg.Type = LinkFiber
	}
	l, err := NewLink(cfg)
	if err != nil {
		t.Fatalf("NewLink(%s) failed: %v", cfg.ID, err)
	}
	return l
}

// lineGraph builds a -- l-ab -- b -- l-bc -- c with 100G everywhere.
func lineGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		if err := g.AddDevice(mustDevice(t, device.Config{ID: id, Name: id, Type: device.TypeOTN, Capacity: 100})); err != nil {
			t.Fatalf("AddDevice(%s) failed: %v", id, err)
		}
	}
	for _, l := range []LinkConfig{
		{ID: "l-ab", Source: "a", Target: "b", Bandwidth: 100, Latency: 1},
		{ID: "l-bc", Source: "b", Target: "c", Bandwidth: 100, Latency: 2},
	} {
		if err := g.AddLink(mustLink(t, l)); err != nil {
			t.Fatalf("AddLink(%s) failed: %v", l.ID, err)
		}
	}
	return g
}

func TestAddDeviceDuplicate(t *testing.T) {
	g := NewGraph()
	d := mustDevice(t, device.Config{ID: "a", Name: "a", Type: device.TypeOTN, Capacity: 100})
	if err := g.AddDevice(d); err != nil {
		t.Fatalf("AddDevice failed: %v", err)
	}
	if err := g.AddDevice(d); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate AddDevice error = %v, want ErrDeviceExists", err)
	}
}

func TestAddONTRequiresOLT(t *testing.T) {
	g := NewGraph()

	ont := mustDevice(t, device.Config{ID: "ont-1", Name: "ONT", Type: device.TypeGPONONT, Capacity: 1, OLTID: "olt-1"})
	if err := g.AddDevice(ont); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("AddDevice(ONT) without OLT error = %v, want ErrDeviceNotFound", err)
	}

	olt := mustDevice(t, device.Config{ID: "olt-1", Name: "OLT", Type: device.TypeGPONOLT, Capacity: 10})
	if err := g.AddDevice(olt); err != nil {
		t.Fatalf("AddDevice(OLT) failed: %v", err)
	}
	if err := g.AddDevice(ont); err != nil {
		t.Fatalf("AddDevice(ONT) with OLT present failed: %v", err)
	}

	// The parent cannot be removed while the ONT references it.
	if err := g.RemoveDevice("olt-1"); !errors.Is(err, ErrInUse) {
		t.Errorf("RemoveDevice(parent OLT) error = %v, want ErrInUse", err)
	}
}

func TestRemoveDeviceWithLinks(t *testing.T) {
	g := lineGraph(t)

	if err := g.RemoveDevice("b"); !errors.Is(err, ErrInUse) {
		t.Fatalf("RemoveDevice(linked) error = %v, want ErrInUse", err)
	}

	// After removing its links the device can go.
	if err := g.RemoveLink("l-ab"); err != nil {
		t.Fatalf("RemoveLink failed: %v", err)
	}
	if err := g.RemoveLink("l-bc"); err != nil {
		t.Fatalf("RemoveLink failed: %v", err)
	}
	if err := g.RemoveDevice("b"); err != nil {
		t.Errorf("RemoveDevice after unlinking failed: %v", err)
	}
}

func TestAddLinkUnknownEndpoint(t *testing.T) {
	g := NewGraph()
	g.AddDevice(mustDevice(t, device.Config{ID: "a", Name: "a", Type: device.TypeOTN, Capacity: 100}))

	l := mustLink(t, LinkConfig{ID: "l1", Source: "a", Target: "ghost", Bandwidth: 10})
	if err := g.AddLink(l); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("AddLink with missing endpoint error = %v, want ErrDeviceNotFound", err)
	}
}

func TestNeighborsSorted(t *testing.T) {
	g := lineGraph(t)

	links, err := g.Neighbors("b")
	if err != nil {
		t.Fatalf("Neighbors failed: %v", err)
	}
	if len(links) != 2 || links[0].ID() != "l-ab" || links[1].ID() != "l-bc" {
		ids := make([]string, len(links))
		for i, l := range links {
			ids[i] = l.ID()
		}
		t.Errorf("Neighbors(b) = %v, want [l-ab l-bc]", ids)
	}
}

func TestReservePathAllOrNothing(t *testing.T) {
	g := lineGraph(t)

	// Drain l-bc so the path reservation must fail partway.
	l, _ := g.Link("l-bc")
	l.Reserve(60)

	err := g.ReservePath([]string{"a", "b", "c"}, []string{"l-ab", "l-bc"}, 50)
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("ReservePath error = %v, want ErrInsufficientCapacity", err)
	}

	// Every earlier reservation must have been rolled back.
	for _, id := range []string{"a", "b", "c"} {
		d, _ := g.Device(id)
		if got := d.Allocated(); got != 0 {
			t.Errorf("device %s allocated = %v after failed reserve, want 0", id, got)
		}
	}
	lab, _ := g.Link("l-ab")
	if got := lab.Allocated(); got != 0 {
		t.Errorf("l-ab allocated = %v after failed reserve, want 0", got)
	}
	if got := l.Allocated(); got != 60 {
		t.Errorf("l-bc allocated = %v, want the pre-existing 60", got)
	}
}

func TestReservePathPinsResources(t *testing.T) {
	g := lineGraph(t)

	if err := g.ReservePath([]string{"a", "b"}, []string{"l-ab"}, 10); err != nil {
		t.Fatalf("ReservePath failed: %v", err)
	}

	if err := g.RemoveLink("l-ab"); !errors.Is(err, ErrInUse) {
		t.Errorf("RemoveLink(pinned) error = %v, want ErrInUse", err)
	}
	if err := g.RemoveDevice("a"); !errors.Is(err, ErrInUse) {
		t.Errorf("RemoveDevice(pinned) error = %v, want ErrInUse", err)
	}

	if err := g.ReleasePath([]string{"a", "b"}, []string{"l-ab"}, 10); err != nil {
		t.Fatalf("ReleasePath failed: %v", err)
	}

	// Unpinned now, but still a link endpoint.
	if err := g.RemoveLink("l-ab"); err != nil {
		t.Errorf("RemoveLink after release failed: %v", err)
	}
}

func TestReleasePathUnderflowIsCorrupt(t *testing.T) {
	g := lineGraph(t)

	if err := g.ReservePath([]string{"a", "b"}, []string{"l-ab"}, 10); err != nil {
		t.Fatalf("ReservePath failed: %v", err)
	}

	err := g.ReleasePath([]string{"a", "b"}, []string{"l-ab"}, 20)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("ReleasePath(too much) error = %v, want ErrCorrupt", err)
	}

	// The failed release must not have mutated anything.
	a, _ := g.Device("a")
	if got := a.Allocated(); got != 10 {
		t.Errorf("device a allocated = %v after corrupt release, want 10", got)
	}
}

func TestReleasePathMissingResourceIsCorrupt(t *testing.T) {
	g := lineGraph(t)

	err := g.ReleasePath([]string{"a", "ghost"}, []string{"l-ab"}, 10)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("ReleasePath(missing device) error = %v, want ErrCorrupt", err)
	}
}

func TestConcurrentReservePath(t *testing.T) {
	g := lineGraph(t)

	// 100G on every resource; ten 10G reservations over the same path
	// exactly fill it, the rest must fail cleanly.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.ReservePath([]string{"a", "b", "c"}, []string{"l-ab", "l-bc"}, 10); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("%d reservations succeeded, want 10", succeeded)
	}
	a, _ := g.Device("a")
	if got := a.Allocated(); got != 100 {
		t.Errorf("device a allocated = %v, want 100", got)
	}
}

func TestGPONEffectiveAvailable(t *testing.T) {
	g := NewGraph()
	olt := mustDevice(t, device.Config{ID: "olt-1", Name: "OLT", Type: device.TypeGPONOLT, Capacity: 64, SplitRatio: 32})
	ont := mustDevice(t, device.Config{ID: "ont-1", Name: "ONT", Type: device.TypeGPONONT, Capacity: 10, OLTID: "olt-1"})
	g.AddDevice(olt)
	g.AddDevice(ont)

	// Split share = 64/32 = 2, tighter than both the ONT's own 10 and the
	// OLT's residual 64.
	avail, err := g.AvailableCapacity("ont-1")
	if err != nil {
		t.Fatalf("AvailableCapacity failed: %v", err)
	}
	if avail != 2 {
		t.Errorf("ONT effective available = %v, want 2", avail)
	}

	// Drain the OLT below the split share; the residual now binds.
	olt.Reserve(63)
	avail, _ = g.AvailableCapacity("ont-1")
	if avail != 1 {
		t.Errorf("ONT effective available after OLT drain = %v, want 1", avail)
	}

	// The OLT itself is unaffected by the split share.
	avail, _ = g.AvailableCapacity("olt-1")
	if avail != 1 {
		t.Errorf("OLT available = %v, want 1", avail)
	}
}

func TestSnapshotResolvePath(t *testing.T) {
	g := lineGraph(t)
	snap := g.Snapshot()

	pv, err := snap.ResolvePath([]string{"a", "b", "c"}, []string{"l-ab", "l-bc"})
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if got := pv.TotalLatency(); got != 3 {
		t.Errorf("TotalLatency = %v, want 3", got)
	}

	// A link that does not connect consecutive devices is corrupt.
	if _, err := snap.ResolvePath([]string{"a", "c"}, []string{"l-ab"}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("ResolvePath(disconnected) error = %v, want ErrCorrupt", err)
	}
	// Length mismatch is corrupt.
	if _, err := snap.ResolvePath([]string{"a", "b"}, []string{}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("ResolvePath(length mismatch) error = %v, want ErrCorrupt", err)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	g := lineGraph(t)
	snap := g.Snapshot()

	d, _ := g.Device("a")
	d.Reserve(50)

	if got := snap.Devices["a"].Allocated; got != 0 {
		t.Errorf("snapshot observed later reservation: allocated = %v, want 0", got)
	}
}

func gponGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	// Split share is 64/32 = 2G per branch.
	if err := g.AddDevice(mustDevice(t, device.Config{ID: "olt-1", Name: "OLT", Type: device.TypeGPONOLT, Capacity: 64, SplitRatio: 32})); err != nil {
		t.Fatalf("AddDevice(olt-1) failed: %v", err)
	}
	if err := g.AddDevice(mustDevice(t, device.Config{ID: "ont-1", Name: "ONT", Type: device.TypeGPONONT, Capacity: 10, OLTID: "olt-1"})); err != nil {
		t.Fatalf("AddDevice(ont-1) failed: %v", err)
	}
	return g
}

func TestReservePathEnforcesONTShare(t *testing.T) {
	g := gponGraph(t)

	if err := g.ReservePath([]string{"ont-1"}, nil, 2); err != nil {
		t.Fatalf("ReservePath within share failed: %v", err)
	}
	// The ONT itself has 8G left, but the branch share is spent.
	if err := g.ReservePath([]string{"ont-1"}, nil, 1); !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("ReservePath beyond share error = %v, want ErrInsufficientCapacity", err)
	}
	ont, _ := g.Device("ont-1")
	if got := ont.Allocated(); got != 2 {
		t.Errorf("ont-1 allocated = %v after rejected reserve, want 2", got)
	}

	if err := g.ReleasePath([]string{"ont-1"}, nil, 2); err != nil {
		t.Fatalf("ReleasePath failed: %v", err)
	}

	// Draining the OLT shrinks what the branch can reserve.
	if err := g.ReservePath([]string{"olt-1"}, nil, 63); err != nil {
		t.Fatalf("ReservePath(olt drain) failed: %v", err)
	}
	if err := g.ReservePath([]string{"ont-1"}, nil, 2); !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("ReservePath beyond OLT residual error = %v, want ErrInsufficientCapacity", err)
	}
	if err := g.ReservePath([]string{"ont-1"}, nil, 1); err != nil {
		t.Fatalf("ReservePath within OLT residual failed: %v", err)
	}
}

func TestReservePathONTWithOLTOnSamePath(t *testing.T) {
	g := gponGraph(t)
	if err := g.AddLink(mustLink(t, LinkConfig{ID: "l-1", Source: "olt-1", Target: "ont-1", Bandwidth: 10, Latency: 1})); err != nil {
		t.Fatalf("AddLink failed: %v", err)
	}

	// The OLT reserves for itself on the same path; only the share bounds
	// the ONT here.
	if err := g.ReservePath([]string{"olt-1", "ont-1"}, []string{"l-1"}, 2); err != nil {
		t.Fatalf("ReservePath(olt+ont) failed: %v", err)
	}
	olt, _ := g.Device("olt-1")
	ont, _ := g.Device("ont-1")
	if olt.Allocated() != 2 || ont.Allocated() != 2 {
		t.Errorf("allocated olt=%v ont=%v, want 2 and 2", olt.Allocated(), ont.Allocated())
	}

	// One more gigabit would push the branch past its share; the whole
	// reservation rolls back.
	if err := g.ReservePath([]string{"olt-1", "ont-1"}, []string{"l-1"}, 1); !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("ReservePath beyond share error = %v, want ErrInsufficientCapacity", err)
	}
	if olt.Allocated() != 2 || ont.Allocated() != 2 {
		t.Errorf("allocated olt=%v ont=%v after rollback, want 2 and 2", olt.Allocated(), ont.Allocated())
	}
}
