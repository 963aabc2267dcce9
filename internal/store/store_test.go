package store

import (
	"context"
	"errors"
	"testing"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

func testDatastore() ds.Datastore {
	return dssync.MutexWrap(ds.NewMapDatastore())
}

func TestKeyPrefixesDisjoint(t *testing.T) {
	keys := []ds.Key{DeviceKey, LinkKey, ServiceKey, MetricKey}
	for i := range keys {
		for j := range keys {
			if i != j && keys[i].IsAncestorOf(keys[j]) {
				t.Errorf("prefix %s contains %s", keys[i], keys[j])
			}
		}
	}
}

func TestDeviceStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewDeviceStore(testDatastore(), DeviceKey)

	d, err := device.New(device.Config{
		ID: "olt-1", Name: "OLT 1", Type: device.TypeGPONOLT,
		Capacity: 64, Location: "exchange-a", SplitRatio: 64,
	})
	if err != nil {
		t.Fatalf("device.New failed: %v", err)
	}
	d.Reserve(10)

	if err := s.SaveDevice(ctx, DeviceRecordOf(d)); err != nil {
		t.Fatalf("SaveDevice failed: %v", err)
	}

	r, err := s.GetDevice(ctx, "olt-1")
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if r.Name != "OLT 1" || r.Type != device.TypeGPONOLT || r.SplitRatio != 64 {
		t.Errorf("record = %+v, want name/type/split preserved", r)
	}
	if r.Allocated != 10 {
		t.Errorf("allocated = %v, want 10", r.Allocated)
	}

	// Records rebuild into equivalent devices.
	rebuilt, err := device.New(r.Config())
	if err != nil {
		t.Fatalf("rebuilding from record failed: %v", err)
	}
	if rebuilt.Capacity() != 64 || rebuilt.Location() != "exchange-a" {
		t.Errorf("rebuilt device lost fields: capacity=%v location=%q", rebuilt.Capacity(), rebuilt.Location())
	}
}

func TestDeviceStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewDeviceStore(testDatastore(), DeviceKey)

	if _, err := s.GetDevice(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestLinkStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLinkStore(testDatastore(), LinkKey)

	l, err := topology.NewLink(topology.LinkConfig{
		ID: "l-1", Source: "a", Target: "b", Type: topology.LinkFiber,
		Bandwidth: 100, Latency: 2.5,
	})
	if err != nil {
		t.Fatalf("NewLink failed: %v", err)
	}

	if err := s.SaveLink(ctx, LinkRecordOf(l)); err != nil {
		t.Fatalf("SaveLink failed: %v", err)
	}

	r, err := s.GetLink(ctx, "l-1")
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if r.Source != "a" || r.Target != "b" || r.Latency != 2.5 {
		t.Errorf("record = %+v, want endpoints and latency preserved", r)
	}

	if err := s.DeleteLink(ctx, "l-1"); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}
	if _, err := s.GetLink(ctx, "l-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLink after delete error = %v, want ErrNotFound", err)
	}
}

func TestServiceStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewServiceStore(testDatastore(), ServiceKey)

	for _, id := range []string{"svc-1", "svc-2", "svc-3"} {
		svc := &Service{
			ID: id, Type: ServiceOTNCircuit,
			SourceDeviceID: "a", TargetDeviceID: "b",
			Bandwidth: 10, Status: ServiceActive,
			Path: []string{"a", "b"}, Links: []string{"l-ab"},
		}
		if err := s.SaveService(ctx, svc); err != nil {
			t.Fatalf("SaveService(%s) failed: %v", id, err)
		}
	}

	services, err := s.ListServices(ctx)
	if err != nil {
		t.Fatalf("ListServices failed: %v", err)
	}
	if len(services) != 3 {
		t.Errorf("listed %d services, want 3", len(services))
	}

	// Status flips persist.
	svc, _ := s.GetService(ctx, "svc-2")
	svc.Status = ServiceDecommissioned
	if err := s.SaveService(ctx, svc); err != nil {
		t.Fatalf("SaveService(update) failed: %v", err)
	}
	svc, _ = s.GetService(ctx, "svc-2")
	if svc.Status != ServiceDecommissioned {
		t.Errorf("status = %s, want decommissioned", svc.Status)
	}
}

func TestValidServiceType(t *testing.T) {
	for _, typ := range []ServiceType{ServiceMPLSVPN, ServiceOTNCircuit, ServiceGPONAccess, ServiceFTTH} {
		if !ValidServiceType(typ) {
			t.Errorf("ValidServiceType(%s) = false", typ)
		}
	}
	if ValidServiceType("SEMAPHORE") {
		t.Error("ValidServiceType(SEMAPHORE) = true")
	}
}
