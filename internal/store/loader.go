package store

import (
	"context"
	"fmt"
	"sort"

	logging "github.com/ipfs/go-log/v2"

	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

var log = logging.Logger("store")

// LoadTopology rehydrates a topology graph from persisted records.
// Allocation state is rebuilt by replaying the paths of active services,
// which keeps the graph the single source of truth for allocation: the
// allocated fields persisted on device/link records are advisory only.
func LoadTopology(ctx context.Context, devices DeviceStore, links LinkStore, services ServiceStore) (*topology.Graph, error) {
	graph := topology.NewGraph()

	deviceRecords, err := devices.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	// ONTs reference their parent OLT, so OLTs (and everything else) go in
	// first. Within each group, insert in id order for reproducible loads.
	sort.Slice(deviceRecords, func(i, j int) bool {
		iONT := deviceRecords[i].Type == device.TypeGPONONT
		jONT := deviceRecords[j].Type == device.TypeGPONONT
		if iONT != jONT {
			return jONT
		}
		return deviceRecords[i].ID < deviceRecords[j].ID
	})
	for _, r := range deviceRecords {
		d, err := device.New(r.Config())
		if err != nil {
			return nil, fmt.Errorf("rebuilding device %s: %w", r.ID, err)
		}
		if err := graph.AddDevice(d); err != nil {
			return nil, fmt.Errorf("adding device %s: %w", r.ID, err)
		}
	}

	linkRecords, err := links.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	sort.Slice(linkRecords, func(i, j int) bool { return linkRecords[i].ID < linkRecords[j].ID })
	for _, r := range linkRecords {
		l, err := topology.NewLink(r.Config())
		if err != nil {
			return nil, fmt.Errorf("rebuilding link %s: %w", r.ID, err)
		}
		if err := graph.AddLink(l); err != nil {
			return nil, fmt.Errorf("adding link %s: %w", r.ID, err)
		}
	}

	serviceRecords, err := services.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	replayed := 0
	for _, svc := range serviceRecords {
		if svc.Status != ServiceActive {
			continue
		}
		if err := graph.ReservePath(svc.Path, svc.Links, svc.Bandwidth); err != nil {
			return nil, fmt.Errorf("replaying allocation for service %s: %w", svc.ID, err)
		}
		replayed++
	}

	log.Infof("loaded topology: %d devices, %d links, %d active services replayed",
		len(deviceRecords), len(linkRecords), replayed)
	return graph, nil
}
