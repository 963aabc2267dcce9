package store

import "context"

// DeviceStore persists device records.
type DeviceStore interface {
	SaveDevice(ctx context.Context, r *DeviceRecord) error
	GetDevice(ctx context.Context, id string) (*DeviceRecord, error)
	DeleteDevice(ctx context.Context, id string) error
	ListDevices(ctx context.Context) ([]*DeviceRecord, error)
}

// LinkStore persists link records.
type LinkStore interface {
	SaveLink(ctx context.Context, r *LinkRecord) error
	GetLink(ctx context.Context, id string) (*LinkRecord, error)
	DeleteLink(ctx context.Context, id string) error
	ListLinks(ctx context.Context) ([]*LinkRecord, error)
}

// ServiceStore persists services. Decommissioned services are retained as
// history (status flip), not deleted.
type ServiceStore interface {
	SaveService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id string) (*Service, error)
	DeleteService(ctx context.Context, id string) error
	ListServices(ctx context.Context) ([]*Service, error)
}
