package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
)

// serviceStore manages service records with a datastore backend.
type serviceStore struct {
	ds     ds.Datastore
	prefix ds.Key
}

// NewServiceStore creates a service store under the given key prefix.
func NewServiceStore(datastore ds.Datastore, prefix ds.Key) ServiceStore {
	return &serviceStore{ds: datastore, prefix: prefix}
}

// SaveService adds or updates a service.
func (s *serviceStore) SaveService(ctx context.Context, svc *Service) error {
	data, err := cbor.Marshal(svc)
	if err != nil {
		return fmt.Errorf("failed to marshal service: %w", err)
	}
	if err := s.ds.Put(ctx, s.prefix.ChildString(svc.ID), data); err != nil {
		return fmt.Errorf("failed to put service: %w", err)
	}
	return nil
}

// GetService retrieves a service by id.
func (s *serviceStore) GetService(ctx context.Context, id string) (*Service, error) {
	data, err := s.ds.Get(ctx, s.prefix.ChildString(id))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve service: %w", err)
	}
	svc := &Service{}
	if err := cbor.Unmarshal(data, svc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service: %w", err)
	}
	return svc, nil
}

// DeleteService removes a service record outright. Decommissioning keeps
// history instead; this exists for administrative cleanup.
func (s *serviceStore) DeleteService(ctx context.Context, id string) error {
	if err := s.ds.Delete(ctx, s.prefix.ChildString(id)); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

// ListServices retrieves all services.
func (s *serviceStore) ListServices(ctx context.Context) ([]*Service, error) {
	q := query.Query{Prefix: s.prefix.String()}
	results, err := s.ds.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer results.Close()

	services := make([]*Service, 0)
	for result := range results.Next() {
		if result.Value == nil {
			continue
		}
		svc := &Service{}
		if err := cbor.Unmarshal(result.Value, svc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal service %s: %w", result.Key, err)
		}
		services = append(services, svc)
	}
	return services, nil
}
