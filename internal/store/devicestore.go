// Package store persists topology entities and services behind the
// go-datastore abstraction with CBOR-encoded values, so the same code runs
// against badger on disk and an in-memory map in tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
)

// deviceStore manages device records with a datastore backend.
type deviceStore struct {
	ds     ds.Datastore
	prefix ds.Key
}

// NewDeviceStore creates a device store under the given key prefix.
func NewDeviceStore(datastore ds.Datastore, prefix ds.Key) DeviceStore {
	return &deviceStore{ds: datastore, prefix: prefix}
}

// SaveDevice adds or updates a device record.
func (s *deviceStore) SaveDevice(ctx context.Context, r *DeviceRecord) error {
	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal device record: %w", err)
	}
	if err := s.ds.Put(ctx, s.prefix.ChildString(r.ID), data); err != nil {
		return fmt.Errorf("failed to put device record: %w", err)
	}
	return nil
}

// GetDevice retrieves a device record by id.
func (s *deviceStore) GetDevice(ctx context.Context, id string) (*DeviceRecord, error) {
	data, err := s.ds.Get(ctx, s.prefix.ChildString(id))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve device record: %w", err)
	}
	r := &DeviceRecord{}
	if err := cbor.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device record: %w", err)
	}
	return r, nil
}

// DeleteDevice removes a device record.
func (s *deviceStore) DeleteDevice(ctx context.Context, id string) error {
	if err := s.ds.Delete(ctx, s.prefix.ChildString(id)); err != nil {
		return fmt.Errorf("failed to delete device record: %w", err)
	}
	return nil
}

// ListDevices retrieves all device records.
func (s *deviceStore) ListDevices(ctx context.Context) ([]*DeviceRecord, error) {
	q := query.Query{Prefix: s.prefix.String()}
	results, err := s.ds.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer results.Close()

	records := make([]*DeviceRecord, 0)
	for result := range results.Next() {
		if result.Value == nil {
			continue
		}
		r := &DeviceRecord{}
		if err := cbor.Unmarshal(result.Value, r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device record %s: %w", result.Key, err)
		}
		records = append(records, r)
	}
	return records, nil
}
