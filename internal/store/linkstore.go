package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
)

// linkStore manages link records with a datastore backend.
type linkStore struct {
	ds     ds.Datastore
	prefix ds.Key
}

// NewLinkStore creates a link store under the given key prefix.
func NewLinkStore(datastore ds.Datastore, prefix ds.Key) LinkStore {
	return &linkStore{ds: datastore, prefix: prefix}
}

// SaveLink adds or updates a link record.
func (s *linkStore) SaveLink(ctx context.Context, r *LinkRecord) error {
	data, err := cbor.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal link record: %w", err)
	}
	if err := s.ds.Put(ctx, s.prefix.ChildString(r.ID), data); err != nil {
		return fmt.Errorf("failed to put link record: %w", err)
	}
	return nil
}

// GetLink retrieves a link record by id.
func (s *linkStore) GetLink(ctx context.Context, id string) (*LinkRecord, error) {
	data, err := s.ds.Get(ctx, s.prefix.ChildString(id))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, fmt.Errorf("link %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve link record: %w", err)
	}
	r := &LinkRecord{}
	if err := cbor.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link record: %w", err)
	}
	return r, nil
}

// DeleteLink removes a link record.
func (s *linkStore) DeleteLink(ctx context.Context, id string) error {
	if err := s.ds.Delete(ctx, s.prefix.ChildString(id)); err != nil {
		return fmt.Errorf("failed to delete link record: %w", err)
	}
	return nil
}

// ListLinks retrieves all link records.
func (s *linkStore) ListLinks(ctx context.Context) ([]*LinkRecord, error) {
	q := query.Query{Prefix: s.prefix.String()}
	results, err := s.ds.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer results.Close()

	records := make([]*LinkRecord, 0)
	for result := range results.Next() {
		if result.Value == nil {
			continue
		}
		r := &LinkRecord{}
		if err := cbor.Unmarshal(result.Value, r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal link record %s: %w", result.Key, err)
		}
		records = append(records, r)
	}
	return records, nil
}
