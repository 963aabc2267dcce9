package store

import (
	"fmt"

	ds "github.com/ipfs/go-datastore"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Datastore key prefixes. The stores and the metrics recorder share one
// datastore, so each concern gets its own namespace.
var (
	DeviceKey  = ds.NewKey("/device")
	LinkKey    = ds.NewKey("/link")
	ServiceKey = ds.NewKey("/service")
	MetricKey  = ds.NewKey("/metric")
)
