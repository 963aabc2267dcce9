// Package metrics is the fire-and-forget utilization sink. Readings land
// in prometheus gauges and, when a datastore is attached, in a time-keyed
// history that the analytics API can query. Recording never fails a
// provisioning operation: errors are logged and dropped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var log = logging.Logger("metrics")

var (
	// deviceUtilizationGauge tracks per-device allocated/capacity.
	deviceUtilizationGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "netfab",
		Subsystem: "topology",
		Name:      "device_utilization_ratio",
		Help:      "Allocated fraction of device capacity.",
	}, []string{"device_id"})

	// linkUtilizationGauge tracks per-link allocated/bandwidth.
	linkUtilizationGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "netfab",
		Subsystem: "topology",
		Name:      "link_utilization_ratio",
		Help:      "Allocated fraction of link bandwidth.",
	}, []string{"link_id"})
)

// Sample is one utilization reading.
type Sample struct {
	ResourceID string    `json:"resource_id" cbor:"resource_id"`
	Value      float64   `json:"value" cbor:"value"`
	Timestamp  time.Time `json:"timestamp" cbor:"timestamp"`
}

// Event is one service lifecycle log entry.
type Event struct {
	ServiceID string    `json:"service_id" cbor:"service_id"`
	Type      string    `json:"event_type" cbor:"event_type"`
	Details   string    `json:"details" cbor:"details"`
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
}

// Recorder sinks utilization readings and service events. A nil datastore
// disables history; the prometheus gauges still update.
type Recorder struct {
	ds     ds.Datastore
	prefix ds.Key
}

// NewRecorder creates a recorder. datastore may be nil.
func NewRecorder(datastore ds.Datastore, prefix ds.Key) *Recorder {
	return &Recorder{ds: datastore, prefix: prefix}
}

// RecordDeviceUtilization records a device utilization ratio.
func (r *Recorder) RecordDeviceUtilization(ctx context.Context, deviceID string, value float64, ts time.Time) {
	deviceUtilizationGauge.WithLabelValues(deviceID).Set(value)
	r.appendSample(ctx, "device", deviceID, value, ts)
}

// RecordLinkUtilization records a link utilization ratio.
func (r *Recorder) RecordLinkUtilization(ctx context.Context, linkID string, value float64, ts time.Time) {
	linkUtilizationGauge.WithLabelValues(linkID).Set(value)
	r.appendSample(ctx, "link", linkID, value, ts)
}

// RecordServiceEvent records a service lifecycle event.
func (r *Recorder) RecordServiceEvent(ctx context.Context, serviceID, eventType, details string) {
	if r.ds == nil {
		return
	}
	e := &Event{ServiceID: serviceID, Type: eventType, Details: details, Timestamp: time.Now().UTC()}
	data, err := cbor.Marshal(e)
	if err != nil {
		log.Errorf("failed to marshal service event: %v", err)
		return
	}
	key := r.prefix.ChildString("event").ChildString(serviceID).ChildString(e.Timestamp.Format(time.RFC3339Nano))
	if err := r.ds.Put(ctx, key, data); err != nil {
		log.Warnf("dropping service event for %s: %v", serviceID, err)
	}
}

func (r *Recorder) appendSample(ctx context.Context, kind, resourceID string, value float64, ts time.Time) {
	if r.ds == nil {
		return
	}
	s := &Sample{ResourceID: resourceID, Value: value, Timestamp: ts.UTC()}
	data, err := cbor.Marshal(s)
	if err != nil {
		log.Errorf("failed to marshal utilization sample: %v", err)
		return
	}
	key := r.prefix.ChildString("util").ChildString(kind).ChildString(resourceID).ChildString(s.Timestamp.Format(time.RFC3339Nano))
	if err := r.ds.Put(ctx, key, data); err != nil {
		log.Warnf("dropping utilization sample for %s %s: %v", kind, resourceID, err)
	}
}

// DeviceHistory returns recorded samples for a device, oldest first.
func (r *Recorder) DeviceHistory(ctx context.Context, deviceID string) ([]*Sample, error) {
	return r.history(ctx, "device", deviceID)
}

// LinkHistory returns recorded samples for a link, oldest first.
func (r *Recorder) LinkHistory(ctx context.Context, linkID string) ([]*Sample, error) {
	return r.history(ctx, "link", linkID)
}

func (r *Recorder) history(ctx context.Context, kind, resourceID string) ([]*Sample, error) {
	if r.ds == nil {
		return nil, nil
	}
	prefix := r.prefix.ChildString("util").ChildString(kind).ChildString(resourceID)
	q := query.Query{Prefix: prefix.String(), Orders: []query.Order{query.OrderByKey{}}}
	results, err := r.ds.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query utilization history: %w", err)
	}
	defer results.Close()

	samples := make([]*Sample, 0)
	for result := range results.Next() {
		if result.Value == nil {
			continue
		}
		s := &Sample{}
		if err := cbor.Unmarshal(result.Value, s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample %s: %w", result.Key, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// ServiceEvents returns recorded lifecycle events for a service, oldest
// first.
func (r *Recorder) ServiceEvents(ctx context.Context, serviceID string) ([]*Event, error) {
	if r.ds == nil {
		return nil, nil
	}
	prefix := r.prefix.ChildString("event").ChildString(serviceID)
	q := query.Query{Prefix: prefix.String(), Orders: []query.Order{query.OrderByKey{}}}
	results, err := r.ds.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query service events: %w", err)
	}
	defer results.Close()

	events := make([]*Event, 0)
	for result := range results.Next() {
		if result.Value == nil {
			continue
		}
		e := &Event{}
		if err := cbor.Unmarshal(result.Value, e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", result.Key, err)
		}
		events = append(events, e)
	}
	return events, nil
}
