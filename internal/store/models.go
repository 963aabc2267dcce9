package store

import (
	"time"

	"github.com/codelaboratoryltd/netfab/internal/device"
	"github.com/codelaboratoryltd/netfab/internal/topology"
)

// ServiceType identifies the kind of end-to-end service.
type ServiceType string

const (
	ServiceMPLSVPN    ServiceType = "MPLS_VPN"
	ServiceOTNCircuit ServiceType = "OTN_CIRCUIT"
	ServiceGPONAccess ServiceType = "GPON_ACCESS"
	ServiceFTTH       ServiceType = "FTTH_SERVICE"
)

// ValidServiceType reports whether t is a recognised service type.
func ValidServiceType(t ServiceType) bool {
	switch t {
	case ServiceMPLSVPN, ServiceOTNCircuit, ServiceGPONAccess, ServiceFTTH:
		return true
	}
	return false
}

// ServiceStatus is the lifecycle state of a service.
type ServiceStatus string

const (
	ServicePending        ServiceStatus = "pending"
	ServiceActive         ServiceStatus = "active"
	ServiceFailed         ServiceStatus = "failed"
	ServiceRejected       ServiceStatus = "rejected"
	ServiceDecommissioned ServiceStatus = "decommissioned"
)

// Service is a provisioned end-to-end bandwidth reservation. Path holds the
// ordered device ids; Links holds the exact link ids reserved between
// consecutive path devices, so decommissioning releases the same link even
// when parallel links exist.
type Service struct {
	ID                 string        `json:"id" cbor:"id"`
	Type               ServiceType   `json:"service_type" cbor:"service_type"`
	SourceDeviceID     string        `json:"source_device_id" cbor:"source_device_id"`
	TargetDeviceID     string        `json:"target_device_id" cbor:"target_device_id"`
	Bandwidth          float64       `json:"bandwidth" cbor:"bandwidth"`
	LatencyRequirement *float64      `json:"latency_requirement,omitempty" cbor:"latency_requirement,omitempty"`
	Status             ServiceStatus `json:"status" cbor:"status"`
	Path               []string      `json:"path" cbor:"path"`
	Links              []string      `json:"links" cbor:"links"`
	CreatedAt          time.Time     `json:"created_at" cbor:"created_at"`
	ActivatedAt        time.Time     `json:"activated_at,omitempty" cbor:"activated_at,omitempty"`
	DecommissionedAt   time.Time     `json:"decommissioned_at,omitempty" cbor:"decommissioned_at,omitempty"`
}

// DeviceRecord is the persisted form of a device. The allocated field is a
// convenience for observers; the authoritative allocation state is
// re-derived from active services at load time.
type DeviceRecord struct {
	ID          string        `json:"id" cbor:"id"`
	Name        string        `json:"name" cbor:"name"`
	Type        device.Type   `json:"type" cbor:"type"`
	Capacity    float64       `json:"capacity" cbor:"capacity"`
	Allocated   float64       `json:"allocated" cbor:"allocated"`
	Location    string        `json:"location,omitempty" cbor:"location,omitempty"`
	Status      device.Status `json:"status" cbor:"status"`
	Wavelengths int           `json:"wavelengths,omitempty" cbor:"wavelengths,omitempty"`
	LabelSpace  int           `json:"label_space,omitempty" cbor:"label_space,omitempty"`
	SplitRatio  int           `json:"split_ratio,omitempty" cbor:"split_ratio,omitempty"`
	OLTID       string        `json:"olt_id,omitempty" cbor:"olt_id,omitempty"`
}

// DeviceRecordOf captures a device's persisted form.
func DeviceRecordOf(d device.Device) *DeviceRecord {
	r := &DeviceRecord{
		ID:        d.ID(),
		Name:      d.Name(),
		Type:      d.Type(),
		Capacity:  d.Capacity(),
		Allocated: d.Allocated(),
		Location:  d.Location(),
		Status:    d.Status(),
	}
	switch v := d.(type) {
	case *device.DWDM:
		r.Wavelengths = v.Wavelengths()
	case *device.MPLS:
		r.LabelSpace = v.LabelSpace()
	case *device.GPON:
		if v.IsOLT() {
			r.SplitRatio = v.SplitRatio()
		} else {
			r.OLTID = v.OLTID()
		}
	}
	return r
}

// Config converts the record back into a device construction config.
func (r *DeviceRecord) Config() device.Config {
	return device.Config{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Capacity:    r.Capacity,
		Location:    r.Location,
		Status:      r.Status,
		Wavelengths: r.Wavelengths,
		LabelSpace:  r.LabelSpace,
		SplitRatio:  r.SplitRatio,
		OLTID:       r.OLTID,
	}
}

// LinkRecord is the persisted form of a link. As with devices, allocation
// is re-derived from active services at load time.
type LinkRecord struct {
	ID        string            `json:"id" cbor:"id"`
	Source    string            `json:"source" cbor:"source"`
	Target    string            `json:"target" cbor:"target"`
	Type      topology.LinkType `json:"type" cbor:"type"`
	Bandwidth float64           `json:"bandwidth" cbor:"bandwidth"`
	Allocated float64           `json:"allocated" cbor:"allocated"`
	Latency   float64           `json:"latency" cbor:"latency"`
	Status    device.Status     `json:"status" cbor:"status"`
}

// LinkRecordOf captures a link's persisted form.
func LinkRecordOf(l *topology.Link) *LinkRecord {
	return &LinkRecord{
		ID:        l.ID(),
		Source:    l.Source(),
		Target:    l.Target(),
		Type:      l.Type(),
		Bandwidth: l.Bandwidth(),
		Allocated: l.Allocated(),
		Latency:   l.Latency(),
		Status:    l.Status(),
	}
}

// Config converts the record back into a link construction config.
func (r *LinkRecord) Config() topology.LinkConfig {
	return topology.LinkConfig{
		ID:        r.ID,
		Source:    r.Source,
		Target:    r.Target,
		Type:      r.Type,
		Bandwidth: r.Bandwidth,
		Latency:   r.Latency,
		Status:    r.Status,
	}
}
