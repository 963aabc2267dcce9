package topology

import (
	"fmt"
	"sync"

	"github.com/codelaboratoryltd/netfab/internal/device"
)

// LinkType identifies the physical medium of a link.
type LinkType string

const (
	LinkFiber    LinkType = "fiber"
	LinkEthernet LinkType = "ethernet"
	LinkWireless LinkType = "wireless"
)

// ValidLinkType reports whether t is a recognised link type.
func ValidLinkType(t LinkType) bool {
	switch t {
	case LinkFiber, LinkEthernet, LinkWireless:
		return true
	}
	return false
}

// Link connects two devices. The source/target record is directed but
// capacity is undirected: a reservation claims bandwidth regardless of
// traversal direction.
type Link struct {
	id        string
	source    string
	target    string
	typ       LinkType
	bandwidth float64
	latency   float64

	mu        sync.Mutex
	status    device.Status
	allocated float64
}

// LinkConfig describes a link to be constructed.
type LinkConfig struct {
	ID        string
	Source    string
	Target    string
	Type      LinkType
	Bandwidth float64
	Latency   float64
	Status    device.Status // defaults to active
}

// NewLink constructs a link from cfg.
func NewLink(cfg LinkConfig) (*Link, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("link id is required: %w", ErrInvalidLink)
	}
	if cfg.Source == "" || cfg.Target == "" {
		return nil, fmt.Errorf("link endpoints are required: %w", ErrInvalidLink)
	}
	if cfg.Source == cfg.Target {
		return nil, fmt.Errorf("link cannot connect a device to itself: %w", ErrInvalidLink)
	}
	if !ValidLinkType(cfg.Type) {
		return nil, fmt.Errorf("link type %q: %w", cfg.Type, ErrInvalidLink)
	}
	if cfg.Bandwidth <= 0 {
		return nil, fmt.Errorf("link bandwidth must be positive, got %v: %w", cfg.Bandwidth, ErrInvalidLink)
	}
	if cfg.Latency < 0 {
		return nil, fmt.Errorf("link latency cannot be negative, got %v: %w", cfg.Latency, ErrInvalidLink)
	}
	status := cfg.Status
	if status == "" {
		status = device.StatusActive
	}
	if !device.ValidStatus(status) {
		return nil, fmt.Errorf("link status %q: %w", status, ErrInvalidLink)
	}
	return &Link{
		id:        cfg.ID,
		source:    cfg.Source,
		target:    cfg.Target,
		typ:       cfg.Type,
		bandwidth: cfg.Bandwidth,
		latency:   cfg.Latency,
		status:    status,
	}, nil
}

func (l *Link) ID() string         { return l.id }
func (l *Link) Source() string     { return l.source }
func (l *Link) Target() string     { return l.target }
func (l *Link) Type() LinkType     { return l.typ }
func (l *Link) Bandwidth() float64 { return l.bandwidth }
func (l *Link) Latency() float64   { return l.latency }

// Other returns the peer endpoint of deviceID, or empty if deviceID is not
// an endpoint of this link.
func (l *Link) Other(deviceID string) string {
	switch deviceID {
	case l.source:
		return l.target
	case l.target:
		return l.source
	}
	return ""
}

func (l *Link) Status() device.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Link) SetStatus(s device.Status) error {
	if !device.ValidStatus(s) {
		return fmt.Errorf("link status %q: %w", s, ErrInvalidLink)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = s
	return nil
}

func (l *Link) Allocated() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allocated
}

// AvailableCapacity returns the unreserved bandwidth.
func (l *Link) AvailableCapacity() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bandwidth - l.allocated
}

// Reserve atomically claims amount iff it fits within the link bandwidth.
func (l *Link) Reserve(amount float64) bool {
	if amount <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allocated+amount > l.bandwidth {
		return false
	}
	l.allocated += amount
	return true
}

// Release returns amount to the link. Releasing more than is currently
// allocated reports device.ErrReleaseUnderflow without mutating.
func (l *Link) Release(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("release amount must be positive, got %v: %w", amount, device.ErrReleaseUnderflow)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.allocated {
		return fmt.Errorf("link %s: releasing %v with only %v allocated: %w", l.id, amount, l.allocated, device.ErrReleaseUnderflow)
	}
	l.allocated -= amount
	return nil
}
