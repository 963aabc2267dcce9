// Package device models the capacity-bearing network elements that make up
// the topology: DWDM shelves, MPLS routers, GPON OLTs/ONTs and friends.
// All variants share the same reserve/release contract; type-specific fields
// hang off the concrete variant types.
package device

import (
	"fmt"
	"sync"
)

// Type identifies a device variant.
type Type string

const (
	TypeDWDM    Type = "DWDM"
	TypeOTN     Type = "OTN"
	TypeSONET   Type = "SONET"
	TypeMPLS    Type = "MPLS"
	TypeGPONOLT Type = "GPON_OLT"
	TypeGPONONT Type = "GPON_ONT"
	TypeFTTH    Type = "FTTH"
)

// Types lists all recognised device type tags.
var Types = []Type{TypeDWDM, TypeOTN, TypeSONET, TypeMPLS, TypeGPONOLT, TypeGPONONT, TypeFTTH}

// Status represents the operational status of a device.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
	StatusFailed      Status = "failed"
)

// ValidStatus reports whether s is a recognised status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance, StatusFailed:
		return true
	}
	return false
}

// Device is the uniform capacity contract shared by all variants.
// Reserve and Release are safe for concurrent use; each device guards its
// own allocation state.
type Device interface {
	// ID returns the unique device identifier
	ID() string

	// Name returns the human-readable device name
	Name() string

	// Type returns the device type tag
	Type() Type

	// Status returns the current operational status
	Status() Status

	// SetStatus updates the operational status
	SetStatus(Status) error

	// Location returns the optional site location, empty if unset
	Location() string

	// Capacity returns the total capacity in Gbps
	Capacity() float64

	// Allocated returns the currently reserved capacity in Gbps
	Allocated() float64

	// AvailableCapacity returns the device's own remaining headroom.
	// GPON ONTs are additionally bounded by their parent OLT; that bound
	// is resolved through the topology graph, not here.
	AvailableCapacity() float64

	// Reserve atomically claims amount iff it fits within capacity.
	// Returns false and leaves the device untouched otherwise.
	Reserve(amount float64) bool

	// Release returns amount to the device. Releasing more than is
	// currently allocated reports ErrReleaseUnderflow without mutating.
	Release(amount float64) error
}

// Config describes a device to be constructed. Variant-specific fields are
// ignored for variants they do not apply to.
type Config struct {
	ID       string
	Name     string
	Type     Type
	Capacity float64
	Location string
	Status   Status // defaults to active

	Wavelengths int    // DWDM: wavelength count (default 80)
	LabelSpace  int    // MPLS: label-space size (default 1048576)
	SplitRatio  int    // GPON OLT: split ratio (default 32)
	OLTID       string // GPON ONT: parent OLT device id, required
}

const (
	// DefaultWavelengths is the DWDM wavelength count when unspecified.
	DefaultWavelengths = 80

	// DefaultLabelSpace is the MPLS label-space size when unspecified (2^20).
	DefaultLabelSpace = 1 << 20

	// DefaultSplitRatio is the GPON OLT split ratio when unspecified.
	DefaultSplitRatio = 32
)

// New constructs the device variant matching cfg.Type.
func New(cfg Config) (Device, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("device id is required: %w", ErrInvalidConfig)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("device name is required: %w", ErrInvalidConfig)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("device capacity must be positive, got %v: %w", cfg.Capacity, ErrInvalidConfig)
	}
	status := cfg.Status
	if status == "" {
		status = StatusActive
	}
	if !ValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}

	newBase := func() base {
		return base{
			id:       cfg.ID,
			name:     cfg.Name,
			typ:      cfg.Type,
			capacity: cfg.Capacity,
			location: cfg.Location,
			status:   status,
		}
	}

	switch cfg.Type {
	case TypeDWDM:
		wavelengths := cfg.Wavelengths
		if wavelengths == 0 {
			wavelengths = DefaultWavelengths
		}
		if wavelengths < 0 {
			return nil, fmt.Errorf("wavelength count must be positive, got %d: %w", wavelengths, ErrInvalidConfig)
		}
		return &DWDM{base: newBase(), wavelengths: wavelengths}, nil

	case TypeMPLS:
		labelSpace := cfg.LabelSpace
		if labelSpace == 0 {
			labelSpace = DefaultLabelSpace
		}
		if labelSpace < 0 {
			return nil, fmt.Errorf("label-space size must be positive, got %d: %w", labelSpace, ErrInvalidConfig)
		}
		return &MPLS{base: newBase(), labelSpace: labelSpace}, nil

	case TypeGPONOLT:
		splitRatio := cfg.SplitRatio
		if splitRatio == 0 {
			splitRatio = DefaultSplitRatio
		}
		if splitRatio < 0 {
			return nil, fmt.Errorf("split ratio must be positive, got %d: %w", splitRatio, ErrInvalidConfig)
		}
		return &GPON{base: newBase(), olt: true, splitRatio: splitRatio}, nil

	case TypeGPONONT:
		if cfg.OLTID == "" {
			return nil, fmt.Errorf("GPON ONT requires a parent OLT id: %w", ErrInvalidConfig)
		}
		if cfg.OLTID == cfg.ID {
			return nil, fmt.Errorf("GPON ONT cannot be its own OLT: %w", ErrInvalidConfig)
		}
		return &GPON{base: newBase(), oltID: cfg.OLTID}, nil

	case TypeOTN, TypeSONET, TypeFTTH:
		return &Transport{base: newBase()}, nil
	}

	return nil, fmt.Errorf("type %q: %w", cfg.Type, ErrUnknownType)
}

// base carries the state and contract shared by every variant.
type base struct {
	id       string
	name     string
	typ      Type
	capacity float64
	location string

	mu        sync.Mutex
	status    Status
	allocated float64
}

func (b *base) ID() string       { return b.id }
func (b *base) Name() string     { return b.name }
func (b *base) Type() Type       { return b.typ }
func (b *base) Location() string { return b.location }
func (b *base) Capacity() float64 {
	return b.capacity
}

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *base) SetStatus(s Status) error {
	if !ValidStatus(s) {
		return fmt.Errorf("status %q: %w", s, ErrInvalidStatus)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = s
	return nil
}

func (b *base) Allocated() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocated
}

func (b *base) AvailableCapacity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - b.allocated
}

func (b *base) Reserve(amount float64) bool {
	if amount <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allocated+amount > b.capacity {
		return false
	}
	b.allocated += amount
	return true
}

func (b *base) Release(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("release amount must be positive, got %v: %w", amount, ErrReleaseUnderflow)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount > b.allocated {
		return fmt.Errorf("device %s: releasing %v with only %v allocated: %w", b.id, amount, b.allocated, ErrReleaseUnderflow)
	}
	b.allocated -= amount
	return nil
}

// DWDM is a dense wavelength division multiplexing device.
type DWDM struct {
	base
	wavelengths int
}

// Wavelengths returns the wavelength count.
func (d *DWDM) Wavelengths() int { return d.wavelengths }

// MPLS is a label switching router.
type MPLS struct {
	base
	labelSpace int
}

// LabelSpace returns the label-space size.
func (m *MPLS) LabelSpace() int { return m.labelSpace }

// GPON is an optical line terminal or optical network terminal.
// ONTs reference their parent OLT by id; the topology graph resolves the
// parent when computing effective headroom.
type GPON struct {
	base
	olt        bool
	splitRatio int
	oltID      string
}

// IsOLT reports whether the device is an OLT (as opposed to an ONT).
func (g *GPON) IsOLT() bool { return g.olt }

// SplitRatio returns the OLT split ratio, 0 for ONTs.
func (g *GPON) SplitRatio() int { return g.splitRatio }

// OLTID returns the parent OLT id, empty for OLTs.
func (g *GPON) OLTID() string { return g.oltID }

// Transport covers the variants with no extra cross-device coupling
// (OTN, SONET, FTTH).
type Transport struct {
	base
}
