package device

import (
	"errors"
	"sync"
	"testing"
)

func TestNewDeviceDefaults(t *testing.T) {
	d, err := New(Config{ID: "dwdm-1", Name: "DWDM Shelf 1", Type: TypeDWDM, Capacity: 400})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if d.Status() != StatusActive {
		t.Errorf("default status = %s, want %s", d.Status(), StatusActive)
	}
	dwdm, ok := d.(*DWDM)
	if !ok {
		t.Fatalf("expected *DWDM, got %T", d)
	}
	if dwdm.Wavelengths() != DefaultWavelengths {
		t.Errorf("wavelengths = %d, want %d", dwdm.Wavelengths(), DefaultWavelengths)
	}
}

func TestNewDeviceVariants(t *testing.T) {
	mpls, err := New(Config{ID: "mpls-1", Name: "LSR 1", Type: TypeMPLS, Capacity: 100})
	if err != nil {
		t.Fatalf("New MPLS failed: %v", err)
	}
	if got := mpls.(*MPLS).LabelSpace(); got != DefaultLabelSpace {
		t.Errorf("label space = %d, want %d", got, DefaultLabelSpace)
	}

	olt, err := New(Config{ID: "olt-1", Name: "OLT 1", Type: TypeGPONOLT, Capacity: 10, SplitRatio: 64})
	if err != nil {
		t.Fatalf("New OLT failed: %v", err)
	}
	if !olt.(*GPON).IsOLT() {
		t.Error("OLT not flagged as OLT")
	}
	if got := olt.(*GPON).SplitRatio(); got != 64 {
		t.Errorf("split ratio = %d, want 64", got)
	}

	ont, err := New(Config{ID: "ont-1", Name: "ONT 1", Type: TypeGPONONT, Capacity: 1, OLTID: "olt-1"})
	if err != nil {
		t.Fatalf("New ONT failed: %v", err)
	}
	if ont.(*GPON).IsOLT() {
		t.Error("ONT flagged as OLT")
	}
	if got := ont.(*GPON).OLTID(); got != "olt-1" {
		t.Errorf("OLT id = %s, want olt-1", got)
	}

	for _, typ := range []Type{TypeOTN, TypeSONET, TypeFTTH} {
		d, err := New(Config{ID: "t-" + string(typ), Name: "T", Type: typ, Capacity: 10})
		if err != nil {
			t.Fatalf("New %s failed: %v", typ, err)
		}
		if _, ok := d.(*Transport); !ok {
			t.Errorf("%s: expected *Transport, got %T", typ, d)
		}
	}
}

func TestNewDeviceInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"missing id", Config{Name: "x", Type: TypeOTN, Capacity: 1}, ErrInvalidConfig},
		{"missing name", Config{ID: "x", Type: TypeOTN, Capacity: 1}, ErrInvalidConfig},
		{"zero capacity", Config{ID: "x", Name: "x", Type: TypeOTN}, ErrInvalidConfig},
		{"negative capacity", Config{ID: "x", Name: "x", Type: TypeOTN, Capacity: -5}, ErrInvalidConfig},
		{"unknown type", Config{ID: "x", Name: "x", Type: "QUANTUM", Capacity: 1}, ErrUnknownType},
		{"bad status", Config{ID: "x", Name: "x", Type: TypeOTN, Capacity: 1, Status: "warp"}, ErrInvalidStatus},
		{"ont without olt", Config{ID: "x", Name: "x", Type: TypeGPONONT, Capacity: 1}, ErrInvalidConfig},
		{"ont is own olt", Config{ID: "x", Name: "x", Type: TypeGPONONT, Capacity: 1, OLTID: "x"}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReserveRelease(t *testing.T) {
	d, err := New(Config{ID: "otn-1", Name: "OTN 1", Type: TypeOTN, Capacity: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !d.Reserve(60) {
		t.Fatal("Reserve(60) on empty device failed")
	}
	if got := d.Allocated(); got != 60 {
		t.Errorf("allocated = %v, want 60", got)
	}
	if got := d.AvailableCapacity(); got != 40 {
		t.Errorf("available = %v, want 40", got)
	}

	// Does not fit: reject and leave state untouched.
	if d.Reserve(50) {
		t.Error("Reserve(50) with 40 available succeeded")
	}
	if got := d.Allocated(); got != 60 {
		t.Errorf("allocated after failed reserve = %v, want 60", got)
	}

	// Exact fit is allowed.
	if !d.Reserve(40) {
		t.Error("Reserve(40) with exactly 40 available failed")
	}

	if err := d.Release(100); err != nil {
		t.Fatalf("Release(100) failed: %v", err)
	}
	if got := d.Allocated(); got != 0 {
		t.Errorf("allocated after release = %v, want 0", got)
	}
}

func TestReleaseUnderflow(t *testing.T) {
	d, _ := New(Config{ID: "otn-1", Name: "OTN 1", Type: TypeOTN, Capacity: 100})
	d.Reserve(10)

	err := d.Release(20)
	if !errors.Is(err, ErrReleaseUnderflow) {
		t.Fatalf("Release(20) error = %v, want ErrReleaseUnderflow", err)
	}
	// Underflow must not mutate.
	if got := d.Allocated(); got != 10 {
		t.Errorf("allocated after underflow = %v, want 10", got)
	}

	if err := d.Release(-1); !errors.Is(err, ErrReleaseUnderflow) {
		t.Errorf("Release(-1) error = %v, want ErrReleaseUnderflow", err)
	}
}

func TestReserveRejectsNonPositive(t *testing.T) {
	d, _ := New(Config{ID: "otn-1", Name: "OTN 1", Type: TypeOTN, Capacity: 100})
	if d.Reserve(0) {
		t.Error("Reserve(0) succeeded")
	}
	if d.Reserve(-5) {
		t.Error("Reserve(-5) succeeded")
	}
}

func TestSetStatus(t *testing.T) {
	d, _ := New(Config{ID: "otn-1", Name: "OTN 1", Type: TypeOTN, Capacity: 100})

	if err := d.SetStatus(StatusMaintenance); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if d.Status() != StatusMaintenance {
		t.Errorf("status = %s, want %s", d.Status(), StatusMaintenance)
	}
	if err := d.SetStatus("sideways"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SetStatus(sideways) error = %v, want ErrInvalidStatus", err)
	}
}

func TestConcurrentReserve(t *testing.T) {
	d, _ := New(Config{ID: "otn-1", Name: "OTN 1", Type: TypeOTN, Capacity: 100})

	// 200 goroutines each try to take 1; only 100 can fit.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Reserve(1) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 100 {
		t.Errorf("%d reservations succeeded, want 100", succeeded)
	}
	if got := d.Allocated(); got != 100 {
		t.Errorf("allocated = %v, want 100", got)
	}
}
