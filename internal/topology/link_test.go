package topology

import (
	"errors"
	"testing"

	"github.com/codelaboratoryltd/netfab/internal/device"
)

func TestNewLinkValidation(t *testing.T) {
	valid := LinkConfig{ID: "l1", Source: "a", Target: "b", Type: LinkFiber, Bandwidth: 100, Latency: 2}

	if _, err := NewLink(valid); err != nil {
		t.Fatalf("NewLink(valid) failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*LinkConfig)
	}{
		{"missing id", func(c *LinkConfig) { c.ID = "" }},
		{"missing source", func(c *LinkConfig) { c.Source = "" }},
		{"self loop", func(c *LinkConfig) { c.Target = c.Source }},
		{"bad type", func(c *LinkConfig) { c.Type = "carrier-pigeon" }},
		{"zero bandwidth", func(c *LinkConfig) { c.Bandwidth = 0 }},
		{"negative latency", func(c *LinkConfig) { c.Latency = -1 }},
		{"bad status", func(c *LinkConfig) { c.Status = "sideways" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewLink(cfg); !errors.Is(err, ErrInvalidLink) {
				t.Errorf("NewLink() error = %v, want ErrInvalidLink", err)
			}
		})
	}
}

func TestLinkOther(t *testing.T) {
	l, _ := NewLink(LinkConfig{ID: "l1", Source: "a", Target: "b", Type: LinkFiber, Bandwidth: 100})

	if got := l.Other("a"); got != "b" {
		t.Errorf("Other(a) = %s, want b", got)
	}
	if got := l.Other("b"); got != "a" {
		t.Errorf("Other(b) = %s, want a", got)
	}
	if got := l.Other("c"); got != "" {
		t.Errorf("Other(c) = %s, want empty", got)
	}
}

func TestLinkReserveRelease(t *testing.T) {
	l, _ := NewLink(LinkConfig{ID: "l1", Source: "a", Target: "b", Type: LinkFiber, Bandwidth: 100})

	if !l.Reserve(100) {
		t.Fatal("Reserve(100) on empty link failed")
	}
	if l.Reserve(1) {
		t.Error("Reserve(1) on full link succeeded")
	}
	if err := l.Release(100); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := l.Release(1); !errors.Is(err, device.ErrReleaseUnderflow) {
		t.Errorf("Release on empty link error = %v, want ErrReleaseUnderflow", err)
	}
}
