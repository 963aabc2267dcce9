// Package audit provides operational audit logging for netfab. Every
// topology mutation and service lifecycle transition produces one event,
// written as JSON lines so downstream tooling can ingest the trail.
package audit

import (
	"net"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Topology mutation events
	EventDeviceAdded   EventType = "DEVICE_ADDED"
	EventDeviceRemoved EventType = "DEVICE_REMOVED"
	EventDeviceUpdated EventType = "DEVICE_UPDATED"
	EventLinkAdded     EventType = "LINK_ADDED"
	EventLinkRemoved   EventType = "LINK_REMOVED"
	EventLinkUpdated   EventType = "LINK_UPDATED"

	// Service lifecycle events
	EventServiceProvisioned    EventType = "SERVICE_PROVISIONED"
	EventServiceRejected       EventType = "SERVICE_REJECTED"
	EventServiceFailed         EventType = "SERVICE_FAILED"
	EventServiceDecommissioned EventType = "SERVICE_DECOMMISSIONED"
	EventCapacityExhausted     EventType = "CAPACITY_EXHAUSTED"

	// Rule management events
	EventRuleAdded   EventType = "RULE_ADDED"
	EventRuleRemoved EventType = "RULE_REMOVED"
	EventRuleToggled EventType = "RULE_TOGGLED"

	// System events
	EventSystemStart EventType = "SYSTEM_START"
	EventSystemStop  EventType = "SYSTEM_STOP"
	EventSystemError EventType = "SYSTEM_ERROR"
)

// Severity represents the severity of an event.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityNotice
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity for an event type.
func (e EventType) GetSeverity() Severity {
	switch e {
	case EventServiceRejected, EventServiceFailed, EventCapacityExhausted:
		return SeverityWarning
	case EventSystemError:
		return SeverityError
	case EventRuleAdded, EventRuleRemoved, EventRuleToggled:
		return SeverityNotice
	default:
		return SeverityInfo
	}
}

// Category returns the category for an event type.
func (e EventType) Category() string {
	switch e {
	case EventDeviceAdded, EventDeviceRemoved, EventDeviceUpdated,
		EventLinkAdded, EventLinkRemoved, EventLinkUpdated:
		return "topology"
	case EventServiceProvisioned, EventServiceRejected, EventServiceFailed,
		EventServiceDecommissioned, EventCapacityExhausted:
		return "service"
	case EventRuleAdded, EventRuleRemoved, EventRuleToggled:
		return "rules"
	case EventSystemStart, EventSystemStop, EventSystemError:
		return "system"
	default:
		return "other"
	}
}

// Event represents a single audit event.
type Event struct {
	// Core fields
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ServerID  string    `json:"server_id"`

	// Request context
	RequestID   string `json:"request_id,omitempty"`
	SourceIP    net.IP `json:"source_ip,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`
	HTTPMethod  string `json:"http_method,omitempty"`
	HTTPStatus  int    `json:"http_status,omitempty"`

	// Resource context
	ResourceType string `json:"resource_type,omitempty"` // "device", "link", "service", "rule"
	ResourceID   string `json:"resource_id,omitempty"`
	ServiceID    string `json:"service_id,omitempty"`

	// Result information
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Additional metadata
	Metadata map[string]string `json:"metadata,omitempty"`
}
