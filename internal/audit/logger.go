package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the audit logging system for netfab.
type Logger struct {
	config Config
	writer io.Writer

	mu sync.RWMutex

	// Event buffer for batch writing
	eventChan chan *Event
	buffer    []*Event

	// Statistics
	stats LoggerStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds audit logger configuration.
type Config struct {
	// ServerID identifies this netfab server.
	ServerID string

	// Writer is where audit logs are written (defaults to stdout).
	Writer io.Writer

	// BufferSize is the event buffer size for async processing.
	BufferSize int

	// FlushInterval is how often to flush buffered events.
	FlushInterval time.Duration

	// MinSeverity is the minimum severity to log.
	MinSeverity Severity

	// SyncWrites forces synchronous writes (slower but safer).
	SyncWrites bool

	// JSONFormat enables JSON output format.
	JSONFormat bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Writer:        os.Stdout,
		BufferSize:    10000,
		FlushInterval: 5 * time.Second,
		MinSeverity:   SeverityDebug,
		JSONFormat:    true,
	}
}

// LoggerStats holds audit logger statistics.
type LoggerStats struct {
	EventsLogged  int64
	EventsDropped int64
	BufferSize    int
	WriteErrors   int64
}

// NewLogger creates a new audit logger.
func NewLogger(config Config) *Logger {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Logger{
		config:    config,
		writer:    config.Writer,
		eventChan: make(chan *Event, config.BufferSize),
		buffer:    make([]*Event, 0, 1000),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the audit logger.
func (l *Logger) Start() error {
	l.LogEvent(&Event{
		Type:     EventSystemStart,
		ServerID: l.config.ServerID,
		Success:  true,
	})

	// Start async processor
	if !l.config.SyncWrites {
		l.wg.Add(1)
		go l.processEvents()
	}

	// Start flush loop
	l.wg.Add(1)
	go l.flushLoop()

	return nil
}

// Stop shuts down the audit logger.
func (l *Logger) Stop() error {
	l.LogEvent(&Event{
		Type:     EventSystemStop,
		ServerID: l.config.ServerID,
		Success:  true,
	})

	l.cancel()
	close(l.eventChan)
	l.wg.Wait()

	// Final flush
	l.flush()

	return nil
}

// LogEvent logs a single audit event.
func (l *Logger) LogEvent(event *Event) {
	l.prepareEvent(event)

	if !l.shouldLog(event) {
		return
	}

	if l.config.SyncWrites {
		l.writeEvent(event)
	} else {
		select {
		case l.eventChan <- event:
		default:
			l.mu.Lock()
			l.stats.EventsDropped++
			l.mu.Unlock()
		}
	}
}

// prepareEvent fills in default fields.
func (l *Logger) prepareEvent(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ServerID == "" {
		event.ServerID = l.config.ServerID
	}
}

// shouldLog checks if an event should be logged based on config.
func (l *Logger) shouldLog(event *Event) bool {
	return event.Type.GetSeverity() >= l.config.MinSeverity
}

// writeEvent writes a single event to the output.
func (l *Logger) writeEvent(event *Event) {
	var output []byte
	var err error

	if l.config.JSONFormat {
		output, err = json.Marshal(event)
		if err != nil {
			l.mu.Lock()
			l.stats.WriteErrors++
			l.mu.Unlock()
			return
		}
		output = append(output, '\n')
	} else {
		output = []byte(l.formatText(event) + "\n")
	}

	l.mu.Lock()
	_, err = l.writer.Write(output)
	if err != nil {
		l.stats.WriteErrors++
	} else {
		l.stats.EventsLogged++
	}
	l.mu.Unlock()

	if err == nil {
		eventsTotal.WithLabelValues(event.Type.Category()).Inc()
	}
}

// formatText formats an event as human-readable text.
func (l *Logger) formatText(event *Event) string {
	msg := fmt.Sprintf("[%s] %s server=%s type=%s",
		event.Timestamp.Format(time.RFC3339),
		event.Type.GetSeverity().String(),
		event.ServerID,
		event.Type,
	)

	if event.SourceIP != nil {
		msg += fmt.Sprintf(" source_ip=%s", event.SourceIP)
	}
	if event.APIEndpoint != "" {
		msg += fmt.Sprintf(" endpoint=%s", event.APIEndpoint)
	}
	if event.HTTPMethod != "" {
		msg += fmt.Sprintf(" method=%s", event.HTTPMethod)
	}
	if event.HTTPStatus != 0 {
		msg += fmt.Sprintf(" status=%d", event.HTTPStatus)
	}
	if event.ResourceType != "" {
		msg += fmt.Sprintf(" resource_type=%s", event.ResourceType)
	}
	if event.ResourceID != "" {
		msg += fmt.Sprintf(" resource_id=%s", event.ResourceID)
	}
	if event.ServiceID != "" {
		msg += fmt.Sprintf(" service=%s", event.ServiceID)
	}
	if !event.Success {
		msg += " success=false"
	}
	if event.ErrorMessage != "" {
		msg += fmt.Sprintf(" error=%q", event.ErrorMessage)
	}

	return msg
}

// processEvents processes events from the channel.
func (l *Logger) processEvents() {
	defer l.wg.Done()

	for event := range l.eventChan {
		l.mu.Lock()
		l.buffer = append(l.buffer, event)
		bufLen := len(l.buffer)
		l.mu.Unlock()

		if bufLen >= cap(l.buffer)*80/100 {
			l.flush()
		}
	}
}

// flushLoop periodically flushes the buffer.
func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.flush()
		}
	}
}

// flush writes buffered events.
func (l *Logger) flush() {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return
	}

	events := l.buffer
	l.buffer = make([]*Event, 0, 1000)
	l.mu.Unlock()

	for _, event := range events {
		l.writeEvent(event)
	}
}

// Stats returns logger statistics.
func (l *Logger) Stats() LoggerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := l.stats
	stats.BufferSize = len(l.buffer)
	return stats
}

// Helper methods for common event types

// LogDeviceChange logs a device add, update, or removal.
func (l *Logger) LogDeviceChange(ctx context.Context, eventType EventType, deviceID string, success bool, errMsg string) {
	l.LogEvent(&Event{
		Type:         eventType,
		ResourceType: "device",
		ResourceID:   deviceID,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

// LogLinkChange logs a link add, update, or removal.
func (l *Logger) LogLinkChange(ctx context.Context, eventType EventType, linkID string, success bool, errMsg string) {
	l.LogEvent(&Event{
		Type:         eventType,
		ResourceType: "link",
		ResourceID:   linkID,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

// LogServiceTransition logs a service lifecycle transition.
func (l *Logger) LogServiceTransition(ctx context.Context, eventType EventType, serviceID string, metadata map[string]string) {
	success := eventType == EventServiceProvisioned || eventType == EventServiceDecommissioned
	l.LogEvent(&Event{
		Type:         eventType,
		ResourceType: "service",
		ResourceID:   serviceID,
		ServiceID:    serviceID,
		Success:      success,
		Metadata:     metadata,
	})
}

// LogRuleChange logs a rule management action.
func (l *Logger) LogRuleChange(ctx context.Context, eventType EventType, ruleID string) {
	l.LogEvent(&Event{
		Type:         eventType,
		ResourceType: "rule",
		ResourceID:   ruleID,
		Success:      true,
	})
}
