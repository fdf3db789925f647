package audit

import (
	"context"
	"time"
)

// Logger is the interface for audit sinks.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event *Event) error

	// Close flushes and closes the sink.
	Close() error
}

// NewEvent builds an event with the timestamp stamped.
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
}

// NopLogger discards every event. Used when auditing is disabled.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }
