package audit

import (
	"context"
	"errors"

	"github.com/brightlane/agencyhub/pkg/observability"
)

// MultiLogger fans an event out to several sinks. Every sink is attempted;
// errors are joined.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a fan-out over the given sinks.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log implements Logger.
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Logger.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SlogLogger mirrors audit events into the structured application log so
// denials show up next to request logs without a database query.
type SlogLogger struct {
	Logger *observability.Logger
}

// Log implements Logger.
func (s *SlogLogger) Log(ctx context.Context, event *Event) error {
	s.Logger.WithFields(map[string]interface{}{
		"event_type":    string(event.EventType),
		"status":        string(event.Status),
		"principal_id":  event.PrincipalID,
		"identity_kind": event.IdentityKind,
		"entity_kind":   event.EntityKind,
		"entity_id":     event.EntityID,
		"action":        event.Action,
		"reason":        event.Reason,
	}).Info("audit event")
	return nil
}

// Close implements Logger.
func (s *SlogLogger) Close() error { return nil }
