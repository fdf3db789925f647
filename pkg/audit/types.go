// Package audit records security-relevant events: access denials,
// permission checks on mutations, approval transitions and deletions.
// Events fan out to one or more sinks; audit failures are logged and
// never fail the operation being audited.
package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authorization events
	EventTypeAccessDenied    EventType = "authz.access_denied"
	EventTypePermissionCheck EventType = "authz.permission_check"

	// Data mutation events
	EventTypeRecordUpdate EventType = "data.record_update"
	EventTypeRecordDelete EventType = "data.record_delete"

	// Approval workflow events
	EventTypeApprovalTransition EventType = "approval.transition"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	PrincipalID  string `json:"principal_id,omitempty"`
	IdentityKind string `json:"identity_kind,omitempty"`

	// Target record
	EntityKind string `json:"entity_kind,omitempty"`
	EntityID   int64  `json:"entity_id,omitempty"`

	// Decision detail
	Action string `json:"action,omitempty"`
	Reason string `json:"reason,omitempty"`

	RequestID string                 `json:"request_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}
