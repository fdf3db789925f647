package access

// Decision is the outcome of a permission check. The reason is internal:
// it feeds logs and audit records, never the caller-facing response, so a
// denied caller cannot learn whether the record exists.
type Decision struct {
	Allowed bool
	Reason  string
}

// Deny reasons. Stable strings, recorded in audit events.
const (
	ReasonUnbound          = "identity_unbound"
	ReasonOutOfScope       = "record_out_of_scope"
	ReasonReadOnly         = "role_is_read_only"
	ReasonAdminOnly        = "action_requires_admin"
	ReasonNotOwner         = "not_campaign_owner"
	ReasonAdminTransition  = "admin_cannot_transition"
	ReasonUnknownEntity    = "unknown_entity_kind"
	ReasonViewerAssignment = "viewer_assignment_is_read_only"
)

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// DenyWith builds a negative decision carrying an internal reason.
func DenyWith(reason string) Decision { return Decision{Allowed: false, Reason: reason} }
