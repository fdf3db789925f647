package domain

import "time"

// EntityKind identifies a record type handled by the access control core.
type EntityKind string

const (
	EntityClient   EntityKind = "client"
	EntityCampaign EntityKind = "campaign"
	EntityTask     EntityKind = "task"
	EntityApproval EntityKind = "approval_request"
	EntityMessage  EntityKind = "message"
)

// Valid reports whether the kind is one the core knows about.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityClient, EntityCampaign, EntityTask, EntityApproval, EntityMessage:
		return true
	}
	return false
}

// AssignmentRole is the role a user holds on a campaign they are assigned to.
type AssignmentRole string

const (
	AssignmentViewer AssignmentRole = "viewer"
	AssignmentEditor AssignmentRole = "editor"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents the priority of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// ApprovalStatus represents the state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
)

// Valid reports whether the status is a known approval state.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalChangesRequested:
		return true
	}
	return false
}

// Client represents an external client account of the agency.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamMember represents an internal member of the agency team.
type TeamMember struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Title     string    `json:"title,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Campaign represents a client campaign. CreatedByID is the authenticated
// user ID of whoever created the campaign, which may be an admin or a team
// member.
type Campaign struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"client_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CampaignAssignment grants a user viewer or editor rights on a campaign.
// Unique on (campaign_id, user_id); managed by admins.
type CampaignAssignment struct {
	ID         int64          `json:"id"`
	CampaignID int64          `json:"campaign_id"`
	UserID     string         `json:"user_id"`
	Role       AssignmentRole `json:"role"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Task represents a unit of work inside a campaign. A task carries at most
// one effective assignment: AssignedToTeamMemberID takes precedence over the
// legacy AssignedToID user assignment when both are present.
type Task struct {
	ID                     int64        `json:"id"`
	CampaignID             int64        `json:"campaign_id"`
	Title                  string       `json:"title"`
	Description            string       `json:"description,omitempty"`
	Status                 TaskStatus   `json:"status"`
	Priority               TaskPriority `json:"priority"`
	Notes                  string       `json:"notes,omitempty"`
	DueDate                *time.Time   `json:"due_date,omitempty"`
	AssignedToTeamMemberID *int64       `json:"assigned_to_team_member_id,omitempty"`
	AssignedToID           *string      `json:"assigned_to_id,omitempty"`
	CreatedByID            string       `json:"created_by_id"`
	CompletedAt            *time.Time   `json:"completed_at,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// TaskView is the outbound DTO for a task. The team-member fields are joined
// in by the storage layer and are subject to redaction for client readers.
type TaskView struct {
	Task
	AssignedToTeamMemberName  *string `json:"assigned_to_team_member_name,omitempty"`
	AssignedToTeamMemberTitle *string `json:"assigned_to_team_member_title,omitempty"`
}

// TaskChanges is a partial update to a task; nil fields are left untouched.
// Which fields actually apply for a given caller is decided by the field
// policy, not by the caller.
type TaskChanges struct {
	Title                  *string       `json:"title,omitempty"`
	Description            *string       `json:"description,omitempty"`
	Status                 *TaskStatus   `json:"status,omitempty"`
	Priority               *TaskPriority `json:"priority,omitempty"`
	Notes                  *string       `json:"notes,omitempty"`
	DueDate                *time.Time    `json:"due_date,omitempty"`
	AssignedToTeamMemberID *int64        `json:"assigned_to_team_member_id,omitempty"`
	AssignedToID           *string       `json:"assigned_to_id,omitempty"`

	// CompletedAt is stamped by the service on the first transition to
	// completed. It is never accepted from callers.
	CompletedAt *time.Time `json:"-"`
}

// IsEmpty reports whether no field is set.
func (c TaskChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Status == nil &&
		c.Priority == nil && c.Notes == nil && c.DueDate == nil &&
		c.AssignedToTeamMemberID == nil && c.AssignedToID == nil
}

// CampaignChanges is a partial update to a campaign.
type CampaignChanges struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ApprovalRequest represents a client-facing approval attached to a
// campaign. Status transitions are performed only by the client that owns
// the campaign; admins may edit content fields but never transition.
type ApprovalRequest struct {
	ID           int64          `json:"id"`
	CampaignID   int64          `json:"campaign_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Status       ApprovalStatus `json:"status"`
	CreatedByID  string         `json:"created_by_id"`
	ApprovedByID *string        `json:"approved_by_id,omitempty"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	RejectedAt   *time.Time     `json:"rejected_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ApprovalChanges is a partial update to an approval request's content
// fields. Status is not a content field; it moves only through
// transitions.
type ApprovalChanges struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ApprovalComment is an immutable record of an approval action. One is
// appended on every transition, in the same transaction as the status
// change.
type ApprovalComment struct {
	ID                int64          `json:"id"`
	ApprovalRequestID int64          `json:"approval_request_id"`
	ActorID           string         `json:"actor_id"`
	Action            ApprovalStatus `json:"action"`
	Comment           string         `json:"comment,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Message is a direct message between two authenticated users. Replies
// carry a ParentID and are suppressed from top-level listings except for
// the recipient's own inbox.
type Message struct {
	ID          int64      `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
