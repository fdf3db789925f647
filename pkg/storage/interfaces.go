package storage

import (
	"context"
	"errors"

	"github.com/brightlane/agencyhub/pkg/domain"
)

// ErrNotFound is returned by single-record operations when no row matches.
var ErrNotFound = errors.New("record not found")

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// ListOptions carries the caller-supplied filters of a list query. They
// compose conjunctively with the visibility predicate and are applied
// before pagination, so totals reflect only visible records.
type ListOptions struct {
	Search   string
	Status   string
	SortBy   string
	SortDesc bool
	Page     Page
}

// Store is the persistence boundary of the access control core. List
// methods take the visibility predicate produced by the scope filter;
// the store applies it before search filters, sorting and paging, and
// never adds visibility logic of its own.
type Store interface {
	// Registry lookups used by identity resolution (case-insensitive
	// email match; a miss returns nil, nil).
	TeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error)
	ClientByEmail(ctx context.Context, email string) (*domain.Client, error)

	// MatchesScope reports whether the record with the given ID falls
	// inside the predicate. Single-record permission checks use this so
	// that detail visibility can never drift from list visibility.
	MatchesScope(ctx context.Context, kind domain.EntityKind, id int64, pred Predicate) (bool, error)

	ListClients(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Client, int64, error)
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	CreateClient(ctx context.Context, client *domain.Client) error

	ListTeamMembers(ctx context.Context, opts ListOptions) ([]*domain.TeamMember, int64, error)
	CreateTeamMember(ctx context.Context, member *domain.TeamMember) error

	ListCampaigns(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Campaign, int64, error)
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	UpdateCampaign(ctx context.Context, id int64, changes domain.CampaignChanges) (*domain.Campaign, error)

	// SetCampaignAssignments atomically replaces a campaign's assignment
	// set so a concurrent reader never observes a partially replaced list.
	SetCampaignAssignments(ctx context.Context, campaignID int64, assignments []domain.CampaignAssignment) error
	ListCampaignAssignments(ctx context.Context, campaignID int64) ([]*domain.CampaignAssignment, error)

	ListTasks(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.TaskView, int64, error)
	GetTask(ctx context.Context, id int64) (*domain.TaskView, error)
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, id int64, changes domain.TaskChanges) (*domain.TaskView, error)

	ListApprovals(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.ApprovalRequest, int64, error)
	GetApproval(ctx context.Context, id int64) (*domain.ApprovalRequest, error)
	CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error
	UpdateApproval(ctx context.Context, id int64, changes domain.ApprovalChanges) (*domain.ApprovalRequest, error)

	// TransitionApproval applies a status transition and appends its
	// comment record in a single transaction.
	TransitionApproval(ctx context.Context, id int64, target domain.ApprovalStatus, actorID, comment string) (*domain.ApprovalRequest, error)
	ListApprovalComments(ctx context.Context, approvalID int64) ([]*domain.ApprovalComment, error)

	ListMessages(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Message, int64, error)
	GetMessage(ctx context.Context, id int64) (*domain.Message, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error

	// Delete removes a record by kind and ID. Authorization (admin-only)
	// is the permission evaluator's concern, not the store's.
	Delete(ctx context.Context, kind domain.EntityKind, id int64) error
}
