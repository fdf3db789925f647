package access

import (
	"context"
	"fmt"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// TaskWriteLevel describes how much of a task an authorized writer may
// change. The field policy narrows the change set accordingly.
type TaskWriteLevel int

const (
	// TaskWriteNone means the identity may not write the task at all.
	TaskWriteNone TaskWriteLevel = iota
	// TaskWriteAssignee is the narrowed level granted to the task's
	// assignee: status and notes only.
	TaskWriteAssignee
	// TaskWriteFull is the level granted to admins, task creators,
	// campaign creators and campaign editors.
	TaskWriteFull
)

// Evaluator rules on single-record actions. View checks reuse the exact
// scope predicate that backs list queries, evaluated against one record,
// so the two surfaces cannot disagree.
type Evaluator struct {
	store   storage.Store
	members *membership.Store
}

// NewEvaluator creates an evaluator over the persistence and membership
// layers.
func NewEvaluator(store storage.Store, members *membership.Store) *Evaluator {
	return &Evaluator{store: store, members: members}
}

// CanView decides whether the identity may fetch the record.
func (e *Evaluator) CanView(ctx context.Context, ident identity.ResolvedIdentity, kind domain.EntityKind, id int64) (Decision, error) {
	if ident.IsUnbound() {
		return DenyWith(ReasonUnbound), nil
	}

	pred, err := ScopeFor(ident, kind)
	if err != nil {
		return DenyWith(ReasonUnknownEntity), err
	}
	ok, err := e.store.MatchesScope(ctx, kind, id, pred)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check view scope: %w", err)
	}
	if !ok {
		return DenyWith(ReasonOutOfScope), nil
	}
	return Allow(), nil
}

// CanUpdateCampaign decides whether the identity may update the campaign.
// Visibility alone is not enough: clients and viewer-role assignees read
// but never write; editors and the creator write; admins always write.
func (e *Evaluator) CanUpdateCampaign(ctx context.Context, ident identity.ResolvedIdentity, campaign *domain.Campaign) (Decision, error) {
	switch ident.Kind {
	case identity.KindAdmin:
		return Allow(), nil
	case identity.KindUnbound:
		return DenyWith(ReasonUnbound), nil
	case identity.KindClient:
		return DenyWith(ReasonReadOnly), nil
	}

	view, err := e.CanView(ctx, ident, domain.EntityCampaign, campaign.ID)
	if err != nil || !view.Allowed {
		return view, err
	}

	if campaign.CreatedByID == ident.PrincipalID {
		return Allow(), nil
	}
	editor, err := e.members.IsCampaignEditor(ctx, campaign.ID, ident.PrincipalID)
	if err != nil {
		return Decision{}, err
	}
	if editor {
		return Allow(), nil
	}
	return DenyWith(ReasonViewerAssignment), nil
}

// CanUpdateTask decides whether the identity may update the task and at
// which write level. Assignees get the narrowed level unless they also
// qualify for full access through creation or campaign role.
func (e *Evaluator) CanUpdateTask(ctx context.Context, ident identity.ResolvedIdentity, task *domain.Task) (Decision, TaskWriteLevel, error) {
	switch ident.Kind {
	case identity.KindAdmin:
		return Allow(), TaskWriteFull, nil
	case identity.KindUnbound:
		return DenyWith(ReasonUnbound), TaskWriteNone, nil
	case identity.KindClient:
		return DenyWith(ReasonReadOnly), TaskWriteNone, nil
	}

	view, err := e.CanView(ctx, ident, domain.EntityTask, task.ID)
	if err != nil || !view.Allowed {
		return view, TaskWriteNone, err
	}

	if task.CreatedByID == ident.PrincipalID {
		return Allow(), TaskWriteFull, nil
	}

	campaign, err := e.store.GetCampaign(ctx, task.CampaignID)
	if err != nil {
		return Decision{}, TaskWriteNone, fmt.Errorf("failed to load task campaign: %w", err)
	}
	if campaign.CreatedByID == ident.PrincipalID {
		return Allow(), TaskWriteFull, nil
	}
	editor, err := e.members.IsCampaignEditor(ctx, campaign.ID, ident.PrincipalID)
	if err != nil {
		return Decision{}, TaskWriteNone, err
	}
	if editor {
		return Allow(), TaskWriteFull, nil
	}

	if membership.IsTaskAssignee(task, ident) {
		return Allow(), TaskWriteAssignee, nil
	}

	return DenyWith(ReasonViewerAssignment), TaskWriteNone, nil
}

// CanDelete decides whether the identity may delete the record. Deletion
// is admin-only across every entity kind; there is no non-admin delete
// path in this system.
func (e *Evaluator) CanDelete(ctx context.Context, ident identity.ResolvedIdentity, kind domain.EntityKind, id int64) (Decision, error) {
	if ident.IsAdmin() {
		return Allow(), nil
	}
	if ident.IsUnbound() {
		return DenyWith(ReasonUnbound), nil
	}
	return DenyWith(ReasonAdminOnly), nil
}

// CanEditApprovalContent decides whether the identity may edit an approval
// request's content fields. Only admins edit content; clients act on a
// request exclusively through status transitions.
func (e *Evaluator) CanEditApprovalContent(ident identity.ResolvedIdentity) Decision {
	if ident.IsAdmin() {
		return Allow()
	}
	if ident.IsUnbound() {
		return DenyWith(ReasonUnbound)
	}
	return DenyWith(ReasonAdminOnly)
}
