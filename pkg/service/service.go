// Package service is the caller-facing contract of the access control
// core. Presentation layers hand it a resolved identity and get back
// exactly the records that identity may see, with fields redacted and
// change sets narrowed per the field policy. Every deny is audited.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/brightlane/agencyhub/pkg/access"
	"github.com/brightlane/agencyhub/pkg/audit"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/observability"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// Service wires the access control core together for callers.
type Service struct {
	store     storage.Store
	members   *membership.Store
	evaluator *access.Evaluator
	guard     *access.Guard
	auditor   audit.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAuditor sets the audit sink. Defaults to a no-op sink.
func WithAuditor(a audit.Logger) Option {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics sets the metrics registry hooks.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over the given collaborators.
func New(store storage.Store, members *membership.Store, evaluator *access.Evaluator, guard *access.Guard, opts ...Option) *Service {
	s := &Service{
		store:     store,
		members:   members,
		evaluator: evaluator,
		guard:     guard,
		auditor:   audit.NopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordDecision emits the metrics and, on deny, the audit trail for one
// permission decision. Audit failures are logged, never propagated.
func (s *Service) recordDecision(ctx context.Context, ident identity.ResolvedIdentity, kind domain.EntityKind, id int64, action string, d access.Decision) {
	if s.metrics != nil {
		s.metrics.RecordAccessDecision(string(kind), action, d.Allowed, d.Reason)
	}
	if d.Allowed {
		return
	}

	event := audit.NewEvent(audit.EventTypeAccessDenied, audit.EventStatusDenied)
	event.PrincipalID = ident.PrincipalID
	event.IdentityKind = string(ident.Kind)
	event.EntityKind = string(kind)
	event.EntityID = id
	event.Action = action
	event.Reason = d.Reason
	event.RequestID = observability.GetRequestID(ctx)
	if err := s.auditor.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to record audit event")
	}
}

func (s *Service) auditMutation(ctx context.Context, ident identity.ResolvedIdentity, eventType audit.EventType, kind domain.EntityKind, id int64, action string) {
	event := audit.NewEvent(eventType, audit.EventStatusSuccess)
	event.PrincipalID = ident.PrincipalID
	event.IdentityKind = string(ident.Kind)
	event.EntityKind = string(kind)
	event.EntityID = id
	event.Action = action
	event.RequestID = observability.GetRequestID(ctx)
	if err := s.auditor.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to record audit event")
	}
}

// scope builds the list predicate for the identity, treating unbound
// identities as an empty scope rather than an error.
func scope(ident identity.ResolvedIdentity, kind domain.EntityKind) (storage.Predicate, error) {
	pred, err := access.ScopeFor(ident, kind)
	if err != nil {
		return storage.None(), fmt.Errorf("%w: %s", ErrValidation, kind)
	}
	return pred, nil
}

// ListClients lists the clients visible to the identity.
func (s *Service) ListClients(ctx context.Context, ident identity.ResolvedIdentity, opts storage.ListOptions) ([]*domain.Client, int64, error) {
	pred, err := scope(ident, domain.EntityClient)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListClients(ctx, pred, opts)
}

// ListCampaigns lists the campaigns visible to the identity.
func (s *Service) ListCampaigns(ctx context.Context, ident identity.ResolvedIdentity, opts storage.ListOptions) ([]*domain.Campaign, int64, error) {
	pred, err := scope(ident, domain.EntityCampaign)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListCampaigns(ctx, pred, opts)
}

// ListTasks lists the tasks visible to the identity, redacted for client
// readers.
func (s *Service) ListTasks(ctx context.Context, ident identity.ResolvedIdentity, opts storage.ListOptions) ([]*domain.TaskView, int64, error) {
	pred, err := scope(ident, domain.EntityTask)
	if err != nil {
		return nil, 0, err
	}
	tasks, total, err := s.store.ListTasks(ctx, pred, opts)
	if err != nil {
		return nil, 0, err
	}
	return access.RedactTasksForRead(ident, tasks), total, nil
}

// ListApprovals lists the approval requests visible to the identity.
func (s *Service) ListApprovals(ctx context.Context, ident identity.ResolvedIdentity, opts storage.ListOptions) ([]*domain.ApprovalRequest, int64, error) {
	pred, err := scope(ident, domain.EntityApproval)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListApprovals(ctx, pred, opts)
}

// ListMessages lists the messages visible to the identity.
func (s *Service) ListMessages(ctx context.Context, ident identity.ResolvedIdentity, opts storage.ListOptions) ([]*domain.Message, int64, error) {
	pred, err := scope(ident, domain.EntityMessage)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListMessages(ctx, pred, opts)
}

// checkView runs the view decision and maps a deny onto ErrNotFound.
func (s *Service) checkView(ctx context.Context, ident identity.ResolvedIdentity, kind domain.EntityKind, id int64) error {
	ctx, span := observability.Tracer("agencyhub/service").Start(ctx, "access.check_view")
	span.SetAttributes(attribute.String("entity", string(kind)), attribute.String("identity_kind", string(ident.Kind)))
	defer span.End()

	start := time.Now()
	decision, err := s.evaluator.CanView(ctx, ident, kind, id)
	if s.metrics != nil {
		s.metrics.ScopeCheckDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return err
	}
	s.recordDecision(ctx, ident, kind, id, "view", decision)
	if !decision.Allowed {
		return ErrNotFound
	}
	return nil
}

// GetClient fetches one client if visible.
func (s *Service) GetClient(ctx context.Context, ident identity.ResolvedIdentity, id int64) (*domain.Client, error) {
	if err := s.checkView(ctx, ident, domain.EntityClient, id); err != nil {
		return nil, err
	}
	return s.getClient(ctx, id)
}

func (s *Service) getClient(ctx context.Context, id int64) (*domain.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

// GetCampaign fetches one campaign if visible.
func (s *Service) GetCampaign(ctx context.Context, ident identity.ResolvedIdentity, id int64) (*domain.Campaign, error) {
	if err := s.checkView(ctx, ident, domain.EntityCampaign, id); err != nil {
		return nil, err
	}
	c, err := s.store.GetCampaign(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

// GetTask fetches one task if visible, redacted for client readers.
func (s *Service) GetTask(ctx context.Context, ident identity.ResolvedIdentity, id int64) (*domain.TaskView, error) {
	if err := s.checkView(ctx, ident, domain.EntityTask, id); err != nil {
		return nil, err
	}
	view, err := s.store.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return access.RedactTaskForRead(ident, view), nil
}

// GetApproval fetches one approval request if visible.
func (s *Service) GetApproval(ctx context.Context, ident identity.ResolvedIdentity, id int64) (*domain.ApprovalRequest, error) {
	if err := s.checkView(ctx, ident, domain.EntityApproval, id); err != nil {
		return nil, err
	}
	a, err := s.store.GetApproval(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetMessage fetches one message if visible.
func (s *Service) GetMessage(ctx context.Context, ident identity.ResolvedIdentity, id int64) (*domain.Message, error) {
	if err := s.checkView(ctx, ident, domain.EntityMessage, id); err != nil {
		return nil, err
	}
	m, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return m, err
}

// UpdateTask applies a change set to a task on behalf of the identity.
// The requested changes are narrowed to the writer's level before they
// touch storage; a first transition to completed stamps the completion
// timestamp exactly once.
func (s *Service) UpdateTask(ctx context.Context, ident identity.ResolvedIdentity, id int64, changes domain.TaskChanges) (*domain.TaskView, error) {
	view, err := s.store.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	task := &view.Task

	decision, level, err := s.evaluator.CanUpdateTask(ctx, ident, task)
	if err != nil {
		return nil, err
	}
	s.recordDecision(ctx, ident, domain.EntityTask, id, "update", decision)
	if !decision.Allowed {
		return nil, ErrNotFound
	}

	if changes.Status != nil && !validTaskStatus(*changes.Status) {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrValidation, *changes.Status)
	}

	applied := access.FilterTaskChanges(level, changes)
	access.StampCompletion(task, &applied, s.now)
	if applied.IsEmpty() && applied.CompletedAt == nil {
		return access.RedactTaskForRead(ident, view), nil
	}

	updated, err := s.store.UpdateTask(ctx, id, applied)
	if err != nil {
		return nil, err
	}
	s.auditMutation(ctx, ident, audit.EventTypeRecordUpdate, domain.EntityTask, id, "update")
	return access.RedactTaskForRead(ident, updated), nil
}

func validTaskStatus(st domain.TaskStatus) bool {
	switch st {
	case domain.TaskStatusTodo, domain.TaskStatusInProgress, domain.TaskStatusCompleted:
		return true
	}
	return false
}

// UpdateCampaign applies a change set to a campaign on behalf of the
// identity.
func (s *Service) UpdateCampaign(ctx context.Context, ident identity.ResolvedIdentity, id int64, changes domain.CampaignChanges) (*domain.Campaign, error) {
	campaign, err := s.store.GetCampaign(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	decision, err := s.evaluator.CanUpdateCampaign(ctx, ident, campaign)
	if err != nil {
		return nil, err
	}
	s.recordDecision(ctx, ident, domain.EntityCampaign, id, "update", decision)
	if !decision.Allowed {
		return nil, ErrNotFound
	}

	updated, err := s.store.UpdateCampaign(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	s.auditMutation(ctx, ident, audit.EventTypeRecordUpdate, domain.EntityCampaign, id, "update")
	return updated, nil
}

// SetCampaignAssignments replaces a campaign's assignment set. Admin only,
// like every other assignment mutation.
func (s *Service) SetCampaignAssignments(ctx context.Context, ident identity.ResolvedIdentity, campaignID int64, assignments []domain.CampaignAssignment) error {
	if !ident.IsAdmin() {
		s.recordDecision(ctx, ident, domain.EntityCampaign, campaignID, "assign", access.DenyWith(access.ReasonAdminOnly))
		return ErrNotFound
	}
	s.recordDecision(ctx, ident, domain.EntityCampaign, campaignID, "assign", access.Allow())

	if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	for _, a := range assignments {
		if a.Role != domain.AssignmentViewer && a.Role != domain.AssignmentEditor {
			return fmt.Errorf("%w: unknown assignment role %q", ErrValidation, a.Role)
		}
	}
	if err := s.store.SetCampaignAssignments(ctx, campaignID, assignments); err != nil {
		return err
	}
	s.auditMutation(ctx, ident, audit.EventTypeRecordUpdate, domain.EntityCampaign, campaignID, "assign")
	return nil
}

// Delete removes a record. Admin only across every entity kind.
func (s *Service) Delete(ctx context.Context, ident identity.ResolvedIdentity, kind domain.EntityKind, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown entity kind %q", ErrValidation, kind)
	}

	decision, err := s.evaluator.CanDelete(ctx, ident, kind, id)
	if err != nil {
		return err
	}
	s.recordDecision(ctx, ident, kind, id, "delete", decision)
	if !decision.Allowed {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.auditMutation(ctx, ident, audit.EventTypeRecordDelete, kind, id, "delete")
	return nil
}

// UpdateApproval edits an approval request's content fields. Content
// edits are admin-only; clients act on a request exclusively through
// status transitions.
func (s *Service) UpdateApproval(ctx context.Context, ident identity.ResolvedIdentity, id int64, changes domain.ApprovalChanges) (*domain.ApprovalRequest, error) {
	decision := s.evaluator.CanEditApprovalContent(ident)
	s.recordDecision(ctx, ident, domain.EntityApproval, id, "update", decision)
	if !decision.Allowed {
		return nil, ErrNotFound
	}

	updated, err := s.store.UpdateApproval(ctx, id, changes)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.auditMutation(ctx, ident, audit.EventTypeRecordUpdate, domain.EntityApproval, id, "update")
	return updated, nil
}

// TransitionApproval performs a client-side approval transition. Unlike
// reads and updates, a denial here is explicit: the caller necessarily
// obtained the request ID from their own approval list.
func (s *Service) TransitionApproval(ctx context.Context, ident identity.ResolvedIdentity, id int64, target domain.ApprovalStatus, comment string) (*domain.ApprovalRequest, error) {
	updated, decision, err := s.guard.Transition(ctx, ident, id, target, comment)
	if errors.Is(err, access.ErrInvalidTransitionTarget) {
		return nil, fmt.Errorf("%w: invalid transition target %q", ErrValidation, target)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.recordDecision(ctx, ident, domain.EntityApproval, id, "transition", decision)
	if !decision.Allowed {
		return nil, ErrDenied
	}

	if s.metrics != nil {
		s.metrics.ApprovalTransitionsTotal.WithLabelValues(string(target)).Inc()
	}
	s.auditMutation(ctx, ident, audit.EventTypeApprovalTransition, domain.EntityApproval, id, string(target))
	return updated, nil
}

// ApprovalComments lists the immutable transition trail of a request the
// identity can see.
func (s *Service) ApprovalComments(ctx context.Context, ident identity.ResolvedIdentity, approvalID int64) ([]*domain.ApprovalComment, error) {
	if err := s.checkView(ctx, ident, domain.EntityApproval, approvalID); err != nil {
		return nil, err
	}
	return s.store.ListApprovalComments(ctx, approvalID)
}
