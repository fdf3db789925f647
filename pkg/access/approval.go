package access

import (
	"context"
	"fmt"
	"time"

	"github.com/brightlane/agencyhub/pkg/async"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/notify"
	"github.com/brightlane/agencyhub/pkg/observability"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// ErrInvalidTransitionTarget is returned when the requested target is not
// a reachable approval state.
var ErrInvalidTransitionTarget = fmt.Errorf("invalid approval transition target")

// Guard owns the approval state machine. Transitions are client-side
// actions: only the client owning the request's campaign may perform one,
// and admins are excluded even though they edit request content.
//
// Any of approved, rejected or changes_requested may be re-entered from
// any other state, so the guard validates the target, not the edge.
type Guard struct {
	store    storage.Store
	notifier notify.Queue
	logger   *observability.Logger
}

// NewGuard creates a transition guard. The notifier may be nil, in which
// case transitions complete without emitting notifications.
func NewGuard(store storage.Store, notifier notify.Queue, logger *observability.Logger) *Guard {
	return &Guard{store: store, notifier: notifier, logger: logger}
}

// Authorize decides whether the identity may transition the request.
// Ownership is checked with the same scope predicate that backs the
// client's approval listings.
func (g *Guard) Authorize(ctx context.Context, ident identity.ResolvedIdentity, requestID int64) (Decision, error) {
	switch ident.Kind {
	case identity.KindAdmin:
		return DenyWith(ReasonAdminTransition), nil
	case identity.KindUnbound:
		return DenyWith(ReasonUnbound), nil
	case identity.KindTeamMember:
		return DenyWith(ReasonNotOwner), nil
	}

	pred, err := ScopeFor(ident, domain.EntityApproval)
	if err != nil {
		return Decision{}, err
	}
	owns, err := g.store.MatchesScope(ctx, domain.EntityApproval, requestID, pred)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check approval ownership: %w", err)
	}
	if !owns {
		return DenyWith(ReasonNotOwner), nil
	}
	return Allow(), nil
}

// Transition applies a status transition on behalf of the identity. The
// status change and its comment record land in one transaction; the admin
// notification is fired afterwards and its failure never rolls anything
// back.
func (g *Guard) Transition(ctx context.Context, ident identity.ResolvedIdentity, requestID int64, target domain.ApprovalStatus, comment string) (*domain.ApprovalRequest, Decision, error) {
	if !target.Valid() || target == domain.ApprovalPending {
		return nil, Decision{}, ErrInvalidTransitionTarget
	}

	decision, err := g.Authorize(ctx, ident, requestID)
	if err != nil {
		return nil, Decision{}, err
	}
	if !decision.Allowed {
		return nil, decision, nil
	}

	updated, err := g.store.TransitionApproval(ctx, requestID, target, ident.PrincipalID, comment)
	if err != nil {
		return nil, Decision{}, err
	}

	g.notifyAdmins(ctx, ident, updated, comment)

	return updated, Allow(), nil
}

func (g *Guard) notifyAdmins(ctx context.Context, ident identity.ResolvedIdentity, req *domain.ApprovalRequest, comment string) {
	if g.notifier == nil {
		return
	}

	n := notify.Notification{
		Subject:    fmt.Sprintf("Approval %q is now %s", req.Title, req.Status),
		Body:       comment,
		SenderID:   ident.PrincipalID,
		Recipient:  notify.RecipientAdmins,
		EntityKind: domain.EntityApproval,
		EntityID:   req.ID,
	}

	async.SafeGo(context.WithoutCancel(ctx), 10*time.Second, "approval notification", g.logger, func(ctx context.Context) error {
		return g.notifier.Enqueue(ctx, &n)
	})
}
