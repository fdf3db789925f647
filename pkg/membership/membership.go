// Package membership answers role and assignment questions about a single
// user on a single record. It is consulted by the permission evaluator on
// writes; list visibility never goes through it.
package membership

import (
	"context"
	"fmt"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// Store resolves campaign assignments and task assignee relationships.
// Every call hits the database; membership is never cached across requests.
type Store struct {
	store storage.Store
}

// NewStore creates a membership store over the persistence layer.
func NewStore(s storage.Store) *Store {
	return &Store{store: s}
}

// CampaignRole returns the role the user holds on the campaign, if any.
func (m *Store) CampaignRole(ctx context.Context, campaignID int64, userID string) (domain.AssignmentRole, bool, error) {
	assignments, err := m.store.ListCampaignAssignments(ctx, campaignID)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve campaign role: %w", err)
	}
	for _, a := range assignments {
		if a.UserID == userID {
			return a.Role, true, nil
		}
	}
	return "", false, nil
}

// IsCampaignEditor reports whether the user holds the editor role on the
// campaign. Viewers are not editors.
func (m *Store) IsCampaignEditor(ctx context.Context, campaignID int64, userID string) (bool, error) {
	role, ok, err := m.CampaignRole(ctx, campaignID, userID)
	if err != nil {
		return false, err
	}
	return ok && role == domain.AssignmentEditor, nil
}

// IsTaskAssignee reports whether the identity is the task's effective
// assignee. The team-member assignment takes precedence; the legacy user
// assignment only counts when no team member is assigned.
func IsTaskAssignee(task *domain.Task, ident identity.ResolvedIdentity) bool {
	if task.AssignedToTeamMemberID != nil {
		return ident.Kind == identity.KindTeamMember &&
			ident.TeamMemberID == *task.AssignedToTeamMemberID
	}
	if task.AssignedToID != nil {
		return ident.PrincipalID != "" && ident.PrincipalID == *task.AssignedToID
	}
	return false
}
