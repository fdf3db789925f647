package access

import (
	"fmt"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// ScopeFor builds the visibility predicate for one identity over one entity
// kind. The same predicate backs both list queries and single-record checks,
// so detail visibility can never drift from list visibility.
//
// Admins see everything; unbound identities see nothing. Everything else is
// derived from the identity's relationship to the record: ownership for
// clients, creation, assignment or task involvement for team members.
func ScopeFor(ident identity.ResolvedIdentity, kind domain.EntityKind) (storage.Predicate, error) {
	if !kind.Valid() {
		return storage.None(), fmt.Errorf("unknown entity kind: %s", kind)
	}

	if ident.IsAdmin() {
		return storage.All(), nil
	}
	if ident.IsUnbound() {
		return storage.None(), nil
	}

	switch ident.Kind {
	case identity.KindClient:
		return clientScope(ident, kind), nil
	case identity.KindTeamMember:
		return teamMemberScope(ident, kind), nil
	}
	return storage.None(), nil
}

// ownCampaigns is the subquery selecting the campaigns of the client's own
// account, matched by normalized email.
const ownCampaigns = "SELECT id FROM campaigns WHERE client_id IN (SELECT id FROM clients WHERE LOWER(email) = ?)"

func clientScope(ident identity.ResolvedIdentity, kind domain.EntityKind) storage.Predicate {
	switch kind {
	case domain.EntityClient:
		// A client sees only its own account record.
		return storage.Where("LOWER(email) = ?", ident.Email)

	case domain.EntityCampaign:
		return storage.Where(
			"client_id IN (SELECT id FROM clients WHERE LOWER(email) = ?)",
			ident.Email,
		)

	case domain.EntityTask:
		return storage.Where("campaign_id IN ("+ownCampaigns+")", ident.Email)

	case domain.EntityApproval:
		return storage.Where("campaign_id IN ("+ownCampaigns+")", ident.Email)

	case domain.EntityMessage:
		// Top-level threads the client participates in. Replies are
		// fetched through their thread, never listed directly.
		return storage.Where(
			"parent_id IS NULL AND (sender_id = ? OR recipient_id = ?)",
			ident.PrincipalID, ident.PrincipalID,
		)
	}
	return storage.None()
}

func teamMemberScope(ident identity.ResolvedIdentity, kind domain.EntityKind) storage.Predicate {
	uid := ident.PrincipalID

	switch kind {
	case domain.EntityClient:
		// Client account records are an admin surface. Members work with
		// client data only through the campaigns they are involved in.
		return storage.None()

	case domain.EntityCampaign:
		return storage.Where(
			`created_by_id = ?
				OR id IN (SELECT campaign_id FROM campaign_assignments WHERE user_id = ?)
				OR id IN (SELECT campaign_id FROM tasks WHERE assigned_to_team_member_id = ?
					OR (assigned_to_team_member_id IS NULL AND assigned_to_id = ?))`,
			uid, uid, ident.TeamMemberID, uid,
		)

	case domain.EntityTask:
		// The legacy user assignment counts only while no team member is
		// assigned; the team-member assignment supersedes it entirely.
		return storage.Where(
			`created_by_id = ?
				OR assigned_to_team_member_id = ?
				OR (assigned_to_team_member_id IS NULL AND assigned_to_id = ?)
				OR campaign_id IN (SELECT id FROM campaigns WHERE created_by_id = ?)
				OR campaign_id IN (SELECT campaign_id FROM campaign_assignments WHERE user_id = ?)`,
			uid, ident.TeamMemberID, uid, uid, uid,
		)

	case domain.EntityApproval:
		// Approvals are a client-facing surface. Team members never see
		// them; admins handle the agency side.
		return storage.None()

	case domain.EntityMessage:
		// Own top-level threads, plus replies addressed to the member.
		return storage.Where(
			`(parent_id IS NULL AND (sender_id = ? OR recipient_id = ?))
				OR (parent_id IS NOT NULL AND recipient_id = ?)`,
			uid, uid, uid,
		)
	}
	return storage.None()
}
