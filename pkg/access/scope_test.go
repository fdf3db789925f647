package access_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlane/agencyhub/pkg/access"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/storage"
	"github.com/brightlane/agencyhub/pkg/storage/storagetest"
)

var allKinds = []domain.EntityKind{
	domain.EntityClient,
	domain.EntityCampaign,
	domain.EntityTask,
	domain.EntityApproval,
	domain.EntityMessage,
}

func TestAdminScopeIsUniversal(t *testing.T) {
	admin := identity.ResolvedIdentity{Kind: identity.KindAdmin, PrincipalID: "admin-1", Email: "whatever@x.com"}
	for _, kind := range allKinds {
		pred, err := access.ScopeFor(admin, kind)
		require.NoError(t, err)
		assert.True(t, pred.IsAll(), "kind %s", kind)
	}
}

func TestUnboundScopeIsEmpty(t *testing.T) {
	unbound := identity.ResolvedIdentity{Kind: identity.KindUnbound, PrincipalID: "ghost"}
	for _, kind := range allKinds {
		pred, err := access.ScopeFor(unbound, kind)
		require.NoError(t, err)
		assert.True(t, pred.IsNone(), "kind %s", kind)
	}
}

func TestUnknownEntityKind(t *testing.T) {
	admin := identity.ResolvedIdentity{Kind: identity.KindAdmin}
	_, err := access.ScopeFor(admin, domain.EntityKind("invoice"))
	assert.Error(t, err)
}

func TestTeamMemberApprovalScopeIsEmpty(t *testing.T) {
	member := identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-1", TeamMemberID: 3}
	pred, err := access.ScopeFor(member, domain.EntityApproval)
	require.NoError(t, err)
	assert.True(t, pred.IsNone())
}

func TestTeamMemberClientScopeIsEmpty(t *testing.T) {
	member := identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-1", TeamMemberID: 3}
	pred, err := access.ScopeFor(member, domain.EntityClient)
	require.NoError(t, err)
	assert.True(t, pred.IsNone())
}

// TestTeamMemberTaskVisibilityMatrix exercises every combination of the
// four relationships that can admit a task into a team member's scope.
// The task is visible iff at least one relationship holds.
func TestTeamMemberTaskVisibilityMatrix(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		isCreator := mask&1 != 0
		isAssignee := mask&2 != 0
		isCampaignCreator := mask&4 != 0
		isCampaignMember := mask&8 != 0

		name := fmt.Sprintf("creator=%v assignee=%v campaignCreator=%v campaignMember=%v",
			isCreator, isAssignee, isCampaignCreator, isCampaignMember)
		t.Run(name, func(t *testing.T) {
			s := storagetest.NewStore(t)
			ctx := context.Background()

			client := storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
			member := storagetest.MustCreateTeamMember(t, s, "Bob", "bob@agency.com", "")
			ident := identity.ResolvedIdentity{
				Kind:         identity.KindTeamMember,
				PrincipalID:  "user-bob",
				Email:        "bob@agency.com",
				TeamMemberID: member.ID,
			}

			campaignCreator := "someone-else"
			if isCampaignCreator {
				campaignCreator = ident.PrincipalID
			}
			campaign := storagetest.MustCreateCampaign(t, s, client.ID, "Launch", campaignCreator)

			if isCampaignMember {
				storagetest.MustAssign(t, s, campaign.ID, domain.CampaignAssignment{
					CampaignID: campaign.ID, UserID: ident.PrincipalID, Role: domain.AssignmentViewer,
				})
			}

			task := &domain.Task{CampaignID: campaign.ID, Title: "Work", CreatedByID: "someone-else"}
			if isCreator {
				task.CreatedByID = ident.PrincipalID
			}
			if isAssignee {
				task.AssignedToTeamMemberID = &member.ID
			}
			storagetest.MustCreateTask(t, s, task)

			pred, err := access.ScopeFor(ident, domain.EntityTask)
			require.NoError(t, err)
			visible, err := s.MatchesScope(ctx, domain.EntityTask, task.ID, pred)
			require.NoError(t, err)

			want := isCreator || isAssignee || isCampaignCreator || isCampaignMember
			assert.Equal(t, want, visible)
		})
	}
}

func TestLegacyUserAssignmentAdmitsTask(t *testing.T) {
	s := storagetest.NewStore(t)
	ctx := context.Background()

	client := storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
	campaign := storagetest.MustCreateCampaign(t, s, client.ID, "Launch", "admin-1")
	legacyUser := "user-bob"
	task := storagetest.MustCreateTask(t, s, &domain.Task{
		CampaignID:   campaign.ID,
		Title:        "Work",
		AssignedToID: &legacyUser,
		CreatedByID:  "admin-1",
	})

	ident := identity.ResolvedIdentity{
		Kind:         identity.KindTeamMember,
		PrincipalID:  "user-bob",
		TeamMemberID: 1,
	}
	pred, err := access.ScopeFor(ident, domain.EntityTask)
	require.NoError(t, err)
	visible, err := s.MatchesScope(ctx, domain.EntityTask, task.ID, pred)
	require.NoError(t, err)
	assert.True(t, visible)
}

// A task carries one effective assignment: once a team member is
// assigned, the legacy user assignment stops driving visibility for both
// the task and its campaign.
func TestTeamMemberAssignmentSupersedesLegacy(t *testing.T) {
	s := storagetest.NewStore(t)
	ctx := context.Background()

	client := storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
	campaign := storagetest.MustCreateCampaign(t, s, client.ID, "Launch", "admin-1")
	assigned := storagetest.MustCreateTeamMember(t, s, "Dana", "dana@agency.com", "")
	legacyUser := "user-bob"
	task := storagetest.MustCreateTask(t, s, &domain.Task{
		CampaignID:             campaign.ID,
		Title:                  "Work",
		AssignedToTeamMemberID: &assigned.ID,
		AssignedToID:           &legacyUser,
		CreatedByID:            "admin-1",
	})

	legacy := identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-bob", TeamMemberID: 99}
	pred, err := access.ScopeFor(legacy, domain.EntityTask)
	require.NoError(t, err)
	visible, err := s.MatchesScope(ctx, domain.EntityTask, task.ID, pred)
	require.NoError(t, err)
	assert.False(t, visible, "legacy assignment must not drive visibility once a team member is assigned")

	pred, err = access.ScopeFor(legacy, domain.EntityCampaign)
	require.NoError(t, err)
	visible, err = s.MatchesScope(ctx, domain.EntityCampaign, campaign.ID, pred)
	require.NoError(t, err)
	assert.False(t, visible, "the superseded assignment must not admit the campaign either")

	danaIdent := identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-dana", TeamMemberID: assigned.ID}
	pred, err = access.ScopeFor(danaIdent, domain.EntityTask)
	require.NoError(t, err)
	visible, err = s.MatchesScope(ctx, domain.EntityTask, task.ID, pred)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestClientScopeComposesWithFilters(t *testing.T) {
	s := storagetest.NewStore(t)
	ctx := context.Background()

	acme := storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
	beta := storagetest.MustCreateClient(t, s, "Beta", "beta@y.com")
	own := storagetest.MustCreateCampaign(t, s, acme.ID, "Spring Launch", "admin-1")
	storagetest.MustCreateCampaign(t, s, acme.ID, "Fall Push", "admin-1")
	storagetest.MustCreateCampaign(t, s, beta.ID, "Spring Launch", "admin-1")

	ident := identity.ResolvedIdentity{Kind: identity.KindClient, PrincipalID: "client-acme", Email: "acme@x.com", ClientID: acme.ID}
	pred, err := access.ScopeFor(ident, domain.EntityCampaign)
	require.NoError(t, err)

	// The search filter ANDs with the scope: beta's identically named
	// campaign stays invisible and the total reflects only visible rows.
	campaigns, total, err := s.ListCampaigns(ctx, pred, storage.ListOptions{Search: "spring"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, campaigns, 1)
	assert.Equal(t, own.ID, campaigns[0].ID)
}
