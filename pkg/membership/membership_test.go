package membership_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/storage/storagetest"
)

func TestCampaignRole(t *testing.T) {
	s := storagetest.NewStore(t)
	m := membership.NewStore(s)
	ctx := context.Background()

	acme := storagetest.MustCreateClient(t, s, "Acme Corp", "contact@acme.com")
	camp := storagetest.MustCreateCampaign(t, s, acme.ID, "Spring Launch", "admin-1")
	storagetest.MustAssign(t, s, camp.ID,
		domain.CampaignAssignment{CampaignID: camp.ID, UserID: "user-a", Role: domain.AssignmentViewer},
		domain.CampaignAssignment{CampaignID: camp.ID, UserID: "user-b", Role: domain.AssignmentEditor},
	)

	t.Run("AssignedUser", func(t *testing.T) {
		role, ok, err := m.CampaignRole(ctx, camp.ID, "user-b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.AssignmentEditor, role)
	})

	t.Run("UnassignedUser", func(t *testing.T) {
		_, ok, err := m.CampaignRole(ctx, camp.ID, "user-z")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIsCampaignEditor(t *testing.T) {
	s := storagetest.NewStore(t)
	m := membership.NewStore(s)
	ctx := context.Background()

	acme := storagetest.MustCreateClient(t, s, "Acme Corp", "contact@acme.com")
	camp := storagetest.MustCreateCampaign(t, s, acme.ID, "Spring Launch", "admin-1")
	storagetest.MustAssign(t, s, camp.ID,
		domain.CampaignAssignment{CampaignID: camp.ID, UserID: "viewer-1", Role: domain.AssignmentViewer},
		domain.CampaignAssignment{CampaignID: camp.ID, UserID: "editor-1", Role: domain.AssignmentEditor},
	)

	editor, err := m.IsCampaignEditor(ctx, camp.ID, "editor-1")
	require.NoError(t, err)
	assert.True(t, editor)

	viewer, err := m.IsCampaignEditor(ctx, camp.ID, "viewer-1")
	require.NoError(t, err)
	assert.False(t, viewer, "viewer role must not grant editor rights")

	none, err := m.IsCampaignEditor(ctx, camp.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, none)
}

func TestIsTaskAssignee(t *testing.T) {
	memberID := int64(4)
	otherID := int64(9)
	legacyUser := "user-42"

	member := identity.ResolvedIdentity{
		Kind:         identity.KindTeamMember,
		PrincipalID:  "user-42",
		TeamMemberID: memberID,
	}

	t.Run("TeamMemberAssignment", func(t *testing.T) {
		task := &domain.Task{AssignedToTeamMemberID: &memberID}
		assert.True(t, membership.IsTaskAssignee(task, member))
	})

	t.Run("OtherTeamMemberAssigned", func(t *testing.T) {
		task := &domain.Task{AssignedToTeamMemberID: &otherID}
		assert.False(t, membership.IsTaskAssignee(task, member))
	})

	t.Run("TeamMemberAssignmentShadowsLegacy", func(t *testing.T) {
		// Both set: the legacy user match must not count.
		task := &domain.Task{AssignedToTeamMemberID: &otherID, AssignedToID: &legacyUser}
		assert.False(t, membership.IsTaskAssignee(task, member))
	})

	t.Run("LegacyUserAssignment", func(t *testing.T) {
		task := &domain.Task{AssignedToID: &legacyUser}
		assert.True(t, membership.IsTaskAssignee(task, member))
	})

	t.Run("Unassigned", func(t *testing.T) {
		assert.False(t, membership.IsTaskAssignee(&domain.Task{}, member))
	})
}
