package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlane/agencyhub/pkg/access"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/storage"
	"github.com/brightlane/agencyhub/pkg/storage/storagetest"
)

type world struct {
	store     *storage.SQLStore
	evaluator *access.Evaluator

	acme     *domain.Client
	bob      *domain.TeamMember
	campaign *domain.Campaign
	task     *domain.Task

	admin identity.ResolvedIdentity
	acmeI identity.ResolvedIdentity
	bobI  identity.ResolvedIdentity
	carol identity.ResolvedIdentity
}

func newWorld(t *testing.T) *world {
	t.Helper()
	s := storagetest.NewStore(t)
	w := &world{
		store:     s,
		evaluator: access.NewEvaluator(s, membership.NewStore(s)),
	}

	w.acme = storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
	w.bob = storagetest.MustCreateTeamMember(t, s, "Bob", "bob@agency.com", "Designer")
	carol := storagetest.MustCreateTeamMember(t, s, "Carol", "carol@agency.com", "Strategist")
	w.campaign = storagetest.MustCreateCampaign(t, s, w.acme.ID, "Launch", "admin-1")
	w.task = storagetest.MustCreateTask(t, s, &domain.Task{
		CampaignID:             w.campaign.ID,
		Title:                  "Design banner",
		AssignedToTeamMemberID: &w.bob.ID,
		CreatedByID:            "admin-1",
	})

	w.admin = identity.ResolvedIdentity{Kind: identity.KindAdmin, PrincipalID: "admin-1"}
	w.acmeI = identity.ResolvedIdentity{Kind: identity.KindClient, PrincipalID: "client-acme", Email: "acme@x.com", ClientID: w.acme.ID}
	w.bobI = identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-bob", Email: "bob@agency.com", TeamMemberID: w.bob.ID}
	w.carol = identity.ResolvedIdentity{Kind: identity.KindTeamMember, PrincipalID: "user-carol", Email: "carol@agency.com", TeamMemberID: carol.ID}
	return w
}

func TestCanView(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		ident identity.ResolvedIdentity
		want  bool
	}{
		{"Admin", w.admin, true},
		{"OwningClient", w.acmeI, true},
		{"Assignee", w.bobI, true},
		{"UninvolvedMember", w.carol, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := w.evaluator.CanView(ctx, tc.ident, domain.EntityTask, w.task.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Allowed)
		})
	}

	t.Run("UnboundDeniedWithReason", func(t *testing.T) {
		unbound := identity.ResolvedIdentity{Kind: identity.KindUnbound}
		d, err := w.evaluator.CanView(ctx, unbound, domain.EntityTask, w.task.ID)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.ReasonUnbound, d.Reason)
	})
}

func TestCanUpdateTaskLevels(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	t.Run("AdminFull", func(t *testing.T) {
		d, level, err := w.evaluator.CanUpdateTask(ctx, w.admin, w.task)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, access.TaskWriteFull, level)
	})

	t.Run("AssigneeNarrowed", func(t *testing.T) {
		d, level, err := w.evaluator.CanUpdateTask(ctx, w.bobI, w.task)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, access.TaskWriteAssignee, level)
	})

	t.Run("ClientDenied", func(t *testing.T) {
		d, level, err := w.evaluator.CanUpdateTask(ctx, w.acmeI, w.task)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.TaskWriteNone, level)
	})

	t.Run("TaskCreatorFull", func(t *testing.T) {
		task := storagetest.MustCreateTask(t, w.store, &domain.Task{
			CampaignID: w.campaign.ID, Title: "Copy", CreatedByID: w.carol.PrincipalID,
		})
		d, level, err := w.evaluator.CanUpdateTask(ctx, w.carol, task)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, access.TaskWriteFull, level)
	})

	t.Run("CampaignEditorFull", func(t *testing.T) {
		storagetest.MustAssign(t, w.store, w.campaign.ID, domain.CampaignAssignment{
			CampaignID: w.campaign.ID, UserID: w.carol.PrincipalID, Role: domain.AssignmentEditor,
		})
		d, level, err := w.evaluator.CanUpdateTask(ctx, w.carol, w.task)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, access.TaskWriteFull, level)

		// Back to viewer: read stays, write goes.
		storagetest.MustAssign(t, w.store, w.campaign.ID, domain.CampaignAssignment{
			CampaignID: w.campaign.ID, UserID: w.carol.PrincipalID, Role: domain.AssignmentViewer,
		})
		d, level, err = w.evaluator.CanUpdateTask(ctx, w.carol, w.task)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.ReasonViewerAssignment, d.Reason)
		assert.Equal(t, access.TaskWriteNone, level)
	})
}

func TestCanUpdateCampaign(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	t.Run("Admin", func(t *testing.T) {
		d, err := w.evaluator.CanUpdateCampaign(ctx, w.admin, w.campaign)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("OwningClientReadOnly", func(t *testing.T) {
		d, err := w.evaluator.CanUpdateCampaign(ctx, w.acmeI, w.campaign)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.ReasonReadOnly, d.Reason)
	})

	t.Run("CampaignCreator", func(t *testing.T) {
		campaign := storagetest.MustCreateCampaign(t, w.store, w.acme.ID, "Fall Push", w.carol.PrincipalID)
		d, err := w.evaluator.CanUpdateCampaign(ctx, w.carol, campaign)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("AssigneeOutsideCampaignScopeDenied", func(t *testing.T) {
		// Bob sees the campaign through his task but holds no
		// assignment and did not create it.
		d, err := w.evaluator.CanUpdateCampaign(ctx, w.bobI, w.campaign)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})
}

func TestCanDelete(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	for _, kind := range []domain.EntityKind{domain.EntityClient, domain.EntityCampaign, domain.EntityTask, domain.EntityApproval} {
		d, err := w.evaluator.CanDelete(ctx, w.admin, kind, 1)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "admin delete on %s", kind)

		d, err = w.evaluator.CanDelete(ctx, w.bobI, kind, 1)
		require.NoError(t, err)
		assert.False(t, d.Allowed, "member delete on %s", kind)

		d, err = w.evaluator.CanDelete(ctx, w.acmeI, kind, 1)
		require.NoError(t, err)
		assert.False(t, d.Allowed, "client delete on %s", kind)
	}
}

func TestCanEditApprovalContent(t *testing.T) {
	w := newWorld(t)

	assert.True(t, w.evaluator.CanEditApprovalContent(w.admin).Allowed)
	assert.False(t, w.evaluator.CanEditApprovalContent(w.acmeI).Allowed)
	assert.False(t, w.evaluator.CanEditApprovalContent(w.bobI).Allowed)
}
