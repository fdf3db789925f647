package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlane/agencyhub/pkg/access"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/membership"
	"github.com/brightlane/agencyhub/pkg/observability"
	"github.com/brightlane/agencyhub/pkg/service"
	"github.com/brightlane/agencyhub/pkg/storage"
	"github.com/brightlane/agencyhub/pkg/storage/storagetest"
)

// fixture wires a full core over an in-memory store with the scenario
// from the platform's canonical example: client acme@x.com owns campaign
// "Launch", team member bob@agency.com is assigned a task under it.
type fixture struct {
	svc      *service.Service
	store    *storage.SQLStore
	resolver *identity.Resolver

	acme     *domain.Client
	bob      *domain.TeamMember
	campaign *domain.Campaign
	task     *domain.Task

	admin      identity.ResolvedIdentity
	acmeIdent  identity.ResolvedIdentity
	bobIdent   identity.ResolvedIdentity
	otherIdent identity.ResolvedIdentity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s := storagetest.NewStore(t)
	members := membership.NewStore(s)
	evaluator := access.NewEvaluator(s, members)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	guard := access.NewGuard(s, nil, logger)
	svc := service.New(s, members, evaluator, guard)

	f := &fixture{svc: svc, store: s, resolver: identity.NewResolver(s)}

	f.acme = storagetest.MustCreateClient(t, s, "Acme", "acme@x.com")
	f.bob = storagetest.MustCreateTeamMember(t, s, "Bob", "bob@agency.com", "Designer")
	storagetest.MustCreateTeamMember(t, s, "Carol", "carol@agency.com", "Strategist")
	f.campaign = storagetest.MustCreateCampaign(t, s, f.acme.ID, "Launch", "admin-1")
	f.task = storagetest.MustCreateTask(t, s, &domain.Task{
		CampaignID:             f.campaign.ID,
		Title:                  "Design banner",
		AssignedToTeamMemberID: &f.bob.ID,
		CreatedByID:            "admin-1",
	})

	resolve := func(p identity.Principal) identity.ResolvedIdentity {
		ident, err := f.resolver.Resolve(ctx, p)
		require.NoError(t, err)
		return ident
	}
	f.admin = resolve(identity.Principal{ID: "admin-1", Email: "ops@agency.com", Roles: []string{"admin"}})
	f.acmeIdent = resolve(identity.Principal{ID: "client-acme", Email: "ACME@X.COM"})
	f.bobIdent = resolve(identity.Principal{ID: "user-bob", Email: "bob@agency.com"})
	f.otherIdent = resolve(identity.Principal{ID: "user-carol", Email: "carol@agency.com"})

	require.Equal(t, identity.KindClient, f.acmeIdent.Kind)
	require.Equal(t, identity.KindTeamMember, f.bobIdent.Kind)
	require.Equal(t, identity.KindTeamMember, f.otherIdent.Kind)

	return f
}

func taskIDs(views []*domain.TaskView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestTaskVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("AdminSeesAll", func(t *testing.T) {
		tasks, total, err := f.svc.ListTasks(ctx, f.admin, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Contains(t, taskIDs(tasks), f.task.ID)
	})

	t.Run("OwningClientSeesCampaignTasks", func(t *testing.T) {
		tasks, _, err := f.svc.ListTasks(ctx, f.acmeIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Contains(t, taskIDs(tasks), f.task.ID)
	})

	t.Run("AssignedTeamMemberSeesTask", func(t *testing.T) {
		tasks, _, err := f.svc.ListTasks(ctx, f.bobIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Contains(t, taskIDs(tasks), f.task.ID)
	})

	t.Run("UninvolvedTeamMemberSeesNothing", func(t *testing.T) {
		tasks, total, err := f.svc.ListTasks(ctx, f.otherIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.Zero(t, total)
	})

	t.Run("UnboundSeesNothing", func(t *testing.T) {
		unbound := identity.ResolvedIdentity{Kind: identity.KindUnbound, PrincipalID: "ghost"}
		tasks, _, err := f.svc.ListTasks(ctx, unbound, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestDetailMatchesListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetTask(ctx, f.bobIdent, f.task.ID)
	require.NoError(t, err)

	// The uninvolved member gets the same outcome as for a record that
	// does not exist.
	_, err = f.svc.GetTask(ctx, f.otherIdent, f.task.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.GetTask(ctx, f.otherIdent, 99999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestClientReadsAreRedacted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.GetTask(ctx, f.acmeIdent, f.task.ID)
	require.NoError(t, err)
	assert.Nil(t, view.AssignedToTeamMemberName, "client must not see staffing")
	assert.Nil(t, view.AssignedToTeamMemberTitle)

	adminView, err := f.svc.GetTask(ctx, f.admin, f.task.ID)
	require.NoError(t, err)
	require.NotNil(t, adminView.AssignedToTeamMemberName)
	assert.Equal(t, "Bob", *adminView.AssignedToTeamMemberName)

	tasks, _, err := f.svc.ListTasks(ctx, f.acmeIdent, storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].AssignedToTeamMemberName)
}

func TestAssigneeWriteNarrowing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	completed := domain.TaskStatusCompleted
	newTitle := "new title"
	notes := "shipped the banner"
	view, err := f.svc.UpdateTask(ctx, f.bobIdent, f.task.ID, domain.TaskChanges{
		Status: &completed,
		Title:  &newTitle,
		Notes:  &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusCompleted, view.Status)
	assert.Equal(t, "shipped the banner", view.Notes)
	assert.Equal(t, "Design banner", view.Title, "assignee must not change the title")
	require.NotNil(t, view.CompletedAt)

	firstCompletion := *view.CompletedAt

	// Re-submitting completed must not reset the timestamp.
	time.Sleep(5 * time.Millisecond)
	view, err = f.svc.UpdateTask(ctx, f.bobIdent, f.task.ID, domain.TaskChanges{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, view.CompletedAt)
	assert.True(t, view.CompletedAt.Equal(firstCompletion), "completion timestamp must be stamped once")
}

func TestAdminWritesFullFieldSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newTitle := "Design hero banner"
	priority := domain.TaskPriorityUrgent
	view, err := f.svc.UpdateTask(ctx, f.admin, f.task.ID, domain.TaskChanges{
		Title:    &newTitle,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, "Design hero banner", view.Title)
	assert.Equal(t, domain.TaskPriorityUrgent, view.Priority)
}

func TestClientCannotWriteTask(t *testing.T) {
	f := newFixture(t)

	notes := "client edit"
	_, err := f.svc.UpdateTask(context.Background(), f.acmeIdent, f.task.ID, domain.TaskChanges{Notes: &notes})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCampaignUpdateRights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name := "Relaunch"

	t.Run("EditorAssignmentMayUpdate", func(t *testing.T) {
		require.NoError(t, f.svc.SetCampaignAssignments(ctx, f.admin, f.campaign.ID, []domain.CampaignAssignment{
			{CampaignID: f.campaign.ID, UserID: f.otherIdent.PrincipalID, Role: domain.AssignmentEditor},
		}))

		updated, err := f.svc.UpdateCampaign(ctx, f.otherIdent, f.campaign.ID, domain.CampaignChanges{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Relaunch", updated.Name)
	})

	t.Run("ViewerAssignmentIsReadOnly", func(t *testing.T) {
		require.NoError(t, f.svc.SetCampaignAssignments(ctx, f.admin, f.campaign.ID, []domain.CampaignAssignment{
			{CampaignID: f.campaign.ID, UserID: f.otherIdent.PrincipalID, Role: domain.AssignmentViewer},
		}))

		// Still visible to the viewer.
		_, err := f.svc.GetCampaign(ctx, f.otherIdent, f.campaign.ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateCampaign(ctx, f.otherIdent, f.campaign.ID, domain.CampaignChanges{Name: &name})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("OwningClientIsReadOnly", func(t *testing.T) {
		_, err := f.svc.GetCampaign(ctx, f.acmeIdent, f.campaign.ID)
		require.NoError(t, err)

		_, err = f.svc.UpdateCampaign(ctx, f.acmeIdent, f.campaign.ID, domain.CampaignChanges{Name: &name})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDeleteIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, f.bobIdent, domain.EntityTask, f.task.ID), service.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.acmeIdent, domain.EntityTask, f.task.ID), service.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.admin, domain.EntityTask, f.task.ID))
	_, err := f.svc.GetTask(ctx, f.admin, f.task.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestApprovalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newApproval := func(t *testing.T) *domain.ApprovalRequest {
		return storagetest.MustCreateApproval(t, f.store, f.campaign.ID, "Banner v2", "admin-1")
	}

	t.Run("OwningClientMayReachEachTarget", func(t *testing.T) {
		for _, target := range []domain.ApprovalStatus{
			domain.ApprovalApproved,
			domain.ApprovalRejected,
			domain.ApprovalChangesRequested,
		} {
			req := newApproval(t)
			updated, err := f.svc.TransitionApproval(ctx, f.acmeIdent, req.ID, target, "per review")
			require.NoError(t, err, "target %s", target)
			assert.Equal(t, target, updated.Status)
		}
	})

	t.Run("AdminIsDenied", func(t *testing.T) {
		req := newApproval(t)
		_, err := f.svc.TransitionApproval(ctx, f.admin, req.ID, domain.ApprovalApproved, "")
		assert.ErrorIs(t, err, service.ErrDenied)
	})

	t.Run("TeamMemberIsDenied", func(t *testing.T) {
		req := newApproval(t)
		_, err := f.svc.TransitionApproval(ctx, f.bobIdent, req.ID, domain.ApprovalApproved, "")
		assert.ErrorIs(t, err, service.ErrDenied)
	})

	t.Run("NonOwningClientIsDenied", func(t *testing.T) {
		beta := storagetest.MustCreateClient(t, f.store, "Beta", "beta@y.com")
		betaIdent, err := f.resolver.Resolve(ctx, identity.Principal{ID: "client-beta", Email: "beta@y.com"})
		require.NoError(t, err)
		_ = beta

		req := newApproval(t)
		_, err = f.svc.TransitionApproval(ctx, betaIdent, req.ID, domain.ApprovalApproved, "")
		assert.ErrorIs(t, err, service.ErrDenied)
	})

	t.Run("InvalidTargetFailsValidation", func(t *testing.T) {
		req := newApproval(t)
		_, err := f.svc.TransitionApproval(ctx, f.acmeIdent, req.ID, domain.ApprovalPending, "")
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("TransitionAppendsComment", func(t *testing.T) {
		req := newApproval(t)
		_, err := f.svc.TransitionApproval(ctx, f.acmeIdent, req.ID, domain.ApprovalRejected, "wrong palette")
		require.NoError(t, err)

		comments, err := f.svc.ApprovalComments(ctx, f.acmeIdent, req.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, domain.ApprovalRejected, comments[0].Action)
		assert.Equal(t, "wrong palette", comments[0].Comment)
		assert.Equal(t, f.acmeIdent.PrincipalID, comments[0].ActorID)
	})

	t.Run("TeamMembersDoNotSeeApprovals", func(t *testing.T) {
		req := newApproval(t)
		approvals, total, err := f.svc.ListApprovals(ctx, f.bobIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, approvals)
		assert.Zero(t, total)

		_, err = f.svc.GetApproval(ctx, f.bobIdent, req.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestApprovalContentEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := storagetest.MustCreateApproval(t, f.store, f.campaign.ID, "Banner v2", "admin-1")

	t.Run("AdminEditsContent", func(t *testing.T) {
		title := "Banner v3"
		desc := "updated artwork"
		updated, err := f.svc.UpdateApproval(ctx, f.admin, req.ID, domain.ApprovalChanges{Title: &title, Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Banner v3", updated.Title)
		assert.Equal(t, "updated artwork", updated.Description)
		assert.Equal(t, domain.ApprovalPending, updated.Status, "content edits never move the status")
	})

	t.Run("OwningClientCannotEditContent", func(t *testing.T) {
		// The client still sees the request; it acts on it only through
		// transitions.
		_, err := f.svc.GetApproval(ctx, f.acmeIdent, req.ID)
		require.NoError(t, err)

		title := "client retitle"
		_, err = f.svc.UpdateApproval(ctx, f.acmeIdent, req.ID, domain.ApprovalChanges{Title: &title})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("TeamMemberCannotEditContent", func(t *testing.T) {
		title := "member retitle"
		_, err := f.svc.UpdateApproval(ctx, f.bobIdent, req.ID, domain.ApprovalChanges{Title: &title})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("MissingRequestIsNotFound", func(t *testing.T) {
		title := "x"
		_, err := f.svc.UpdateApproval(ctx, f.admin, 99999, domain.ApprovalChanges{Title: &title})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCampaignVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("ClientSeesOnlyOwnCampaigns", func(t *testing.T) {
		beta := storagetest.MustCreateClient(t, f.store, "Beta", "beta@y.com")
		storagetest.MustCreateCampaign(t, f.store, beta.ID, "Beta Push", "admin-1")

		campaigns, total, err := f.svc.ListCampaigns(ctx, f.acmeIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, campaigns, 1)
		assert.Equal(t, f.campaign.ID, campaigns[0].ID)
	})

	t.Run("TeamMemberSeesCampaignThroughTaskAssignment", func(t *testing.T) {
		campaigns, _, err := f.svc.ListCampaigns(ctx, f.bobIdent, storage.ListOptions{})
		require.NoError(t, err)
		require.Len(t, campaigns, 1)
		assert.Equal(t, f.campaign.ID, campaigns[0].ID)
	})
}

func TestMessageVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := &domain.Message{SenderID: "client-acme", RecipientID: "user-bob", Subject: "Question"}
	require.NoError(t, f.store.CreateMessage(ctx, root))
	reply := &domain.Message{SenderID: "user-bob", RecipientID: "client-acme", Subject: "Re: Question", ParentID: &root.ID}
	require.NoError(t, f.store.CreateMessage(ctx, reply))
	replyToBob := &domain.Message{SenderID: "client-acme", RecipientID: "user-bob", Subject: "Re: Re: Question", ParentID: &root.ID}
	require.NoError(t, f.store.CreateMessage(ctx, replyToBob))

	t.Run("ClientListsTopLevelThreadsOnly", func(t *testing.T) {
		msgs, _, err := f.svc.ListMessages(ctx, f.acmeIdent, storage.ListOptions{})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, root.ID, msgs[0].ID)
	})

	t.Run("TeamMemberInboxAdmitsRepliesToThem", func(t *testing.T) {
		msgs, _, err := f.svc.ListMessages(ctx, f.bobIdent, storage.ListOptions{})
		require.NoError(t, err)
		ids := make([]int64, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		assert.Contains(t, ids, root.ID)
		assert.Contains(t, ids, replyToBob.ID)
		assert.NotContains(t, ids, reply.ID, "replies sent by the member stay out of the listing")
	})

	t.Run("UninvolvedMemberSeesNothing", func(t *testing.T) {
		msgs, _, err := f.svc.ListMessages(ctx, f.otherIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestClientEntityScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("ClientSeesOnlyItself", func(t *testing.T) {
		storagetest.MustCreateClient(t, f.store, "Beta", "beta@y.com")
		clients, total, err := f.svc.ListClients(ctx, f.acmeIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, clients, 1)
		assert.Equal(t, f.acme.ID, clients[0].ID)
	})

	t.Run("TeamMembersSeeNoClients", func(t *testing.T) {
		// Client records stay admin surface even for a member working a
		// task under the client's campaign.
		clients, total, err := f.svc.ListClients(ctx, f.bobIdent, storage.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, clients)
		assert.Zero(t, total)

		_, err = f.svc.GetClient(ctx, f.bobIdent, f.acme.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}
