package access

import (
	"time"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/identity"
)

// RedactTaskForRead strips internal staffing detail from a task view when
// the reader is a client. Clients see progress, not who inside the agency
// is doing the work. Applying the redaction twice yields the same result
// as applying it once.
func RedactTaskForRead(ident identity.ResolvedIdentity, view *domain.TaskView) *domain.TaskView {
	if view == nil || ident.Kind != identity.KindClient {
		return view
	}
	redacted := *view
	redacted.AssignedToTeamMemberName = nil
	redacted.AssignedToTeamMemberTitle = nil
	return &redacted
}

// RedactTasksForRead redacts a page of task views in place of the caller's
// slice, returning a new slice when redaction applies.
func RedactTasksForRead(ident identity.ResolvedIdentity, views []*domain.TaskView) []*domain.TaskView {
	if ident.Kind != identity.KindClient {
		return views
	}
	out := make([]*domain.TaskView, len(views))
	for i, v := range views {
		out[i] = RedactTaskForRead(ident, v)
	}
	return out
}

// FilterTaskChanges narrows a requested change set to what the writer's
// level permits. Assignees may change status and notes only; every other
// requested field is silently dropped, not rejected. Full-level writers
// keep the entire set.
func FilterTaskChanges(level TaskWriteLevel, changes domain.TaskChanges) domain.TaskChanges {
	switch level {
	case TaskWriteFull:
		return changes
	case TaskWriteAssignee:
		return domain.TaskChanges{
			Status: changes.Status,
			Notes:  changes.Notes,
		}
	}
	return domain.TaskChanges{}
}

// StampCompletion sets the completion timestamp on the change set when the
// requested status first moves the task to completed. Re-submitting the
// completed status leaves the original timestamp untouched.
func StampCompletion(task *domain.Task, changes *domain.TaskChanges, now func() time.Time) {
	if changes.Status == nil {
		return
	}
	if *changes.Status == domain.TaskStatusCompleted && task.CompletedAt == nil {
		t := now().UTC()
		changes.CompletedAt = &t
	}
}
