package api

import (
	"errors"
	"net/http"

	"github.com/brightlane/agencyhub/pkg/contextkeys"
	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/httputil"
	"github.com/brightlane/agencyhub/pkg/service"
	"github.com/brightlane/agencyhub/pkg/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ListResponse is the paged envelope returned by every list endpoint.
// Total counts only records visible to the caller.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// writeServiceError maps service sentinel errors onto HTTP statuses.
// ErrNotFound covers both missing and out-of-scope records, so a 404
// here never confirms existence.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		httputil.WriteNotFound(w, "not found")
	case errors.Is(err, service.ErrDenied):
		httputil.WriteForbidden(w, "forbidden")
	case errors.Is(err, service.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}

// listOptions parses the shared list query parameters.
func listOptions(r *http.Request) (storage.ListOptions, error) {
	limit, err := httputil.ParseQueryInt(r, "limit", defaultPageLimit)
	if err != nil {
		return storage.ListOptions{}, err
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return storage.ListOptions{}, err
	}
	if offset < 0 {
		offset = 0
	}

	return storage.ListOptions{
		Search:   httputil.ParseQueryString(r, "q", ""),
		Status:   httputil.ParseQueryString(r, "status", ""),
		SortBy:   httputil.ParseQueryString(r, "sort", ""),
		SortDesc: httputil.ParseQueryString(r, "order", "desc") == "desc",
		Page:     storage.Page{Limit: limit, Offset: offset},
	}, nil
}

func writePage(w http.ResponseWriter, items interface{}, total int64, opts storage.ListOptions) {
	httputil.WriteSuccess(w, ListResponse{
		Items:  items,
		Total:  total,
		Limit:  opts.Page.Limit,
		Offset: opts.Page.Offset,
	})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	clients, total, err := s.svc.ListClients(r.Context(), ident, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, clients, total, opts)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	client, err := s.svc.GetClient(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, client)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	campaigns, total, err := s.svc.ListCampaigns(r.Context(), ident, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, campaigns, total, opts)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	campaign, err := s.svc.GetCampaign(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, campaign)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var changes domain.CampaignChanges
	if err := httputil.ParseJSON(r, &changes); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	updated, err := s.svc.UpdateCampaign(r.Context(), ident, id, changes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) handleSetAssignments(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var assignments []domain.CampaignAssignment
	if err := httputil.ParseJSON(r, &assignments); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := s.svc.SetCampaignAssignments(r.Context(), ident, id, assignments); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tasks, total, err := s.svc.ListTasks(r.Context(), ident, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, tasks, total, opts)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	task, err := s.svc.GetTask(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var changes domain.TaskChanges
	if err := httputil.ParseJSON(r, &changes); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	updated, err := s.svc.UpdateTask(r.Context(), ident, id, changes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	approvals, total, err := s.svc.ListApprovals(r.Context(), ident, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, approvals, total, opts)
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	approval, err := s.svc.GetApproval(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, approval)
}

func (s *Server) handleUpdateApproval(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var changes domain.ApprovalChanges
	if err := httputil.ParseJSON(r, &changes); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	updated, err := s.svc.UpdateApproval(r.Context(), ident, id, changes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// transitionRequest is the body of the approval transition endpoint.
type transitionRequest struct {
	Status  domain.ApprovalStatus `json:"status"`
	Comment string                `json:"comment"`
}

func (s *Server) handleTransitionApproval(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req transitionRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	updated, err := s.svc.TransitionApproval(r.Context(), ident, id, req.Status, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) handleListApprovalComments(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	comments, err := s.svc.ApprovalComments(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, comments)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	messages, total, err := s.svc.ListMessages(r.Context(), ident, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, messages, total, opts)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ident := contextkeys.GetIdentity(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	message, err := s.svc.GetMessage(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, message)
}

func (s *Server) handleDelete(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := contextkeys.GetIdentity(r.Context())
		id, err := httputil.ParsePathInt64(r, "id")
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		if err := s.svc.Delete(r.Context(), ident, kind, id); err != nil {
			writeServiceError(w, err)
			return
		}
		httputil.WriteNoContent(w)
	}
}
