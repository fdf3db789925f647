package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/service"
)

// Server routes HTTP requests to the service layer.
type Server struct {
	svc    *service.Service
	router *mux.Router
}

// NewServer creates the API server and registers its routes.
func NewServer(svc *service.Service) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Router returns the configured router for mounting.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router.PathPrefix("/api/v1").Subrouter()

	r.HandleFunc("/clients", s.handleListClients).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id:[0-9]+}", s.handleGetClient).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id:[0-9]+}", s.handleDelete(domain.EntityClient)).Methods(http.MethodDelete)

	r.HandleFunc("/campaigns", s.handleListCampaigns).Methods(http.MethodGet)
	r.HandleFunc("/campaigns/{id:[0-9]+}", s.handleGetCampaign).Methods(http.MethodGet)
	r.HandleFunc("/campaigns/{id:[0-9]+}", s.handleUpdateCampaign).Methods(http.MethodPatch)
	r.HandleFunc("/campaigns/{id:[0-9]+}", s.handleDelete(domain.EntityCampaign)).Methods(http.MethodDelete)
	r.HandleFunc("/campaigns/{id:[0-9]+}/assignments", s.handleSetAssignments).Methods(http.MethodPut)

	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleDelete(domain.EntityTask)).Methods(http.MethodDelete)

	r.HandleFunc("/approvals", s.handleListApprovals).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{id:[0-9]+}", s.handleGetApproval).Methods(http.MethodGet)
	r.HandleFunc("/approvals/{id:[0-9]+}", s.handleUpdateApproval).Methods(http.MethodPatch)
	r.HandleFunc("/approvals/{id:[0-9]+}", s.handleDelete(domain.EntityApproval)).Methods(http.MethodDelete)
	r.HandleFunc("/approvals/{id:[0-9]+}/transition", s.handleTransitionApproval).Methods(http.MethodPost)
	r.HandleFunc("/approvals/{id:[0-9]+}/comments", s.handleListApprovalComments).Methods(http.MethodGet)

	r.HandleFunc("/messages", s.handleListMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id:[0-9]+}", s.handleGetMessage).Methods(http.MethodGet)
}
