package api

import (
	"net/http"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/api/middleware"
	"github.com/antoinerrr/ssh-ecs/internal/audit"
	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type Server struct {
	cfg     *config.Config
	idp     core.IdentityProvider
	authz   access.Authorizer
	factory access.ContextFactory
	access  *access.Service
	auditor core.Auditor
}

func NewServer(
	cfg *config.Config,
	idp core.IdentityProvider,
	authz access.Authorizer,
	factory access.ContextFactory,
	accessService *access.Service,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	return &Server{
		cfg:     cfg,
		idp:     idp,
		authz:   authz,
		factory: factory,
		access:  accessService,
		auditor: auditor,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)

	// everything under /v1/ carries a bearer credential
	authed := http.NewServeMux()
	authed.HandleFunc("GET "+MenuRoute, s.handleMenu)
	authed.HandleFunc("GET "+ServicesRoute, s.handleServices)
	authed.HandleFunc("POST "+TasksRoute, s.handleTasks)
	authed.HandleFunc("POST "+ContainersRoute, s.handleContainers)
	authed.HandleFunc("POST "+ConnectRoute, s.handleConnect)
	authed.HandleFunc("POST "+RequestAccessRoute, s.handleRequestAccess)
	authed.HandleFunc("GET "+PollAccessRoute, s.handlePollAccess)
	authed.HandleFunc("POST "+ApproveAccessRoute, s.handleApproveAccess)
	authed.HandleFunc("GET "+AuditRoute, s.handleAudit)
	mux.Handle("/v1/", middleware.Identity(s.idp)(authed))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
