package api

import (
	"net/http"
	"strconv"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/api/middleware"
	"github.com/antoinerrr/ssh-ecs/internal/api/presenter"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type RequestAccessResponse struct {
	// Token is the requester token. The validator token is never part of any
	// requester-facing response.
	Token string `json:"token"`
}

// handleRequestAccess creates a Pending escalation record and returns the
// requester token.
func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.PrincipalCtx(ctx)
	target := targetFromPath(r)

	var payload ConnectPayload
	if err := DecodePayload(r, &payload); err != nil {
		presenter.Err(w, r, core.E(core.KindMissingArgument, "invalid request payload"), "requesting access")
		return
	}
	selector, err := payload.selector()
	if err != nil {
		presenter.Err(w, r, err, "requesting access")
		return
	}

	token, err := s.access.Request(ctx, principal, target, selector)
	if err != nil {
		presenter.Err(w, r, err, "requesting access")
		return
	}
	presenter.JSON(w, r, RequestAccessResponse{Token: token}, http.StatusCreated)
}

type PollResponse struct {
	Status access.PollStatus `json:"status"`

	// Grant is set only when Status is "granted".
	Grant *core.ConnectionGrant `json:"grant,omitempty"`
}

// handlePollAccess reports the state of an escalation request. Resolution is
// lazy: an approved request is resolved against current infrastructure state
// on every poll.
func (s *Server) handlePollAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.access.Poll(ctx, r.PathValue("token"))
	if err != nil {
		presenter.Err(w, r, err, "polling access request")
		return
	}
	presenter.JSON(w, r, PollResponse{Status: result.Status, Grant: result.Grant}, http.StatusOK)
}

type ApproveResponse struct {
	Status string `json:"status"`
}

// handleApproveAccess performs the Pending -> Approved transition. The caller
// must pass the policy check for the administrative scope.
func (s *Server) handleApproveAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.PrincipalCtx(ctx)

	if err := s.access.Approve(ctx, principal, r.PathValue("token")); err != nil {
		presenter.Err(w, r, err, "approving access request")
		return
	}
	presenter.JSON(w, r, ApproveResponse{Status: "ok"}, http.StatusOK)
}

// handleAudit serves audit events to admins, optionally filtered by login or
// action. Only sinks that retain events can serve it; others respond 501.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.PrincipalCtx(ctx)

	if !s.authz.IsAdmin(ctx, principal) {
		presenter.Err(w, r, core.E(core.KindNotAuthorized, "'%s' is not in the administrative scope", principal.Login), "listing audit events")
		return
	}

	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		presenter.Error(w, r, "configured audit sink does not retain events", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	filterLogin := q.Get("login")
	filterAction := q.Get("action")

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			presenter.Err(w, r, core.E(core.KindMissingArgument, "invalid limit parameter"), "listing audit events")
			return
		}
		limit = v
	}

	var events []core.AuditEvent
	var err error

	if filterLogin != "" || filterAction != "" {
		events, err = reader.Find(func(event core.AuditEvent) bool {
			if filterLogin != "" && (event.Principal == nil || event.Principal.Login != filterLogin) {
				return false
			}
			if filterAction != "" && event.Action != filterAction {
				return false
			}
			return true
		}, limit)
	} else {
		events, err = reader.GetRecent(limit)
	}

	if err != nil {
		presenter.Err(w, r, core.Wrap(core.KindProviderError, err, "reading audit events"), "listing audit events")
		return
	}
	presenter.JSON(w, r, events, http.StatusOK)
}
