package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/api/middleware"
	"github.com/antoinerrr/ssh-ecs/internal/api/presenter"
	"github.com/antoinerrr/ssh-ecs/internal/buildinfo"
	"github.com/antoinerrr/ssh-ecs/internal/core"
	"github.com/antoinerrr/ssh-ecs/internal/resolve"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMenu returns the product -> clusters mapping the stepper walks.
// The response headers echo the caller's identity and the minimum client
// version so outdated clients can refuse to proceed.
func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalCtx(r.Context())

	minVersion := s.cfg.MinClientVersion
	if minVersion == "" {
		minVersion = buildinfo.Version
	}

	w.Header().Set(UserHeader, principal.Login)
	w.Header().Set(VersionHeader, minVersion)
	presenter.JSON(w, r, s.cfg.Menu(), http.StatusOK)
}

// DecodePayload strictly decodes a JSON request body.
func DecodePayload(r *http.Request, dest any) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			return err
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

func targetFromPath(r *http.Request) core.Target {
	return core.Target{
		Product: r.PathValue("product"),
		Cluster: r.PathValue("cluster"),
	}
}

// handleServices lists the service ARNs of a cluster.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := targetFromPath(r)

	ec, err := s.factory.ContextFor(ctx, target.Product, false)
	if err != nil {
		presenter.Err(w, r, err, "building execution context")
		return
	}

	services, err := resolve.ListServices(ctx, ec, target.Cluster)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("target", target.String()).Msg("listing services failed")
		presenter.Err(w, r, err, "listing services")
		return
	}
	presenter.JSON(w, r, services, http.StatusOK)
}

type TasksPayload struct {
	// Service is the pass-through service ARN selected from the listing.
	Service string `json:"service"`
}

// handleTasks lists the RUNNING task ARNs of a service.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := targetFromPath(r)

	var payload TasksPayload
	if err := DecodePayload(r, &payload); err != nil || payload.Service == "" {
		presenter.Err(w, r, core.E(core.KindMissingArgument, "missing 'service' in request body"), "listing tasks")
		return
	}

	ec, err := s.factory.ContextFor(ctx, target.Product, false)
	if err != nil {
		presenter.Err(w, r, err, "building execution context")
		return
	}

	tasks, err := resolve.ListTasks(ctx, ec, target.Cluster, payload.Service)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("target", target.String()).Msg("listing tasks failed")
		presenter.Err(w, r, err, "listing tasks")
		return
	}
	presenter.JSON(w, r, tasks, http.StatusOK)
}

type ContainersPayload struct {
	// Task is the pass-through task ARN selected from the listing.
	Task string `json:"task"`
}

// handleContainers lists the compound "containerArn - name" entries of a task.
func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := targetFromPath(r)

	var payload ContainersPayload
	if err := DecodePayload(r, &payload); err != nil || payload.Task == "" {
		presenter.Err(w, r, core.E(core.KindMissingArgument, "missing 'task' in request body"), "listing containers")
		return
	}

	ec, err := s.factory.ContextFor(ctx, target.Product, false)
	if err != nil {
		presenter.Err(w, r, err, "building execution context")
		return
	}

	containers, err := resolve.ListContainers(ctx, ec, target.Cluster, payload.Task)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("target", target.String()).Msg("listing containers failed")
		presenter.Err(w, r, err, "listing containers")
		return
	}
	presenter.JSON(w, r, containers, http.StatusOK)
}

type ConnectPayload struct {
	Task      string `json:"task"`
	Container string `json:"container"`
}

func (p ConnectPayload) selector() (core.ResourceSelector, error) {
	if p.Task == "" {
		return core.ResourceSelector{}, core.E(core.KindMissingArgument, "missing 'task' in request body")
	}
	if p.Container == "" {
		return core.ResourceSelector{}, core.E(core.KindMissingArgument, "missing 'container' in request body")
	}
	return core.ResourceSelector{Task: p.Task, Container: p.Container}, nil
}

// handleConnect is the direct path: policy gate, then resolution. A policy
// denial responds 403 with kind not_authorized; the client treats that as the
// trigger for the escalation path.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := middleware.PrincipalCtx(ctx)
	target := targetFromPath(r)

	var payload ConnectPayload
	if err := DecodePayload(r, &payload); err != nil {
		presenter.Err(w, r, core.E(core.KindMissingArgument, "invalid request payload"), "connecting")
		return
	}
	selector, err := payload.selector()
	if err != nil {
		presenter.Err(w, r, err, "connecting")
		return
	}

	grant, err := s.access.DirectConnect(ctx, principal, target, selector)
	if err != nil {
		presenter.Err(w, r, err, "connecting")
		return
	}
	presenter.JSON(w, r, grant, http.StatusOK)
}
