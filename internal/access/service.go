package access

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/api/middleware"
	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// Authorizer is the policy gate. policy.Evaluator satisfies it.
type Authorizer interface {
	IsAuthorized(ctx context.Context, principal *core.Principal, target core.Target) bool
	IsAdmin(ctx context.Context, principal *core.Principal) bool
}

// ContextFactory builds product-scoped execution contexts. awsctx.Factory
// satisfies it.
type ContextFactory interface {
	ContextFor(ctx context.Context, product string, withCompute bool) (*awsctx.Context, error)
}

// Resolver runs the resource resolution pipeline. resolve.Pipeline satisfies
// it.
type Resolver interface {
	Resolve(ctx context.Context, ec *awsctx.Context, principal *core.Principal, target core.Target, selector core.ResourceSelector) (*core.ConnectionGrant, error)
}

// Service hosts both access paths: the direct policy-gated connect and the
// split-token escalation state machine. Both converge on the same execution
// context factory and resolution pipeline.
type Service struct {
	authz    Authorizer
	factory  ContextFactory
	resolver Resolver
	store    core.RequestStore
	notifier core.Notifier
	auditor  core.Auditor

	// ttl bounds how long a Pending request stays resolvable. Zero keeps
	// records forever.
	ttl time.Duration
}

func NewService(
	authz Authorizer,
	factory ContextFactory,
	resolver Resolver,
	store core.RequestStore,
	notifier core.Notifier,
	auditor core.Auditor,
	ttl time.Duration,
) *Service {
	return &Service{
		authz:    authz,
		factory:  factory,
		resolver: resolver,
		store:    store,
		notifier: notifier,
		auditor:  auditor,
		ttl:      ttl,
	}
}

// DirectConnect is the standing-access path: policy gate, then resolution.
// A denial is the designed trigger for the escalation path, not a fatal
// condition for the calling session.
func (s *Service) DirectConnect(
	ctx context.Context,
	principal *core.Principal,
	target core.Target,
	selector core.ResourceSelector,
) (*core.ConnectionGrant, error) {
	if !s.authz.IsAuthorized(ctx, principal, target) {
		s.audit(ctx, "connect.direct", principal, target, false, "policy denied")
		return nil, core.E(core.KindNotAuthorized, "'%s' is not allowed to access %s", principal.Login, target)
	}
	return s.connect(ctx, principal, target, selector)
}

// connect is the shared tail of both paths.
func (s *Service) connect(
	ctx context.Context,
	principal *core.Principal,
	target core.Target,
	selector core.ResourceSelector,
) (*core.ConnectionGrant, error) {
	ec, err := s.factory.ContextFor(ctx, target.Product, true)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, ec, principal, target, selector)
}

// Request creates a Pending escalation record. Two independently unguessable
// tokens are generated; only the requester token is returned to the caller,
// only the validator token goes to the notification channel. A notification
// failure is logged and discarded: the record is already persisted and can
// still be approved out of band.
func (s *Service) Request(
	ctx context.Context,
	principal *core.Principal,
	target core.Target,
	selector core.ResourceSelector,
) (string, error) {
	requesterToken, err := core.NewAccessToken()
	if err != nil {
		return "", core.Wrap(core.KindProviderError, err, "generating requester token")
	}
	validatorToken, err := core.NewAccessToken()
	if err != nil {
		return "", core.Wrap(core.KindProviderError, err, "generating validator token")
	}

	req := core.AccessRequest{
		Subject:        principal.Login,
		Target:         target,
		Selector:       selector,
		RequesterToken: requesterToken,
		ValidatorToken: validatorToken,
		CreatedAt:      time.Now(),
	}

	if err := s.store.Insert(ctx, req); err != nil {
		return "", core.Wrap(core.KindProviderError, err, "persisting access request")
	}

	if err := s.notifier.NotifyAccessRequest(ctx, req); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("subject", req.Subject).
			Str("target", target.String()).
			Msg("failed to notify admin channel")
	}

	s.audit(ctx, "access.request", principal, target, false, "")

	return requesterToken, nil
}

// PollStatus is the tagged result of a Poll call.
type PollStatus string

const (
	StatusWaiting PollStatus = "waiting"
	StatusGranted PollStatus = "granted"
)

type PollResult struct {
	Status PollStatus
	Grant  *core.ConnectionGrant
}

// Poll looks up a request by requester token. Resolution happens lazily here,
// not at approval time, so a grant always reflects current infrastructure
// state; polling an approved request repeatedly is idempotent apart from the
// one-time credential value.
func (s *Service) Poll(ctx context.Context, requesterToken string) (*PollResult, error) {
	req, err := s.store.FindByRequesterToken(ctx, requesterToken)
	if err != nil {
		return nil, err
	}
	if s.expired(req) {
		return nil, core.E(core.KindNotFound, "request expired")
	}

	if !req.Approved {
		return &PollResult{Status: StatusWaiting}, nil
	}

	grant, err := s.connect(ctx, &core.Principal{Login: req.Subject}, req.Target, req.Selector)
	if err != nil {
		return nil, err
	}
	return &PollResult{Status: StatusGranted, Grant: grant}, nil
}

// Approve marks a request approved. The admin principal must independently
// pass the policy check for the administrative scope; the requester token
// gives no approval power. Re-approving is a no-op.
func (s *Service) Approve(ctx context.Context, admin *core.Principal, validatorToken string) error {
	if !s.authz.IsAdmin(ctx, admin) {
		s.audit(ctx, "access.approve", admin, core.Target{}, false, "admin scope denied")
		return core.E(core.KindNotAuthorized, "'%s' is not in the administrative scope", admin.Login)
	}

	req, err := s.store.FindByValidatorToken(ctx, validatorToken)
	if err != nil {
		return err
	}
	if s.expired(req) {
		return core.E(core.KindNotFound, "request expired")
	}

	if err := s.store.Approve(ctx, validatorToken); err != nil {
		return err
	}

	s.audit(ctx, "access.approve", admin, req.Target, true, "")

	log.Ctx(ctx).Info().
		Str("admin", admin.Login).
		Str("subject", req.Subject).
		Str("target", req.Target.String()).
		Msg("access request approved")

	return nil
}

func (s *Service) expired(req *core.AccessRequest) bool {
	return s.ttl > 0 && time.Since(req.CreatedAt) > s.ttl
}

func (s *Service) audit(ctx context.Context, action string, principal *core.Principal, target core.Target, granted bool, errMsg string) {
	event := core.AuditEvent{
		ID:        middleware.CorrelationCtx(ctx),
		Time:      time.Now(),
		Action:    action,
		Principal: principal,
		Product:   target.Product,
		Cluster:   target.Cluster,
		Granted:   granted,
		Error:     errMsg,
	}
	if err := s.auditor.Log(event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit event")
	}
}
