package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs the request summary instead of delivering it. Used when
// no webhook is configured; the validator token then only appears in the
// server log.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) NotifyAccessRequest(ctx context.Context, req core.AccessRequest) error {
	log.Ctx(ctx).Info().
		Str("subject", req.Subject).
		Str("target", req.Target.String()).
		Str("validator_token", req.ValidatorToken).
		Msg("access request (no notification channel configured)")
	return nil
}
