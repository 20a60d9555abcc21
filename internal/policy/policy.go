package policy

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// GroupTable is the immutable view of the static policy table the evaluator
// consults. config.Config satisfies it.
type GroupTable interface {
	AllowedGroups(target core.Target) []string
}

// Evaluator decides whether a principal may reach a target by checking team
// membership against each group the table permits for that target.
type Evaluator struct {
	table       GroupTable
	adminGroups []string
	idp         core.IdentityProvider
}

// New builds an Evaluator. The table and admin scope are fixed at
// construction; there is no ambient configuration.
func New(table GroupTable, adminGroups []string, idp core.IdentityProvider) *Evaluator {
	return &Evaluator{
		table:       table,
		adminGroups: adminGroups,
		idp:         idp,
	}
}

// IsAuthorized returns true iff at least one permitted group reports the
// principal as a member. An unknown target has no permitted groups and is
// denied. A provider error on one group counts as non-membership for that
// group only and evaluation continues: one bad call must not block access
// through a different group, but no confirmed membership anywhere means deny.
func (e *Evaluator) IsAuthorized(ctx context.Context, principal *core.Principal, target core.Target) bool {
	return e.memberOfAny(ctx, principal, e.table.AllowedGroups(target))
}

// IsAdmin checks the principal against the fixed administrative scope.
func (e *Evaluator) IsAdmin(ctx context.Context, principal *core.Principal) bool {
	return e.memberOfAny(ctx, principal, e.adminGroups)
}

func (e *Evaluator) memberOfAny(ctx context.Context, principal *core.Principal, groups []string) bool {
	for _, group := range groups {
		member, err := e.idp.IsTeamMember(ctx, group, principal.Login)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("group", group).
				Str("login", principal.Login).
				Msg("group membership check failed, continuing with remaining groups")
			continue
		}
		if member {
			return true
		}
	}
	return false
}
