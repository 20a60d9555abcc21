package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v80/github"
	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.IdentityProvider = (*GitHub)(nil)

// GitHub resolves principals against the GitHub API. The presented credential
// is the caller's personal access token; the org and team lookups use the
// broker's own admin token (needs read on admin:org).
type GitHub struct {
	org     string
	baseURL string
	admin   *github.Client
}

func NewGitHub(cfg config.GitHubConfig) (*GitHub, error) {
	admin, err := newClient(cfg.AdminToken, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("building github admin client: %w", err)
	}
	return &GitHub{
		org:     cfg.Org,
		baseURL: cfg.BaseURL,
		admin:   admin,
	}, nil
}

func newClient(token, baseURL string) (*github.Client, error) {
	client := github.NewClient(nil).WithAuthToken(token)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("creating github enterprise client: %w", err)
		}
	}
	return client, nil
}

// Resolve validates the credential with a who-am-I call, then requires
// membership in the configured organization. Anything unexpected on the org
// check fails closed as a provider error.
func (g *GitHub) Resolve(ctx context.Context, credential string) (*core.Principal, error) {
	if credential == "" {
		return nil, core.E(core.KindInvalidCredential, "missing credential")
	}

	caller, err := newClient(credential, g.baseURL)
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "building github client")
	}

	user, resp, err := caller.Users.Get(ctx, "")
	if err != nil {
		if isAuthError(resp, err) {
			return nil, core.Wrap(core.KindInvalidCredential, err, "credential rejected")
		}
		return nil, core.Wrap(core.KindProviderError, err, "who-am-i lookup failed")
	}

	login := user.GetLogin()

	member, _, err := g.admin.Organizations.IsMember(ctx, g.org, login)
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "org membership lookup for '%s' failed", login)
	}
	if !member {
		log.Ctx(ctx).Warn().Str("login", login).Str("org", g.org).Msg("caller is not an org member")
		return nil, core.E(core.KindNotAuthorized, "'%s' is not a member of '%s'", login, g.org)
	}

	return &core.Principal{
		Login: login,
		ID:    user.GetID(),
	}, nil
}

// IsTeamMember reports whether login has an active membership in the given
// team. A 404 from the membership endpoint is a clean "not a member"; other
// failures surface as errors for the caller to degrade on.
func (g *GitHub) IsTeamMember(ctx context.Context, team, login string) (bool, error) {
	membership, resp, err := g.admin.Teams.GetTeamMembershipBySlug(ctx, g.org, team, login)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, core.Wrap(core.KindProviderError, err, "team membership lookup for '%s' in '%s' failed", login, team)
	}
	return membership.GetState() == "active", nil
}

func isAuthError(resp *github.Response, err error) bool {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return true
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}
