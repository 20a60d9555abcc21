package client

import (
	"context"
	"net/http"

	"github.com/antoinerrr/ssh-ecs/internal/api"
)

// MenuResult carries the product -> clusters map plus the identity echo and
// minimum-version headers the server sets on this route.
type MenuResult struct {
	Products   map[string][]string
	User       string
	MinVersion string
}

// Menu fetches the browsable product/cluster catalog. It doubles as the
// authentication probe: an invalid token fails here before any stepper runs.
func (c *Client) Menu(ctx context.Context) (*MenuResult, error) {
	u := c.url().setPath(api.MenuRoute).build()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}

	var products map[string][]string
	resp, err := c.doRaw(req, &products)
	if err != nil {
		return nil, err
	}

	return &MenuResult{
		Products:   products,
		User:       resp.Header.Get(api.UserHeader),
		MinVersion: resp.Header.Get(api.VersionHeader),
	}, nil
}
