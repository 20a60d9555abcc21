package client

import (
	"context"

	"github.com/antoinerrr/ssh-ecs/internal/api"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// Connect takes the direct path: the server checks group membership and, on
// success, resolves the selection down to a one-time credential. A
// not_authorized error is the signal to fall back to RequestAccess.
func (c *Client) Connect(ctx context.Context, product, cluster, task, container string) (*core.ConnectionGrant, error) {
	u := c.url().
		setPath(api.ConnectRoute).
		setPathParam("product", product).
		setPathParam("cluster", cluster).
		build()

	var grant core.ConnectionGrant
	if _, err := c.post(ctx, u, api.ConnectPayload{Task: task, Container: container}, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}
