package client

import (
	"context"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/api"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// RequestAccess files an escalation request for a selection the caller is not
// authorized to reach and returns the requester token to poll with.
func (c *Client) RequestAccess(ctx context.Context, product, cluster, task, container string) (string, error) {
	u := c.url().
		setPath(api.RequestAccessRoute).
		setPathParam("product", product).
		setPathParam("cluster", cluster).
		build()

	var resp api.RequestAccessResponse
	if _, err := c.post(ctx, u, api.ConnectPayload{Task: task, Container: container}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// PollOnce checks an escalation request exactly once. A granted result carries
// the connection grant resolved against current infrastructure state.
func (c *Client) PollOnce(ctx context.Context, token string) (access.PollStatus, *core.ConnectionGrant, error) {
	u := c.url().
		setPath(api.PollAccessRoute).
		setPathParam("token", token).
		build()

	var resp api.PollResponse
	if _, err := c.get(ctx, u, &resp); err != nil {
		return "", nil, err
	}
	return resp.Status, resp.Grant, nil
}

// Approve transitions a pending request to approved using the validator token
// relayed out-of-band. The server enforces the administrative scope.
func (c *Client) Approve(ctx context.Context, token string) error {
	u := c.url().
		setPath(api.ApproveAccessRoute).
		setPathParam("token", token).
		build()

	var resp api.ApproveResponse
	_, err := c.post(ctx, u, nil, &resp)
	return err
}

// AuditQuery narrows an audit listing. Zero values mean no filtering.
type AuditQuery struct {
	Limit  int
	Login  string
	Action string
}

// AuditEvents fetches audit events matching the query. Admin only.
func (c *Client) AuditEvents(ctx context.Context, query AuditQuery) ([]core.AuditEvent, error) {
	b := c.url().setPath(api.AuditRoute)
	if query.Limit > 0 {
		b = b.addQueryParam("limit", query.Limit)
	}
	if query.Login != "" {
		b = b.addQueryParam("login", query.Login)
	}
	if query.Action != "" {
		b = b.addQueryParam("action", query.Action)
	}

	var events []core.AuditEvent
	if _, err := c.get(ctx, b.build(), &events); err != nil {
		return nil, err
	}
	return events, nil
}
