package client

import (
	"context"

	"github.com/antoinerrr/ssh-ecs/internal/api"
)

// Services lists the service ARNs of a cluster.
func (c *Client) Services(ctx context.Context, product, cluster string) ([]string, error) {
	u := c.url().
		setPath(api.ServicesRoute).
		setPathParam("product", product).
		setPathParam("cluster", cluster).
		build()

	var services []string
	if _, err := c.get(ctx, u, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// Tasks lists the running task ARNs of a service.
func (c *Client) Tasks(ctx context.Context, product, cluster, service string) ([]string, error) {
	u := c.url().
		setPath(api.TasksRoute).
		setPathParam("product", product).
		setPathParam("cluster", cluster).
		build()

	var tasks []string
	if _, err := c.post(ctx, u, api.TasksPayload{Service: service}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Containers lists the "containerArn - name" entries of a task.
func (c *Client) Containers(ctx context.Context, product, cluster, task string) ([]string, error) {
	u := c.url().
		setPath(api.ContainersRoute).
		setPathParam("product", product).
		setPathParam("cluster", cluster).
		build()

	var containers []string
	if _, err := c.post(ctx, u, api.ContainersPayload{Task: task}, &containers); err != nil {
		return nil, err
	}
	return containers, nil
}
