package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// ErrPollBudgetExceeded is returned when the approval did not arrive within
// the polling budget. The server-side record stays pending; polling again
// later with the same token can still succeed.
var ErrPollBudgetExceeded = fmt.Errorf("access request was not approved in time")

// WaitForApproval polls an escalation request at a fixed interval until it is
// granted or the attempt budget runs out. Transport errors are retried within
// the same budget; a not_found response aborts immediately since the token
// will never become valid.
func (c *Client) WaitForApproval(ctx context.Context, token string, attempts int, interval time.Duration) (*core.ConnectionGrant, error) {
	var grant *core.ConnectionGrant

	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, g, err := c.PollOnce(ctx, token)
		if err != nil {
			if IsNotFound(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		if status != access.StatusGranted {
			return retry.RetryableError(ErrPollBudgetExceeded)
		}
		grant = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}
