package resolve

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/api/middleware"
	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// Pipeline turns a (target, selector) pair into a ConnectionGrant. Each stage
// feeds the next; any failure aborts with a tagged error and no partial grant
// is ever returned.
type Pipeline struct {
	secrets core.SecretIssuer
	auditor core.Auditor
}

func New(secrets core.SecretIssuer, auditor core.Auditor) *Pipeline {
	return &Pipeline{
		secrets: secrets,
		auditor: auditor,
	}
}

// Resolve runs the stages: describe the task, match the selected container,
// describe its container instance, describe the backing EC2 instance, then
// issue a one-time credential scoped to the instance's private address.
// The audit record is fire-and-forget: a broken sink never fails resolution.
func (p *Pipeline) Resolve(
	ctx context.Context,
	ec *awsctx.Context,
	principal *core.Principal,
	target core.Target,
	selector core.ResourceSelector,
) (*core.ConnectionGrant, error) {
	logger := log.Ctx(ctx)

	task, err := describeTask(ctx, ec, target.Cluster, selector.Task)
	if err != nil {
		return nil, err
	}

	// match the selected container by ARN. The selector carries the compound
	// "arn - name" string produced by ListContainers; splitting with a
	// different convention would silently match nothing.
	wantARN := core.ContainerARN(selector.Container)
	var runtimeID string
	for _, c := range task.Containers {
		if aws.ToString(c.ContainerArn) == wantARN {
			runtimeID = aws.ToString(c.RuntimeId)
			break
		}
	}
	if runtimeID == "" {
		return nil, core.E(core.KindContainerNotFound, "container '%s' not found in task '%s'", selector.Container, selector.Task)
	}

	instances, err := ec.ECS.DescribeContainerInstances(ctx, &ecs.DescribeContainerInstancesInput{
		Cluster:            aws.String(target.Cluster),
		ContainerInstances: []string{aws.ToString(task.ContainerInstanceArn)},
	})
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "describing container instance for task '%s'", selector.Task)
	}
	if len(instances.ContainerInstances) == 0 {
		return nil, core.E(core.KindProviderError, "no container instance found for task '%s'", selector.Task)
	}
	ec2ID := aws.ToString(instances.ContainerInstances[0].Ec2InstanceId)

	described, err := ec.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{ec2ID},
	})
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "describing instance '%s'", ec2ID)
	}
	if len(described.Reservations) == 0 || len(described.Reservations[0].Instances) == 0 {
		return nil, core.E(core.KindProviderError, "instance '%s' not found", ec2ID)
	}
	address := aws.ToString(described.Reservations[0].Instances[0].PrivateIpAddress)
	if address == "" {
		return nil, core.E(core.KindProviderError, "instance '%s' has no private address", ec2ID)
	}

	otp, err := p.secrets.IssueOTP(ctx, address)
	if err != nil {
		return nil, err
	}

	p.audit(ctx, principal, target)

	logger.Info().
		Str("login", principal.Login).
		Str("target", target.String()).
		Msg("connection grant issued")

	return &core.ConnectionGrant{
		Address:   address,
		RuntimeID: runtimeID,
		OTP:       otp,
	}, nil
}

func (p *Pipeline) audit(ctx context.Context, principal *core.Principal, target core.Target) {
	event := core.AuditEvent{
		ID:        middleware.CorrelationCtx(ctx),
		Time:      time.Now(),
		Action:    "connect.resolve",
		Principal: principal,
		Product:   target.Product,
		Cluster:   target.Cluster,
		Granted:   true,
	}
	if err := p.auditor.Log(event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit event")
	}
}
