package resolve

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// ListServices returns the service ARNs of a cluster.
func ListServices(ctx context.Context, ec *awsctx.Context, cluster string) ([]string, error) {
	out, err := ec.ECS.ListServices(ctx, &ecs.ListServicesInput{
		Cluster: aws.String(cluster),
	})
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "listing services for cluster '%s'", cluster)
	}
	return out.ServiceArns, nil
}

// ListTasks returns the ARNs of the RUNNING tasks of a service. The service
// identifier is a pass-through ARN from ListServices; only its trailing
// segment names the service.
func ListTasks(ctx context.Context, ec *awsctx.Context, cluster, service string) ([]string, error) {
	out, err := ec.ECS.ListTasks(ctx, &ecs.ListTasksInput{
		Cluster:       aws.String(cluster),
		ServiceName:   aws.String(core.DisplayName(service)),
		DesiredStatus: types.DesiredStatusRunning,
	})
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "listing tasks for service '%s' in cluster '%s'", service, cluster)
	}
	return out.TaskArns, nil
}

// ListContainers returns compound "containerArn - name" entries for a task,
// the convention the resolution stage later splits on.
func ListContainers(ctx context.Context, ec *awsctx.Context, cluster, task string) ([]string, error) {
	described, err := describeTask(ctx, ec, cluster, task)
	if err != nil {
		return nil, err
	}

	containers := make([]string, 0, len(described.Containers))
	for _, c := range described.Containers {
		containers = append(containers, aws.ToString(c.ContainerArn)+" - "+aws.ToString(c.Name))
	}
	return containers, nil
}

// describeTask fetches a single task by its pass-through identifier.
func describeTask(ctx context.Context, ec *awsctx.Context, cluster, task string) (*types.Task, error) {
	out, err := ec.ECS.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(cluster),
		Tasks:   []string{core.TaskID(task)},
	})
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "describing task '%s' in cluster '%s'", task, cluster)
	}
	if len(out.Tasks) == 0 {
		return nil, core.E(core.KindTaskNotFound, "task '%s' not found in cluster '%s'", task, cluster)
	}
	return &out.Tasks[0], nil
}
