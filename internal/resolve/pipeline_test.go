package resolve

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/google/go-cmp/cmp"

	"github.com/antoinerrr/ssh-ecs/internal/audit"
	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

const (
	testTaskARN      = "arn:aws:ecs:eu-west-1:123456789012:task/prod/deadbeef1234"
	testContainerARN = "arn:aws:ecs:eu-west-1:123456789012:container/prod/deadbeef1234/cafe"
	testInstanceARN  = "arn:aws:ecs:eu-west-1:123456789012:container-instance/prod/fedcba"
)

// fakeECS answers the describe chain from fixed fixtures and records the task
// identifier it was asked to describe.
type fakeECS struct {
	task          *ecstypes.Task
	ec2InstanceID string

	describedTasks []string
	listedServices []string
}

func (f *fakeECS) ListServices(_ context.Context, params *ecs.ListServicesInput, _ ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	return &ecs.ListServicesOutput{ServiceArns: f.listedServices}, nil
}

func (f *fakeECS) ListTasks(_ context.Context, params *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	if params.DesiredStatus != ecstypes.DesiredStatusRunning {
		return nil, fmt.Errorf("expected RUNNING filter, got %s", params.DesiredStatus)
	}
	return &ecs.ListTasksOutput{TaskArns: []string{testTaskARN}}, nil
}

func (f *fakeECS) DescribeTasks(_ context.Context, params *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	f.describedTasks = append(f.describedTasks, params.Tasks...)
	if f.task == nil {
		return &ecs.DescribeTasksOutput{}, nil
	}
	return &ecs.DescribeTasksOutput{Tasks: []ecstypes.Task{*f.task}}, nil
}

func (f *fakeECS) DescribeContainerInstances(_ context.Context, _ *ecs.DescribeContainerInstancesInput, _ ...func(*ecs.Options)) (*ecs.DescribeContainerInstancesOutput, error) {
	return &ecs.DescribeContainerInstancesOutput{
		ContainerInstances: []ecstypes.ContainerInstance{
			{Ec2InstanceId: aws.String(f.ec2InstanceID)},
		},
	}, nil
}

type fakeEC2 struct {
	address string
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{
			{Instances: []ec2types.Instance{{PrivateIpAddress: aws.String(f.address)}}},
		},
	}, nil
}

// fakeIssuer issues a credential derived from the address so the test can
// verify the scoping.
type fakeIssuer struct{}

func (fakeIssuer) IssueOTP(_ context.Context, address string) (string, error) {
	return "otp-for-" + address, nil
}

func healthyTask() *ecstypes.Task {
	return &ecstypes.Task{
		TaskArn:              aws.String(testTaskARN),
		ContainerInstanceArn: aws.String(testInstanceARN),
		Containers: []ecstypes.Container{
			{
				ContainerArn: aws.String(testContainerARN),
				Name:         aws.String("app"),
				RuntimeId:    aws.String("runtime-1234"),
			},
			{
				ContainerArn: aws.String(testContainerARN + "-sidecar"),
				Name:         aws.String("envoy"),
				RuntimeId:    aws.String("runtime-5678"),
			},
		},
	}
}

func testContext(ecsAPI awsctx.ECSAPI, ec2API awsctx.EC2API) *awsctx.Context {
	return &awsctx.Context{Product: "billing", Region: "eu-west-1", ECS: ecsAPI, EC2: ec2API}
}

func TestResolve(t *testing.T) {
	target := core.Target{Product: "billing", Cluster: "prod"}
	principal := &core.Principal{Login: "alice"}

	t.Run("full chain yields grant", func(t *testing.T) {
		ecsAPI := &fakeECS{task: healthyTask(), ec2InstanceID: "i-0abc"}
		sink := audit.NewInMemoryAuditor()
		p := New(fakeIssuer{}, sink)

		grant, err := p.Resolve(context.Background(), testContext(ecsAPI, &fakeEC2{address: "10.1.2.3"}), principal, target, core.ResourceSelector{
			Task:      testTaskARN,
			Container: testContainerARN + " - app",
		})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		want := &core.ConnectionGrant{
			Address:   "10.1.2.3",
			RuntimeID: "runtime-1234",
			OTP:       "otp-for-10.1.2.3",
		}
		if diff := cmp.Diff(want, grant); diff != "" {
			t.Errorf("grant mismatch (-want +got):\n%s", diff)
		}

		// the describe call must carry the bare task ID, not the full ARN
		if len(ecsAPI.describedTasks) != 1 || ecsAPI.describedTasks[0] != "deadbeef1234" {
			t.Errorf("described tasks = %v, want [deadbeef1234]", ecsAPI.describedTasks)
		}

		events, _ := sink.GetRecent(10)
		if len(events) != 1 || events[0].Action != "connect.resolve" || !events[0].Granted {
			t.Errorf("unexpected audit events: %+v", events)
		}
	})

	t.Run("unknown container", func(t *testing.T) {
		ecsAPI := &fakeECS{task: healthyTask(), ec2InstanceID: "i-0abc"}
		p := New(fakeIssuer{}, audit.NewNoopAuditor())

		_, err := p.Resolve(context.Background(), testContext(ecsAPI, &fakeEC2{address: "10.1.2.3"}), principal, target, core.ResourceSelector{
			Task:      testTaskARN,
			Container: "arn:aws:ecs:eu-west-1:123456789012:container/other - app",
		})
		if !core.IsKind(err, core.KindContainerNotFound) {
			t.Errorf("err = %v, want kind %s", err, core.KindContainerNotFound)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		ecsAPI := &fakeECS{task: nil}
		p := New(fakeIssuer{}, audit.NewNoopAuditor())

		_, err := p.Resolve(context.Background(), testContext(ecsAPI, &fakeEC2{}), principal, target, core.ResourceSelector{
			Task:      testTaskARN,
			Container: testContainerARN + " - app",
		})
		if !core.IsKind(err, core.KindTaskNotFound) {
			t.Errorf("err = %v, want kind %s", err, core.KindTaskNotFound)
		}
	})
}

func TestListContainers(t *testing.T) {
	ecsAPI := &fakeECS{task: healthyTask(), ec2InstanceID: "i-0abc"}

	containers, err := ListContainers(context.Background(), testContext(ecsAPI, nil), "prod", testTaskARN)
	if err != nil {
		t.Fatalf("ListContainers() error = %v", err)
	}

	want := []string{
		testContainerARN + " - app",
		testContainerARN + "-sidecar - envoy",
	}
	if diff := cmp.Diff(want, containers); diff != "" {
		t.Errorf("containers mismatch (-want +got):\n%s", diff)
	}

	// the compound entries must round-trip through the selector splitters
	if got := core.ContainerARN(containers[0]); got != testContainerARN {
		t.Errorf("ContainerARN(%q) = %q, want %q", containers[0], got, testContainerARN)
	}
}

func TestListServices(t *testing.T) {
	ecsAPI := &fakeECS{listedServices: []string{"arn:aws:ecs:eu-west-1:123456789012:service/prod/api"}}

	services, err := ListServices(context.Background(), testContext(ecsAPI, nil), "prod")
	if err != nil {
		t.Fatalf("ListServices() error = %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("services = %v, want one entry", services)
	}
	if got := core.DisplayName(services[0]); got != "api" {
		t.Errorf("DisplayName(%q) = %q, want %q", services[0], got, "api")
	}
}
