package awsctx

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// ECSAPI is the slice of the ECS client the broker uses.
type ECSAPI interface {
	ListServices(ctx context.Context, params *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	ListTasks(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, params *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
	DescribeContainerInstances(ctx context.Context, params *ecs.DescribeContainerInstancesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeContainerInstancesOutput, error)
}

// EC2API is the slice of the EC2 client the resolution pipeline uses.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Context is a product-scoped execution context: API clients bound to the
// product's region and account identity.
type Context struct {
	Product string
	Region  string

	ECS ECSAPI

	// EC2 is only populated when the context was requested with the
	// compute-inventory client.
	EC2 EC2API
}

// ProductTable is the view of the policy table the factory needs.
// config.Config satisfies it.
type ProductTable interface {
	Product(name string) (*config.ProductConfig, bool)
}

// Factory builds product-scoped execution contexts. Delegated credentials are
// wrapped in an auto-refreshing cache and reused for the factory's lifetime;
// they are never reconstructed per call.
type Factory struct {
	table ProductTable
	base  aws.Config

	mu    sync.Mutex
	creds map[string]aws.CredentialsProvider // product -> cached assume-role creds
}

// NewFactory loads the broker's own AWS configuration once and keeps it as
// the base for every context.
func NewFactory(ctx context.Context, table ProductTable) (*Factory, error) {
	base, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, core.Wrap(core.KindProviderError, err, "loading aws configuration")
	}
	return &Factory{
		table: table,
		base:  base,
		creds: make(map[string]aws.CredentialsProvider),
	}, nil
}

// ContextFor returns an execution context for the product. Unknown products
// are an unsupported-product error, not a crash. withCompute additionally
// attaches the compute-inventory client.
func (f *Factory) ContextFor(ctx context.Context, product string, withCompute bool) (*Context, error) {
	p, ok := f.table.Product(product)
	if !ok {
		return nil, core.E(core.KindUnsupportedProduct, "unknown product '%s'", product)
	}

	cfg := f.base.Copy()
	cfg.Region = p.Region

	if p.AssumeRole != "" {
		cfg.Credentials = f.delegatedCredentials(ctx, product, p.AssumeRole)
	}

	ec := &Context{
		Product: product,
		Region:  p.Region,
		ECS:     ecs.NewFromConfig(cfg),
	}
	if withCompute {
		ec.EC2 = ec2.NewFromConfig(cfg)
	}
	return ec, nil
}

// delegatedCredentials returns the cached auto-refreshing assume-role
// provider for the product, creating it on first use.
func (f *Factory) delegatedCredentials(ctx context.Context, product, roleARN string) aws.CredentialsProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	if creds, ok := f.creds[product]; ok {
		return creds
	}

	log.Ctx(ctx).Debug().
		Str("product", product).
		Str("role", roleARN).
		Msg("creating delegated credential provider")

	stsClient := sts.NewFromConfig(f.base)
	creds := aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, roleARN))
	f.creds[product] = creds
	return creds
}
