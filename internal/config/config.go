package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// Config is the server configuration. It is loaded once at process start and
// treated as immutable afterwards: components receive it (or views of it) by
// injection and never read ambient globals.
type Config struct {
	// MinClientVersion is advertised on the menu route so outdated clients
	// can refuse to proceed.
	MinClientVersion string `yaml:"min_client_version"`

	GitHub GitHubConfig `yaml:"github"`

	// AdminGroups is the fixed administrative scope: the teams allowed to
	// approve escalation requests and read the audit log.
	AdminGroups []string `yaml:"admin_groups"`

	// Products is the static policy/region table.
	Products []ProductConfig `yaml:"products"`

	Vault  VaultConfig  `yaml:"vault"`
	Slack  SlackConfig  `yaml:"slack"`
	Store  StoreConfig  `yaml:"store"`
	Audit  AuditConfig  `yaml:"audit"`
	Access AccessConfig `yaml:"access"`
}

// GitHubConfig holds the identity-provider settings.
type GitHubConfig struct {
	// Org is the organization every caller must belong to.
	Org string `yaml:"org"`

	// AdminToken is the broker's own token, used for the org and team
	// membership lookups (needs read on admin:org).
	AdminToken string `yaml:"admin_token"`

	// BaseURL is the GitHub Enterprise API URL. Empty for github.com.
	BaseURL string `yaml:"server,omitempty"`
}

// ProductConfig maps one product to its AWS scope and per-cluster groups.
type ProductConfig struct {
	Name string `yaml:"name"`

	// AssumeRole is the ARN of a role to assume for this product's account.
	// Empty means the broker's own identity.
	AssumeRole string `yaml:"assume_role,omitempty"`

	// Region is where the product's clusters live.
	Region string `yaml:"region"`

	Clusters []ClusterConfig `yaml:"clusters"`
}

// ClusterConfig binds a cluster to the teams allowed to connect to it.
type ClusterConfig struct {
	Name   string   `yaml:"name"`
	Groups []string `yaml:"groups"`
}

// VaultConfig holds the secret-issuance settings.
type VaultConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`

	// SecretPath is the SSH-OTP secret engine role path,
	// e.g. "ssh/creds/otp_key_role".
	SecretPath string `yaml:"secret_path"`
}

// SlackConfig holds the notification channel settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`

	// Username shown as the sender of the approval message.
	Username string `yaml:"username,omitempty"`
}

// StoreConfig selects the request store backend.
type StoreConfig struct {
	// Type is "memory" or "bolt".
	Type string `yaml:"type"`

	// Config captures backend-specific fields (e.g. "path" for bolt).
	Config map[string]any `yaml:",inline"`
}

// AuditConfig selects the observability sink.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Type is "memory", "file", "http" or "noop".
	Type string `yaml:"type"`

	// Config captures sink-specific fields (e.g. "path", "url").
	Config map[string]any `yaml:",inline"`
}

// AccessConfig tunes the escalation state machine.
type AccessConfig struct {
	// TTL bounds how long a Pending request stays resolvable. Zero keeps
	// records forever.
	TTL time.Duration `yaml:"ttl"`
}

// Load reads, parses and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GitHub.Org == "" {
		return fmt.Errorf("github.org is required")
	}
	if c.GitHub.AdminToken == "" {
		return fmt.Errorf("github.admin_token is required")
	}
	if len(c.AdminGroups) == 0 {
		return fmt.Errorf("admin_groups must not be empty")
	}

	seen := make(map[string]struct{})
	for idx, p := range c.Products {
		if p.Name == "" {
			return fmt.Errorf("product at index %d has empty name", idx)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate product '%s'", p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Region == "" {
			return fmt.Errorf("product '%s' has no region", p.Name)
		}

		clusters := make(map[string]struct{})
		for _, cl := range p.Clusters {
			if cl.Name == "" {
				return fmt.Errorf("product '%s' has a cluster with empty name", p.Name)
			}
			if _, dup := clusters[cl.Name]; dup {
				return fmt.Errorf("product '%s' has duplicate cluster '%s'", p.Name, cl.Name)
			}
			clusters[cl.Name] = struct{}{}
		}
	}

	return nil
}

// Product looks up a product by name.
func (c *Config) Product(name string) (*ProductConfig, bool) {
	for i := range c.Products {
		if c.Products[i].Name == name {
			return &c.Products[i], true
		}
	}
	return nil, false
}

// AllowedGroups returns the teams permitted for a target. An unknown product
// or cluster yields an empty list, which the policy evaluator treats as deny.
func (c *Config) AllowedGroups(target core.Target) []string {
	p, ok := c.Product(target.Product)
	if !ok {
		return nil
	}
	for _, cl := range p.Clusters {
		if cl.Name == target.Cluster {
			return cl.Groups
		}
	}
	return nil
}

// Menu returns the product -> clusters mapping shown to users.
func (c *Config) Menu() map[string][]string {
	menu := make(map[string][]string, len(c.Products))
	for _, p := range c.Products {
		clusters := make([]string, 0, len(p.Clusters))
		for _, cl := range p.Clusters {
			clusters = append(clusters, cl.Name)
		}
		menu[p.Name] = clusters
	}
	return menu
}
