package secret

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.SecretIssuer = (*VaultIssuer)(nil)

// VaultIssuer issues one-time SSH credentials from a Vault SSH-OTP secret
// engine. The credential is scoped by Vault to the address it was issued for
// and consumed exactly once by the SSH bastion.
type VaultIssuer struct {
	client     *vault.Client
	secretPath string
}

func NewVaultIssuer(cfg config.VaultConfig) (*VaultIssuer, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Addr

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultIssuer{
		client:     client,
		secretPath: cfg.SecretPath,
	}, nil
}

func (v *VaultIssuer) IssueOTP(ctx context.Context, address string) (string, error) {
	secret, err := v.client.Logical().WriteWithContext(ctx, v.secretPath, map[string]any{
		"ip": address,
	})
	if err != nil {
		return "", core.Wrap(core.KindProviderError, err, "issuing one-time credential for '%s'", address)
	}
	if secret == nil || secret.Data == nil {
		return "", core.E(core.KindProviderError, "empty secret response for '%s'", address)
	}

	key, ok := secret.Data["key"].(string)
	if !ok || key == "" {
		return "", core.E(core.KindProviderError, "secret response for '%s' has no key", address)
	}
	return key, nil
}
