package core

import "context"

// IdentityProvider verifies bearer credentials and answers group-membership
// questions. Implementation: GitHub.
type IdentityProvider interface {
	// Resolve validates the presented credential, checks organization
	// membership and returns the Principal. Failures are tagged:
	// KindInvalidCredential for a rejected credential, KindNotAuthorized for
	// a non-member, KindProviderError for anything else (fail closed).
	Resolve(ctx context.Context, credential string) (*Principal, error)

	// IsTeamMember reports whether login is an active member of the given
	// team. A provider error is an error, not a "false": the caller decides
	// how to degrade.
	IsTeamMember(ctx context.Context, team, login string) (bool, error)
}

// SecretIssuer issues one-time credentials scoped to a network address.
// Implementation: Vault SSH-OTP secret engine.
type SecretIssuer interface {
	IssueOTP(ctx context.Context, address string) (string, error)
}

// Notifier delivers the validator token to the admin channel. Failures are
// caught and discarded at the boundary; they never fail the primary operation.
// Implementation: Slack incoming webhook.
type Notifier interface {
	NotifyAccessRequest(ctx context.Context, req AccessRequest) error
}

// RequestStore persists escalation requests, keyed by both tokens.
// Lookups on unknown tokens return an error tagged KindNotFound.
type RequestStore interface {
	Insert(ctx context.Context, req AccessRequest) error

	FindByRequesterToken(ctx context.Context, token string) (*AccessRequest, error)
	FindByValidatorToken(ctx context.Context, token string) (*AccessRequest, error)

	// Approve sets approved=true on the record with the given validator
	// token. The update is atomic and idempotent: approving an already
	// approved record is a no-op, not an error.
	Approve(ctx context.Context, validatorToken string) error

	Close() error
}
