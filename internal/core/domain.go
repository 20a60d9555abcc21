package core

import "time"

// Principal represents the authenticated identity of the caller.
// It is produced by the IdentityProvider after verifying a bearer credential
// and lives only for the duration of a single request.
type Principal struct {
	// Login is the unique identity-provider username.
	Login string `json:"login"`

	// ID is the numeric identity-provider user ID.
	ID int64 `json:"id"`
}

// Target identifies a policy and infrastructure scope.
type Target struct {
	// Product is a key into the static policy table.
	Product string `json:"product"`

	// Cluster is the ECS cluster name inside the account addressed by Product.
	Cluster string `json:"cluster"`
}

func (t Target) String() string {
	return t.Product + "/" + t.Cluster
}

// ResourceSelector picks a container within a Target. Both identifiers are
// pass-through values produced by earlier listing stages: Task is a task ARN
// (or its trailing ID segment), Container is the compound
// "containerArn - name" string returned by the container listing.
type ResourceSelector struct {
	Task      string `json:"task"`
	Container string `json:"container"`
}

// ConnectionGrant is the ephemeral bundle handed to the session-opening
// collaborator. It is constructed fresh per resolution and never persisted.
type ConnectionGrant struct {
	// Address is the private network address of the backing host.
	Address string `json:"ip"`

	// RuntimeID is the orchestration-assigned container runtime identifier.
	RuntimeID string `json:"container"`

	// OTP is the one-time credential scoped to Address by the secret issuer.
	// It is consumed exactly once by the session opener.
	OTP string `json:"otp"`
}

// AccessRequest is the persisted record of a split-token escalation request.
// Knowledge of RequesterToken must never be sufficient to approve: the
// ValidatorToken is sent only to the admin channel and never returned to the
// requester.
type AccessRequest struct {
	// Subject is the login of the principal who asked for access.
	Subject string `json:"subject"`

	Target   Target           `json:"target"`
	Selector ResourceSelector `json:"selector"`

	// RequesterToken is returned only to the original caller and is used to
	// poll for the decision.
	RequesterToken string `json:"requester_token"`

	// ValidatorToken is sent only to the notification channel and is used by
	// an admin to approve the request.
	ValidatorToken string `json:"validator_token"`

	// Approved marks the Pending -> Approved transition. There is no other
	// transition: a request that is never approved stays Pending.
	Approved bool `json:"approved"`

	CreatedAt time.Time `json:"created_at"`
}
