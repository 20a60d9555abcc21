package core

import "time"

// AuditEvent records one access decision or connection grant.
type AuditEvent struct {
	// ID is the unique request ID (X-Correlation-ID).
	ID string `json:"id"`

	// Time is the timestamp of the event.
	Time time.Time `json:"time"`

	// Action describes what happened (e.g. "connect.direct", "access.approve").
	Action string `json:"action"`

	// Principal identifies who made the request.
	Principal *Principal `json:"principal"`

	// Target that was addressed.
	Product string `json:"product,omitempty"`
	Cluster string `json:"cluster,omitempty"`

	Granted bool   `json:"granted"`
	Error   string `json:"error,omitempty"`
}

// Auditor is the observability sink. The broker calls it synchronously but
// discards failures: a broken sink must never fail the primary operation.
type Auditor interface {
	Log(event AuditEvent) error
	Close() error
}

// AuditReader is implemented by sinks that can serve the admin listing route.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEvent, error)
	Find(filter func(event AuditEvent) bool, limit int) ([]AuditEvent, error)
}
