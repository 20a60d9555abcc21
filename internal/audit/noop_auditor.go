package audit

import "github.com/antoinerrr/ssh-ecs/internal/core"

var _ core.Auditor = (*NoopAuditor)(nil)

// NoopAuditor discards all events.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Log(_ core.AuditEvent) error {
	return nil
}

func (n *NoopAuditor) Close() error {
	return nil
}
