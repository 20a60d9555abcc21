package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.Auditor = (*HTTPAuditor)(nil)

// HTTPAuditor ships audit events to a log-intake endpoint (e.g. the Datadog
// HTTP intake). Delivery is synchronous and best-effort: the caller discards
// failures, so a broken intake never blocks a connection.
type HTTPAuditor struct {
	url      string
	service  string
	source   string
	hostname string
	client   *http.Client
}

type httpAuditorOptions struct {
	URL      string `mapstructure:"url"`
	Service  string `mapstructure:"service"`
	Source   string `mapstructure:"source"`
	Hostname string `mapstructure:"hostname"`
}

func NewHTTPAuditor(opts httpAuditorOptions) *HTTPAuditor {
	if opts.Service == "" {
		opts.Service = "ssh-ecs"
	}
	if opts.Source == "" {
		opts.Source = "ssh-ecs-server"
	}
	return &HTTPAuditor{
		url:      opts.URL,
		service:  opts.Service,
		source:   opts.Source,
		hostname: opts.Hostname,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type intakePayload struct {
	Service  string          `json:"service"`
	Source   string          `json:"ddsource"`
	Hostname string          `json:"hostname,omitempty"`
	Message  core.AuditEvent `json:"message"`
}

func (h *HTTPAuditor) Log(event core.AuditEvent) error {
	payload := intakePayload{
		Service:  h.service,
		Source:   h.source,
		Hostname: h.hostname,
		Message:  event,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}

	resp, err := h.client.Post(h.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shipping audit event: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("audit intake returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTPAuditor) Close() error {
	return nil
}
