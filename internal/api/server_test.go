package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antoinerrr/ssh-ecs/internal/access"
	"github.com/antoinerrr/ssh-ecs/internal/api/presenter"
	"github.com/antoinerrr/ssh-ecs/internal/audit"
	"github.com/antoinerrr/ssh-ecs/internal/awsctx"
	"github.com/antoinerrr/ssh-ecs/internal/config"
	"github.com/antoinerrr/ssh-ecs/internal/core"
	"github.com/antoinerrr/ssh-ecs/internal/store"
)

// fakeIDP resolves tokens from a fixed map; everything else is rejected with
// an invalid-credential error.
type fakeIDP struct {
	tokens map[string]*core.Principal
}

func (f *fakeIDP) Resolve(_ context.Context, credential string) (*core.Principal, error) {
	p, ok := f.tokens[credential]
	if !ok {
		return nil, core.E(core.KindInvalidCredential, "bad credential")
	}
	return p, nil
}

func (f *fakeIDP) IsTeamMember(_ context.Context, _, _ string) (bool, error) {
	return false, fmt.Errorf("not used")
}

type fakeAuthz struct {
	allowed map[string]bool
	admins  map[string]bool
}

func (f *fakeAuthz) IsAuthorized(_ context.Context, principal *core.Principal, _ core.Target) bool {
	return f.allowed[principal.Login]
}

func (f *fakeAuthz) IsAdmin(_ context.Context, principal *core.Principal) bool {
	return f.admins[principal.Login]
}

type fakeFactory struct{}

func (fakeFactory) ContextFor(_ context.Context, product string, _ bool) (*awsctx.Context, error) {
	if product == "unknown" {
		return nil, core.E(core.KindUnsupportedProduct, "unknown product '%s'", product)
	}
	return &awsctx.Context{Product: product}, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, _ *awsctx.Context, principal *core.Principal, _ core.Target, _ core.ResourceSelector) (*core.ConnectionGrant, error) {
	return &core.ConnectionGrant{Address: "10.0.0.1", RuntimeID: "rt-1", OTP: "otp-" + principal.Login}, nil
}

type fakeNotifier struct {
	requests []core.AccessRequest
}

func (f *fakeNotifier) NotifyAccessRequest(_ context.Context, req core.AccessRequest) error {
	f.requests = append(f.requests, req)
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *fakeNotifier, *audit.InMemoryAuditor) {
	t.Helper()

	cfg := &config.Config{
		MinClientVersion: "v1.9.0",
		Products: []config.ProductConfig{
			{Name: "billing", Region: "eu-west-1", Clusters: []config.ClusterConfig{{Name: "prod", Groups: []string{"billing-dev"}}}},
		},
	}

	idp := &fakeIDP{tokens: map[string]*core.Principal{
		"alice-token": {Login: "alice"},
		"bob-token":   {Login: "bob"},
		"root-token":  {Login: "root"},
	}}
	authz := &fakeAuthz{
		allowed: map[string]bool{"alice": true},
		admins:  map[string]bool{"root": true},
	}
	notifier := &fakeNotifier{}
	auditor := audit.NewInMemoryAuditor()
	svc := access.NewService(authz, fakeFactory{}, fakeResolver{}, store.NewInMemoryRequestStore(), notifier, auditor, 0)

	srv := NewServer(cfg, idp, authz, fakeFactory{}, svc, auditor)
	return srv.Routes(), notifier, auditor
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			t.Fatalf("encoding payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) presenter.ErrorResponse {
	t.Helper()
	var resp presenter.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := doRequest(t, h, "GET", HealthCheckRoute, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthenticationGate(t *testing.T) {
	h, _, _ := newTestServer(t)

	t.Run("missing credential", func(t *testing.T) {
		rec := doRequest(t, h, "GET", MenuRoute, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("rejected credential carries its kind", func(t *testing.T) {
		rec := doRequest(t, h, "GET", MenuRoute, "wrong", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if resp := decodeError(t, rec); resp.Kind != core.KindInvalidCredential {
			t.Errorf("kind = %s, want %s", resp.Kind, core.KindInvalidCredential)
		}
	})
}

func TestMenu(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := doRequest(t, h, "GET", MenuRoute, "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Header().Get(UserHeader); got != "alice" {
		t.Errorf("%s = %q, want %q", UserHeader, got, "alice")
	}
	if got := rec.Header().Get(VersionHeader); got != "v1.9.0" {
		t.Errorf("%s = %q, want %q", VersionHeader, got, "v1.9.0")
	}

	var menu map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &menu); err != nil {
		t.Fatalf("decoding menu: %v", err)
	}
	if len(menu["billing"]) != 1 || menu["billing"][0] != "prod" {
		t.Errorf("menu = %v", menu)
	}
}

func TestConnect(t *testing.T) {
	h, _, _ := newTestServer(t)
	payload := ConnectPayload{Task: "task-arn", Container: "container-arn - app"}

	t.Run("authorized", func(t *testing.T) {
		rec := doRequest(t, h, "POST", "/v1/connect/billing/prod", "alice-token", payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		var grant core.ConnectionGrant
		if err := json.Unmarshal(rec.Body.Bytes(), &grant); err != nil {
			t.Fatalf("decoding grant: %v", err)
		}
		if grant.Address != "10.0.0.1" || grant.OTP != "otp-alice" {
			t.Errorf("grant = %+v", grant)
		}
	})

	t.Run("denied with not_authorized kind", func(t *testing.T) {
		rec := doRequest(t, h, "POST", "/v1/connect/billing/prod", "bob-token", payload)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if resp := decodeError(t, rec); resp.Kind != core.KindNotAuthorized {
			t.Errorf("kind = %s, want %s", resp.Kind, core.KindNotAuthorized)
		}
	})

	t.Run("missing selector field", func(t *testing.T) {
		rec := doRequest(t, h, "POST", "/v1/connect/billing/prod", "alice-token", ConnectPayload{Task: "task-arn"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if resp := decodeError(t, rec); resp.Kind != core.KindMissingArgument {
			t.Errorf("kind = %s, want %s", resp.Kind, core.KindMissingArgument)
		}
	})
}

func TestEscalationOverHTTP(t *testing.T) {
	h, notifier, _ := newTestServer(t)
	payload := ConnectPayload{Task: "task-arn", Container: "container-arn - app"}

	// bob is denied the direct path, so he files a request
	rec := doRequest(t, h, "POST", "/v1/access/request/billing/prod", "bob-token", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("request status = %d (%s)", rec.Code, rec.Body.String())
	}
	var created RequestAccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding request response: %v", err)
	}
	if created.Token == "" {
		t.Fatal("empty requester token")
	}
	if len(notifier.requests) != 1 {
		t.Fatalf("notifier received %d requests, want 1", len(notifier.requests))
	}
	validatorToken := notifier.requests[0].ValidatorToken

	// the validator token never appears in the requester-facing response
	if bytes.Contains(rec.Body.Bytes(), []byte(validatorToken)) {
		t.Fatal("validator token leaked into the request response")
	}

	// pending poll
	rec = doRequest(t, h, "GET", "/v1/access/poll/"+created.Token, "bob-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll status = %d (%s)", rec.Code, rec.Body.String())
	}
	var poll PollResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &poll); err != nil {
		t.Fatalf("decoding poll response: %v", err)
	}
	if poll.Status != access.StatusWaiting || poll.Grant != nil {
		t.Fatalf("poll before approval = %+v", poll)
	}

	// non-admin approval is refused
	rec = doRequest(t, h, "POST", "/v1/access/approve/"+validatorToken, "alice-token", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin approve status = %d (%s)", rec.Code, rec.Body.String())
	}

	// admin approval succeeds
	rec = doRequest(t, h, "POST", "/v1/access/approve/"+validatorToken, "root-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d (%s)", rec.Code, rec.Body.String())
	}

	// approved poll resolves for the original subject
	rec = doRequest(t, h, "GET", "/v1/access/poll/"+created.Token, "bob-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll status = %d (%s)", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &poll); err != nil {
		t.Fatalf("decoding poll response: %v", err)
	}
	if poll.Status != access.StatusGranted || poll.Grant == nil || poll.Grant.OTP != "otp-bob" {
		t.Fatalf("poll after approval = %+v", poll)
	}
}

func TestAuditRoute(t *testing.T) {
	h, _, auditor := newTestServer(t)

	seed := []core.AuditEvent{
		{Action: "connect.direct", Principal: &core.Principal{Login: "alice"}, Product: "billing", Granted: true},
		{Action: "access.request", Principal: &core.Principal{Login: "bob"}, Product: "billing"},
		{Action: "access.approve", Principal: &core.Principal{Login: "root"}, Product: "billing", Granted: true},
	}
	for _, e := range seed {
		if err := auditor.Log(e); err != nil {
			t.Fatalf("seeding audit events: %v", err)
		}
	}

	decodeEvents := func(t *testing.T, rec *httptest.ResponseRecorder) []core.AuditEvent {
		t.Helper()
		var events []core.AuditEvent
		if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
			t.Fatalf("decoding audit events %q: %v", rec.Body.String(), err)
		}
		return events
	}

	t.Run("admin only", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute, "alice-token", nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin gets events", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute, "root-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if events := decodeEvents(t, rec); len(events) != len(seed) {
			t.Errorf("got %d events, want %d", len(events), len(seed))
		}
	})

	t.Run("filter by login", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute+"?login=bob", "root-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		events := decodeEvents(t, rec)
		if len(events) != 1 || events[0].Principal.Login != "bob" {
			t.Errorf("filtered events = %+v, want only bob's", events)
		}
	})

	t.Run("filter by action", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute+"?action=access.approve", "root-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		events := decodeEvents(t, rec)
		if len(events) != 1 || events[0].Action != "access.approve" {
			t.Errorf("filtered events = %+v, want only the approval", events)
		}
	})

	t.Run("combined filters match nothing", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute+"?login=bob&action=access.approve", "root-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if events := decodeEvents(t, rec); len(events) != 0 {
			t.Errorf("filtered events = %+v, want none", events)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := doRequest(t, h, "GET", AuditRoute+"?limit=zero", "root-token", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestDecodePayload(t *testing.T) {
	newReq := func(contentType, body string) *http.Request {
		req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req
	}

	cases := []struct {
		name    string
		req     *http.Request
		wantErr bool
	}{
		{"valid payload", newReq("application/json", `{"task":"t","container":"c"}`), false},
		{"missing content type defaults to json", newReq("", `{"task":"t"}`), false},
		{"empty body", newReq("application/json", ""), true},
		{"unknown field", newReq("application/json", `{"task":"t","bogus":1}`), true},
		{"trailing data", newReq("application/json", `{"task":"t"}{"task":"u"}`), true},
		{"unsupported content type", newReq("text/plain", `{"task":"t"}`), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload ConnectPayload
			err := DecodePayload(tc.req, &payload)
			if (err != nil) != tc.wantErr {
				t.Errorf("DecodePayload() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
