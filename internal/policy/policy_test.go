package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

type fakeTable map[core.Target][]string

func (f fakeTable) AllowedGroups(target core.Target) []string {
	return f[target]
}

// fakeIdentity reports membership from a fixed map and can simulate provider
// failures for individual groups.
type fakeIdentity struct {
	members map[string][]string // group -> logins
	failing map[string]bool     // group -> error on lookup
	calls   []string
}

func (f *fakeIdentity) Resolve(_ context.Context, _ string) (*core.Principal, error) {
	panic("not used")
}

func (f *fakeIdentity) IsTeamMember(_ context.Context, team, login string) (bool, error) {
	f.calls = append(f.calls, team)
	if f.failing[team] {
		return false, fmt.Errorf("simulated provider outage for %s", team)
	}
	for _, l := range f.members[team] {
		if l == login {
			return true, nil
		}
	}
	return false, nil
}

func TestIsAuthorized(t *testing.T) {
	billing := core.Target{Product: "billing", Cluster: "prod"}

	tests := []struct {
		name    string
		table   fakeTable
		idp     *fakeIdentity
		target  core.Target
		login   string
		want    bool
		wantLen int // number of membership calls, -1 to skip
	}{
		{
			name:  "member of first group short-circuits",
			table: fakeTable{billing: {"billing-dev", "devops"}},
			idp: &fakeIdentity{
				members: map[string][]string{"billing-dev": {"alice"}},
			},
			target:  billing,
			login:   "alice",
			want:    true,
			wantLen: 1,
		},
		{
			name:  "member of later group",
			table: fakeTable{billing: {"billing-dev", "devops"}},
			idp: &fakeIdentity{
				members: map[string][]string{"devops": {"alice"}},
			},
			target:  billing,
			login:   "alice",
			want:    true,
			wantLen: 2,
		},
		{
			name:  "no membership anywhere denies",
			table: fakeTable{billing: {"billing-dev", "devops"}},
			idp: &fakeIdentity{
				members: map[string][]string{"billing-dev": {"alice"}},
			},
			target:  billing,
			login:   "bob",
			want:    false,
			wantLen: 2,
		},
		{
			name:    "unknown target denies without lookups",
			table:   fakeTable{},
			idp:     &fakeIdentity{},
			target:  core.Target{Product: "nope", Cluster: "prod"},
			login:   "alice",
			want:    false,
			wantLen: 0,
		},
		{
			name:  "provider error on one group does not abort evaluation",
			table: fakeTable{billing: {"billing-dev", "devops"}},
			idp: &fakeIdentity{
				members: map[string][]string{"devops": {"alice"}},
				failing: map[string]bool{"billing-dev": true},
			},
			target:  billing,
			login:   "alice",
			want:    true,
			wantLen: 2,
		},
		{
			name:  "provider error everywhere denies",
			table: fakeTable{billing: {"billing-dev", "devops"}},
			idp: &fakeIdentity{
				failing: map[string]bool{"billing-dev": true, "devops": true},
			},
			target:  billing,
			login:   "alice",
			want:    false,
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.table, nil, tt.idp)
			got := e.IsAuthorized(context.Background(), &core.Principal{Login: tt.login}, tt.target)
			if got != tt.want {
				t.Errorf("IsAuthorized() = %v, want %v", got, tt.want)
			}
			if tt.wantLen >= 0 && len(tt.idp.calls) != tt.wantLen {
				t.Errorf("membership calls = %d (%v), want %d", len(tt.idp.calls), tt.idp.calls, tt.wantLen)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	idp := &fakeIdentity{
		members: map[string][]string{"devops": {"root"}},
	}
	e := New(fakeTable{}, []string{"devops"}, idp)

	if !e.IsAdmin(context.Background(), &core.Principal{Login: "root"}) {
		t.Error("expected root to be admin")
	}
	if e.IsAdmin(context.Background(), &core.Principal{Login: "bob"}) {
		t.Error("expected bob not to be admin")
	}
}
