package access

import (
	"sync"
	"testing"
)

var alice = User{Subject: "u-1", Name: "Alice"}

func TestGate_ViewerFallbackKeepsRequest(t *testing.T) {
	g := NewGate()
	if g.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", g.State())
	}
	if tr := g.Authenticate(alice); tr.To != StateNeedsRole || !tr.Changed {
		t.Fatalf("expected needs_role, got %+v", tr)
	}
	tr := g.SelectRole(RoleEngineer)
	if tr.To != StatePendingApproval || !tr.RequestEmitted {
		t.Fatalf("expected pending with request, got %+v", tr)
	}
	if tr := g.ContinueAsViewer(); tr.To != StateViewer {
		t.Fatalf("expected viewer, got %+v", tr)
	}
	if g.CanAct() || !g.CanView() {
		t.Fatalf("viewer must view but not act")
	}
	if tr := g.AssignRole(RoleEngineer); tr.To != StateEngineer {
		t.Fatalf("expected engineer after approval, got %+v", tr)
	}
	if !g.CanAct() {
		t.Fatalf("expected canAct after approval")
	}
}

func TestGate_SelectViewerIsImmediate(t *testing.T) {
	g := NewGate()
	g.Authenticate(alice)
	tr := g.SelectRole(RoleViewer)
	if tr.To != StateViewer || tr.RequestEmitted {
		t.Fatalf("expected viewer without request, got %+v", tr)
	}
}

func TestGate_RequestIsIdempotentWhilePending(t *testing.T) {
	g := NewGate()
	g.Authenticate(alice)
	g.RequestRole(RoleEngineer)
	tr := g.SelectRole(RoleEngineer)
	if tr.Changed || tr.RequestEmitted {
		t.Fatalf("expected no-op while pending, got %+v", tr)
	}
	if g.State() != StatePendingApproval {
		t.Fatalf("expected pending, got %s", g.State())
	}
}

func TestGate_InvalidTransitionsAreNoops(t *testing.T) {
	g := NewGate()
	for _, tr := range []Transition{
		g.SelectRole(RoleViewer),
		g.RequestRole(RoleEngineer),
		g.ContinueAsViewer(),
		g.AssignRole(RoleEngineer),
		g.RejectRequest(),
		g.SignOut(),
	} {
		if tr.Changed || tr.To != StateUnauthenticated {
			t.Fatalf("expected no-op before authentication, got %+v", tr)
		}
	}

	g.Authenticate(alice)
	g.AssignRole(RoleEngineer)
	if tr := g.SelectRole(RoleViewer); tr.Changed {
		t.Fatalf("selectRole as engineer must be a no-op, got %+v", tr)
	}
	if tr := g.Authenticate(User{Subject: "u-2"}); tr.Changed {
		t.Fatalf("re-authentication must be a no-op, got %+v", tr)
	}
	if tr := g.RequestRole(RoleViewer); tr.Changed {
		t.Fatalf("requesting viewer must be a no-op, got %+v", tr)
	}
	if g.State() != StateEngineer {
		t.Fatalf("expected engineer, got %s", g.State())
	}
}

func TestGate_RejectReturnsToRoleSelection(t *testing.T) {
	g := NewGate()
	g.Authenticate(alice)
	g.SelectRole(RoleEngineer)
	if tr := g.RejectRequest(); tr.To != StateNeedsRole {
		t.Fatalf("expected needs_role, got %+v", tr)
	}
	if !g.Snapshot().ShowRoleSelection() {
		t.Fatalf("expected role selection surface")
	}

	g.SelectRole(RoleEngineer)
	g.ContinueAsViewer()
	if tr := g.RejectRequest(); tr.Changed {
		t.Fatalf("reject must not demote a viewer, got %+v", tr)
	}
}

func TestGate_SignOutResetsFromAnyState(t *testing.T) {
	g := NewGate()
	g.Authenticate(alice)
	g.AssignRole(RoleEngineer)
	tr := g.SignOut()
	if tr.To != StateUnauthenticated || tr.User != alice {
		t.Fatalf("unexpected sign-out transition %+v", tr)
	}
	if g.Snapshot() != (AccessState{}) {
		t.Fatalf("expected cleared state, got %+v", g.Snapshot())
	}
}

func TestGate_CapabilitiesPerState(t *testing.T) {
	cases := map[State]AccessState{
		StateUnauthenticated: {},
		StateNeedsRole:       {Authenticated: true, User: alice},
		StatePendingApproval: {Authenticated: true, User: alice, PendingRequest: true},
		StateViewer:          {Authenticated: true, User: alice, Role: RoleViewer},
		StateEngineer:        {Authenticated: true, User: alice, Role: RoleEngineer},
	}
	for want, s := range cases {
		if s.State() != want {
			t.Fatalf("expected %s, got %s", want, s.State())
		}
		if s.CanAct() != (want == StateEngineer) {
			t.Fatalf("unexpected canAct in %s", want)
		}
		viewable := want == StateViewer || want == StateEngineer
		if s.CanView() != viewable {
			t.Fatalf("unexpected canView in %s", want)
		}
		if s.ShowRoleSelection() != (want == StateNeedsRole) {
			t.Fatalf("unexpected role selection in %s", want)
		}
	}
}

func TestGate_ConcurrentRequestsEmitOnce(t *testing.T) {
	g := NewGate()
	g.Authenticate(alice)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		emitted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.SelectRole(RoleEngineer).RequestEmitted {
				mu.Lock()
				emitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if emitted != 1 {
		t.Fatalf("expected exactly one request, got %d", emitted)
	}
}

func TestNormalizeRole(t *testing.T) {
	if r, ok := NormalizeRole("engineer"); !ok || r != RoleEngineer {
		t.Fatalf("expected engineer, got %q", r)
	}
	for _, bad := range []string{"", "admin", "Viewer"} {
		if _, ok := NormalizeRole(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
