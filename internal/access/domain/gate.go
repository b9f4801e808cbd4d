package access

import "sync/atomic"

// Transition describes the outcome of one gate operation.
type Transition struct {
	From    State
	To      State
	Changed bool
	// RequestEmitted is set when the operation produced a new role request
	// that must be forwarded for admin review.
	RequestEmitted bool
	User           User
}

// Gate is the per-session access state machine.
// Operations are total: invalid transitions are no-ops.
// Every transition is a compare-and-set on an immutable snapshot.
type Gate struct {
	state atomic.Pointer[AccessState]
}

// NewGate returns a gate in the Unauthenticated state.
func NewGate() *Gate {
	g := &Gate{}
	g.state.Store(&AccessState{})
	return g
}

// Snapshot returns the current access state.
func (g *Gate) Snapshot() AccessState {
	return *g.state.Load()
}

// State returns the current derived state.
func (g *Gate) State() State {
	return g.Snapshot().State()
}

// CanView reports read access.
func (g *Gate) CanView() bool {
	return g.Snapshot().CanView()
}

// CanAct reports action access.
func (g *Gate) CanAct() bool {
	return g.Snapshot().CanAct()
}

// Authenticate moves Unauthenticated to NeedsRole.
func (g *Gate) Authenticate(user User) Transition {
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if s.Authenticated || user.Subject == "" {
			return s, false, false
		}
		return AccessState{Authenticated: true, User: user}, false, true
	})
}

// SelectRole applies the role chooser: viewer is immediate, engineer
// becomes a pending request.
func (g *Gate) SelectRole(role Role) Transition {
	switch role {
	case RoleViewer:
		return g.apply(func(s AccessState) (AccessState, bool, bool) {
			if s.State() != StateNeedsRole {
				return s, false, false
			}
			s.Role = RoleViewer
			return s, false, true
		})
	case RoleEngineer:
		return g.RequestRole(RoleEngineer)
	default:
		return g.noop()
	}
}

// RequestRole files an engineer request. Repeating it while pending is a no-op.
func (g *Gate) RequestRole(role Role) Transition {
	if role != RoleEngineer {
		return g.noop()
	}
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if s.State() != StateNeedsRole {
			return s, false, false
		}
		s.PendingRequest = true
		return s, true, true
	})
}

// ContinueAsViewer falls back to viewer while a request is pending.
// The outstanding request is left in place.
func (g *Gate) ContinueAsViewer() Transition {
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if s.State() != StatePendingApproval {
			return s, false, false
		}
		s.Role = RoleViewer
		s.PendingRequest = false
		return s, false, true
	})
}

// AssignRole applies an external role assignment, such as an admin approval.
func (g *Gate) AssignRole(role Role) Transition {
	if _, ok := NormalizeRole(string(role)); !ok {
		return g.noop()
	}
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if !s.Authenticated || s.Role == role {
			return s, false, false
		}
		s.Role = role
		s.PendingRequest = false
		return s, false, true
	})
}

// RejectRequest clears a pending request after an admin rejection.
func (g *Gate) RejectRequest() Transition {
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if s.State() != StatePendingApproval {
			return s, false, false
		}
		s.PendingRequest = false
		return s, false, true
	})
}

// SignOut resets the gate to Unauthenticated from any state.
func (g *Gate) SignOut() Transition {
	return g.apply(func(s AccessState) (AccessState, bool, bool) {
		if !s.Authenticated {
			return s, false, false
		}
		return AccessState{}, false, true
	})
}

func (g *Gate) noop() Transition {
	s := g.Snapshot()
	return Transition{From: s.State(), To: s.State(), User: s.User}
}

func (g *Gate) apply(step func(AccessState) (next AccessState, emit bool, changed bool)) Transition {
	for {
		current := g.state.Load()
		next, emit, changed := step(*current)
		if !changed {
			return Transition{From: current.State(), To: current.State(), User: current.User}
		}
		if g.state.CompareAndSwap(current, &next) {
			user := next.User
			if !next.Authenticated {
				user = current.User
			}
			return Transition{
				From:           current.State(),
				To:             next.State(),
				Changed:        true,
				RequestEmitted: emit,
				User:           user,
			}
		}
	}
}
