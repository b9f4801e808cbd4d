package access

// Role is a platform role held by an authenticated user.
type Role string

const (
	RoleNone     Role = ""
	RoleViewer   Role = "viewer"
	RoleEngineer Role = "engineer"
)

// NormalizeRole validates a role string. The empty role is not accepted.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleEngineer:
		return Role(value), true
	default:
		return RoleNone, false
	}
}

// State is the derived gate state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateNeedsRole       State = "needs_role"
	StatePendingApproval State = "pending_approval"
	StateViewer          State = "viewer"
	StateEngineer        State = "engineer"
)

// User is the externally authenticated identity.
type User struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// AccessState is an immutable snapshot of a session's access.
// PendingRequest is only ever true while Role is RoleNone.
type AccessState struct {
	Authenticated  bool `json:"authenticated"`
	User           User `json:"user"`
	Role           Role `json:"role"`
	PendingRequest bool `json:"pending_request"`
}

// State derives the gate state from the snapshot.
func (s AccessState) State() State {
	switch {
	case !s.Authenticated:
		return StateUnauthenticated
	case s.Role == RoleEngineer:
		return StateEngineer
	case s.Role == RoleViewer:
		return StateViewer
	case s.PendingRequest:
		return StatePendingApproval
	default:
		return StateNeedsRole
	}
}

// CanView reports read access.
func (s AccessState) CanView() bool {
	return s.Authenticated && (s.Role == RoleViewer || s.Role == RoleEngineer)
}

// CanAct reports access to the action-triggering path.
func (s AccessState) CanAct() bool {
	return s.Authenticated && s.Role == RoleEngineer
}

// ShowRoleSelection reports whether the role chooser is presented.
func (s AccessState) ShowRoleSelection() bool {
	return s.State() == StateNeedsRole
}
