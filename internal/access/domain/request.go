package access

import (
	"errors"
	"time"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// RoleRequest is a role elevation record awaiting admin review.
type RoleRequest struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	UserName  string    `json:"user_name"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
	DecidedBy string    `json:"decided_by,omitempty"`
}

// Validate checks request invariants.
func (r RoleRequest) Validate() error {
	if r.ID == "" {
		return errors.New("role request: empty id")
	}
	if r.Subject == "" {
		return errors.New("role request: empty subject")
	}
	if r.Role != RoleEngineer {
		return ErrInvalidRole
	}
	switch r.Status {
	case RequestPending, RequestApproved, RequestRejected:
	default:
		return errors.New("role request: invalid status")
	}
	return nil
}

// Pending reports whether the request still awaits a decision.
func (r RoleRequest) Pending() bool {
	return r.Status == RequestPending
}
