package access

import "time"

// RoleRequested is published when a user files a role elevation request.
type RoleRequested struct {
	RequestID  string    `json:"request_id"`
	Subject    string    `json:"subject"`
	UserName   string    `json:"user_name"`
	Role       Role      `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoleDecided is published when an admin approves or rejects a request.
// Live gates consume it as the external role-assignment signal.
type RoleDecided struct {
	RequestID  string    `json:"request_id"`
	Subject    string    `json:"subject"`
	Role       Role      `json:"role"`
	Approved   bool      `json:"approved"`
	DecidedBy  string    `json:"decided_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
