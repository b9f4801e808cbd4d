package access

import "errors"

var (
	// ErrRequestNotFound indicates a missing role request.
	ErrRequestNotFound = errors.New("role request: not found")
	// ErrRequestDecided indicates the request already has a decision.
	ErrRequestDecided = errors.New("role request: already decided")
	// ErrInvalidRole indicates an unsupported role value.
	ErrInvalidRole = errors.New("access: invalid role")
)
