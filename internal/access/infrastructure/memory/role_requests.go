package memory

import (
	"context"
	"sort"
	"sync"

	access "forsee-cloud/internal/access/domain"
)

// RoleRequestRepository is an in-memory role request store for demo/testing.
type RoleRequestRepository struct {
	mu   sync.RWMutex
	data map[string]access.RoleRequest
}

// NewRoleRequestRepository constructs a repository.
func NewRoleRequestRepository() *RoleRequestRepository {
	return &RoleRequestRepository{data: make(map[string]access.RoleRequest)}
}

// Save inserts or replaces a request.
func (r *RoleRequestRepository) Save(ctx context.Context, req access.RoleRequest) error {
	_ = ctx
	if err := req.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[req.ID] = req
	r.mu.Unlock()
	return nil
}

// Get loads a request by id.
func (r *RoleRequestRepository) Get(ctx context.Context, id string) (access.RoleRequest, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.data[id]
	if !ok {
		return access.RoleRequest{}, access.ErrRequestNotFound
	}
	return req, nil
}

// LatestBySubject returns the most recent request filed by subject.
func (r *RoleRequestRepository) LatestBySubject(ctx context.Context, subject string) (access.RoleRequest, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		latest access.RoleRequest
		found  bool
	)
	for _, req := range r.data {
		if req.Subject != subject {
			continue
		}
		if !found || newer(req, latest) {
			latest, found = req, true
		}
	}
	return latest, found, nil
}

// ListByStatus returns requests with status, oldest first.
func (r *RoleRequestRepository) ListByStatus(ctx context.Context, status string) ([]access.RoleRequest, error) {
	_ = ctx
	r.mu.RLock()
	result := make([]access.RoleRequest, 0, len(r.data))
	for _, req := range r.data {
		if req.Status == status {
			result = append(result, req)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return newer(result[j], result[i])
	})
	return result, nil
}

// newer orders by creation time, then by id, like the SQL store.
func newer(a, b access.RoleRequest) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
