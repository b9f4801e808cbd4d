package memory

import (
	"context"
	"sync"

	session "forsee-cloud/internal/session/domain"
)

// DefaultRunLimit bounds retained runs when no limit is given.
const DefaultRunLimit = 500

// RunRepository keeps the most recent prediction runs in memory.
// When the limit is reached the oldest run and its tickets are evicted.
type RunRepository struct {
	mu      sync.RWMutex
	limit   int
	order   []string
	runs    map[string]session.PredictionRun
	tickets map[string][]session.ActionTicket
}

// NewRunRepository constructs a repository retaining at most limit runs.
func NewRunRepository(limit int) *RunRepository {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	return &RunRepository{
		limit:   limit,
		runs:    make(map[string]session.PredictionRun),
		tickets: make(map[string][]session.ActionTicket),
	}
}

// SaveRun stores a run.
func (r *RunRepository) SaveRun(ctx context.Context, run session.PredictionRun) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = cloneRun(run)
	for len(r.order) > r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.runs, oldest)
		delete(r.tickets, oldest)
	}
	return nil
}

// GetRun loads a run by id.
func (r *RunRepository) GetRun(ctx context.Context, id string) (session.PredictionRun, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return session.PredictionRun{}, session.ErrRunNotFound
	}
	return cloneRun(run), nil
}

// SaveTicket stores a ticket for an existing run.
func (r *RunRepository) SaveTicket(ctx context.Context, ticket session.ActionTicket) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[ticket.RunID]; !ok {
		return session.ErrRunNotFound
	}
	r.tickets[ticket.RunID] = append(r.tickets[ticket.RunID], ticket)
	return nil
}

// ListTickets returns tickets for a run in dispatch order.
func (r *RunRepository) ListTickets(ctx context.Context, runID string) ([]session.ActionTicket, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]session.ActionTicket(nil), r.tickets[runID]...), nil
}

// Len returns the number of retained runs.
func (r *RunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func cloneRun(run session.PredictionRun) session.PredictionRun {
	out := run
	out.Inputs = make(map[string]string, len(run.Inputs))
	for k, v := range run.Inputs {
		out.Inputs[k] = v
	}
	out.Result.TopSensors = append(run.Result.TopSensors[:0:0], run.Result.TopSensors...)
	return out
}
