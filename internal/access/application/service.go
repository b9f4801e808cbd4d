package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/audit"
	"forsee-cloud/internal/eventing"
	"forsee-cloud/internal/observability/metrics"
)

// RoleRequestRepository persists role requests.
type RoleRequestRepository interface {
	Save(ctx context.Context, req access.RoleRequest) error
	Get(ctx context.Context, id string) (access.RoleRequest, error)
	LatestBySubject(ctx context.Context, subject string) (access.RoleRequest, bool, error)
	ListByStatus(ctx context.Context, status string) ([]access.RoleRequest, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service owns one access gate per subject and the admin review flow.
type Service struct {
	mu    sync.RWMutex
	gates map[string]*access.Gate

	requests RoleRequestRepository
	bus      eventing.EventBus
	audit    audit.Logger
	logger   *log.Logger
	clock    Clock
}

// ServiceOption customizes the access service.
type ServiceOption func(*Service)

// WithEventBus assigns the bus used for role request events.
func WithEventBus(bus eventing.EventBus) ServiceOption {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithAuditLogger assigns an audit logger.
func WithAuditLogger(logger audit.Logger) ServiceOption {
	return func(s *Service) {
		s.audit = logger
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs an access service and subscribes gates to admin decisions.
func NewService(requests RoleRequestRepository, opts ...ServiceOption) (*Service, error) {
	if requests == nil {
		return nil, errors.New("access: nil role request repo")
	}
	s := &Service{
		gates:    make(map[string]*access.Gate),
		requests: requests,
		logger:   log.Default(),
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = eventing.NewInMemoryBus()
	}
	eventing.Handle(s.bus, s.HandleRoleDecided)
	return s, nil
}

// State returns the access snapshot for a subject. Unknown subjects are unauthenticated.
func (s *Service) State(subject string) access.AccessState {
	if gate := s.lookup(subject); gate != nil {
		return gate.Snapshot()
	}
	return access.AccessState{}
}

// Authenticate applies a successful external authentication and restores
// the latest role request decision for the user.
func (s *Service) Authenticate(ctx context.Context, user access.User) (access.AccessState, error) {
	if user.Subject == "" {
		return access.AccessState{}, errors.New("access: empty subject")
	}
	gate := s.gate(user.Subject)
	tr := gate.Authenticate(user)
	s.record(tr)
	if !tr.Changed {
		return gate.Snapshot(), nil
	}

	latest, ok, err := s.requests.LatestBySubject(ctx, user.Subject)
	if err != nil {
		return gate.Snapshot(), fmt.Errorf("access: restore: %w", err)
	}
	if ok {
		switch latest.Status {
		case access.RequestApproved:
			s.record(gate.AssignRole(latest.Role))
		case access.RequestPending:
			s.record(gate.RequestRole(latest.Role))
		}
	}
	return gate.Snapshot(), nil
}

// SelectRole applies the role chooser. Choosing engineer files a role request.
func (s *Service) SelectRole(ctx context.Context, subject string, role access.Role) (access.AccessState, error) {
	gate := s.lookup(subject)
	if gate == nil {
		return access.AccessState{}, nil
	}
	tr := gate.SelectRole(role)
	s.record(tr)
	if !tr.RequestEmitted {
		return gate.Snapshot(), nil
	}
	if err := s.fileRequest(ctx, tr.User, role); err != nil {
		s.record(gate.RejectRequest())
		return gate.Snapshot(), err
	}
	return gate.Snapshot(), nil
}

// ContinueAsViewer falls back to viewer while the request stays open.
func (s *Service) ContinueAsViewer(ctx context.Context, subject string) access.AccessState {
	_ = ctx
	gate := s.lookup(subject)
	if gate == nil {
		return access.AccessState{}
	}
	s.record(gate.ContinueAsViewer())
	return gate.Snapshot()
}

// SignOut resets the subject's gate.
func (s *Service) SignOut(ctx context.Context, subject string) access.AccessState {
	_ = ctx
	gate := s.lookup(subject)
	if gate == nil {
		return access.AccessState{}
	}
	s.record(gate.SignOut())
	return gate.Snapshot()
}

// ListRequests returns role requests with the given status.
func (s *Service) ListRequests(ctx context.Context, status string) ([]access.RoleRequest, error) {
	if status == "" {
		status = access.RequestPending
	}
	return s.requests.ListByStatus(ctx, status)
}

// Approve grants the requested role.
func (s *Service) Approve(ctx context.Context, requestID, admin string) (access.RoleRequest, error) {
	return s.decide(ctx, requestID, admin, true)
}

// Reject declines the request.
func (s *Service) Reject(ctx context.Context, requestID, admin string) (access.RoleRequest, error) {
	return s.decide(ctx, requestID, admin, false)
}

// HandleRoleDecided applies an admin decision to the subject's live gate.
func (s *Service) HandleRoleDecided(ctx context.Context, evt access.RoleDecided) error {
	_ = ctx
	gate := s.lookup(evt.Subject)
	if gate == nil {
		return nil
	}
	if evt.Approved {
		s.record(gate.AssignRole(evt.Role))
	} else {
		s.record(gate.RejectRequest())
	}
	return nil
}

func (s *Service) decide(ctx context.Context, requestID, admin string, approve bool) (access.RoleRequest, error) {
	if requestID == "" {
		return access.RoleRequest{}, access.ErrRequestNotFound
	}
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return access.RoleRequest{}, err
	}
	if !req.Pending() {
		return req, access.ErrRequestDecided
	}

	now := s.clock.Now().UTC()
	req.DecidedAt = now
	req.DecidedBy = admin
	action, event := audit.ActionRoleRejected, "rejected"
	req.Status = access.RequestRejected
	if approve {
		req.Status = access.RequestApproved
		action, event = audit.ActionRoleApproved, "approved"
	}
	if err := s.requests.Save(ctx, req); err != nil {
		return access.RoleRequest{}, err
	}
	metrics.IncRoleRequestEvent(event)
	s.logger.Printf("role request %s: id=%s subject=%s by=%s", event, req.ID, req.Subject, admin)
	s.writeAudit(ctx, audit.Entry{
		Actor:        admin,
		Role:         "admin",
		Action:       action,
		ResourceType: "role_request",
		ResourceID:   req.ID,
		Metadata:     audit.Metadata(map[string]string{"subject": req.Subject, "role": string(req.Role)}),
	})

	decided := access.RoleDecided{
		RequestID:  req.ID,
		Subject:    req.Subject,
		Role:       req.Role,
		Approved:   approve,
		DecidedBy:  admin,
		OccurredAt: now,
	}
	if err := s.bus.Publish(ctx, decided); err != nil {
		s.logger.Printf("role decision publish failed: id=%s err=%v", req.ID, err)
	}
	return req, nil
}

func (s *Service) fileRequest(ctx context.Context, user access.User, role access.Role) error {
	now := s.clock.Now().UTC()
	req := access.RoleRequest{
		ID:        uuid.NewString(),
		Subject:   user.Subject,
		UserName:  user.Name,
		Role:      role,
		Status:    access.RequestPending,
		CreatedAt: now,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.requests.Save(ctx, req); err != nil {
		return fmt.Errorf("access: save role request: %w", err)
	}
	metrics.IncRoleRequestEvent("requested")
	s.logger.Printf("role requested: id=%s subject=%s role=%s", req.ID, req.Subject, req.Role)
	s.writeAudit(ctx, audit.Entry{
		Actor:        user.Subject,
		Role:         "user",
		Action:       audit.ActionRoleRequested,
		ResourceType: "role_request",
		ResourceID:   req.ID,
		Metadata:     audit.Metadata(map[string]string{"role": string(role), "user_name": user.Name}),
	})

	// notification failures must not undo a stored request.
	if err := s.bus.Publish(ctx, access.RoleRequested{
		RequestID:  req.ID,
		Subject:    req.Subject,
		UserName:   req.UserName,
		Role:       req.Role,
		OccurredAt: now,
	}); err != nil {
		s.logger.Printf("role request publish failed: id=%s err=%v", req.ID, err)
	}
	return nil
}

func (s *Service) writeAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	entry.CorrelationID = eventing.CorrelationIDFromContext(ctx)
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.Printf("audit write failed: action=%s err=%v", entry.Action, err)
	}
}

func (s *Service) record(tr access.Transition) {
	if !tr.Changed {
		return
	}
	metrics.IncGateTransition(string(tr.From), string(tr.To))
	s.logger.Printf("access transition: subject=%s from=%s to=%s", tr.User.Subject, tr.From, tr.To)
}

func (s *Service) lookup(subject string) *access.Gate {
	if subject == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gates[subject]
}

func (s *Service) gate(subject string) *access.Gate {
	if gate := s.lookup(subject); gate != nil {
		return gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gate, ok := s.gates[subject]; ok {
		return gate
	}
	gate := access.NewGate()
	s.gates[subject] = gate
	return gate
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
