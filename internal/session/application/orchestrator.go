package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	access "forsee-cloud/internal/access/domain"
	assets "forsee-cloud/internal/assets/domain"
	"forsee-cloud/internal/audit"
	"forsee-cloud/internal/auth"
	"forsee-cloud/internal/eventing"
	"forsee-cloud/internal/observability/metrics"
	prediction "forsee-cloud/internal/prediction/domain"
	session "forsee-cloud/internal/session/domain"
)

// AccessReader exposes the current access snapshot of a subject.
type AccessReader interface {
	State(subject string) access.AccessState
}

// RunRepository stores prediction runs and their dispatched actions.
type RunRepository interface {
	SaveRun(ctx context.Context, run session.PredictionRun) error
	GetRun(ctx context.Context, id string) (session.PredictionRun, error)
	SaveTicket(ctx context.Context, ticket session.ActionTicket) error
	ListTickets(ctx context.Context, runID string) ([]session.ActionTicket, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Orchestrator gates asset pages, predictions and actions on the user's access.
type Orchestrator struct {
	access   AccessReader
	registry *assets.Registry
	engine   prediction.Provider
	runs     RunRepository
	bus      eventing.EventBus
	audit    audit.Logger
	logger   *log.Logger
	clock    Clock
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithEventBus assigns a bus for prediction and action events.
func WithEventBus(bus eventing.EventBus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithAuditLogger assigns an audit logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Orchestrator) {
		o.audit = logger
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewOrchestrator constructs an orchestrator.
func NewOrchestrator(accessReader AccessReader, registry *assets.Registry, engine prediction.Provider, runs RunRepository, opts ...Option) (*Orchestrator, error) {
	if accessReader == nil {
		return nil, errors.New("session: nil access reader")
	}
	if registry == nil {
		return nil, errors.New("session: nil registry")
	}
	if engine == nil {
		return nil, errors.New("session: nil engine")
	}
	if runs == nil {
		return nil, errors.New("session: nil run repo")
	}
	o := &Orchestrator{
		access:   accessReader,
		registry: registry,
		engine:   engine,
		runs:     runs,
		logger:   log.Default(),
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Surface reports what the UI should present for subject.
func (o *Orchestrator) Surface(subject string) session.Surface {
	return session.SurfaceFor(o.access.State(subject))
}

// ListAssets returns the catalog in display order.
func (o *Orchestrator) ListAssets(subject string) ([]assets.AssetProfile, error) {
	if _, err := o.requireView(subject, "list_assets"); err != nil {
		return nil, err
	}
	return o.registry.List(), nil
}

// OpenAsset returns the asset page for assetID. Unknown ids open the default profile.
func (o *Orchestrator) OpenAsset(subject, assetID string) (session.AssetView, error) {
	if _, err := o.requireView(subject, "open_asset"); err != nil {
		return session.AssetView{}, err
	}
	profile := o.registry.Get(assetID)
	return session.AssetView{Profile: profile, DefaultReadings: profile.DefaultReadings()}, nil
}

// RunPrediction fills absent readings with sensor defaults, runs inference and stores the run.
// Present but malformed readings are passed through and count as 0.
func (o *Orchestrator) RunPrediction(ctx context.Context, subject, assetID string, readings prediction.Readings) (session.PredictionRun, error) {
	state, err := o.requireView(subject, "run_prediction")
	if err != nil {
		return session.PredictionRun{}, err
	}

	started := time.Now()
	profile := o.registry.Get(assetID)
	inputs := profile.DefaultReadings()
	for _, sensor := range profile.Sensors {
		if raw, ok := readings[sensor.ID]; ok {
			inputs[sensor.ID] = raw
		}
	}
	result := o.engine.Predict(profile, prediction.Readings(inputs))

	run := session.PredictionRun{
		ID:          uuid.NewString(),
		AssetID:     profile.ID,
		AssetTitle:  profile.Title,
		Inputs:      inputs,
		Result:      result,
		RequestedBy: state.User.Subject,
		CreatedAt:   o.clock.Now().UTC(),
	}
	if err := o.runs.SaveRun(ctx, run); err != nil {
		return session.PredictionRun{}, fmt.Errorf("session: save run: %w", err)
	}
	metrics.ObservePrediction(profile.ID, string(result.RiskLevel), time.Since(started))
	o.logger.Printf("prediction completed: run=%s asset=%s health=%d risk=%s by=%s",
		run.ID, run.AssetID, result.HealthIndex, result.RiskLevel, run.RequestedBy)
	o.publish(ctx, session.PredictionCompleted{
		RunID:       run.ID,
		AssetID:     run.AssetID,
		RiskLevel:   result.RiskLevel,
		HealthIndex: result.HealthIndex,
		RequestedBy: run.RequestedBy,
		OccurredAt:  run.CreatedAt,
	})
	return run, nil
}

// GetRun loads a stored run.
func (o *Orchestrator) GetRun(ctx context.Context, subject, runID string) (session.PredictionRun, error) {
	if _, err := o.requireView(subject, "get_run"); err != nil {
		return session.PredictionRun{}, err
	}
	return o.runs.GetRun(ctx, runID)
}

// ListActions returns actions dispatched for a run.
func (o *Orchestrator) ListActions(ctx context.Context, subject, runID string) ([]session.ActionTicket, error) {
	if _, err := o.requireView(subject, "list_actions"); err != nil {
		return nil, err
	}
	if _, err := o.runs.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return o.runs.ListTickets(ctx, runID)
}

// DispatchAction files the run's recommended action. Engineers only.
func (o *Orchestrator) DispatchAction(ctx context.Context, subject, runID, note string) (session.ActionTicket, error) {
	state := o.access.State(subject)
	if !state.CanAct() {
		metrics.IncAccessDenied("dispatch_action")
		return session.ActionTicket{}, auth.ErrForbidden
	}
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return session.ActionTicket{}, err
	}
	if run.Result.RecommendedAction == "" {
		return session.ActionTicket{}, session.ErrEmptyAction
	}

	ticket := session.ActionTicket{
		ID:           uuid.NewString(),
		RunID:        run.ID,
		AssetID:      run.AssetID,
		Action:       run.Result.RecommendedAction,
		RiskLevel:    run.Result.RiskLevel,
		Note:         strings.TrimSpace(note),
		DispatchedBy: state.User.Subject,
		CreatedAt:    o.clock.Now().UTC(),
	}
	if err := o.runs.SaveTicket(ctx, ticket); err != nil {
		return session.ActionTicket{}, fmt.Errorf("session: save ticket: %w", err)
	}
	metrics.IncActionDispatched(string(ticket.RiskLevel))
	o.logger.Printf("action dispatched: ticket=%s run=%s asset=%s by=%s", ticket.ID, ticket.RunID, ticket.AssetID, ticket.DispatchedBy)
	if o.audit != nil {
		err := o.audit.Log(ctx, audit.Entry{
			Actor:         ticket.DispatchedBy,
			Role:          string(access.RoleEngineer),
			Action:        audit.ActionActionDispatch,
			ResourceType:  "prediction_run",
			ResourceID:    ticket.RunID,
			CorrelationID: eventing.CorrelationIDFromContext(ctx),
			Metadata:      audit.Metadata(ticket),
		})
		if err != nil {
			o.logger.Printf("audit write failed: action=%s err=%v", audit.ActionActionDispatch, err)
		}
	}
	o.publish(ctx, session.ActionDispatched{
		TicketID:     ticket.ID,
		RunID:        ticket.RunID,
		AssetID:      ticket.AssetID,
		Action:       ticket.Action,
		RiskLevel:    ticket.RiskLevel,
		DispatchedBy: ticket.DispatchedBy,
		OccurredAt:   ticket.CreatedAt,
	})
	return ticket, nil
}

func (o *Orchestrator) requireView(subject, operation string) (access.AccessState, error) {
	state := o.access.State(subject)
	if !state.CanView() {
		metrics.IncAccessDenied(operation)
		return state, auth.ErrForbidden
	}
	return state, nil
}

func (o *Orchestrator) publish(ctx context.Context, event any) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, event); err != nil {
		o.logger.Printf("event publish failed: type=%s err=%v", eventing.EventType(event), err)
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
