package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	access "forsee-cloud/internal/access/domain"
	assets "forsee-cloud/internal/assets/domain"
	"forsee-cloud/internal/audit"
	"forsee-cloud/internal/auth"
	"forsee-cloud/internal/eventing"
	prediction "forsee-cloud/internal/prediction/domain"
	session "forsee-cloud/internal/session/domain"
	"forsee-cloud/internal/session/infrastructure/memory"
)

type stubAccess map[string]access.AccessState

func (s stubAccess) State(subject string) access.AccessState { return s[subject] }

type recordingAudit struct{ entries []audit.Entry }

func (a *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

var (
	viewer   = access.AccessState{Authenticated: true, User: access.User{Subject: "v", Name: "Vera"}, Role: access.RoleViewer}
	engineer = access.AccessState{Authenticated: true, User: access.User{Subject: "e", Name: "Eli"}, Role: access.RoleEngineer}
	pending  = access.AccessState{Authenticated: true, User: access.User{Subject: "p"}, PendingRequest: true}
)

func testRegistry(t *testing.T) *assets.Registry {
	t.Helper()
	registry, err := assets.NewRegistry([]assets.AssetProfile{
		{
			ID:    "wind-turbines",
			Title: "Wind Turbine",
			Sensors: []assets.SensorSpec{
				{ID: "gearboxVib", Label: "Gearbox Vibration", DefaultValue: "12"},
				{ID: "rpm", Label: "Rotor Speed", DefaultValue: "15"},
			},
			DefaultDecision: assets.Decision{Action: "Replace gearbox bearing"},
		},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

func newOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	engine := prediction.NewEngine(prediction.WithJitterSource(prediction.FixedSource(0.5)))
	base := []Option{WithLogger(log.New(io.Discard, "", 0))}
	o, err := NewOrchestrator(stubAccess{"v": viewer, "e": engineer, "p": pending}, testRegistry(t), engine, memory.NewRunRepository(10), append(base, opts...)...)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return o
}

func TestOrchestrator_SurfacePerState(t *testing.T) {
	o := newOrchestrator(t)
	if s := o.Surface("p"); !s.ShowPendingNotice || s.ShowRoleSelection || s.CanView {
		t.Fatalf("unexpected pending surface %+v", s)
	}
	if s := o.Surface("e"); !s.CanAct || s.UserName != "Eli" {
		t.Fatalf("unexpected engineer surface %+v", s)
	}
	if s := o.Surface("nobody"); s.State != access.StateUnauthenticated || s.CanView {
		t.Fatalf("unexpected anonymous surface %+v", s)
	}
}

func TestOrchestrator_ViewerPredictsWithDefaults(t *testing.T) {
	bus := eventing.NewInMemoryBus()
	var completed []session.PredictionCompleted
	eventing.Handle(bus, func(ctx context.Context, evt session.PredictionCompleted) error {
		completed = append(completed, evt)
		return nil
	})
	o := newOrchestrator(t, WithEventBus(bus))

	run, err := o.RunPrediction(context.Background(), "v", "wind-turbines", prediction.Readings{"gearboxVib": "150"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Inputs["gearboxVib"] != "150" || run.Inputs["rpm"] != "15" {
		t.Fatalf("expected defaults for absent readings, got %v", run.Inputs)
	}
	if run.Result.HealthIndex != 70 || run.Result.RiskLevel != prediction.RiskLow {
		t.Fatalf("unexpected result %+v", run.Result)
	}
	if run.RequestedBy != "v" || run.AssetTitle != "Wind Turbine" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(completed) != 1 || completed[0].RunID != run.ID {
		t.Fatalf("expected completion event, got %+v", completed)
	}

	stored, err := o.GetRun(context.Background(), "e", run.ID)
	if err != nil || stored.ID != run.ID {
		t.Fatalf("expected stored run, got %+v err=%v", stored, err)
	}
}

func TestOrchestrator_UnknownAssetUsesDefault(t *testing.T) {
	o := newOrchestrator(t)
	view, err := o.OpenAsset("v", "rockets")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if view.Profile.ID != "wind-turbines" || view.DefaultReadings["gearboxVib"] != "12" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestOrchestrator_PendingUserIsBlocked(t *testing.T) {
	o := newOrchestrator(t)
	if _, err := o.OpenAsset("p", "wind-turbines"); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := o.RunPrediction(context.Background(), "p", "wind-turbines", nil); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := o.ListAssets(""); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestOrchestrator_DispatchIsEngineerOnly(t *testing.T) {
	rec := &recordingAudit{}
	o := newOrchestrator(t, WithAuditLogger(rec))
	ctx := context.Background()
	run, err := o.RunPrediction(ctx, "v", "wind-turbines", prediction.Readings{"gearboxVib": "1000"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := o.DispatchAction(ctx, "v", run.ID, ""); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected viewer forbidden, got %v", err)
	}
	ticket, err := o.DispatchAction(ctx, "e", run.ID, "  crane booked  ")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if ticket.Action != "Replace gearbox bearing" || ticket.RiskLevel != prediction.RiskCritical {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if ticket.Note != "crane booked" || ticket.DispatchedBy != "e" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if len(rec.entries) != 1 || rec.entries[0].Action != audit.ActionActionDispatch {
		t.Fatalf("expected dispatch audit, got %+v", rec.entries)
	}

	tickets, err := o.ListActions(ctx, "v", run.ID)
	if err != nil || len(tickets) != 1 {
		t.Fatalf("expected one ticket, got %d err=%v", len(tickets), err)
	}
}

func TestOrchestrator_UnknownRun(t *testing.T) {
	o := newOrchestrator(t)
	if _, err := o.DispatchAction(context.Background(), "e", "missing", ""); !errors.Is(err, session.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	if _, err := o.GetRun(context.Background(), "v", "missing"); !errors.Is(err, session.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
}
