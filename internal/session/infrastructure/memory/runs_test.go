package memory

import (
	"context"
	"errors"
	"testing"

	prediction "forsee-cloud/internal/prediction/domain"
	session "forsee-cloud/internal/session/domain"
)

func TestRunRepository_EvictsOldest(t *testing.T) {
	repo := NewRunRepository(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.SaveRun(ctx, session.PredictionRun{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if repo.Len() != 2 {
		t.Fatalf("expected 2 runs, got %d", repo.Len())
	}
	if _, err := repo.GetRun(ctx, "a"); !errors.Is(err, session.ErrRunNotFound) {
		t.Fatalf("expected oldest run evicted, got %v", err)
	}
	if _, err := repo.GetRun(ctx, "c"); err != nil {
		t.Fatalf("expected newest run, got %v", err)
	}
}

func TestRunRepository_ReturnsCopies(t *testing.T) {
	repo := NewRunRepository(0)
	ctx := context.Background()
	run := session.PredictionRun{
		ID:     "a",
		Inputs: map[string]string{"s": "1"},
		Result: prediction.Result{TopSensors: []prediction.SensorWeight{{Name: "S", Weight: 20}}},
	}
	repo.SaveRun(ctx, run)
	run.Inputs["s"] = "999"

	got, _ := repo.GetRun(ctx, "a")
	got.Result.TopSensors[0].Weight = 0
	again, _ := repo.GetRun(ctx, "a")
	if again.Inputs["s"] != "1" || again.Result.TopSensors[0].Weight != 20 {
		t.Fatalf("stored run was mutated: %+v", again)
	}
}

func TestRunRepository_TicketsRequireRun(t *testing.T) {
	repo := NewRunRepository(1)
	ctx := context.Background()
	if err := repo.SaveTicket(ctx, session.ActionTicket{ID: "t", RunID: "missing"}); !errors.Is(err, session.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	repo.SaveRun(ctx, session.PredictionRun{ID: "a"})
	repo.SaveTicket(ctx, session.ActionTicket{ID: "t1", RunID: "a"})
	repo.SaveTicket(ctx, session.ActionTicket{ID: "t2", RunID: "a"})
	tickets, _ := repo.ListTickets(ctx, "a")
	if len(tickets) != 2 || tickets[0].ID != "t1" {
		t.Fatalf("unexpected tickets %+v", tickets)
	}

	repo.SaveRun(ctx, session.PredictionRun{ID: "b"})
	if tickets, _ := repo.ListTickets(ctx, "a"); len(tickets) != 0 {
		t.Fatalf("expected tickets evicted with run, got %d", len(tickets))
	}
}
