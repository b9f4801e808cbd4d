package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	access "forsee-cloud/internal/access/domain"
)

func request(id, subject, status string, at time.Time) access.RoleRequest {
	return access.RoleRequest{ID: id, Subject: subject, Role: access.RoleEngineer, Status: status, CreatedAt: at}
}

func TestRoleRequestRepository_SaveAndGet(t *testing.T) {
	repo := NewRoleRequestRepository()
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, request("r-1", "u-1", access.RequestPending, at)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "r-1")
	if err != nil || got.Subject != "u-1" {
		t.Fatalf("unexpected get %+v err=%v", got, err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, access.ErrRequestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	bad := request("r-2", "u-1", access.RequestPending, at)
	bad.Role = access.RoleViewer
	if err := repo.Save(ctx, bad); !errors.Is(err, access.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestRoleRequestRepository_LatestBySubject(t *testing.T) {
	repo := NewRoleRequestRepository()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, req := range []access.RoleRequest{
		request("r-old", "u-1", access.RequestRejected, base),
		request("r-new", "u-1", access.RequestPending, base.Add(100*time.Millisecond)),
		request("r-other", "u-2", access.RequestPending, base.Add(time.Hour)),
	} {
		if err := repo.Save(ctx, req); err != nil {
			t.Fatalf("save %s: %v", req.ID, err)
		}
	}
	latest, ok, err := repo.LatestBySubject(ctx, "u-1")
	if err != nil || !ok || latest.ID != "r-new" {
		t.Fatalf("expected r-new, got %s ok=%v err=%v", latest.ID, ok, err)
	}
	if _, ok, _ := repo.LatestBySubject(ctx, "nobody"); ok {
		t.Fatalf("expected no request for unknown subject")
	}
}

func TestRoleRequestRepository_EqualTimesBreakTiesByID(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		repo := NewRoleRequestRepository()
		ctx := context.Background()
		for _, id := range []string{"r-b", "r-c", "r-a"} {
			if err := repo.Save(ctx, request(id, "u-1", access.RequestPending, at)); err != nil {
				t.Fatalf("save %s: %v", id, err)
			}
		}
		latest, _, _ := repo.LatestBySubject(ctx, "u-1")
		if latest.ID != "r-c" {
			t.Fatalf("expected highest id on equal times, got %s", latest.ID)
		}
		list, err := repo.ListByStatus(ctx, access.RequestPending)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 3 || list[0].ID != "r-a" || list[1].ID != "r-b" || list[2].ID != "r-c" {
			t.Fatalf("expected oldest-first id order, got %+v", list)
		}
	}
}
