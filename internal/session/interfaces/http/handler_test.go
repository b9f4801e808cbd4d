package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	accessapp "forsee-cloud/internal/access/application"
	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/access/infrastructure/memory"
	assets "forsee-cloud/internal/assets/domain"
	"forsee-cloud/internal/auth"
	prediction "forsee-cloud/internal/prediction/domain"
	sessionapp "forsee-cloud/internal/session/application"
	session "forsee-cloud/internal/session/domain"
	runmemory "forsee-cloud/internal/session/infrastructure/memory"
)

type fixture struct {
	handler http.Handler
	access  *accessapp.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	accessSvc, err := accessapp.NewService(memory.NewRoleRequestRepository(), accessapp.WithLogger(quiet))
	if err != nil {
		t.Fatalf("access service: %v", err)
	}
	registry, err := assets.NewRegistry([]assets.AssetProfile{{
		ID:              "wind-turbines",
		Title:           "Wind Turbine",
		Sensors:         []assets.SensorSpec{{ID: "gearboxVib", Label: "Gearbox Vibration", DefaultValue: "12"}},
		DefaultDecision: assets.Decision{Action: "Replace gearbox bearing"},
	}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	engine := prediction.NewEngine(prediction.WithJitterSource(prediction.FixedSource(0)))
	orchestrator, err := sessionapp.NewOrchestrator(accessSvc, registry, engine, runmemory.NewRunRepository(10), sessionapp.WithLogger(quiet))
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	handler, err := NewHandler(accessSvc, orchestrator, quiet)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return fixture{handler: handler, access: accessSvc}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(auth.WithIdentity(req.Context(), "u-1", "Alice", auth.RoleUser))
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func decodeSurface(t *testing.T, resp *httptest.ResponseRecorder) session.Surface {
	t.Helper()
	var s session.Surface
	if err := json.Unmarshal(resp.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode surface: %v (%s)", err, resp.Body.String())
	}
	return s
}

func TestHandler_SessionFlow(t *testing.T) {
	f := newFixture(t)

	if s := decodeSurface(t, f.do(t, http.MethodGet, "/api/v1/session", "")); s.State != access.StateUnauthenticated {
		t.Fatalf("expected unauthenticated before sign-in, got %s", s.State)
	}
	if s := decodeSurface(t, f.do(t, http.MethodPost, "/api/v1/session", "")); !s.ShowRoleSelection || s.UserName != "Alice" {
		t.Fatalf("expected role selection, got %+v", s)
	}
	if s := decodeSurface(t, f.do(t, http.MethodPost, "/api/v1/session/role", `{"role":"engineer"}`)); !s.ShowPendingNotice {
		t.Fatalf("expected pending notice, got %+v", s)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/assets", ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while pending, got %d", resp.Code)
	}
	if s := decodeSurface(t, f.do(t, http.MethodPost, "/api/v1/session/continue-as-viewer", "")); s.State != access.StateViewer {
		t.Fatalf("expected viewer, got %+v", s)
	}
	if s := decodeSurface(t, f.do(t, http.MethodPost, "/api/v1/session/sign-out", "")); s.State != access.StateUnauthenticated {
		t.Fatalf("expected signed out, got %+v", s)
	}
}

func TestHandler_RejectsBadRole(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/session", "")
	if resp := f.do(t, http.MethodPost, "/api/v1/session/role", `{"role":"admin"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodDelete, "/api/v1/session/role", ""); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestHandler_PredictExportAndDispatch(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/session", "")
	f.do(t, http.MethodPost, "/api/v1/session/role", `{"role":"engineer"}`)
	f.do(t, http.MethodPost, "/api/v1/session/continue-as-viewer", "")

	resp := f.do(t, http.MethodPost, "/api/v1/assets/wind-turbines/predictions", `{"readings":{"gearboxVib":"550"}}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var run session.PredictionRun
	if err := json.Unmarshal(resp.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Result.HealthIndex != 30 || run.Result.RiskLevel != prediction.RiskHigh {
		t.Fatalf("unexpected result %+v", run.Result)
	}

	pdf := f.do(t, http.MethodGet, "/api/v1/predictions/"+run.ID+"/export.pdf", "")
	if pdf.Code != http.StatusOK || !bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf export, got %d", pdf.Code)
	}
	xlsx := f.do(t, http.MethodGet, "/api/v1/predictions/"+run.ID+"/export.xlsx", "")
	if xlsx.Code != http.StatusOK || !bytes.HasPrefix(xlsx.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected xlsx export, got %d", xlsx.Code)
	}

	actionPath := "/api/v1/predictions/" + run.ID + "/actions"
	if resp := f.do(t, http.MethodPost, actionPath, `{"note":"asap"}`); resp.Code != http.StatusForbidden {
		t.Fatalf("expected viewer dispatch 403, got %d", resp.Code)
	}

	pending, err := f.access.ListRequests(context.Background(), access.RequestPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected pending request, got %d err=%v", len(pending), err)
	}
	if _, err := f.access.Approve(context.Background(), pending[0].ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	resp = f.do(t, http.MethodPost, actionPath, `{"note":"asap"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected engineer dispatch 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var ticket session.ActionTicket
	if err := json.Unmarshal(resp.Body.Bytes(), &ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket.Action != "Replace gearbox bearing" || ticket.Note != "asap" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
}

func TestHandler_UnknownRun(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/session", "")
	f.do(t, http.MethodPost, "/api/v1/session/role", `{"role":"viewer"}`)
	if resp := f.do(t, http.MethodGet, "/api/v1/predictions/missing", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/predictions/missing/export.csv", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown export, got %d", resp.Code)
	}
}
