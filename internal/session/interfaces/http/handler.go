package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/auth"
	"forsee-cloud/internal/observability/metrics"
	prediction "forsee-cloud/internal/prediction/domain"
	sessionapp "forsee-cloud/internal/session/application"
	session "forsee-cloud/internal/session/domain"
)

const maxBodyBytes = 1 << 20

// AccessCommands is the user-facing side of the access service.
type AccessCommands interface {
	Authenticate(ctx context.Context, user access.User) (access.AccessState, error)
	SelectRole(ctx context.Context, subject string, role access.Role) (access.AccessState, error)
	ContinueAsViewer(ctx context.Context, subject string) access.AccessState
	SignOut(ctx context.Context, subject string) access.AccessState
}

// Handler serves session, asset and prediction endpoints.
type Handler struct {
	access       AccessCommands
	orchestrator *sessionapp.Orchestrator
	logger       *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(accessCommands AccessCommands, orchestrator *sessionapp.Orchestrator, logger *log.Logger) (*Handler, error) {
	if accessCommands == nil {
		return nil, errors.New("session handler: nil access service")
	}
	if orchestrator == nil {
		return nil, errors.New("session handler: nil orchestrator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{access: accessCommands, orchestrator: orchestrator, logger: logger}, nil
}

// ServeHTTP handles /api/v1/session, /api/v1/assets and /api/v1/predictions subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/session" || strings.HasPrefix(path, "/api/v1/session/"):
		h.handleSession(w, r, strings.TrimPrefix(strings.TrimPrefix(path, "/api/v1/session"), "/"))
	case path == "/api/v1/assets":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleListAssets(w, r)
	case strings.HasPrefix(path, "/api/v1/assets/"):
		h.handleAsset(w, r, strings.TrimPrefix(path, "/api/v1/assets/"))
	case strings.HasPrefix(path, "/api/v1/predictions/"):
		h.handlePrediction(w, r, strings.TrimPrefix(path, "/api/v1/predictions/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, action string) {
	subject := auth.SubjectFromContext(r.Context())
	if subject == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ctx := r.Context()

	switch {
	case action == "" && r.Method == http.MethodGet:
	case action == "" && r.Method == http.MethodPost:
		user := access.User{Subject: subject, Name: auth.NameFromContext(ctx)}
		if _, err := h.access.Authenticate(ctx, user); err != nil {
			h.logger.Printf("session authenticate failed: subject=%s err=%v", subject, err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
	case action == "role" && r.Method == http.MethodPost:
		var req roleRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role, ok := access.NormalizeRole(req.Role)
		if !ok {
			http.Error(w, "role must be viewer or engineer", http.StatusBadRequest)
			return
		}
		if _, err := h.access.SelectRole(ctx, subject, role); err != nil {
			h.logger.Printf("role selection failed: subject=%s err=%v", subject, err)
			http.Error(w, "role request failed", http.StatusInternalServerError)
			return
		}
	case action == "continue-as-viewer" && r.Method == http.MethodPost:
		h.access.ContinueAsViewer(ctx, subject)
	case action == "sign-out" && r.Method == http.MethodPost:
		h.access.SignOut(ctx, subject)
	case action == "" || action == "role" || action == "continue-as-viewer" || action == "sign-out":
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.orchestrator.Surface(subject))
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.orchestrator.ListAssets(auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type predictionRequest struct {
	Readings map[string]string `json:"readings"`
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request, rest string) {
	subject := auth.SubjectFromContext(r.Context())
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		view, err := h.orchestrator.OpenAsset(subject, parts[0])
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(parts) == 2 && parts[1] == "predictions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req predictionRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		run, err := h.orchestrator.RunPrediction(r.Context(), subject, parts[0], prediction.Readings(req.Readings))
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, run)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type actionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) handlePrediction(w http.ResponseWriter, r *http.Request, rest string) {
	subject := auth.SubjectFromContext(r.Context())
	parts := strings.Split(rest, "/")
	if parts[0] == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	runID := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		run, err := h.orchestrator.GetRun(r.Context(), subject, runID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case "actions":
		switch r.Method {
		case http.MethodGet:
			tickets, err := h.orchestrator.ListActions(r.Context(), subject, runID)
			if err != nil {
				respondError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, tickets)
		case http.MethodPost:
			var req actionRequest
			if err := decodeJSON(r, &req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ticket, err := h.orchestrator.DispatchAction(r.Context(), subject, runID, req.Note)
			if err != nil {
				respondError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, ticket)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "export.pdf", "export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, subject, runID, strings.TrimPrefix(action, "export."))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, subject, runID, format string) {
	started := time.Now()
	result := metrics.ResultError
	defer func() {
		metrics.ObserveReportExport(format, result, time.Since(started))
	}()

	run, err := h.orchestrator.GetRun(r.Context(), subject, runID)
	if err != nil {
		respondError(w, err)
		return
	}
	tickets, err := h.orchestrator.ListActions(r.Context(), subject, runID)
	if err != nil {
		respondError(w, err)
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "pdf":
		body, err = BuildRunPDF(run, tickets)
		contentType = "application/pdf"
	default:
		body, err = BuildRunXLSX(run, tickets)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		h.logger.Printf("report export failed: run=%s format=%s err=%v", runID, format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	result = metrics.ResultSuccess
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "prediction-"+run.ID+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, session.ErrRunNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, session.ErrEmptyAction):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
