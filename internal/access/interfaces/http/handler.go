package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	accessapp "forsee-cloud/internal/access/application"
	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/auth"
)

// Handler provides admin role request endpoints.
type Handler struct {
	service *accessapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *accessapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("role request handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/role-requests and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/role-requests":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/role-requests/"):
		h.handleDecision(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", access.RequestPending, access.RequestApproved, access.RequestRejected:
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListRequests(r.Context(), status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []access.RoleRequest{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/role-requests/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, action := parts[0], parts[1]
	admin := auth.SubjectFromContext(r.Context())

	var (
		req access.RoleRequest
		err error
	)
	switch action {
	case "approve":
		req, err = h.service.Approve(r.Context(), id, admin)
	case "reject":
		req, err = h.service.Reject(r.Context(), id, admin)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, access.ErrRequestNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, access.ErrRequestDecided):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(req)
}
