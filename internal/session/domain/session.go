package session

import (
	"errors"
	"time"

	access "forsee-cloud/internal/access/domain"
	assets "forsee-cloud/internal/assets/domain"
	prediction "forsee-cloud/internal/prediction/domain"
)

var (
	// ErrRunNotFound indicates a missing prediction run.
	ErrRunNotFound = errors.New("session: prediction run not found")
	// ErrEmptyAction indicates a run without a recommended action to dispatch.
	ErrEmptyAction = errors.New("session: run has no recommended action")
)

// Surface tells the presentation layer what to show for a user.
type Surface struct {
	State             access.State `json:"state"`
	UserName          string       `json:"user_name,omitempty"`
	Role              access.Role  `json:"role,omitempty"`
	ShowRoleSelection bool         `json:"show_role_selection"`
	ShowPendingNotice bool         `json:"show_pending_notice"`
	CanView           bool         `json:"can_view"`
	CanAct            bool         `json:"can_act"`
}

// SurfaceFor derives the surface from an access snapshot.
func SurfaceFor(state access.AccessState) Surface {
	return Surface{
		State:             state.State(),
		UserName:          state.User.Name,
		Role:              state.Role,
		ShowRoleSelection: state.ShowRoleSelection(),
		ShowPendingNotice: state.State() == access.StatePendingApproval,
		CanView:           state.CanView(),
		CanAct:            state.CanAct(),
	}
}

// AssetView is an asset page: the profile plus the prefilled input form.
type AssetView struct {
	Profile         assets.AssetProfile `json:"profile"`
	DefaultReadings map[string]string   `json:"default_readings"`
}

// PredictionRun is one completed inference with the inputs that produced it.
type PredictionRun struct {
	ID          string            `json:"id"`
	AssetID     string            `json:"asset_id"`
	AssetTitle  string            `json:"asset_title"`
	Inputs      map[string]string `json:"inputs"`
	Result      prediction.Result `json:"result"`
	RequestedBy string            `json:"requested_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ActionTicket records a dispatched maintenance action.
type ActionTicket struct {
	ID           string               `json:"id"`
	RunID        string               `json:"run_id"`
	AssetID      string               `json:"asset_id"`
	Action       string               `json:"action"`
	RiskLevel    prediction.RiskLevel `json:"risk_level"`
	Note         string               `json:"note,omitempty"`
	DispatchedBy string               `json:"dispatched_by"`
	CreatedAt    time.Time            `json:"created_at"`
}

// PredictionCompleted is published after a run is stored.
type PredictionCompleted struct {
	RunID       string               `json:"run_id"`
	AssetID     string               `json:"asset_id"`
	RiskLevel   prediction.RiskLevel `json:"risk_level"`
	HealthIndex int                  `json:"health_index"`
	RequestedBy string               `json:"requested_by"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// ActionDispatched is published after an engineer dispatches an action.
type ActionDispatched struct {
	TicketID     string               `json:"ticket_id"`
	RunID        string               `json:"run_id"`
	AssetID      string               `json:"asset_id"`
	Action       string               `json:"action"`
	RiskLevel    prediction.RiskLevel `json:"risk_level"`
	DispatchedBy string               `json:"dispatched_by"`
	OccurredAt   time.Time            `json:"occurred_at"`
}
