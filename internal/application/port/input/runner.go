package input

import (
	"context"
	"encoding/json"

	"portal-agent/internal/domain/entity"
)

// RunMode selects between the free-form step-planning loop and the
// routed workflow pipeline (navigate + read).
type RunMode string

const (
	ModePlan     RunMode = "plan"
	ModeWorkflow RunMode = "workflow"
)

type RunRequest struct {
	Goal      string          `json:"goal"`
	PageState json.RawMessage `json:"page_state"`
	Mode      RunMode         `json:"mode,omitempty"`
	ThreadID  string          `json:"thread_id,omitempty"`
	UserReply string          `json:"user_reply,omitempty"`
}

// PlanRunner is the run entrypoint exposed to transports.
type PlanRunner interface {
	Run(ctx context.Context, req RunRequest) (*entity.PlanResult, error)
}
