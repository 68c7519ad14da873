package supervisor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/infrastructure/prompts"
)

var routeFallbacks = []struct {
	rx *regexp.Regexp
	w  entity.Workflow
}{
	{regexp.MustCompile(`(?i)\blab\b|\blabs\b|report`), entity.WorkflowLabResults},
	{regexp.MustCompile(`(?i)appoint`), entity.WorkflowAppointments},
	{regexp.MustCompile(`(?i)\bpay\b|payment|\bbill\b|bills|invoice|outstanding`), entity.WorkflowPayments},
	{regexp.MustCompile(`(?i)immuni|vaccin|booster|\bjab\b|\bshot\b`), entity.WorkflowImmunisations},
}

// Supervisor decides which workflow a goal belongs to. It asks the
// model for a single route token and falls back to keyword matching
// when the reply is unusable.
type Supervisor struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(llm output.LLMPort, logger output.LoggerPort) *Supervisor {
	return &Supervisor{llm: llm, logger: logger}
}

// Route maps a free-form goal to one of the four workflows. The model
// reply may be a bare token or a {"route": ...} object; either is
// accepted. Anything else routes by keywords, defaulting to
// appointments.
func (s *Supervisor) Route(ctx context.Context, goal string) entity.Workflow {
	resp, err := s.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.RouterPrompt},
			{Role: entity.RoleUser, Content: goal},
		},
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		s.logger.Warn("router llm failed, using keyword fallback", "error", err.Error())
		return RouteByKeywords(goal)
	}

	if w, ok := parseRoute(resp.Content); ok {
		return w
	}
	s.logger.Debug("router reply unusable", "reply", resp.Content)
	return RouteByKeywords(goal)
}

func parseRoute(reply string) (entity.Workflow, bool) {
	token := strings.ToLower(strings.TrimSpace(reply))
	token = strings.Trim(token, "`\"' .")

	if strings.HasPrefix(token, "{") {
		var obj struct {
			Route string `json:"route"`
		}
		if err := json.Unmarshal([]byte(token), &obj); err == nil {
			token = strings.ToLower(strings.TrimSpace(obj.Route))
		}
	}

	w := entity.Workflow(token)
	if w.Valid() {
		return w, true
	}
	// Tolerate a token embedded in prose.
	for _, known := range entity.WorkflowOrder {
		if strings.Contains(token, string(known)) {
			return known, true
		}
	}
	return "", false
}

// RouteByKeywords is the deterministic fallback. Lab keywords win over
// appointment keywords so "lab report appointment" routes to labs.
func RouteByKeywords(goal string) entity.Workflow {
	for _, f := range routeFallbacks {
		if f.rx.MatchString(goal) {
			return f.w
		}
	}
	return entity.WorkflowAppointments
}
