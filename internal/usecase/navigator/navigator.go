package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/infrastructure/prompts"
	"portal-agent/internal/usecase/normalizer"
)

// TargetHost is the portal host navigation steers toward.
const TargetHost = "eservices.healthhub.sg"

// Config parameterizes one workflow's route to its section.
type Config struct {
	Workflow    entity.Workflow
	Host        string
	URLToken    string
	Query       string
	TextHint    string
	MaxTries    int
	IdleQuietMs int
	IdleTimeout int
	// UseLLMPicker lets the model choose between ambiguous candidates
	// on sections whose portals bury the link behind lookalike labels.
	UseLLMPicker bool
}

// Configs maps each workflow to its section route.
var Configs = map[entity.Workflow]Config{
	entity.WorkflowAppointments: {
		Workflow: entity.WorkflowAppointments, Host: TargetHost,
		URLToken: "/appointments", Query: "Appointments", TextHint: "appointment",
		MaxTries: 8, IdleQuietMs: 700, IdleTimeout: 8000, UseLLMPicker: true,
	},
	entity.WorkflowLabResults: {
		Workflow: entity.WorkflowLabResults, Host: TargetHost,
		URLToken: "/lab-test-reports/lab", Query: "Lab Results", TextHint: "lab",
		MaxTries: 6, IdleQuietMs: 700, IdleTimeout: 8000,
	},
	entity.WorkflowPayments: {
		Workflow: entity.WorkflowPayments, Host: TargetHost,
		URLToken: "/payments", Query: "Payments", TextHint: "pay",
		MaxTries: 6, IdleQuietMs: 700, IdleTimeout: 8000,
	},
	entity.WorkflowImmunisations: {
		Workflow: entity.WorkflowImmunisations, Host: TargetHost,
		URLToken: "/immunisation", Query: "Immunisation Records", TextHint: "immunis",
		MaxTries: 8, IdleQuietMs: 700, IdleTimeout: 8000, UseLLMPicker: true,
	},
}

// AtSection reports whether the URL already sits inside the workflow's
// section.
func AtSection(url string, cfg Config) bool {
	return strings.Contains(strings.ToLower(url), cfg.URLToken)
}

// Navigator walks the portal toward one workflow's section by the
// find/rank/click/idle cycle, at most MaxTries rounds.
type Navigator struct {
	exec   output.ExecutorPort
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(exec output.ExecutorPort, llm output.LLMPort, logger output.LoggerPort) *Navigator {
	return &Navigator{exec: exec, llm: llm, logger: logger}
}

// Navigate drives toward the workflow's section. It returns the last
// snapshot seen, the steps taken, and whether the section URL was
// reached; the caller's reader still gates on readiness either way.
func (n *Navigator) Navigate(ctx context.Context, w entity.Workflow) (entity.Snapshot, []entity.Step, bool, error) {
	cfg, ok := Configs[w]
	if !ok {
		cfg = Configs[entity.WorkflowAppointments]
	}

	var steps []entity.Step
	var last entity.Snapshot
	for try := 0; try < cfg.MaxTries; try++ {
		if err := ctx.Err(); err != nil {
			return last, steps, false, err
		}

		obs, err := n.exec.Execute(ctx, entity.PageState())
		if err != nil {
			return last, steps, false, fmt.Errorf("page state: %w", err)
		}
		steps = append(steps, entity.StepFrom(entity.PageState()))
		if obs.Snapshot != nil {
			last = *obs.Snapshot
		}
		if AtSection(last.URL, cfg) {
			return last, steps, true, nil
		}

		selector, err := n.findTarget(ctx, cfg, &steps)
		if err != nil {
			return last, steps, false, err
		}
		if selector == "" {
			n.logger.Warn("no navigation candidate", "workflow", string(w), "try", try)
			return last, steps, false, nil
		}

		click := entity.Click(selector)
		clickObs, err := n.exec.Execute(ctx, click)
		if err != nil {
			return last, steps, false, fmt.Errorf("click %s: %w", selector, err)
		}
		steps = append(steps, entity.StepFrom(click))
		if !clickObs.OK {
			n.logger.Warn("navigation click failed", "selector", selector)
			return last, steps, false, nil
		}

		idle := entity.WaitForIdle(cfg.IdleQuietMs, cfg.IdleTimeout)
		if _, err := n.exec.Execute(ctx, idle); err != nil {
			return last, steps, false, fmt.Errorf("wait for idle: %w", err)
		}
		steps = append(steps, entity.StepFrom(idle))
	}
	return last, steps, false, nil
}

// findTarget finds candidates for the section query (entry-label
// fallbacks included) and picks one selector.
func (n *Navigator) findTarget(ctx context.Context, cfg Config, steps *[]entity.Step) (string, error) {
	queries := append([]string{cfg.Query}, normalizer.Queries(cfg.Workflow).Entry...)
	for _, q := range queries {
		find := entity.Find(q)
		obs, err := n.exec.Execute(ctx, find)
		if err != nil {
			return "", fmt.Errorf("find %q: %w", q, err)
		}
		*steps = append(*steps, entity.StepFrom(find))
		if obs.Total == 0 {
			continue
		}
		if sel := n.pick(ctx, cfg, obs.Matches); sel != "" {
			return sel, nil
		}
	}
	return "", nil
}

// pick ranks candidates: same-host section links beat section links on
// any host, which beat text-hint matches, which beat the first
// candidate with a selector. The LLM picker, when enabled, gets the
// first word and the ranking serves as its fallback.
func (n *Navigator) pick(ctx context.Context, cfg Config, matches []entity.Candidate) string {
	if cfg.UseLLMPicker && len(matches) > 1 {
		if sel := n.askPicker(ctx, cfg, matches); sel != "" {
			return sel
		}
	}

	var tokenHit, textHit, first string
	for _, c := range matches {
		if c.Selector == "" {
			continue
		}
		href := strings.ToLower(c.Href)
		if strings.Contains(href, cfg.Host) && strings.Contains(href, cfg.URLToken) {
			return c.Selector
		}
		if tokenHit == "" && strings.Contains(href, cfg.URLToken) {
			tokenHit = c.Selector
		}
		if textHit == "" && strings.Contains(strings.ToLower(c.Text), cfg.TextHint) {
			textHit = c.Selector
		}
		if first == "" {
			first = c.Selector
		}
	}
	if tokenHit != "" {
		return tokenHit
	}
	if textHit != "" {
		return textHit
	}
	return first
}

func (n *Navigator) askPicker(ctx context.Context, cfg Config, matches []entity.Candidate) string {
	payload, err := json.Marshal(matches)
	if err != nil {
		return ""
	}
	resp, err := n.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.SelectorPrompt},
			{Role: entity.RoleUser, Content: fmt.Sprintf(
				"SECTION: %s\nCANDIDATES: %s", cfg.Workflow, payload)},
		},
		Temperature: 0,
		MaxTokens:   128,
	})
	if err != nil {
		n.logger.Warn("selector picker failed", "error", err.Error())
		return ""
	}
	data, err := normalizer.ParseStrictJSON(resp.Content)
	if err != nil {
		return ""
	}
	sel, _ := data["selector"].(string)
	sel = strings.TrimSpace(sel)
	for _, c := range matches {
		if c.Selector == sel {
			return sel
		}
	}
	return ""
}
