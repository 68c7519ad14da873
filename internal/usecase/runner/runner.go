package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"portal-agent/internal/application/port/input"
	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/usecase/navigator"
	"portal-agent/internal/usecase/normalizer"
	"portal-agent/internal/usecase/planner"
	"portal-agent/internal/usecase/reader"
	"portal-agent/internal/usecase/supervisor"
)

var _ input.PlanRunner = (*Service)(nil)

// Service is the run entrypoint. Each request carries its own page
// snapshot, so the executor and the use cases around it are built per
// run; only the collaborators that hold no page state are shared.
type Service struct {
	llm         output.LLMPort
	env         output.ConfigPort
	source      output.SnapshotSource
	user        output.UserInteractionPort
	logger      output.LoggerPort
	norm        *normalizer.Normalizer
	sup         *supervisor.Supervisor
	interactive bool

	// newExecutor is swappable so tests can run against a stub.
	newExecutor func(page entity.Snapshot) output.ExecutorPort
}

func New(
	llm output.LLMPort,
	env output.ConfigPort,
	source output.SnapshotSource,
	user output.UserInteractionPort,
	logger output.LoggerPort,
	newExecutor func(page entity.Snapshot) output.ExecutorPort,
) *Service {
	return &Service{
		llm:         llm,
		env:         env,
		source:      source,
		user:        user,
		logger:      logger,
		norm:        normalizer.New(llm, logger),
		sup:         supervisor.New(llm, logger),
		interactive: env.GetBool("INTERACTIVE_MODE", false),
		newExecutor: newExecutor,
	}
}

// Run normalizes the goal against the page vocabulary and dispatches
// on mode: the free-form step loop by default, the routed
// navigate-and-read pipeline for workflow runs.
func (s *Service) Run(ctx context.Context, req input.RunRequest) (*entity.PlanResult, error) {
	goal := strings.TrimSpace(req.Goal)
	if req.UserReply != "" {
		goal = strings.TrimSpace(req.UserReply)
	}
	if goal == "" {
		return nil, fmt.Errorf("empty goal")
	}

	runID := req.ThreadID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.logger.WithField("run_id", runID)

	page := entity.ParseSnapshot(req.PageState)
	s.source.Publish(page)
	exec := s.newExecutor(page)

	if req.Mode == input.ModeWorkflow {
		return s.runWorkflow(ctx, goal, page, exec, log)
	}
	return s.runPlan(ctx, goal, page, exec, runID, log)
}

func (s *Service) runPlan(ctx context.Context, goal string, page entity.Snapshot, exec output.ExecutorPort, runID string, log output.LoggerPort) (*entity.PlanResult, error) {
	vocab := normalizer.BuildVocab(page, normalizer.MaxVocab)
	plan, workflow := s.norm.Normalize(ctx, goal, vocab)
	log.Info("goal normalized", "workflow", string(workflow), "plan", plan)

	p := planner.New(s.llm, exec, s.user, log, planner.Config{
		MaxIterations: s.env.GetInt("AGENT_MAX_ITERATIONS", 0),
		Interactive:   s.interactive,
	})
	result, err := p.Run(ctx, plan, page, vocab)
	if err != nil {
		return nil, err
	}
	if result.AwaitingUser != nil {
		result.AwaitingUser.RunID = runID
	}
	return result, nil
}

func (s *Service) runWorkflow(ctx context.Context, goal string, page entity.Snapshot, exec output.ExecutorPort, log output.LoggerPort) (*entity.PlanResult, error) {
	w := s.sup.Route(ctx, goal)
	cfg := reader.ConfigFor(w, s.env)
	log.Info("routed", "workflow", string(w))

	var steps []entity.Step
	if !cfg.AtSectionURL(page.URL) {
		nav := navigator.New(exec, s.llm, log)
		_, navSteps, reached, err := nav.Navigate(ctx, w)
		if err != nil {
			return nil, err
		}
		steps = navSteps
		if !reached {
			log.Warn("navigation did not reach section, reading anyway", "workflow", string(w))
		}
	}

	rd := reader.New(exec, log, cfg, reader.ExtractorFor(w))
	res, err := rd.Read(ctx)
	if err != nil {
		return nil, err
	}
	return &entity.PlanResult{
		Steps: steps,
		Hint:  entity.PlanHint{Summary: res.Summary},
		Read:  res,
	}, nil
}
