package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/infrastructure/prompts"
)

const (
	defaultMaxIterations = 12
	defaultSettleWaitMs  = 400
	maxExcerptLen        = 4000
	maxOptionCount       = 6
	vocabInPrompt        = 12
)

// Config tunes the step loop. Zero values fall back to defaults.
type Config struct {
	MaxIterations int
	SettleWaitMs  int
	Interactive   bool
}

// Planner drives the free-form step loop: the model proposes one tool
// call per turn, the executor applies it against the latest snapshot,
// and the observation is fed back as the next user message. Some
// observations short-circuit the next turn with a deterministic
// reaction instead of asking the model again.
type Planner struct {
	llm    output.LLMPort
	exec   output.ExecutorPort
	user   output.UserInteractionPort
	logger output.LoggerPort
	cfg    Config
}

func New(llm output.LLMPort, exec output.ExecutorPort, user output.UserInteractionPort, logger output.LoggerPort, cfg Config) *Planner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.SettleWaitMs <= 0 {
		cfg.SettleWaitMs = defaultSettleWaitMs
	}
	return &Planner{llm: llm, exec: exec, user: user, logger: logger, cfg: cfg}
}

type runState struct {
	messages   []entity.Message
	steps      []entity.Step
	iteration  int
	lastAction *entity.Action
	lastObs    *entity.Observation
	settled    bool
}

// Run executes the goal against the given page until the plan ends
// with done or the iteration ceiling forces it to.
func (p *Planner) Run(ctx context.Context, goal string, page entity.Snapshot, vocab []string) (*entity.PlanResult, error) {
	state := &runState{
		messages: p.seedMessages(goal, page, vocab),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state.iteration++

		var action entity.Action
		if state.iteration > p.cfg.MaxIterations {
			action = entity.Finish("Max steps reached.")
		} else {
			var prompt *entity.UserPrompt
			var err error
			action, prompt, err = p.nextAction(ctx, state)
			if err != nil {
				return nil, err
			}
			if prompt != nil {
				return &entity.PlanResult{Steps: state.steps, AwaitingUser: prompt}, nil
			}
		}

		obs, err := p.exec.Execute(ctx, action)
		if err != nil {
			return nil, fmt.Errorf("execute %s: %w", action.Name, err)
		}
		state.steps = append(state.steps, entity.StepFrom(action))
		p.record(state, action, obs)
		p.logger.Debug("planner step",
			"iteration", state.iteration, "tool", string(action.Name), "ok", obs.OK)

		if action.Name == entity.ActionFinish {
			if p.cfg.Interactive && p.user != nil && state.iteration <= p.cfg.MaxIterations {
				done, err := p.user.ConfirmDone(ctx, action.Reason)
				if err != nil {
					return nil, err
				}
				if !done {
					state.lastObs = nil
					state.lastAction = nil
					continue
				}
			}
			return &entity.PlanResult{
				Steps: state.steps,
				Hint:  entity.PlanHint{Summary: action.Reason},
			}, nil
		}
	}
}

func (p *Planner) seedMessages(goal string, page entity.Snapshot, vocab []string) []entity.Message {
	if len(vocab) > vocabInPrompt {
		vocab = vocab[:vocabInPrompt]
	}
	pageCtx, err := prompts.RenderPageContext(prompts.PageContextData{
		URL:         page.URL,
		Title:       page.Title,
		TextCount:   len(page.Texts),
		LinkCount:   len(page.Links),
		ButtonCount: len(page.Buttons),
		InputCount:  len(page.Inputs),
		Vocab:       vocab,
		Excerpt:     safeExcerpt(page, maxExcerptLen),
	})
	if err != nil {
		pageCtx = "URL: " + page.URL
	}
	return []entity.Message{
		{Role: entity.RoleSystem, Content: prompts.SystemPrompt},
		{Role: entity.RoleUser, Content: "GOAL: " + goal},
		{Role: entity.RoleUser, Content: "PAGE_STATE:\n" + pageCtx},
	}
}

// nextAction returns either a deterministic reaction to the previous
// observation or the model's next tool call. A non-nil UserPrompt means
// the run must pause for input that no attached user port can supply.
func (p *Planner) nextAction(ctx context.Context, state *runState) (entity.Action, *entity.UserPrompt, error) {
	if state.lastObs != nil {
		action, prompt, handled, err := p.react(ctx, state)
		if err != nil || prompt != nil || handled {
			return action, prompt, err
		}
	}
	return p.llmTurn(ctx, state)
}

func (p *Planner) react(ctx context.Context, state *runState) (entity.Action, *entity.UserPrompt, bool, error) {
	obs := state.lastObs
	last := state.lastAction

	switch last.Name {
	case entity.ActionFind:
		return p.reactToFind(ctx, state, obs, last)

	case entity.ActionClick:
		if !obs.OK {
			return entity.Finish(fmt.Sprintf("Could not click %s.", last.Selector)), nil, true, nil
		}
		if !state.settled {
			state.settled = true
			return entity.WaitMs(p.cfg.SettleWaitMs), nil, true, nil
		}

	case entity.ActionType:
		if !obs.OK {
			return entity.Finish(fmt.Sprintf("Could not type into %s.", last.Selector)), nil, true, nil
		}
	}
	return entity.Action{}, nil, false, nil
}

func (p *Planner) reactToFind(ctx context.Context, state *runState, obs *entity.Observation, last *entity.Action) (entity.Action, *entity.UserPrompt, bool, error) {
	switch {
	case obs.Total == 0:
		if p.cfg.Interactive {
			if p.user == nil {
				return entity.Action{}, &entity.UserPrompt{
					Question: fmt.Sprintf("Nothing on this page matches %q. What should I look for instead?", last.Query),
				}, false, nil
			}
			reply, err := p.user.AskQuestion(ctx,
				fmt.Sprintf("Nothing on this page matches %q. What should I look for instead?", last.Query))
			if err != nil {
				return entity.Action{}, nil, false, err
			}
			if strings.TrimSpace(reply) != "" {
				return entity.Find(reply), nil, true, nil
			}
		}
		return entity.Finish(fmt.Sprintf("%q not found on this page.", last.Query)), nil, true, nil

	case obs.Total == 1 && len(obs.Matches) > 0 && obs.Matches[0].Selector != "":
		state.settled = false
		return entity.Click(obs.Matches[0].Selector), nil, true, nil

	case obs.Total > 1:
		if p.cfg.Interactive && p.user == nil {
			options := obs.Matches
			if len(options) > maxOptionCount {
				options = options[:maxOptionCount]
			}
			return entity.Action{}, &entity.UserPrompt{
				Question: fmt.Sprintf("Several things match %q. Which one?", last.Query),
				Options:  options,
			}, false, nil
		}
		if p.cfg.Interactive && p.user != nil {
			options := obs.Matches
			if len(options) > maxOptionCount {
				options = options[:maxOptionCount]
			}
			idx, err := p.user.ChooseOption(ctx,
				fmt.Sprintf("Several things match %q. Which one?", last.Query), options)
			if err != nil {
				return entity.Action{}, nil, false, err
			}
			if idx >= 0 && idx < len(options) && options[idx].Selector != "" {
				state.settled = false
				return entity.Click(options[idx].Selector), nil, true, nil
			}
			return entity.Finish("No usable choice was made."), nil, true, nil
		}
		for _, c := range obs.Matches {
			if c.Selector != "" {
				state.settled = false
				return entity.Click(c.Selector), nil, true, nil
			}
		}
		return entity.Finish(fmt.Sprintf("Matches for %q have no usable selector.", last.Query)), nil, true, nil
	}
	return entity.Action{}, nil, false, nil
}

func (p *Planner) llmTurn(ctx context.Context, state *runState) (entity.Action, *entity.UserPrompt, error) {
	msgs := make([]entity.Message, 0, len(state.messages)+1)
	msgs = append(msgs, state.messages...)
	msgs = append(msgs, entity.Message{Role: entity.RoleUser, Content: prompts.SchemaHint})

	resp, err := p.llm.Chat(ctx, output.ChatRequest{Messages: msgs, Temperature: 0})
	if err != nil {
		return entity.Action{}, nil, fmt.Errorf("planner llm: %w", err)
	}

	action, err := ParseAction(resp.Content)
	if err != nil {
		return entity.Action{}, nil, err
	}
	state.messages = append(state.messages, entity.Message{Role: entity.RoleAssistant, Content: resp.Content})
	if action.Name == entity.ActionClick {
		state.settled = false
	}
	return action, nil, nil
}

func (p *Planner) record(state *runState, action entity.Action, obs entity.Observation) {
	state.lastAction = &action
	state.lastObs = &obs

	compact := obs
	compact.Snapshot = nil
	if len(compact.Matches) > maxOptionCount {
		compact.Matches = compact.Matches[:maxOptionCount]
	}
	payload, err := json.Marshal(compact)
	if err != nil {
		payload = []byte(`{"ok":false}`)
	}
	state.messages = append(state.messages,
		entity.Message{Role: entity.RoleUser, Content: "OBS: " + string(payload)})
}

// safeExcerpt caps what the model sees of the page body: raw HTML when
// the snapshot carries it, flattened visible text otherwise.
func safeExcerpt(page entity.Snapshot, max int) string {
	if page.RawHTML != "" {
		if len(page.RawHTML) > max {
			return page.RawHTML[:max]
		}
		return page.RawHTML
	}
	var b strings.Builder
	for _, line := range page.TextLines() {
		if b.Len()+len(line)+1 > max {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
