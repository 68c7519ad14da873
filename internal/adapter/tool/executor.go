package tool

import (
	"context"
	"fmt"
	"time"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

var _ output.ExecutorPort = (*ProxyExecutor)(nil)

// maxWaitMs bounds every sleep the executor performs. All suspensions
// in this system are capped.
const maxWaitMs = 60_000

// ProxyExecutor simulates the action vocabulary against a static page
// snapshot. find/click/type are read-only proxies over the initial
// page; get_page_state prefers the freshest snapshot from the source
// and falls back to the initial page.
type ProxyExecutor struct {
	page   entity.Snapshot
	source output.SnapshotSource
	logger output.LoggerPort
	sleep  func(time.Duration)
}

func NewProxyExecutor(page entity.Snapshot, source output.SnapshotSource, logger output.LoggerPort) *ProxyExecutor {
	return &ProxyExecutor{
		page:   page,
		source: source,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// WithSleep replaces the sleep function; tests use this to run the
// bounded waits instantly.
func (e *ProxyExecutor) WithSleep(fn func(time.Duration)) *ProxyExecutor {
	e.sleep = fn
	return e
}

func (e *ProxyExecutor) Execute(ctx context.Context, action entity.Action) (entity.Observation, error) {
	if err := ctx.Err(); err != nil {
		return entity.Observation{}, err
	}

	switch action.Name {
	case entity.ActionFind:
		return e.find(action.Query), nil
	case entity.ActionClick:
		return e.click(action.Selector), nil
	case entity.ActionType:
		return e.typeInto(action.Selector, action.Text), nil
	case entity.ActionWait:
		return e.wait(action), nil
	case entity.ActionWaitForIdle:
		return e.waitForIdle(action), nil
	case entity.ActionPageState:
		return e.pageState(), nil
	case entity.ActionFinish:
		return entity.Observation{Tool: entity.ActionFinish, OK: true, Done: true, Reason: action.Reason}, nil
	default:
		return entity.Observation{}, fmt.Errorf("unknown action %q", action.Name)
	}
}

func (e *ProxyExecutor) find(query string) entity.Observation {
	all := Search(query, e.page)
	capped := all
	if len(capped) > MaxMatches {
		capped = capped[:MaxMatches]
	}
	e.logger.Debug("find executed", "query", query, "total", len(all))
	return entity.Observation{
		Tool:    entity.ActionFind,
		OK:      true,
		Matches: capped,
		Total:   len(all),
	}
}

func (e *ProxyExecutor) click(selector string) entity.Observation {
	var nav string
	for _, a := range e.page.Links {
		if a.Selector == selector && a.Href != "" {
			nav = a.Href
			break
		}
	}
	return entity.Observation{
		Tool:       entity.ActionClick,
		OK:         true,
		Selector:   selector,
		NavigateTo: nav,
	}
}

func (e *ProxyExecutor) typeInto(selector, text string) entity.Observation {
	known := len(e.page.Inputs) == 0
	for _, in := range e.page.Inputs {
		if in.Selector == selector {
			known = true
			break
		}
	}
	return entity.Observation{
		Tool:     entity.ActionType,
		OK:       known,
		Selector: selector,
		Typed:    text,
	}
}

func (e *ProxyExecutor) wait(action entity.Action) entity.Observation {
	ms := 0
	if action.Seconds > 0 {
		ms = min(action.Seconds, 60) * 1000
	}
	if action.Ms > ms {
		ms = min(action.Ms, maxWaitMs)
	}
	if ms > 0 {
		e.sleep(time.Duration(ms) * time.Millisecond)
	}
	return entity.Observation{Tool: entity.ActionWait, OK: true, WaitedMs: ms}
}

func (e *ProxyExecutor) waitForIdle(action entity.Action) entity.Observation {
	// The server cannot observe real browser idleness; simulate a short
	// settle pause bounded by both hints.
	ms := min(action.QuietMs, action.Timeout, maxWaitMs)
	if ms < 0 {
		ms = 0
	}
	if ms > 0 {
		e.sleep(time.Duration(ms) * time.Millisecond)
	}
	return entity.Observation{Tool: entity.ActionWaitForIdle, OK: true, Idle: true, WaitedMs: ms}
}

func (e *ProxyExecutor) pageState() entity.Observation {
	snap := e.page
	fromBridge := false
	if e.source != nil {
		if latest, ok := e.source.Latest(); ok {
			snap = latest
			fromBridge = true
		}
	}
	e.logger.Debug("page state read", "bridge", fromBridge, "url", snap.URL)
	return entity.Observation{Tool: entity.ActionPageState, OK: true, Snapshot: &snap}
}
