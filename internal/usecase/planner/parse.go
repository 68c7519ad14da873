package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"portal-agent/internal/domain/entity"
)

// ErrBadToolCall marks planner output that names a tool outside the
// allowed set or carries malformed args. It is a hard error surfaced
// to the caller, never silently retried or coerced.
var ErrBadToolCall = errors.New("bad tool call")

type rawToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ParseAction turns the model's raw reply into exactly one Action.
// Code fences and leading prose are tolerated; everything else is not.
func ParseAction(raw string) (entity.Action, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "` \n")
	}
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}

	var tc rawToolCall
	if err := json.Unmarshal([]byte(s), &tc); err != nil {
		return entity.Action{}, fmt.Errorf("%w: invalid JSON: %v", ErrBadToolCall, err)
	}

	name := entity.ActionName(tc.Tool)
	if !entity.PlannerActions[name] {
		return entity.Action{}, fmt.Errorf("%w: tool %q not allowed", ErrBadToolCall, tc.Tool)
	}

	action := entity.Action{Name: name}
	switch name {
	case entity.ActionFind:
		q, ok := stringArg(tc.Args, "query")
		if !ok {
			return entity.Action{}, fmt.Errorf("%w: find requires query", ErrBadToolCall)
		}
		action.Query = q
	case entity.ActionClick:
		sel, ok := stringArg(tc.Args, "selector")
		if !ok {
			return entity.Action{}, fmt.Errorf("%w: click requires selector", ErrBadToolCall)
		}
		action.Selector = sel
	case entity.ActionType:
		sel, okSel := stringArg(tc.Args, "selector")
		text, okText := stringArg(tc.Args, "text")
		if !okSel || !okText {
			return entity.Action{}, fmt.Errorf("%w: type requires selector and text", ErrBadToolCall)
		}
		action.Selector = sel
		action.Text = text
	case entity.ActionWait:
		if sec, ok := intArg(tc.Args, "seconds"); ok {
			action.Seconds = sec
		} else if ms, ok := intArg(tc.Args, "ms"); ok {
			action.Ms = ms
		} else {
			return entity.Action{}, fmt.Errorf("%w: wait requires seconds or ms", ErrBadToolCall)
		}
	case entity.ActionFinish:
		reason, ok := stringArg(tc.Args, "reason")
		if !ok {
			return entity.Action{}, fmt.Errorf("%w: done requires reason", ErrBadToolCall)
		}
		action.Reason = reason
	}
	return action, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
