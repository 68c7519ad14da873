package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
func (l nopLogger) WithField(string, any) output.LoggerPort { return l }
func (nopLogger) Close() error { return nil }

// scriptedLLM returns its replies in order, repeating the last one.
type scriptedLLM struct {
	replies []string
	calls   int
}

func (f *scriptedLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	if i < 0 {
		return nil, errors.New("no scripted reply")
	}
	return &output.ChatResponse{Content: f.replies[i]}, nil
}

// stubExecutor answers each action kind with a canned observation.
type stubExecutor struct {
	findObs  entity.Observation
	clickOK  bool
	executed []entity.Action
}

func (s *stubExecutor) Execute(ctx context.Context, a entity.Action) (entity.Observation, error) {
	s.executed = append(s.executed, a)
	switch a.Name {
	case entity.ActionFind:
		obs := s.findObs
		obs.Tool = entity.ActionFind
		obs.OK = true
		return obs, nil
	case entity.ActionClick:
		return entity.Observation{Tool: entity.ActionClick, OK: s.clickOK, Selector: a.Selector}, nil
	case entity.ActionFinish:
		return entity.Observation{Tool: entity.ActionFinish, OK: true, Done: true, Reason: a.Reason}, nil
	default:
		return entity.Observation{Tool: a.Name, OK: true}, nil
	}
}

func newPlanner(llm output.LLMPort, exec output.ExecutorPort, cfg Config) *Planner {
	return New(llm, exec, nil, nopLogger{}, cfg)
}

func TestParseActionRejectsDisallowedTool(t *testing.T) {
	if _, err := ParseAction(`{"tool":"get_page_state","args":{}}`); !errors.Is(err, ErrBadToolCall) {
		t.Fatalf("expected ErrBadToolCall, got %v", err)
	}
	if _, err := ParseAction(`{"tool":"explode","args":{}}`); !errors.Is(err, ErrBadToolCall) {
		t.Fatalf("expected ErrBadToolCall, got %v", err)
	}
	if _, err := ParseAction(`not json`); !errors.Is(err, ErrBadToolCall) {
		t.Fatalf("expected ErrBadToolCall for malformed JSON, got %v", err)
	}
	if _, err := ParseAction(`{"tool":"find","args":{}}`); !errors.Is(err, ErrBadToolCall) {
		t.Fatalf("expected ErrBadToolCall for missing query, got %v", err)
	}
}

func TestParseActionToleratesFencesAndProse(t *testing.T) {
	a, err := ParseAction("```json\n{\"tool\":\"find\",\"args\":{\"query\":\"Payments\"}}\n```")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != entity.ActionFind || a.Query != "Payments" {
		t.Errorf("unexpected action: %+v", a)
	}

	a, err = ParseAction(`Sure! {"tool":"wait","args":{"seconds":2}}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != entity.ActionWait || a.Seconds != 2 {
		t.Errorf("unexpected action: %+v", a)
	}
}

func TestRunFindSingleMatchAutoClicksAndSettles(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"tool":"find","args":{"query":"Payments"}}`,
		`{"tool":"done","args":{"reason":"Opened payments."}}`,
	}}
	exec := &stubExecutor{
		findObs: entity.Observation{
			Matches: []entity.Candidate{{Kind: "link", Text: "Payments", Selector: "a.pay"}},
			Total:   1,
		},
		clickOK: true,
	}
	p := newPlanner(llm, exec, Config{})

	result, err := p.Run(context.Background(), "open payments", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Hint.Summary != "Opened payments." {
		t.Errorf("summary = %q", result.Hint.Summary)
	}

	var names []string
	for _, a := range exec.executed {
		names = append(names, string(a.Name))
	}
	want := []string{"find", "click", "wait", "done"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("executed %v, want %v", names, want)
	}
}

func TestRunFindZeroMatchesFinishesNotFound(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"tool":"find","args":{"query":"Teleporter"}}`}}
	exec := &stubExecutor{findObs: entity.Observation{Total: 0}}
	p := newPlanner(llm, exec, Config{})

	result, err := p.Run(context.Background(), "use the teleporter", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Hint.Summary, `"Teleporter" not found`) {
		t.Errorf("summary = %q", result.Hint.Summary)
	}
}

func TestRunFindTotalWithoutMatchListDefersToModel(t *testing.T) {
	// Executors may report a total without listing the matches; the
	// loop must hand the turn back to the model instead of crashing.
	llm := &scriptedLLM{replies: []string{
		`{"tool":"find","args":{"query":"Payments"}}`,
		`{"tool":"done","args":{"reason":"Nothing clickable."}}`,
	}}
	exec := &stubExecutor{findObs: entity.Observation{Total: 1}}
	p := newPlanner(llm, exec, Config{})

	result, err := p.Run(context.Background(), "open payments", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Hint.Summary != "Nothing clickable." {
		t.Errorf("summary = %q", result.Hint.Summary)
	}
	for _, s := range result.Steps {
		if s.Tool == entity.ActionClick.String() {
			t.Fatalf("no click should be issued without a selector, steps: %+v", result.Steps)
		}
	}
}

func TestRunClickFailureFinishesNamingSelector(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"tool":"click","args":{"selector":"#foo"}}`}}
	exec := &stubExecutor{clickOK: false}
	p := newPlanner(llm, exec, Config{})

	result, err := p.Run(context.Background(), "click it", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Hint.Summary, "#foo") {
		t.Errorf("finish reason should name the selector, got %q", result.Hint.Summary)
	}
}

func TestRunIterationCeilingForcesFinish(t *testing.T) {
	// The model stalls forever; the loop must still terminate.
	llm := &scriptedLLM{replies: []string{`{"tool":"wait","args":{"ms":10}}`}}
	exec := &stubExecutor{}
	p := newPlanner(llm, exec, Config{MaxIterations: 5})

	result, err := p.Run(context.Background(), "stall", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Hint.Summary != "Max steps reached." {
		t.Errorf("summary = %q", result.Hint.Summary)
	}
	if len(result.Steps) != 6 { // 5 waits + forced done
		t.Errorf("expected 6 steps, got %d", len(result.Steps))
	}
}

func TestRunBadToolCallIsHardError(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"tool":"teleport","args":{}}`}}
	p := newPlanner(llm, &stubExecutor{}, Config{})

	_, err := p.Run(context.Background(), "go", entity.Snapshot{}, nil)
	if !errors.Is(err, ErrBadToolCall) {
		t.Fatalf("expected ErrBadToolCall, got %v", err)
	}
}

func TestRunMultipleMatchesAutomatedPicksFirstUsable(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"tool":"find","args":{"query":"Records"}}`,
		`{"tool":"done","args":{"reason":"done"}}`,
	}}
	exec := &stubExecutor{
		findObs: entity.Observation{
			Matches: []entity.Candidate{
				{Kind: "link", Text: "Records (no selector)"},
				{Kind: "link", Text: "Immunisation Records", Selector: "a.imm"},
			},
			Total: 2,
		},
		clickOK: true,
	}
	p := newPlanner(llm, exec, Config{})

	if _, err := p.Run(context.Background(), "records", entity.Snapshot{}, nil); err != nil {
		t.Fatal(err)
	}
	var clicked string
	for _, a := range exec.executed {
		if a.Name == entity.ActionClick {
			clicked = a.Selector
		}
	}
	if clicked != "a.imm" {
		t.Errorf("clicked %q, want a.imm", clicked)
	}
}

func TestRunInteractiveWithoutPortPausesOnZeroMatches(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"tool":"find","args":{"query":"X"}}`}}
	exec := &stubExecutor{findObs: entity.Observation{Total: 0}}
	p := newPlanner(llm, exec, Config{Interactive: true})

	result, err := p.Run(context.Background(), "find x", entity.Snapshot{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.AwaitingUser == nil {
		t.Fatal("expected awaiting-user pause")
	}
	if !strings.Contains(result.AwaitingUser.Question, `"X"`) {
		t.Errorf("question = %q", result.AwaitingUser.Question)
	}
}

func TestRunTerminatesForArbitraryObservations(t *testing.T) {
	// A randomized-ish fuzz over find totals; every run must end.
	for total := 0; total < 4; total++ {
		llm := &scriptedLLM{replies: []string{
			fmt.Sprintf(`{"tool":"find","args":{"query":"q%d"}}`, total),
		}}
		matches := make([]entity.Candidate, 0, total)
		for i := 0; i < total; i++ {
			matches = append(matches, entity.Candidate{Kind: "link", Selector: fmt.Sprintf("a.x%d", i)})
		}
		exec := &stubExecutor{findObs: entity.Observation{Matches: matches, Total: total}, clickOK: true}
		p := newPlanner(llm, exec, Config{MaxIterations: 8})

		if _, err := p.Run(context.Background(), "fuzz", entity.Snapshot{}, nil); err != nil {
			t.Fatalf("total=%d: %v", total, err)
		}
	}
}
