package reader

import (
	"context"
	"strconv"
	"testing"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) WithField(string, any) output.LoggerPort { return nopLogger{} }
func (nopLogger) Close() error { return nil }

// gateExec serves a scripted sequence of snapshots, one per
// get_page_state call; the last one repeats. Waits succeed silently.
type gateExec struct {
	snaps    []entity.Snapshot
	polls    int
	executed []entity.ActionName
}

func (g *gateExec) Execute(_ context.Context, a entity.Action) (entity.Observation, error) {
	g.executed = append(g.executed, a.Name)
	if a.Name != entity.ActionPageState {
		return entity.Observation{Tool: a.Name, OK: true}, nil
	}
	i := g.polls
	if i >= len(g.snaps) {
		i = len(g.snaps) - 1
	}
	g.polls++
	snap := g.snaps[i]
	return entity.Observation{Tool: a.Name, OK: true, Snapshot: &snap}, nil
}

func gateConfig() Config {
	return Config{
		Workflow:      entity.WorkflowPayments,
		Host:          "eservices.healthhub.sg",
		URLToken:      "/payments",
		GateMaxTries:  3,
		GatePollMs:    1,
		GateInitialMs: 0,
		SettleTries:   2,
		IdleQuietMs:   1,
		IdleTimeoutMs: 10,
		MinHeadings:   1,
		MinLinks:      2,
	}
}

func richPaymentsSnap() entity.Snapshot {
	return entity.Snapshot{
		URL:      "https://eservices.healthhub.sg/payments",
		Headings: []entity.TextNode{{Text: "Payments"}},
		Links: []entity.Link{
			{Text: "Pay now", Selector: "a.pay"},
			{Text: "History", Selector: "a.hist"},
		},
		Texts: textNodes(
			"Outstanding Bills by Cluster",
			"National University Health System",
			"Amount to pay:",
			"S$12.00",
		),
	}
}

func TestReadHappyPathNotGated(t *testing.T) {
	exec := &gateExec{snaps: []entity.Snapshot{richPaymentsSnap()}}
	r := New(exec, nopLogger{}, gateConfig(), PaymentExtractor{})

	res, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Gated || res.PrepTries != 0 || res.SettleTries != 0 {
		t.Errorf("gated=%v prep=%d settle=%d, want clean pass", res.Gated, res.PrepTries, res.SettleTries)
	}
	if res.Count != 1 {
		t.Errorf("count = %d, summary = %q", res.Count, res.Summary)
	}
	if res.Reason != "Extracted 1 cluster bill item(s)" {
		t.Errorf("reason = %q", res.Reason)
	}
	if res.URL != "https://eservices.healthhub.sg/payments" {
		t.Errorf("url = %q", res.URL)
	}
}

func TestReadWaitsOutURLGate(t *testing.T) {
	off := entity.Snapshot{URL: "https://eservices.healthhub.sg/home"}
	exec := &gateExec{snaps: []entity.Snapshot{off, off, richPaymentsSnap()}}
	r := New(exec, nopLogger{}, gateConfig(), PaymentExtractor{})

	res, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Gated || res.PrepTries != 2 {
		t.Errorf("gated=%v prep=%d, want 2 URL polls", res.Gated, res.PrepTries)
	}
	if res.Count != 1 {
		t.Errorf("count = %d", res.Count)
	}
}

func TestReadURLGateTimesOutDegraded(t *testing.T) {
	off := entity.Snapshot{URL: "https://other.example.com/"}
	exec := &gateExec{snaps: []entity.Snapshot{off}}
	cfg := gateConfig()
	cfg.SettleTries = 0
	r := New(exec, nopLogger{}, cfg, PaymentExtractor{})

	res, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Gated || res.PrepTries != cfg.GateMaxTries {
		t.Errorf("gated=%v prep=%d, want all %d tries burned", res.Gated, res.PrepTries, cfg.GateMaxTries)
	}
	if res.Summary != "No outstanding bills detected." {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestReadSettlesThinDOM(t *testing.T) {
	thin := entity.Snapshot{URL: "https://eservices.healthhub.sg/payments"}
	exec := &gateExec{snaps: []entity.Snapshot{thin, richPaymentsSnap()}}
	r := New(exec, nopLogger{}, gateConfig(), PaymentExtractor{})

	res, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.PrepTries != 0 {
		t.Errorf("prep = %d, URL was already right", res.PrepTries)
	}
	if !res.Gated || res.SettleTries != 1 {
		t.Errorf("gated=%v settle=%d, want one settle round", res.Gated, res.SettleTries)
	}
	if res.Count != 1 {
		t.Errorf("count = %d", res.Count)
	}
}

func TestReadInitialGraceActions(t *testing.T) {
	exec := &gateExec{snaps: []entity.Snapshot{richPaymentsSnap()}}
	cfg := gateConfig()
	cfg.GateInitialMs = 300
	r := New(exec, nopLogger{}, cfg, PaymentExtractor{})

	if _, err := r.Read(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []entity.ActionName{entity.ActionWaitForIdle, entity.ActionWait, entity.ActionPageState}
	if len(exec.executed) != len(want) {
		t.Fatalf("executed = %v", exec.executed)
	}
	for i, name := range want {
		if exec.executed[i] != name {
			t.Errorf("step %d = %s, want %s", i, exec.executed[i], name)
		}
	}
}

type mapEnv map[string]string

func (m mapEnv) Get(key string) string { return m[key] }
func (m mapEnv) MustGet(key string) string { return m[key] }
func (m mapEnv) GetWithDefault(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}
func (m mapEnv) GetInt(key string, def int) int {
	if n, err := strconv.Atoi(m[key]); err == nil {
		return n
	}
	return def
}
func (m mapEnv) GetBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(m[key]); err == nil {
		return b
	}
	return def
}

func TestConfigForDefaults(t *testing.T) {
	cfg := ConfigFor(entity.WorkflowLabResults, mapEnv{})
	if cfg.Host != "eservices.healthhub.sg" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.URLToken != "/lab-test-reports/lab" {
		t.Errorf("token = %q", cfg.URLToken)
	}
	if cfg.GateMaxTries != 12 || cfg.GatePollMs != 250 || cfg.GateInitialMs != 300 {
		t.Errorf("gate defaults = %d/%d/%d", cfg.GateMaxTries, cfg.GatePollMs, cfg.GateInitialMs)
	}
	if cfg.MinHeadings != 1 || cfg.MinLinks != 5 {
		t.Errorf("thresholds = %d/%d", cfg.MinHeadings, cfg.MinLinks)
	}
	if cfg.RequireMonth {
		t.Error("lab gate should not require a month token")
	}
}

func TestConfigForEnvOverrides(t *testing.T) {
	env := mapEnv{
		"IMM_TARGET_HOST":    "staging.healthhub.sg",
		"IMM_GATE_MAX_TRIES": "5",
		"IMM_MIN_TEXTS":      "30",
		"IMM_REQUIRE_MONTH":  "false",
	}
	cfg := ConfigFor(entity.WorkflowImmunisations, env)
	if cfg.Host != "staging.healthhub.sg" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.GateMaxTries != 5 {
		t.Errorf("max tries = %d", cfg.GateMaxTries)
	}
	if cfg.MinTexts != 30 {
		t.Errorf("min texts = %d", cfg.MinTexts)
	}
	if cfg.RequireMonth {
		t.Error("override should disable the month requirement")
	}
}

func TestConfigForUnknownWorkflowFallsBack(t *testing.T) {
	cfg := ConfigFor(entity.Workflow("gibberish"), mapEnv{})
	if cfg.Workflow != entity.WorkflowAppointments {
		t.Errorf("workflow = %q", cfg.Workflow)
	}
	if cfg.URLToken != "/appointments" {
		t.Errorf("token = %q", cfg.URLToken)
	}
}

func TestExtractorForCoversEveryWorkflow(t *testing.T) {
	for _, w := range entity.WorkflowOrder {
		if got := ExtractorFor(w).Workflow(); got != w {
			t.Errorf("extractor for %q reports %q", w, got)
		}
	}
}
