package reader

import (
	"context"
	"fmt"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

// Config holds one workflow's readiness gate tunables. Every field is
// env-overridable through ConfigFor so a slow portal can be accommodated
// without a rebuild.
type Config struct {
	Workflow      entity.Workflow
	Host          string
	URLToken      string
	GateMaxTries  int
	GatePollMs    int
	GateInitialMs int
	SettleTries   int
	IdleQuietMs   int
	IdleTimeoutMs int

	MinTexts     int
	MinLinks     int
	MinHeadings  int
	RequireMonth bool
}

var envPrefix = map[entity.Workflow]string{
	entity.WorkflowAppointments:  "APPT",
	entity.WorkflowLabResults:    "LAB",
	entity.WorkflowPayments:      "PAY",
	entity.WorkflowImmunisations: "IMM",
}

var baseConfigs = map[entity.Workflow]Config{
	entity.WorkflowAppointments: {
		URLToken: "/appointments", MinTexts: 20,
	},
	entity.WorkflowLabResults: {
		URLToken: "/lab-test-reports/lab", MinHeadings: 1, MinLinks: 5,
	},
	entity.WorkflowPayments: {
		URLToken: "/payments", MinHeadings: 1, MinLinks: 2,
	},
	entity.WorkflowImmunisations: {
		URLToken: "/immunisation", MinTexts: 15, RequireMonth: true,
	},
}

// ConfigFor resolves the workflow's gate config against the
// environment, e.g. LAB_GATE_MAX_TRIES or IMM_REQUIRE_MONTH.
func ConfigFor(w entity.Workflow, env output.ConfigPort) Config {
	cfg, ok := baseConfigs[w]
	if !ok {
		cfg = baseConfigs[entity.WorkflowAppointments]
		w = entity.WorkflowAppointments
	}
	p := envPrefix[w]
	cfg.Workflow = w
	cfg.Host = env.GetWithDefault(p+"_TARGET_HOST", "eservices.healthhub.sg")
	cfg.URLToken = env.GetWithDefault(p+"_SNAPSHOT_URL_TOKEN", cfg.URLToken)
	cfg.GateMaxTries = env.GetInt(p+"_GATE_MAX_TRIES", 12)
	cfg.GatePollMs = env.GetInt(p+"_GATE_POLL_MS", 250)
	cfg.GateInitialMs = env.GetInt(p+"_GATE_INITIAL_MS", 300)
	cfg.SettleTries = env.GetInt(p+"_SETTLE_TRIES", 2)
	cfg.IdleQuietMs = env.GetInt(p+"_IDLE_QUIET_MS", 700)
	cfg.IdleTimeoutMs = env.GetInt(p+"_IDLE_TIMEOUT_MS", 8000)
	cfg.MinTexts = env.GetInt(p+"_MIN_TEXTS", cfg.MinTexts)
	cfg.MinLinks = env.GetInt(p+"_MIN_LINKS", cfg.MinLinks)
	cfg.MinHeadings = env.GetInt(p+"_MIN_HEADINGS", cfg.MinHeadings)
	cfg.RequireMonth = env.GetBool(p+"_REQUIRE_MONTH", cfg.RequireMonth)
	return cfg
}

// Extractor turns one settled snapshot into the workflow's records.
type Extractor interface {
	Workflow() entity.Workflow
	// Ready reports whether the snapshot carries enough structure to be
	// worth extracting from.
	Ready(cfg Config, snap entity.Snapshot) bool
	Extract(snap entity.Snapshot) entity.Extraction
	Reason(count int) string
}

// ExtractorFor returns the workflow's extractor.
func ExtractorFor(w entity.Workflow) Extractor {
	switch w {
	case entity.WorkflowLabResults:
		return LabExtractor{}
	case entity.WorkflowPayments:
		return PaymentExtractor{}
	case entity.WorkflowImmunisations:
		return ImmunisationExtractor{}
	default:
		return AppointmentExtractor{}
	}
}

// Reader runs the two-stage readiness gate and then extracts. Stage one
// polls until the section URL is visible; stage two lets the DOM settle
// until the extractor's structural check passes. Both stages time out
// into a degraded extraction on whatever snapshot is current, flagged
// via Gated.
type Reader struct {
	exec   output.ExecutorPort
	logger output.LoggerPort
	cfg    Config
	ext    Extractor
}

func New(exec output.ExecutorPort, logger output.LoggerPort, cfg Config, ext Extractor) *Reader {
	return &Reader{exec: exec, logger: logger, cfg: cfg, ext: ext}
}

// AtSectionURL reports whether url already satisfies the workflow's
// readiness predicate: the target host and the section path token.
func (c Config) AtSectionURL(url string) bool {
	u := lower(url)
	return contains(u, lower(c.Host)) && contains(u, lower(c.URLToken))
}

func (r *Reader) atSectionURL(url string) bool { return r.cfg.AtSectionURL(url) }

// Read gates and extracts. Executor failures are the only errors; a
// gate timeout is a degraded result, not a failure.
func (r *Reader) Read(ctx context.Context) (*entity.ReadResult, error) {
	if r.cfg.GateInitialMs > 0 {
		initial := r.cfg.GateInitialMs
		quiet := initial
		if quiet > 1000 {
			quiet = 1000
		}
		if err := r.do(ctx, entity.WaitForIdle(quiet, initial+2000)); err != nil {
			return nil, err
		}
		if err := r.do(ctx, entity.WaitMs(initial)); err != nil {
			return nil, err
		}
	}

	snap, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	prep := 0
	for !r.atSectionURL(snap.URL) && prep < r.cfg.GateMaxTries {
		prep++
		r.logger.Info("waiting for section URL",
			"workflow", string(r.cfg.Workflow), "url", snap.URL, "try", prep, "max", r.cfg.GateMaxTries)
		if err := r.do(ctx, entity.WaitForIdle(200, 2000)); err != nil {
			return nil, err
		}
		if err := r.do(ctx, entity.WaitMs(r.cfg.GatePollMs)); err != nil {
			return nil, err
		}
		if snap, err = r.snapshot(ctx); err != nil {
			return nil, err
		}
	}
	if !r.atSectionURL(snap.URL) {
		r.logger.Info("section URL gate timed out, continuing with current snapshot",
			"workflow", string(r.cfg.Workflow), "url", snap.URL)
	}

	settles := 0
	for r.cfg.SettleTries > 0 && !r.ext.Ready(r.cfg, snap) && settles < r.cfg.SettleTries {
		settles++
		r.logger.Info("settling DOM",
			"workflow", string(r.cfg.Workflow), "url", snap.URL, "texts", len(snap.Texts),
			"settle", settles, "max", r.cfg.SettleTries)
		if err := r.do(ctx, entity.WaitForIdle(r.cfg.IdleQuietMs, r.cfg.IdleTimeoutMs)); err != nil {
			return nil, err
		}
		if snap, err = r.snapshot(ctx); err != nil {
			return nil, err
		}
	}

	ex := r.ext.Extract(snap)
	result := &entity.ReadResult{
		URL:         snap.URL,
		Extraction:  ex,
		Reason:      r.ext.Reason(ex.Count),
		Gated:       prep > 0 || settles > 0,
		PrepTries:   prep,
		SettleTries: settles,
	}
	r.logger.Info("extracted",
		"workflow", string(r.cfg.Workflow), "count", ex.Count, "gated", result.Gated)
	return result, nil
}

func (r *Reader) do(ctx context.Context, a entity.Action) error {
	if _, err := r.exec.Execute(ctx, a); err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	return nil
}

func (r *Reader) snapshot(ctx context.Context) (entity.Snapshot, error) {
	obs, err := r.exec.Execute(ctx, entity.PageState())
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("get_page_state: %w", err)
	}
	if obs.Snapshot == nil {
		return entity.Snapshot{}, nil
	}
	return *obs.Snapshot, nil
}
