package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
	"portal-agent/internal/infrastructure/prompts"
)

// createVerbRx detects create-like intent in the raw goal.
var createVerbRx = regexp.MustCompile(`(?i)\b(new|create|add|book|apply|start|begin|open|schedule|register)\b`)

var tokenRx = regexp.MustCompile(`[a-z0-9]+`)

// Label synonym table used when snapping a query onto page vocabulary.
var synonyms = map[string][]string{
	"appointments": {"appointment", "appointments", "book", "schedule", "reschedule", "cancel"},
	"payments":     {"payment", "payments", "bill", "bills", "pay", "invoice"},
	"records":      {"record", "records", "medical record", "immunisation", "immunisations", "immunization", "immunizations"},
	"results":      {"result", "results", "lab", "lab results", "test", "tests", "report", "reports"},
	"login":        {"login", "log in", "sign in", "account"},
	"search":       {"search", "find"},
}

// Per-workflow goal keywords, checked in entity.WorkflowOrder.
var workflowSynonyms = map[entity.Workflow][]string{
	entity.WorkflowAppointments:  {"appointment", "appointments", "book", "schedule", "reschedule", "cancel", "view appointments"},
	entity.WorkflowLabResults:    {"lab", "labs", "result", "results", "test", "tests", "lab report", "reports"},
	entity.WorkflowPayments:      {"pay", "payment", "payments", "bill", "bills", "invoice", "outstanding", "fees"},
	entity.WorkflowImmunisations: {"immunisation", "immunization", "vaccination", "vaccine", "jab", "shots", "immunisation records", "records"},
}

var workflowTokens = map[entity.Workflow][]string{
	entity.WorkflowAppointments:  {"appointment", "book", "schedule"},
	entity.WorkflowLabResults:    {"lab", "result", "results", "test", "report", "reports"},
	entity.WorkflowPayments:      {"pay", "payment", "payments", "bill", "bills", "invoice"},
	entity.WorkflowImmunisations: {"immunisation", "immunization", "vaccination", "vaccine", "jab", "shots", "record", "records"},
}

// PathQueries holds the candidate target labels per workflow: entry
// opens the section, create starts a new item within it.
type PathQueries struct {
	Entry  []string
	Create []string
}

var pathQueries = map[entity.Workflow]PathQueries{
	entity.WorkflowAppointments: {
		Entry:  []string{"Appointments", "Manage Appointments", "My Appointments", "Appointment Centre"},
		Create: []string{"Book Appointment", "New Appointment", "Schedule Appointment", "Book Now"},
	},
	entity.WorkflowLabResults: {
		Entry: []string{"Lab Results", "Results", "Test Results", "Lab Reports", "Medical Records"},
	},
	entity.WorkflowPayments: {
		Entry:  []string{"Payments", "Pay Bills", "Outstanding Bills", "Billing", "Make Payment"},
		Create: []string{"Make Payment", "Pay Now", "Settle Bill"},
	},
	entity.WorkflowImmunisations: {
		Entry:  []string{"Immunisation Records", "Vaccination Records", "Records", "My Records"},
		Create: []string{"Book Vaccination", "Schedule Vaccination", "New Vaccination", "Book Jab"},
	},
}

// Queries exposes the workflow's candidate labels to other components
// (the navigator reuses the entry list for its search query fallback).
func Queries(w entity.Workflow) PathQueries {
	q, ok := pathQueries[w]
	if !ok {
		return pathQueries[entity.WorkflowAppointments]
	}
	return q
}

func goalTokens(s string) map[string]bool {
	set := map[string]bool{}
	for _, t := range tokenRx.FindAllString(strings.ToLower(s), -1) {
		set[t] = true
	}
	return set
}

// Classify maps free-form goal text onto a workflow. Substring pass
// over the keyword lists first, token-set pass next, both in the fixed
// priority order; an unmatched goal defaults to appointments.
func Classify(goal string) entity.Workflow {
	g := strings.ToLower(goal)
	for _, w := range entity.WorkflowOrder {
		for _, kw := range workflowSynonyms[w] {
			if strings.Contains(g, kw) {
				return w
			}
		}
	}
	toks := goalTokens(g)
	for _, w := range entity.WorkflowOrder {
		for _, t := range workflowTokens[w] {
			if toks[t] {
				return w
			}
		}
	}
	return entity.WorkflowAppointments
}

// CreateLike reports whether the goal asks to start something new
// rather than view what exists.
func CreateLike(goal string) bool {
	return createVerbRx.MatchString(goal)
}

// PickFromVocab snaps a target label (possibly "a|b|c" alternatives)
// onto the live page vocabulary: exact match first, substring next,
// synonym table last. Empty string means no hit.
func PickFromVocab(target string, vocab []string) string {
	if target == "" || len(vocab) == 0 {
		return ""
	}
	var candidates []string
	for _, part := range strings.Split(target, "|") {
		if p := strings.TrimSpace(part); p != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = []string{target}
	}

	lower := make([]string, len(vocab))
	for i, v := range vocab {
		lower[i] = strings.ToLower(v)
	}

	for _, t := range candidates {
		tl := strings.ToLower(t)
		for i, v := range lower {
			if tl == v {
				return vocab[i]
			}
		}
	}
	for _, t := range candidates {
		tl := strings.ToLower(t)
		if tl == "" {
			continue
		}
		for i, v := range lower {
			if strings.Contains(v, tl) || strings.Contains(tl, v) {
				return vocab[i]
			}
		}
	}
	for _, t := range candidates {
		tl := strings.ToLower(t)
		for canon, alts := range synonyms {
			hit := tl == canon
			for _, a := range alts {
				if strings.Contains(tl, a) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
			for i, v := range lower {
				for _, a := range alts {
					if strings.Contains(v, a) {
						return vocab[i]
					}
				}
			}
		}
	}
	return ""
}

func snapAny(candidates, vocab []string) string {
	for _, q := range candidates {
		if hit := PickFromVocab(q, vocab); hit != "" {
			return hit
		}
	}
	return ""
}

func jsonArg(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Normalizer turns an arbitrary goal into a canonical, deterministic
// mini-plan restricted to the four workflows. It never fails to produce
// some plan: vocabulary snapping first, an LLM few-shot backstop next,
// the workflow's first entry query as a last resort.
type Normalizer struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(llm output.LLMPort, logger output.LoggerPort) *Normalizer {
	return &Normalizer{llm: llm, logger: logger}
}

// Normalize returns the canonical plan string for (goal, vocab) along
// with the classified workflow. Deterministic for a fixed input pair.
func (n *Normalizer) Normalize(ctx context.Context, goal string, vocab []string) (string, entity.Workflow) {
	if strings.TrimSpace(goal) == "" {
		return "", entity.WorkflowAppointments
	}

	path := Classify(goal)
	create := CreateLike(goal)

	if plan := planFromPath(path, vocab, create); plan != "" {
		return plan, path
	}

	// Snapping found nothing on this page; let the model suggest a query
	// and re-snap its output before trusting it.
	snapped := n.askLLMForQuery(ctx, goal, vocab)
	if snapped == "" {
		snapped = snapAny(pathQueries[path].Entry, vocab)
	}
	if snapped == "" {
		snapped = pathQueries[path].Entry[0]
	}
	return fmt.Sprintf("find(%s) then click the best match, then done", jsonArg(snapped)), path
}

// planFromPath builds the deterministic 1–2 hop plan when the page
// vocabulary yields an entry label. Returns "" when nothing snapped.
func planFromPath(path entity.Workflow, vocab []string, create bool) string {
	qset := pathQueries[path]
	entry := snapAny(qset.Entry, vocab)
	if entry == "" {
		return ""
	}
	entryArg := jsonArg(entry)
	if create && len(qset.Create) > 0 {
		createLabel := snapAny(qset.Create, vocab)
		if createLabel == "" {
			createLabel = qset.Create[0]
		}
		return fmt.Sprintf(
			"find(%s) then click the best match, then wait(1), find(%s) then click the best match, then wait(1), then done",
			entryArg, jsonArg(createLabel),
		)
	}
	return fmt.Sprintf("find(%s) then click the best match, then done", entryArg)
}

func (n *Normalizer) askLLMForQuery(ctx context.Context, goal string, vocab []string) string {
	vocabJSON, _ := json.Marshal(vocab)
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: prompts.NormalizerPrompt},
	}
	messages = append(messages, prompts.NormalizerFewShot()...)
	messages = append(messages, entity.Message{
		Role:    entity.RoleUser,
		Content: fmt.Sprintf("Goal: %s\nPAGE_VOCAB: %s", goal, vocabJSON),
	})

	resp, err := n.llm.Chat(ctx, output.ChatRequest{Messages: messages, Temperature: 0})
	if err != nil {
		n.logger.Warn("normalizer LLM backstop failed", "error", err)
		return ""
	}

	data, err := ParseStrictJSON(resp.Content)
	if err != nil {
		n.logger.Warn("normalizer LLM returned non-JSON", "raw", resp.Content)
		return ""
	}
	q, _ := data["query"].(string)
	if q == "" {
		q, _ = data["target"].(string)
	}
	return PickFromVocab(strings.TrimSpace(q), vocab)
}

// ParseStrictJSON tolerates code fences and leading prose: it strips
// backticks and starts at the first '{'.
func ParseStrictJSON(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "` \n")
	}
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
