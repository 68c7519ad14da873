package prompts

import (
	_ "embed"
)

// SystemPrompt instructs the step planner: one strict-JSON tool call
// per turn, nothing else.
//
//go:embed system.txt
var SystemPrompt string

// SchemaHint enumerates the allowed tools and their required args; it
// is appended to every planning turn.
//
//go:embed schema_hint.txt
var SchemaHint string

// NormalizerPrompt constrains free-form goals onto the four workflows.
//
//go:embed normalizer.txt
var NormalizerPrompt string

// RouterPrompt asks for exactly one workflow token.
//
//go:embed router.txt
var RouterPrompt string

// SelectorPrompt asks the model to pick one CSS selector from a
// compacted candidate list.
//
//go:embed selector.txt
var SelectorPrompt string
