package entity

// Step is one executed action in wire form, as returned to the caller.
type Step struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

func StepFrom(a Action) Step {
	return Step{Tool: a.Name.String(), Args: a.Args()}
}

// PlanHint carries optional run metadata alongside the step trace.
type PlanHint struct {
	Summary string `json:"summary,omitempty"`
}

// UserPrompt is the awaiting-user payload emitted when an interactive
// run pauses for clarification. Resuming replays only the user's reply
// against RunID, never the original goal or snapshot.
type UserPrompt struct {
	RunID    string      `json:"run_id"`
	Question string      `json:"question"`
	Options  []Candidate `json:"options,omitempty"`
}

// PlanResult is the run entrypoint's response: the executed steps plus
// a hint, or an awaiting-user payload when paused.
type PlanResult struct {
	Steps        []Step      `json:"steps"`
	Hint         PlanHint    `json:"hint"`
	Read         *ReadResult `json:"read,omitempty"`
	AwaitingUser *UserPrompt `json:"awaiting_user,omitempty"`
}
