package entity

// ActionName enumerates the closed action vocabulary. Anything outside
// this set coming back from the language model is a hard parse error,
// never coerced into a guess.
type ActionName string

const (
	ActionFind        ActionName = "find"
	ActionClick       ActionName = "click"
	ActionType        ActionName = "type"
	ActionWait        ActionName = "wait"
	ActionWaitForIdle ActionName = "wait_for_idle"
	ActionPageState   ActionName = "get_page_state"
	ActionFinish      ActionName = "done"
)

func (a ActionName) String() string { return string(a) }

func (a ActionName) Valid() bool {
	switch a {
	case ActionFind, ActionClick, ActionType, ActionWait, ActionWaitForIdle, ActionPageState, ActionFinish:
		return true
	}
	return false
}

// PlannerActions is the subset the language-model planner may emit.
// The heavier tools (idle waits, snapshot polls) are reserved for the
// deterministic readiness machinery.
var PlannerActions = map[ActionName]bool{
	ActionFind:   true,
	ActionClick:  true,
	ActionType:   true,
	ActionWait:   true,
	ActionFinish: true,
}

// Action is one atomic step. Exactly the fields relevant to Name are
// set; the rest stay zero.
type Action struct {
	Name ActionName

	Query    string // find
	Selector string // click, type
	Text     string // type
	Seconds  int    // wait
	Ms       int    // wait, wait_for_idle poll interval
	QuietMs  int    // wait_for_idle
	Timeout  int    // wait_for_idle, milliseconds
	Reason   string // done
}

func Find(query string) Action { return Action{Name: ActionFind, Query: query} }
func Click(selector string) Action { return Action{Name: ActionClick, Selector: selector} }
func TypeInto(sel, text string) Action { return Action{Name: ActionType, Selector: sel, Text: text} }
func WaitMs(ms int) Action { return Action{Name: ActionWait, Ms: ms} }
func WaitSeconds(s int) Action { return Action{Name: ActionWait, Seconds: s} }
func WaitForIdle(quiet, timeout int) Action {
	return Action{Name: ActionWaitForIdle, QuietMs: quiet, Timeout: timeout}
}
func PageState() Action { return Action{Name: ActionPageState} }
func Finish(reason string) Action { return Action{Name: ActionFinish, Reason: reason} }

// Args renders the action's arguments the way the wire format expects,
// for step traces returned to the caller.
func (a Action) Args() map[string]any {
	args := map[string]any{}
	switch a.Name {
	case ActionFind:
		args["query"] = a.Query
	case ActionClick:
		args["selector"] = a.Selector
	case ActionType:
		args["selector"] = a.Selector
		args["text"] = a.Text
	case ActionWait:
		if a.Seconds > 0 {
			args["seconds"] = a.Seconds
		} else {
			args["ms"] = a.Ms
		}
	case ActionWaitForIdle:
		args["quietMs"] = a.QuietMs
		args["timeout"] = a.Timeout
	case ActionFinish:
		args["reason"] = a.Reason
	}
	return args
}

// Candidate is one ranked element match returned by find.
type Candidate struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Selector string `json:"selector"`
	Href     string `json:"href"`
}

// Observation is the structured result of executing one Action. It
// drives the next planner decision.
type Observation struct {
	Tool       ActionName  `json:"tool"`
	OK         bool        `json:"ok"`
	Matches    []Candidate `json:"matches,omitempty"`
	Total      int         `json:"total,omitempty"`
	Selector   string      `json:"selector,omitempty"`
	NavigateTo string      `json:"navigate_to,omitempty"`
	Typed      string      `json:"typed,omitempty"`
	WaitedMs   int         `json:"waited,omitempty"`
	Idle       bool        `json:"idle,omitempty"`
	Snapshot   *Snapshot   `json:"snapshot,omitempty"`
	Done       bool        `json:"done,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}
