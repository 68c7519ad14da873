package entity

// Workflow is one of the four fixed high-level user intents the agent
// supports end-to-end. Exactly one route is active per run; selection
// is final once chosen unless the current URL already satisfies a
// different workflow's readiness predicate.
type Workflow string

const (
	WorkflowAppointments  Workflow = "appointments"
	WorkflowLabResults    Workflow = "lab_results"
	WorkflowPayments      Workflow = "payments"
	WorkflowImmunisations Workflow = "immunisations"
)

// WorkflowOrder is the fixed classification priority. Goal text that
// matches several workflows' keyword lists resolves to the first hit
// in this order; tests pin the order as reproducible.
var WorkflowOrder = []Workflow{
	WorkflowAppointments,
	WorkflowLabResults,
	WorkflowPayments,
	WorkflowImmunisations,
}

func (w Workflow) String() string { return string(w) }

func (w Workflow) Valid() bool {
	switch w {
	case WorkflowAppointments, WorkflowLabResults, WorkflowPayments, WorkflowImmunisations:
		return true
	}
	return false
}
