package contract

// Reason is a closed set of escalation triggers.
type Reason string

const (
	ReasonUnexpectedOutput Reason = "unexpected_output"
	ReasonInvalidResponse  Reason = "invalid_response"
	ReasonContextMismatch  Reason = "context_mismatch"
)

// DefaultEscalationAction is used for reasons without a configured action.
const DefaultEscalationAction = "fallback"

// Escalation maps failure reasons to operator-facing actions.
type Escalation struct {
	OnUnexpectedOutput string `yaml:"on_unexpected_output,omitempty" json:"on_unexpected_output,omitempty"`
	OnInvalidResponse  string `yaml:"on_invalid_response,omitempty" json:"on_invalid_response,omitempty"`
	OnContextMismatch  string `yaml:"on_context_mismatch,omitempty" json:"on_context_mismatch,omitempty"`
	FallbackRole       string `yaml:"fallback_role,omitempty" json:"fallback_role,omitempty"`
}

// ActionFor resolves the action for a reason. Unknown or unconfigured
// reasons resolve to DefaultEscalationAction rather than an error.
func (e Escalation) ActionFor(reason Reason) string {
	var action string
	switch reason {
	case ReasonUnexpectedOutput:
		action = e.OnUnexpectedOutput
	case ReasonInvalidResponse:
		action = e.OnInvalidResponse
	case ReasonContextMismatch:
		action = e.OnContextMismatch
	}
	if action == "" {
		return DefaultEscalationAction
	}
	return action
}
