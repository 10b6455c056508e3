package contract

import (
	"fmt"
	"strings"
)

// TemperatureMode selects how the sampling temperature is managed.
type TemperatureMode string

const (
	ModeFixed    TemperatureMode = "fixed"
	ModeAdaptive TemperatureMode = "adaptive"
)

// DefaultBehaviourKey is the response field tracked for drift when the
// contract does not name one.
const DefaultBehaviourKey = "decision"

// TemperatureControl bounds the sampling temperature for the wrapped agent.
type TemperatureControl struct {
	Mode  TemperatureMode `yaml:"mode" json:"mode"`
	Range []float64       `yaml:"range" json:"range"`
}

// Min returns the lower bound of the configured range.
func (tc TemperatureControl) Min() float64 { return tc.Range[0] }

// Max returns the upper bound of the configured range.
func (tc TemperatureControl) Max() float64 { return tc.Range[1] }

// Policy holds content restrictions applied to every response.
type Policy struct {
	PIIAllowed     bool     `yaml:"pii_allowed" json:"pii_allowed"`
	ComplianceTags []string `yaml:"compliance_tags" json:"compliance_tags"`
	AllowedTools   []string `yaml:"allowed_tools" json:"allowed_tools"`
}

// BehaviouralFlags tune how the agent is expected to behave.
type BehaviouralFlags struct {
	Conservatism       string             `yaml:"conservatism" json:"conservatism"`
	Verbosity          string             `yaml:"verbosity" json:"verbosity"`
	TemperatureControl TemperatureControl `yaml:"temperature_control" json:"temperature_control"`
}

// BehaviourSignature names the output field whose value is tracked for drift.
type BehaviourSignature struct {
	Key          string `yaml:"key" json:"key"`
	ExpectedType string `yaml:"expected_type" json:"expected_type"`
}

// OnFailure configures retry and fallback behaviour for failed responses.
type OnFailure struct {
	MaxRetries int            `yaml:"max_retries" json:"max_retries"`
	Fallback   map[string]any `yaml:"fallback" json:"fallback"`
}

// ResponseContract describes the shape every response must satisfy.
type ResponseContract struct {
	RequiredFields     []string            `yaml:"required_fields" json:"required_fields"`
	MaxResponseTimeMS  int                 `yaml:"max_response_time_ms" json:"max_response_time_ms"`
	OnFailure          OnFailure           `yaml:"on_failure" json:"on_failure"`
	BehaviourSignature *BehaviourSignature `yaml:"behaviour_signature,omitempty" json:"behaviour_signature,omitempty"`

	// Optional vocabularies. Empty means any value is accepted.
	ConfidenceLevels []string `yaml:"confidence_levels,omitempty" json:"confidence_levels,omitempty"`
	AllowedValues    []string `yaml:"allowed_values,omitempty" json:"allowed_values,omitempty"`
}

// BehaviourKey returns the tracked field name, falling back to "decision".
func (rc ResponseContract) BehaviourKey() string {
	if rc.BehaviourSignature != nil && rc.BehaviourSignature.Key != "" {
		return rc.BehaviourSignature.Key
	}
	return DefaultBehaviourKey
}

// Health configures the strike-based circuit breaker.
type Health struct {
	MaxStrikes          int `yaml:"max_strikes" json:"max_strikes"`
	StrikeWindowSeconds int `yaml:"strike_window_seconds" json:"strike_window_seconds"`

	// StrikeOnSuspicion controls whether a flagged-but-valid response also
	// counts as a strike. Unset means true.
	StrikeOnSuspicion *bool `yaml:"strike_on_suspicion,omitempty" json:"strike_on_suspicion,omitempty"`
}

// StrikesOnSuspicion reports whether flagged responses count as strikes.
func (h Health) StrikesOnSuspicion() bool {
	return h.StrikeOnSuspicion == nil || *h.StrikeOnSuspicion
}

// Memory describes how historical context is supplied to the agent.
// It is carried for contract authors and validated, not enforced at runtime.
type Memory struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Format      string `yaml:"format" json:"format"`
	Usage       string `yaml:"usage" json:"usage"`
	Required    bool   `yaml:"required" json:"required"`
	Description string `yaml:"description" json:"description"`
}

// Spec is one immutable behavioural contract. Construct via Parse or Load,
// both of which apply defaults and validate eagerly.
type Spec struct {
	Version     string           `yaml:"version" json:"version"`
	Description string           `yaml:"description" json:"description"`
	Role        string           `yaml:"role" json:"role"`
	Memory      *Memory          `yaml:"memory,omitempty" json:"memory,omitempty"`
	Policy      Policy           `yaml:"policy" json:"policy"`
	Flags       BehaviouralFlags `yaml:"behavioural_flags" json:"behavioural_flags"`
	Response    ResponseContract `yaml:"response_contract" json:"response_contract"`
	Health      Health           `yaml:"health" json:"health"`
	Escalation  Escalation       `yaml:"escalation" json:"escalation"`
}

// SpecError reports a rejected contract specification.
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid contract spec: %s: %s", e.Field, e.Reason)
}

func specErr(field, reason string) error {
	return &SpecError{Field: field, Reason: reason}
}

// applyDefaults fills optional knobs the way the original contracts behaved.
func (s *Spec) applyDefaults() {
	if s.Flags.TemperatureControl.Mode == "" {
		s.Flags.TemperatureControl.Mode = ModeFixed
	}
	if len(s.Flags.TemperatureControl.Range) == 0 {
		s.Flags.TemperatureControl.Range = []float64{0.2, 0.6}
	}
	if s.Response.MaxResponseTimeMS == 0 {
		s.Response.MaxResponseTimeMS = 5000
	}
	if s.Health.MaxStrikes == 0 {
		s.Health.MaxStrikes = 3
	}
	if s.Health.StrikeWindowSeconds == 0 {
		s.Health.StrikeWindowSeconds = 3600
	}
}

// Validate rejects a malformed spec before any call is enforced.
// Returns the first problem found as a *SpecError.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Version) == "" {
		return specErr("version", "required")
	}
	if strings.TrimSpace(s.Role) == "" {
		return specErr("role", "required")
	}
	if strings.TrimSpace(s.Description) == "" {
		return specErr("description", "required")
	}
	if len(s.Policy.ComplianceTags) == 0 {
		return specErr("policy.compliance_tags", "at least one compliance tag is required")
	}
	if len(s.Policy.AllowedTools) == 0 {
		return specErr("policy.allowed_tools", "at least one allowed tool is required")
	}
	if strings.TrimSpace(s.Flags.Conservatism) == "" {
		return specErr("behavioural_flags.conservatism", "required")
	}
	if strings.TrimSpace(s.Flags.Verbosity) == "" {
		return specErr("behavioural_flags.verbosity", "required")
	}

	tc := s.Flags.TemperatureControl
	switch tc.Mode {
	case ModeFixed, ModeAdaptive:
	default:
		return specErr("behavioural_flags.temperature_control.mode", fmt.Sprintf("unknown mode %q", tc.Mode))
	}
	if len(tc.Range) != 2 {
		return specErr("behavioural_flags.temperature_control.range", "must contain exactly [min, max]")
	}
	if tc.Range[0] >= tc.Range[1] {
		return specErr("behavioural_flags.temperature_control.range", "min must be less than max")
	}
	if tc.Range[0] < 0 || tc.Range[1] > 1 {
		return specErr("behavioural_flags.temperature_control.range", "bounds must lie in [0, 1]")
	}

	if len(s.Response.RequiredFields) == 0 {
		return specErr("response_contract.required_fields", "at least one required field is needed")
	}
	if s.Response.MaxResponseTimeMS <= 0 {
		return specErr("response_contract.max_response_time_ms", "must be a positive integer")
	}
	if s.Response.OnFailure.MaxRetries < 0 {
		return specErr("response_contract.on_failure.max_retries", "must not be negative")
	}
	if len(s.Response.OnFailure.Fallback) == 0 {
		return specErr("response_contract.on_failure.fallback", "fallback response is required")
	}

	if s.Health.MaxStrikes <= 0 {
		return specErr("health.max_strikes", "must be a positive integer")
	}
	if s.Health.StrikeWindowSeconds <= 0 {
		return specErr("health.strike_window_seconds", "must be a positive integer")
	}

	return nil
}
