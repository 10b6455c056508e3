package contract

import "strings"

// Well-known response fields recognized by the enforcement engine.
const (
	FieldConfidence       = "confidence"
	FieldTemperatureUsed  = "temperature_used"
	FieldTools            = "tools"
	FieldComplianceTags   = "compliance_tags"
	FieldFlaggedForReview = "flagged_for_review"
	FieldStrikeReason     = "strike_reason"
	FieldReasoning        = "reasoning"

	// PreviousFieldPrefix marks the deprecated inline prior-value fields,
	// e.g. "previous_decision".
	PreviousFieldPrefix = "previous_"
)

// Response is one agent output: an open field→value map. Every response
// leaving the enforcer satisfies the contract's required_fields.
type Response map[string]any

// Clone returns a shallow copy so flag annotations never mutate the
// agent's original map.
func (r Response) Clone() Response {
	out := make(Response, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// GetString returns the field as a string, or "" when absent or non-string.
func (r Response) GetString(key string) string {
	s, _ := r[key].(string)
	return s
}

// LowerString returns the field lowercased for case-insensitive comparison.
func (r Response) LowerString(key string) string {
	return strings.ToLower(r.GetString(key))
}

// Float returns the field as a float64 when it carries a numeric value.
func (r Response) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Strings returns the field as a string slice, tolerating []any payloads
// produced by JSON decoding.
func (r Response) Strings(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// MemoryEntry is one historical record of a prior agent output, most
// recent first.
type MemoryEntry struct {
	Analysis map[string]any `json:"analysis" yaml:"analysis"`
}

// CallContext carries the per-call history the drift detector compares
// against. The zero value means no context was supplied.
type CallContext struct {
	Memory            []MemoryEntry
	PatternHistory    []string
	ContextSuggestion string
	Indicators        map[string]any
}

// HasMemory reports whether any historical entries were supplied.
func (c CallContext) HasMemory() bool { return len(c.Memory) > 0 }
