package contract

import (
	"encoding/json"
	"fmt"
)

// Generate builds a canonically formatted contract document from loose
// spec data, preserving value types but coercing version to a string.
// The result is a JSON object with memory defaults filled in; policy and
// behavioural flags are included only when present in the input.
func Generate(specData map[string]any) ([]byte, error) {
	mem := subMap(specData, "memory")
	formatted := map[string]any{
		"version":     fmt.Sprintf("%v", valueOr(specData, "version", "1.1")),
		"description": valueOr(specData, "description", ""),
		"role":        valueOr(specData, "role", ""),
		"memory": map[string]any{
			"enabled":     valueOr(mem, "enabled", false),
			"format":      valueOr(mem, "format", "string"),
			"usage":       valueOr(mem, "usage", "prompt-append"),
			"required":    valueOr(mem, "required", false),
			"description": valueOr(mem, "description", ""),
		},
	}

	if pol := subMap(specData, "policy"); pol != nil {
		formatted["policy"] = map[string]any{
			"pii_allowed":     valueOr(pol, "pii_allowed", false),
			"compliance_tags": valueOr(pol, "compliance_tags", []any{}),
			"allowed_tools":   valueOr(pol, "allowed_tools", []any{}),
		}
	}

	if flags := subMap(specData, "behavioural_flags"); flags != nil {
		tc := subMap(flags, "temperature_control")
		formatted["behavioural_flags"] = map[string]any{
			"conservatism": valueOr(flags, "conservatism", "moderate"),
			"verbosity":    valueOr(flags, "verbosity", "compact"),
			"temperature_control": map[string]any{
				"mode":  valueOr(tc, "mode", "adaptive"),
				"range": valueOr(tc, "range", []any{0.2, 0.6}),
			},
		}
	}

	return json.MarshalIndent(formatted, "", "  ")
}

// Format re-emits an already structured contract with properly typed values.
func Format(spec map[string]any) ([]byte, error) {
	return Generate(spec)
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func valueOr(m map[string]any, key string, def any) any {
	if m == nil {
		return def
	}
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	return v
}
