// Package validate checks agent responses against a behavioural contract
// and builds the canonical fallback when they fail.
package validate

import (
	"encoding/json"
	"strings"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// Normalize converts a raw agent result into a structured response before
// any validation runs. Text payloads are parsed as JSON, tolerating a
// markdown code fence around the document. Returns false when the payload
// cannot be turned into a field map.
func Normalize(raw any) (contract.Response, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case contract.Response:
		return v, true
	case map[string]any:
		return contract.Response(v), true
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	case json.RawMessage:
		return parseText(string(v))
	default:
		// Structured value from a typed agent; round-trip through JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return contract.Response(m), true
	}
}

func parseText(text string) (contract.Response, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			inner := strings.Join(lines[1:len(lines)-1], "\n")
			inner = strings.TrimSpace(strings.ReplaceAll(inner, "```", ""))
			if m, ok := parseJSONObject(inner); ok {
				return m, true
			}
		}
		return nil, false
	}

	return parseJSONObject(text)
}

func parseJSONObject(text string) (contract.Response, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	return contract.Response(m), true
}
