// Package agent provides ready-made LLM backends usable as the wrapped
// callable behind a behavioural contract. Each backend honors the
// sampling temperature chosen by the enforcer and returns the model's
// raw text, which the enforcer normalizes and validates.
package agent

import (
	"encoding/json"
	"fmt"

	contracts "github.com/aswhitehouse/behavioural-contracts"
)

// Prompt renders the call arguments into a model prompt. A "prompt"
// argument is used verbatim; otherwise the arguments are serialized as a
// JSON document for the model to act on.
func Prompt(call contracts.Call) (string, error) {
	if p, ok := call.Args["prompt"].(string); ok && p != "" {
		return p, nil
	}
	data, err := json.Marshal(call.Args)
	if err != nil {
		return "", fmt.Errorf("agent: render prompt: %w", err)
	}
	return string(data), nil
}
