package validate

import (
	"strings"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// Fallback builds the canonical substitute response for a failed call.
// The contract's configured on_failure.fallback values win; canonical
// fields fill the gaps so the result always names a behaviour value and a
// confidence, and the rejection reason is embedded in the reasoning text.
// The required-fields invariant holds on the result.
func Fallback(spec *contract.Spec, reason string) contract.Response {
	resp := make(contract.Response, len(spec.Response.OnFailure.Fallback)+4)
	for k, v := range spec.Response.OnFailure.Fallback {
		resp[k] = v
	}

	key := spec.Response.BehaviourKey()
	if _, ok := resp[key]; !ok {
		resp[key] = "unknown"
	}
	if _, ok := resp[contract.FieldConfidence]; !ok {
		resp[contract.FieldConfidence] = "low"
	}
	if _, ok := resp["summary"]; !ok {
		resp["summary"] = "Fallback due to error"
	}
	resp[contract.FieldReasoning] = reason

	if _, ok := resp[contract.FieldFlaggedForReview]; !ok {
		resp[contract.FieldFlaggedForReview] = strings.Contains(reason, ReasonDecisionChanged)
	}

	// Required fields the contract author forgot to cover in the fallback
	// still have to be present on every path out.
	for _, field := range spec.Response.RequiredFields {
		if _, ok := resp[field]; !ok {
			resp[field] = "unknown"
		}
	}

	return resp
}
