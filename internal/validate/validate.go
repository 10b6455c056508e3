package validate

import (
	"fmt"
	"time"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// Rejection reasons, embedded verbatim in fallback reasoning text.
const (
	ReasonMissingFields    = "missing required fields"
	ReasonPII              = "pii detected in response"
	ReasonMissingTags      = "missing compliance tags"
	ReasonUnauthorizedTool = "unauthorized tool used"
	ReasonDecisionChanged  = "high confidence decision changed"
	ReasonTempOutOfRange   = "temperature out of range"
	ReasonTimeExceeded     = "response time exceeded"
	ReasonUnparseable      = "unparseable response"
)

// Result is an accept/reject decision with the first failing reason.
type Result struct {
	Accepted bool
	Reason   string
}

func reject(reason string) Result { return Result{Reason: reason} }

var accepted = Result{Accepted: true}

// Check runs the contract's validation pipeline over one normalized
// response. Checks run in fixed precedence; the first failure wins.
// A negative elapsed means no start time was recorded and the response
// time budget is not evaluated. Check mutates nothing and is idempotent.
func Check(resp contract.Response, spec *contract.Spec, elapsed time.Duration) Result {
	policy := spec.Policy
	rc := spec.Response

	for _, field := range rc.RequiredFields {
		if _, ok := resp[field]; !ok {
			return reject(ReasonMissingFields)
		}
	}

	if !policy.PIIAllowed && ContainsPII(resp) {
		return reject(ReasonPII)
	}

	if len(policy.ComplianceTags) > 0 {
		tags, ok := resp.Strings(contract.FieldComplianceTags)
		if !ok {
			return reject(ReasonMissingTags)
		}
		present := make(map[string]bool, len(tags))
		for _, t := range tags {
			present[t] = true
		}
		for _, required := range policy.ComplianceTags {
			if !present[required] {
				return reject(ReasonMissingTags)
			}
		}
	}

	if _, used := resp[contract.FieldTools]; used {
		tools, ok := resp.Strings(contract.FieldTools)
		if !ok {
			return reject(ReasonUnauthorizedTool)
		}
		allowed := make(map[string]bool, len(policy.AllowedTools))
		for _, t := range policy.AllowedTools {
			allowed[t] = true
		}
		for _, t := range tools {
			if !allowed[t] {
				return reject(ReasonUnauthorizedTool)
			}
		}
	}

	// Deprecated compatibility path: an inline previous value carried on the
	// response itself. The memory-based drift rule is authoritative.
	key := rc.BehaviourKey()
	if prev, ok := resp[contract.PreviousFieldPrefix+key]; ok {
		if fmt.Sprint(prev) != fmt.Sprint(resp[key]) {
			return reject(ReasonDecisionChanged)
		}
	}

	if _, ok := resp[contract.FieldTemperatureUsed]; ok {
		temp, numeric := resp.Float(contract.FieldTemperatureUsed)
		tc := spec.Flags.TemperatureControl
		if !numeric || temp < tc.Min() || temp > tc.Max() {
			return reject(ReasonTempOutOfRange)
		}
	}

	if elapsed >= 0 && elapsed.Milliseconds() > int64(rc.MaxResponseTimeMS) {
		return reject(ReasonTimeExceeded)
	}

	if len(rc.ConfidenceLevels) > 0 {
		if conf, ok := resp[contract.FieldConfidence]; ok {
			if !contains(rc.ConfidenceLevels, fmt.Sprint(conf)) {
				return reject(fmt.Sprintf("invalid confidence level: %v", conf))
			}
		}
	}
	if len(rc.AllowedValues) > 0 {
		if v, ok := resp[key]; ok {
			if !contains(rc.AllowedValues, fmt.Sprint(v)) {
				return reject(fmt.Sprintf("invalid %s value: %v", key, v))
			}
		}
	}

	return accepted
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
