package contracts

import (
	"context"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
	"github.com/aswhitehouse/behavioural-contracts/internal/escalate"
	"github.com/aswhitehouse/behavioural-contracts/internal/health"
)

// Public aliases for the contract data model. The enforcement machinery
// lives in internal packages; these are the types callers construct.
type (
	// Spec is one immutable behavioural contract.
	Spec = contract.Spec
	// Policy holds content restrictions applied to every response.
	Policy = contract.Policy
	// BehaviouralFlags tune how the agent is expected to behave.
	BehaviouralFlags = contract.BehaviouralFlags
	// TemperatureControl bounds the sampling temperature.
	TemperatureControl = contract.TemperatureControl
	// ResponseContract describes the shape every response must satisfy.
	ResponseContract = contract.ResponseContract
	// BehaviourSignature names the output field tracked for drift.
	BehaviourSignature = contract.BehaviourSignature
	// OnFailure configures retry and fallback behaviour.
	OnFailure = contract.OnFailure
	// Health configures the strike-based circuit breaker.
	Health = contract.Health
	// Escalation maps failure reasons to operator-facing actions.
	Escalation = contract.Escalation
	// Response is one agent output: an open field→value map.
	Response = contract.Response
	// CallContext carries per-call history for drift detection.
	CallContext = contract.CallContext
	// MemoryEntry is one historical record of a prior agent output.
	MemoryEntry = contract.MemoryEntry
	// SpecError reports a rejected contract specification.
	SpecError = contract.SpecError

	// Event is one contract event bound for an observability sink.
	Event = escalate.Event
	// Sink receives contract events emitted by the enforcer.
	Sink = escalate.Sink
)

// Temperature modes.
const (
	ModeFixed    = contract.ModeFixed
	ModeAdaptive = contract.ModeAdaptive
)

// Health statuses derived by the strike monitor.
const (
	StatusHealthy   = health.Healthy
	StatusUnhealthy = health.Unhealthy
)

// Call is one invocation of the wrapped agent.
type Call struct {
	// Args is the caller's payload, passed through to the agent untouched.
	// The compatibility keys "context", "memory" and "indicators" are also
	// read by the enforcer when Context is not set explicitly.
	Args map[string]any

	// Context supplies the history the drift detector compares against.
	Context CallContext

	// Temperature is set by the enforcer before each attempt. Agents that
	// support a sampling temperature should honor it; others ignore it.
	Temperature float64
}

// AgentFunc is the agent callable guarded by an Enforcer. The result may
// be a field map, a JSON string (optionally fenced in a markdown code
// block), or any JSON-marshalable value.
type AgentFunc func(ctx context.Context, call Call) (any, error)

// GuardedFunc is a wrapped agent: it never returns an error and its
// response always satisfies the contract's required fields.
type GuardedFunc func(ctx context.Context, call Call) Response

// ParseSpec decodes and validates a contract spec from YAML or JSON.
func ParseSpec(data []byte) (*Spec, error) { return contract.Parse(data) }

// LoadSpec reads and validates a contract spec from a file.
func LoadSpec(path string) (*Spec, error) { return contract.Load(path) }
