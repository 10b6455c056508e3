// Package contracts enforces a declarative behavioural contract over an
// LLM-backed agent at runtime. It wraps the agent callable, validates every
// response against the contract (structure, disallowed content, temporal
// drift), adapts the sampling temperature from outcome feedback, and tracks
// agent health with strike-based circuit breaking.
//
// Usage:
//
//	spec, err := contracts.LoadSpec("analyst.yaml")
//	enf, err := contracts.New(spec, contracts.WithLogger(logger))
//	guarded := enf.Wrap(myAgent)
//	resp := guarded(ctx, contracts.Call{Args: map[string]any{"ticker": "ACME"}})
//
// Every call through the enforcer returns exactly one response satisfying
// the contract's required fields: the agent's validated output, possibly
// annotated with review flags, or the contract's fallback.
package contracts
