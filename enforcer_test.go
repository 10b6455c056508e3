package contracts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() *Spec {
	return &Spec{
		Version:     "1.0",
		Description: "enforcer test contract",
		Role:        "analyst",
		Policy: Policy{
			ComplianceTags: []string{"EU-AI-ACT"},
			AllowedTools:   []string{"search"},
		},
		Flags: BehaviouralFlags{
			Conservatism: "moderate",
			Verbosity:    "compact",
			TemperatureControl: TemperatureControl{
				Mode:  ModeFixed,
				Range: []float64{0.2, 0.6},
			},
		},
		Response: ResponseContract{
			RequiredFields:    []string{"decision", "confidence"},
			MaxResponseTimeMS: 5000,
			OnFailure: OnFailure{
				MaxRetries: 1,
				Fallback:   map[string]any{"decision": "unknown", "confidence": "low"},
			},
		},
		Health: Health{MaxStrikes: 3, StrikeWindowSeconds: 3600},
	}
}

func goodAgentResponse() Response {
	return Response{
		"decision":        "BUY",
		"confidence":      "high",
		"compliance_tags": []string{"EU-AI-ACT"},
	}
}

func staticAgent(resp any, err error) AgentFunc {
	return func(ctx context.Context, call Call) (any, error) { return resp, err }
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Send(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.EventType
	}
	return out
}

func TestNewRejectsBadSpecs(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("nil spec accepted")
	}

	spec := testSpec()
	spec.Role = ""
	if _, err := New(spec); err == nil {
		t.Fatal("invalid spec accepted")
	}
}

func TestEnforcePassesThroughValidResponse(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	guarded := enf.Wrap(staticAgent(goodAgentResponse(), nil))
	resp := guarded(context.Background(), Call{})

	assert.Equal(t, "BUY", resp.GetString("decision"))
	assert.Equal(t, "high", resp.GetString("confidence"))
	assert.NotContains(t, resp, "flagged_for_review")
	assert.Equal(t, StatusHealthy, enf.HealthStatus())
}

func TestEnforceSetsTemperatureOnCall(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	var seen float64
	fn := func(ctx context.Context, call Call) (any, error) {
		seen = call.Temperature
		return goodAgentResponse(), nil
	}
	enf.Enforce(context.Background(), fn, Call{})

	// Fixed mode pins the midpoint of the range.
	assert.InDelta(t, 0.4, seen, 1e-9)
}

func TestEnforceAcceptsFencedJSONText(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	raw := "```json\n{\"decision\": \"HOLD\", \"confidence\": \"medium\", \"compliance_tags\": [\"EU-AI-ACT\"]}\n```"
	resp := enf.Enforce(context.Background(), staticAgent(raw, nil), Call{})

	assert.Equal(t, "HOLD", resp.GetString("decision"))
}

func TestEnforceMissingFieldFallsBack(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	calls := 0
	fn := func(ctx context.Context, call Call) (any, error) {
		calls++
		return Response{"decision": "BUY", "compliance_tags": []string{"EU-AI-ACT"}}, nil
	}
	resp := enf.Enforce(context.Background(), fn, Call{})

	assert.Equal(t, 2, calls, "one retry configured")
	assert.Equal(t, "unknown", resp.GetString("decision"))
	assert.Equal(t, "low", resp.GetString("confidence"))
	assert.Contains(t, resp.GetString("reasoning"), "missing required fields")
}

func TestEnforcePIIFallsBack(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	bad := goodAgentResponse()
	bad["reasoning"] = "reach me at alice@example.com"
	resp := enf.Enforce(context.Background(), staticAgent(bad, nil), Call{})

	assert.Equal(t, "unknown", resp.GetString("decision"))
	assert.Contains(t, resp.GetString("reasoning"), "pii")
}

func TestEnforceUnparseableOutputFallsBack(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	resp := enf.Enforce(context.Background(), staticAgent("certainly! you should buy.", nil), Call{})
	assert.Contains(t, resp.GetString("reasoning"), "unparseable")
}

func TestEnforceAgentErrorFallsBack(t *testing.T) {
	sink := &recordingSink{}
	enf, err := New(testSpec(), WithSinks(sink))
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context, call Call) (any, error) {
		calls++
		return nil, context.DeadlineExceeded
	}
	resp := enf.Enforce(context.Background(), fn, Call{})
	enf.Close()

	assert.Equal(t, 2, calls)
	assert.Equal(t, "unknown", resp.GetString("decision"))
	assert.Contains(t, resp.GetString("reasoning"), "deadline")

	types := sink.types()
	assert.Contains(t, types, "error")
	assert.Contains(t, types, "escalation")
}

func TestEnforceAgentPanicFallsBack(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	fn := func(ctx context.Context, call Call) (any, error) { panic("kaboom") }
	resp := enf.Enforce(context.Background(), fn, Call{})

	assert.Equal(t, "unknown", resp.GetString("decision"))
	assert.Contains(t, resp.GetString("reasoning"), "agent panicked")
}

func TestEnforceTimeBudget(t *testing.T) {
	spec := testSpec()
	spec.Response.MaxResponseTimeMS = 1
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	fn := func(ctx context.Context, call Call) (any, error) {
		time.Sleep(10 * time.Millisecond)
		return goodAgentResponse(), nil
	}
	resp := enf.Enforce(context.Background(), fn, Call{})

	assert.Equal(t, "unknown", resp.GetString("decision"))
	assert.Contains(t, resp.GetString("reasoning"), "exceeded")
}

func TestEnforceFlagsSuspiciousFlip(t *testing.T) {
	sink := &recordingSink{}
	enf, err := New(testSpec(), WithSinks(sink))
	require.NoError(t, err)

	agentResp := Response{
		"decision":        "SELL",
		"confidence":      "high",
		"compliance_tags": []string{"EU-AI-ACT"},
	}
	call := Call{Context: CallContext{
		Memory: []MemoryEntry{{Analysis: map[string]any{
			"decision":   "BUY",
			"confidence": "high",
		}}},
	}}
	resp := enf.Enforce(context.Background(), staticAgent(agentResp, nil), call)
	enf.Close()

	// The flip is surfaced, not suppressed.
	assert.Equal(t, "SELL", resp.GetString("decision"))
	flagged, _ := resp["flagged_for_review"].(bool)
	assert.True(t, flagged)
	assert.NotEmpty(t, resp.GetString("strike_reason"))

	// Flag annotations never touch the agent's own map.
	_, tainted := agentResp["flagged_for_review"]
	assert.False(t, tainted)

	assert.Contains(t, sink.types(), "flagged_for_review")
}

func TestEnforceSuspicionStrikesTowardUnhealthy(t *testing.T) {
	spec := testSpec()
	spec.Health.MaxStrikes = 1
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	call := Call{Context: CallContext{
		Memory: []MemoryEntry{{Analysis: map[string]any{
			"decision":   "BUY",
			"confidence": "high",
		}}},
	}}
	agentResp := Response{
		"decision":        "SELL",
		"confidence":      "high",
		"compliance_tags": []string{"EU-AI-ACT"},
	}
	enf.Enforce(context.Background(), staticAgent(agentResp, nil), call)

	assert.Equal(t, StatusUnhealthy, enf.HealthStatus())
}

func TestEnforceSuspicionStrikeDisabled(t *testing.T) {
	off := false
	spec := testSpec()
	spec.Health.MaxStrikes = 1
	spec.Health.StrikeOnSuspicion = &off
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	call := Call{Context: CallContext{
		Memory: []MemoryEntry{{Analysis: map[string]any{
			"decision":   "BUY",
			"confidence": "high",
		}}},
	}}
	agentResp := Response{
		"decision":        "SELL",
		"confidence":      "high",
		"compliance_tags": []string{"EU-AI-ACT"},
	}
	resp := enf.Enforce(context.Background(), staticAgent(agentResp, nil), call)

	flagged, _ := resp["flagged_for_review"].(bool)
	assert.True(t, flagged, "flagging still happens without a strike")
	assert.Equal(t, StatusHealthy, enf.HealthStatus())
}

func TestEnforceReadsContextFromArgs(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	agentResp := Response{
		"decision":        "SELL",
		"confidence":      "high",
		"compliance_tags": []string{"EU-AI-ACT"},
	}
	call := Call{Args: map[string]any{
		"memory": []any{
			map[string]any{"analysis": map[string]any{
				"decision":   "BUY",
				"confidence": "high",
			}},
		},
	}}
	resp := enf.Enforce(context.Background(), staticAgent(agentResp, nil), call)

	flagged, _ := resp["flagged_for_review"].(bool)
	assert.True(t, flagged, "memory passed through args must reach the drift detector")
}

func TestEnforceHealthGateSkipsAgent(t *testing.T) {
	sink := &recordingSink{}
	spec := testSpec()
	spec.Health.MaxStrikes = 1
	spec.Response.OnFailure.MaxRetries = 0
	enf, err := New(spec, WithSinks(sink))
	require.NoError(t, err)

	calls := 0
	failing := func(ctx context.Context, call Call) (any, error) {
		calls++
		return nil, context.DeadlineExceeded
	}

	enf.Enforce(context.Background(), failing, Call{})
	require.Equal(t, StatusUnhealthy, enf.HealthStatus())

	resp := enf.Enforce(context.Background(), failing, Call{})
	enf.Close()

	assert.Equal(t, 1, calls, "unhealthy agent must not be invoked")
	assert.Contains(t, resp.GetString("reasoning"), "unhealthy")
	assert.Contains(t, sink.types(), "health_check")
}

func TestResetHealthReopensTheGate(t *testing.T) {
	spec := testSpec()
	spec.Health.MaxStrikes = 1
	spec.Response.OnFailure.MaxRetries = 0
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	enf.Enforce(context.Background(), staticAgent(nil, context.DeadlineExceeded), Call{})
	require.Equal(t, StatusUnhealthy, enf.HealthStatus())

	enf.ResetHealth()
	assert.Equal(t, StatusHealthy, enf.HealthStatus())

	resp := enf.Enforce(context.Background(), staticAgent(goodAgentResponse(), nil), Call{})
	assert.Equal(t, "BUY", resp.GetString("decision"))
}

func TestEnforceAdaptiveTemperatureFeedback(t *testing.T) {
	spec := testSpec()
	spec.Flags.TemperatureControl.Mode = ModeAdaptive
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	require.InDelta(t, 0.4, enf.Temperature(), 1e-9)

	// Successes cool the agent down.
	enf.Enforce(context.Background(), staticAgent(goodAgentResponse(), nil), Call{})
	enf.Enforce(context.Background(), staticAgent(goodAgentResponse(), nil), Call{})
	assert.InDelta(t, 0.3, enf.Temperature(), 1e-9)

	// A failed attempt heats it back up (one failure plus the final
	// fallback still only adjusts once per attempt).
	spec2 := testSpec()
	spec2.Flags.TemperatureControl.Mode = ModeAdaptive
	spec2.Response.OnFailure.MaxRetries = 0
	enf2, err := New(spec2)
	require.NoError(t, err)
	defer enf2.Close()

	enf2.Enforce(context.Background(), staticAgent("not json", nil), Call{})
	assert.InDelta(t, 0.45, enf2.Temperature(), 1e-9)
}

func TestEnforceTemperatureUsedOutOfRange(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	bad := goodAgentResponse()
	bad["temperature_used"] = 0.95
	resp := enf.Enforce(context.Background(), staticAgent(bad, nil), Call{})

	assert.Contains(t, resp.GetString("reasoning"), "temperature out of range")
}

func TestSetSpecSwapsContract(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	next := testSpec()
	next.Version = "2.0"
	require.NoError(t, enf.SetSpec(next))
	assert.Equal(t, "2.0", enf.Spec().Version)

	// A bad replacement is rejected and the active spec survives.
	broken := testSpec()
	broken.Role = ""
	require.Error(t, enf.SetSpec(broken))
	assert.Equal(t, "2.0", enf.Spec().Version)
}

func TestSetSpecResetsHealth(t *testing.T) {
	spec := testSpec()
	spec.Health.MaxStrikes = 1
	spec.Response.OnFailure.MaxRetries = 0
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	enf.Enforce(context.Background(), staticAgent(nil, context.DeadlineExceeded), Call{})
	require.Equal(t, StatusUnhealthy, enf.HealthStatus())

	require.NoError(t, enf.SetSpec(testSpec()))
	assert.Equal(t, StatusHealthy, enf.HealthStatus())
}

func TestEnforceAlwaysSatisfiesRequiredFields(t *testing.T) {
	spec := testSpec()
	spec.Response.OnFailure.Fallback = map[string]any{"notes": "degraded"}
	enf, err := New(spec)
	require.NoError(t, err)
	defer enf.Close()

	agents := []AgentFunc{
		staticAgent(goodAgentResponse(), nil),
		staticAgent(nil, context.DeadlineExceeded),
		staticAgent("garbage", nil),
		func(ctx context.Context, call Call) (any, error) { panic("x") },
	}
	for _, fn := range agents {
		resp := enf.Enforce(context.Background(), fn, Call{})
		for _, field := range spec.Response.RequiredFields {
			if _, ok := resp[field]; !ok {
				t.Errorf("required field %q missing from %v", field, resp)
			}
		}
		enf.ResetHealth()
	}
}

func TestFallbackReasonNamesLastFailure(t *testing.T) {
	enf, err := New(testSpec())
	require.NoError(t, err)
	defer enf.Close()

	attempt := 0
	fn := func(ctx context.Context, call Call) (any, error) {
		attempt++
		if attempt == 1 {
			return nil, context.DeadlineExceeded
		}
		return Response{"decision": "BUY", "compliance_tags": []string{"EU-AI-ACT"}}, nil
	}
	resp := enf.Enforce(context.Background(), fn, Call{})

	// The second attempt's rejection is the one reported.
	if !strings.Contains(resp.GetString("reasoning"), "missing required fields") {
		t.Errorf("reasoning = %q", resp.GetString("reasoning"))
	}
}
