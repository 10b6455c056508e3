package contracts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
	"github.com/aswhitehouse/behavioural-contracts/internal/drift"
	"github.com/aswhitehouse/behavioural-contracts/internal/escalate"
	"github.com/aswhitehouse/behavioural-contracts/internal/health"
	"github.com/aswhitehouse/behavioural-contracts/internal/temperature"
	"github.com/aswhitehouse/behavioural-contracts/internal/validate"
)

// Enforcer composes the contract checkers around calls to a wrapped
// agent: health gating, retries, response validation, drift detection,
// temperature feedback and escalation. One Enforcer owns one health
// monitor and one temperature controller; both persist across calls.
// Safe for concurrent use.
type Enforcer struct {
	mu      sync.RWMutex
	spec    *contract.Spec
	monitor *health.Monitor
	temps   *temperature.Controller

	emitter *escalate.Emitter
	log     *zap.Logger
}

// New creates an Enforcer for the given contract spec. A malformed spec
// is rejected here, before any call is enforced.
func New(spec *Spec, opts ...Option) (*Enforcer, error) {
	if spec == nil {
		return nil, fmt.Errorf("contracts: spec is required")
	}
	if err := contract.Finalize(spec); err != nil {
		return nil, err
	}

	cfg := enforcerConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	e := &Enforcer{
		spec:    spec,
		monitor: health.New(spec.Health),
		temps:   temperature.New(spec.Flags.TemperatureControl),
		emitter: escalate.NewEmitter(cfg.logger, cfg.sinks...),
		log:     cfg.logger,
	}
	e.log.Info("behavioural contract initialized",
		zap.String("version", spec.Version),
		zap.String("role", spec.Role))
	return e, nil
}

// Wrap returns the guarded form of an agent function.
func (e *Enforcer) Wrap(fn AgentFunc) GuardedFunc {
	return func(ctx context.Context, call Call) Response {
		return e.Enforce(ctx, fn, call)
	}
}

// Enforce runs one guarded invocation of fn. It always returns exactly
// one response satisfying the contract's required fields; no error or
// panic crosses this boundary.
func (e *Enforcer) Enforce(ctx context.Context, fn AgentFunc, call Call) (resp Response) {
	spec, monitor, temps := e.snapshot()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("enforcement panicked", zap.Any("panic", r))
			resp = validate.Fallback(spec, fmt.Sprintf("internal enforcement error: %v", r))
		}
	}()

	// Cheapest gate first: an unhealthy agent is not called at all.
	if monitor.Status() == health.Unhealthy {
		e.log.Warn("agent unhealthy, skipping call", zap.String("role", spec.Role))
		e.emit(spec, escalate.EventHealthCheck, "agent unhealthy", "fallback")
		return validate.Fallback(spec, "agent marked unhealthy")
	}

	if isZeroContext(call.Context) {
		call.Context = contract.ContextFromArgs(call.Args)
	}

	start := time.Now()
	maxRetries := spec.Response.OnFailure.MaxRetries
	lastReason := "unexpected output"

	for attempt := 0; attempt <= maxRetries; attempt++ {
		call.Temperature = temps.Get()
		e.log.Debug("invoking agent",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries+1),
			zap.Float64("temperature", call.Temperature))

		raw, err := e.invoke(ctx, fn, call)
		if err != nil {
			lastReason = err.Error()
			e.log.Warn("agent call failed", zap.Int("attempt", attempt+1), zap.Error(err))
			temps.Adjust(false)
			monitor.AddStrike(lastReason)
			e.emit(spec, escalate.EventError, lastReason, "retry")
			continue
		}

		normalized, ok := validate.Normalize(raw)
		result := validate.Result{Accepted: ok, Reason: validate.ReasonUnparseable}
		if ok {
			result = validate.Check(normalized, spec, time.Since(start))
		}
		if !result.Accepted {
			lastReason = result.Reason
			e.log.Warn("response rejected",
				zap.Int("attempt", attempt+1),
				zap.String("reason", result.Reason))
			temps.Adjust(false)
			monitor.AddStrike(result.Reason)
			if result.Reason == validate.ReasonTimeExceeded {
				e.emit(spec, escalate.EventPerformance, result.Reason, "fallback")
			}
			continue
		}

		response := normalized
		verdict := drift.Detect(response, call.Context, spec.Response.BehaviourKey())
		if verdict.Suspicious {
			e.log.Warn("suspicious behaviour detected", zap.String("reason", verdict.Reason))
			response = response.Clone()
			response[contract.FieldFlaggedForReview] = true
			response[contract.FieldStrikeReason] = verdict.Reason
			if spec.Health.StrikesOnSuspicion() {
				monitor.AddStrike(verdict.Reason)
			}
			e.emit(spec, escalate.EventFlagged, verdict.Reason,
				spec.Escalation.ActionFor(contract.ReasonContextMismatch))
		}

		temps.Adjust(true)
		return response
	}

	// Attempts exhausted without a validated response.
	action := spec.Escalation.ActionFor(contract.ReasonUnexpectedOutput)
	e.log.Warn("all attempts failed, falling back",
		zap.String("reason", lastReason),
		zap.String("action", action))
	e.emit(spec, escalate.EventEscalation, string(contract.ReasonUnexpectedOutput), action)
	return validate.Fallback(spec, lastReason)
}

// invoke calls the agent, converting a panic into an execution failure.
func (e *Enforcer) invoke(ctx context.Context, fn AgentFunc, call Call) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return fn(ctx, call)
}

func (e *Enforcer) emit(spec *contract.Spec, eventType, reason, action string) {
	e.emitter.Emit(escalate.NewEvent(eventType, spec.Version, spec.Role, reason, action))
}

// Spec returns the active contract spec.
func (e *Enforcer) Spec() *Spec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.spec
}

// SetSpec validates and swaps in a new contract spec, rebuilding the
// temperature controller and resetting health state. Used by hot reload.
func (e *Enforcer) SetSpec(spec *Spec) error {
	if spec == nil {
		return fmt.Errorf("contracts: spec is required")
	}
	if err := contract.Finalize(spec); err != nil {
		return err
	}

	e.mu.Lock()
	e.spec = spec
	e.monitor = health.New(spec.Health)
	e.temps = temperature.New(spec.Flags.TemperatureControl)
	e.mu.Unlock()

	e.log.Info("behavioural contract replaced",
		zap.String("version", spec.Version),
		zap.String("role", spec.Role))
	return nil
}

// snapshot reads the active spec and its checkers under one lock so a
// concurrent SetSpec cannot split them mid-call.
func (e *Enforcer) snapshot() (*contract.Spec, *health.Monitor, *temperature.Controller) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.spec, e.monitor, e.temps
}

// HealthStatus reports the derived health of the wrapped agent.
func (e *Enforcer) HealthStatus() health.Status {
	_, monitor, _ := e.snapshot()
	return monitor.Status()
}

// ResetHealth clears all strikes and forces the agent healthy.
func (e *Enforcer) ResetHealth() {
	_, monitor, _ := e.snapshot()
	monitor.Reset()
}

// Temperature returns the current sampling temperature.
func (e *Enforcer) Temperature() float64 {
	_, _, temps := e.snapshot()
	return temps.Get()
}

// Close waits for in-flight escalation deliveries to finish.
func (e *Enforcer) Close() {
	e.emitter.Close()
}

func isZeroContext(c CallContext) bool {
	return len(c.Memory) == 0 && len(c.PatternHistory) == 0 &&
		c.ContextSuggestion == "" && len(c.Indicators) == 0
}
