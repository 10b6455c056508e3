// Package escalate emits contract events to external observability sinks:
// a hash-chained JSONL log, a webhook endpoint, or a sqlite store.
// Emission is fire-and-forget; a failing sink never fails enforcement.
package escalate

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types emitted by the enforcement engine.
const (
	EventEscalation  = "escalation"
	EventHealthCheck = "health_check"
	EventError       = "error"
	EventPerformance = "performance_warning"
	EventFlagged     = "flagged_for_review"
)

// Event is one contract event bound for an observability sink.
// All fields are flat (no map values in the hashed form) so json.Marshal
// field order stays deterministic for hash chaining.
type Event struct {
	ID              string `json:"id"`
	Timestamp       string `json:"ts"`
	EventType       string `json:"event_type"`
	ContractVersion string `json:"contract_version"`
	Role            string `json:"role"`
	Reason          string `json:"reason"`
	Action          string `json:"action"`
	PrevHash        string `json:"prev_hash,omitempty"`
}

// NewEvent stamps a fresh event with an ID and UTC timestamp.
func NewEvent(eventType, version, role, reason, action string) Event {
	return Event{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		EventType:       eventType,
		ContractVersion: version,
		Role:            role,
		Reason:          reason,
		Action:          action,
	}
}

// Sink receives contract events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(Event) error
}

// Emitter fans events out to sinks on background goroutines. Sink errors
// are logged and dropped so the enforcement path never blocks on I/O.
type Emitter struct {
	sinks []Sink
	log   *zap.Logger
	wg    sync.WaitGroup
}

// NewEmitter creates an emitter over the given sinks. A nil logger
// disables error logging.
func NewEmitter(log *zap.Logger, sinks ...Sink) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{sinks: sinks, log: log}
}

// Emit dispatches the event to every sink without waiting for delivery.
func (e *Emitter) Emit(ev Event) {
	for _, sink := range e.sinks {
		e.wg.Add(1)
		go func(s Sink) {
			defer e.wg.Done()
			if err := s.Send(ev); err != nil {
				e.log.Warn("escalation sink failed",
					zap.String("event_type", ev.EventType),
					zap.String("reason", ev.Reason),
					zap.Error(err))
			}
		}(sink)
	}
}

// Close waits for in-flight deliveries to finish.
func (e *Emitter) Close() {
	e.wg.Wait()
}
