package contracts

import (
	"go.uber.org/zap"

	"github.com/aswhitehouse/behavioural-contracts/internal/escalate"
)

// Option configures an Enforcer at creation time.
type Option func(*enforcerConfig)

type enforcerConfig struct {
	logger *zap.Logger
	sinks  []Sink
}

// WithLogger sets the structured logger for enforcement events.
// Without it the enforcer stays silent.
func WithLogger(logger *zap.Logger) Option {
	return func(c *enforcerConfig) { c.logger = logger }
}

// WithSinks adds escalation sinks receiving contract events.
func WithSinks(sinks ...Sink) Option {
	return func(c *enforcerConfig) { c.sinks = append(c.sinks, sinks...) }
}

// WebhookConfig describes a webhook escalation endpoint.
type WebhookConfig = escalate.WebhookConfig

// NewEventLogSink opens an append-only, hash-chained JSONL event log.
// The caller owns the returned log and should Close it on shutdown.
func NewEventLogSink(path string) (*escalate.ChainLog, error) {
	return escalate.OpenChainLog(path)
}

// NewWebhookSink creates a webhook sink posting events to an HTTP
// endpoint with bounded retry.
func NewWebhookSink(cfg WebhookConfig) Sink {
	return escalate.NewWebhook(cfg)
}

// NewEventStoreSink opens a sqlite-backed event store. The caller owns
// the returned store and should Close it on shutdown.
func NewEventStoreSink(path string) (*escalate.Store, error) {
	return escalate.OpenStore(path)
}

// VerifyEventLog validates the hash chain of a JSONL event log.
func VerifyEventLog(path string) escalate.VerifyResult {
	return escalate.Verify(path)
}
