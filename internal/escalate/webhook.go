package escalate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	requestTimeout = 5 * time.Second
	maxAttempts    = 3
)

// WebhookConfig describes a webhook escalation endpoint.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Format  string            `yaml:"format"` // "generic", "slack", "pagerduty"
	Headers map[string]string `yaml:"headers"`
}

// Webhook posts contract events to an HTTP endpoint. Implements Sink.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook creates a webhook sink with a bounded request timeout.
func NewWebhook(cfg WebhookConfig) *Webhook {
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Send posts the event, retrying on 5xx with linear backoff.
func (w *Webhook) Send(ev Event) error {
	body, err := formatPayload(w.cfg.Format, ev)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, w.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range w.cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
		}
		// 5xx — retry
		lastErr = fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}

func formatPayload(format string, ev Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(ev)
	case "pagerduty":
		return formatPagerDuty(ev)
	default:
		return json.Marshal(ev)
	}
}

func formatSlack(ev Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("behavioural-contracts: %s", ev.EventType),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Role:* %s", ev.Role)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Contract:* %s", ev.ContractVersion)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", ev.Reason)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", ev.Action)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(ev Event) ([]byte, error) {
	severity := "warning"
	if ev.EventType == EventEscalation {
		severity = "error"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("behavioural-contracts %s: %s", ev.EventType, ev.Reason),
			"severity": severity,
			"source":   "behavioural-contracts",
			"custom_details": map[string]any{
				"contract_version": ev.ContractVersion,
				"role":             ev.Role,
				"reason":           ev.Reason,
				"action":           ev.Action,
				"event_id":         ev.ID,
			},
		},
	}
	return json.Marshal(payload)
}
