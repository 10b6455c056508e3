// Package drift flags behavioural drift: a high-confidence output that
// contradicts the agent's own recent history or the supplied context.
package drift

import (
	"fmt"
	"strings"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

const highConfidence = "high"

// Verdict is the outcome of one drift check. The detector mutates
// nothing; the caller decides whether to flag and strike.
type Verdict struct {
	Suspicious bool
	Reason     string
}

func suspicious(reason string) Verdict { return Verdict{Suspicious: true, Reason: reason} }

// Detect compares the current response against the most recent memory
// entry. Only high-confidence outputs are subject to drift checks, and a
// call without memory is never suspicious.
func Detect(resp contract.Response, cctx contract.CallContext, key string) Verdict {
	if !cctx.HasMemory() {
		return Verdict{}
	}

	current := resp.LowerString(key)
	if current == "" || resp.LowerString(contract.FieldConfidence) != highConfidence {
		return Verdict{}
	}

	latest := cctx.Memory[0].Analysis
	stale := lowerField(latest, key)
	staleConfidence := lowerField(latest, contract.FieldConfidence)

	// Confidence consistency: a high-confidence value should not flip.
	if stale != "" && staleConfidence == highConfidence && stale != current {
		return suspicious(fmt.Sprintf("high confidence %s changed from %s to %s", key, stale, current))
	}

	// Context contradiction: the context expected the prior value to hold.
	suggestion := strings.ToLower(cctx.ContextSuggestion)
	if suggestion != "" && suggestion == stale && current != suggestion {
		return suspicious(fmt.Sprintf("%s %s contradicts context suggestion %s", key, current, suggestion))
	}

	// Pattern break: the last three outputs all agreed with the prior value.
	if breaksPattern(cctx.PatternHistory, stale, current) {
		return suspicious(fmt.Sprintf("%s %s breaks established pattern %s", key, current, stale))
	}

	// Legacy indicator contradiction: maintaining a bullish call while the
	// supplied market indicators have turned hard against it.
	if stale == "buy" && current == "buy" && extremelyBearish(cctx.Indicators) {
		return suspicious("bullish " + key + " despite extremely bearish indicators")
	}

	return Verdict{}
}

func breaksPattern(history []string, stale, current string) bool {
	if stale == "" || len(history) == 0 || current == stale {
		return false
	}
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for _, p := range recent {
		if strings.ToLower(p) != stale {
			return false
		}
	}
	return true
}

func extremelyBearish(indicators map[string]any) bool {
	if len(indicators) == 0 {
		return false
	}
	if rsi, ok := numeric(indicators["rsi"]); ok && rsi < 30 {
		return true
	}
	ema50, ok50 := numeric(indicators["ema_50"])
	ema200, ok200 := numeric(indicators["ema_200"])
	if ok50 && ok200 && ema50 < ema200 {
		return true
	}
	trend, _ := indicators["trend"].(string)
	return trend == "strong_downtrend"
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func lowerField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.ToLower(s)
}
