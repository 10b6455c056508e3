package contract

import "fmt"

// ContextFromArgs extracts a CallContext from loose call arguments.
// Two forms are recognized: a "context" sub-map carrying memory,
// pattern_history, context_suggestion and indicators, or memory and
// indicators passed directly as top-level arguments (compatibility form).
// The "context" form wins when both are present.
func ContextFromArgs(args map[string]any) CallContext {
	if args == nil {
		return CallContext{}
	}

	source := args
	if sub, ok := args["context"].(map[string]any); ok {
		source = sub
	}

	cctx := CallContext{
		Memory:            memoryEntries(source["memory"]),
		PatternHistory:    stringList(source["pattern_history"]),
		ContextSuggestion: stringValue(source["context_suggestion"]),
	}
	if ind, ok := source["indicators"].(map[string]any); ok {
		cctx.Indicators = ind
	}
	return cctx
}

func memoryEntries(v any) []MemoryEntry {
	switch entries := v.(type) {
	case []MemoryEntry:
		return entries
	case []any:
		var out []MemoryEntry
		for _, e := range entries {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			analysis, _ := m["analysis"].(map[string]any)
			out = append(out, MemoryEntry{Analysis: analysis})
		}
		return out
	case []map[string]any:
		var out []MemoryEntry
		for _, m := range entries {
			analysis, _ := m["analysis"].(map[string]any)
			out = append(out, MemoryEntry{Analysis: analysis})
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		var out []string
		for _, e := range list {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
