package llm

// Parameter readers shared by the providers. Parameters arrive from JSON, so
// numbers are float64 and lists are []any.

// FloatParam reads a numeric parameter.
func FloatParam(params map[string]any, key string) (float64, bool) {
	switch value := params[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

// IntParam reads a numeric parameter truncated to an int.
func IntParam(params map[string]any, key string) (int, bool) {
	value, ok := FloatParam(params, key)
	if !ok {
		return 0, false
	}

	return int(value), true
}

// StringSliceParam reads a list-of-strings parameter, skipping non-string
// elements.
func StringSliceParam(params map[string]any, key string) ([]string, bool) {
	raw, ok := params[key].([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		if s, ok := elem.(string); ok {
			out = append(out, s)
		}
	}

	return out, len(out) > 0
}
