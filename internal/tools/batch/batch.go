package batch

import (
	"fmt"
)

// ParseStringOrArray parses a parameter that can be either a single string
// or an array of strings. Empty values are rejected.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string
	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		result = []string{v}
	case []string:
		return ParseStringOrArray(toAny(v), paramName)
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
	return result, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Limit caps ids at max, reporting whether any were dropped. A max of zero
// or less keeps every id.
func Limit(ids []string, max int) ([]string, bool) {
	if max <= 0 || len(ids) <= max {
		return ids, false
	}
	return ids[:max], true
}
