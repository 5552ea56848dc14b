package checker

import "strings"

func derefStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func getStr(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// ensureStringSlices replaces nil slice values so JSON renders [] not null.
func ensureStringSlices(m map[string]any, keys ...string) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []string:
			if v == nil {
				m[k] = []string{}
			}
		case nil:
			m[k] = []string{}
		}
	}
}

func classifyHTTPError(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "tls") || strings.Contains(errStr, "certificate"):
		return "SSL certificate error"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "dial"):
		return "Connection failed"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return "Timeout"
	}
	if len(errStr) > 80 {
		errStr = errStr[:80]
	}
	return errStr
}

func uniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, s := range input {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
