package paycollect

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AmountLimitCode is the service's error code for a mandate amount above the
// environment's allowed maximum.
const AmountLimitCode = "10569"

// NormalizeErrors flattens an error payload of unknown shape (string, array,
// or nested object) into one human-readable message. The service is not
// consistent about where it puts the useful text, so every known spelling is
// tried in order before falling back to the stringified payload.
func NormalizeErrors(errs interface{}, fallback string) string {
	if msg := normalizeValue(errs, 0); msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return "unknown error from payment-collection service"
}

// nesting depth guard; observed payloads nest errors.errors at most twice.
const maxNormalizeDepth = 6

func normalizeValue(v interface{}, depth int) string {
	if v == nil || depth > maxNormalizeDepth {
		return ""
	}

	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return ""
		}
		// Some failures arrive as a JSON document wrapped in a string.
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var parsed interface{}
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				if msg := normalizeValue(parsed, depth+1); msg != "" {
					return msg
				}
			}
		}
		return trimmed

	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if msg := normalizeItem(item, depth+1); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")

	case map[string]interface{}:
		for _, key := range []string{"summary", "detail", "message"} {
			if s, ok := val[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		if nested, ok := val["errors"]; ok {
			if msg := normalizeValue(nested, depth+1); msg != "" {
				return msg
			}
		}
		return stringify(val)

	default:
		return stringify(val)
	}
}

func normalizeItem(item interface{}, depth int) string {
	if m, ok := item.(map[string]interface{}); ok {
		for _, key := range []string{"message", "summary", "detail"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return stringify(m)
	}
	return normalizeValue(item, depth)
}

func stringify(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// FindAmountLimitError scans an error payload for the amount-limit business
// rejection, by code or by message text. It returns the matched message so
// the caller can fold it into a precise operator-facing explanation.
func FindAmountLimitError(errs interface{}) (string, bool) {
	return findAmountLimit(errs, 0)
}

func findAmountLimit(v interface{}, depth int) (string, bool) {
	if v == nil || depth > maxNormalizeDepth {
		return "", false
	}

	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var parsed interface{}
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return findAmountLimit(parsed, depth+1)
			}
		}
		if strings.Contains(strings.ToLower(trimmed), "amount limit") {
			return trimmed, true
		}

	case []interface{}:
		for _, item := range val {
			if msg, ok := findAmountLimit(item, depth+1); ok {
				return msg, true
			}
		}

	case map[string]interface{}:
		code := ""
		switch c := val["code"].(type) {
		case string:
			code = c
		case float64:
			code = fmt.Sprintf("%.0f", c)
		}

		message := ""
		for _, key := range []string{"message", "summary", "detail"} {
			if s, ok := val[key].(string); ok && s != "" {
				message = s
				break
			}
		}

		if code == AmountLimitCode || strings.Contains(strings.ToLower(message), "amount limit") {
			if message == "" {
				message = "amount limit exceeded"
			}
			return message, true
		}

		if nested, ok := val["errors"]; ok {
			return findAmountLimit(nested, depth+1)
		}
	}

	return "", false
}
