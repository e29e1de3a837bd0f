package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values never reach the audit table in clear.
var sensitiveKeys = map[string]struct{}{
	"email":    {},
	"phone":    {},
	"legal_id": {},
	"token":    {},
}

// MaskSecret redacts a value while keeping a short suffix for correlation.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskSensitive returns a copy of input with sensitive string values masked.
// Nested maps are walked.
func MaskSensitive(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitiveKeys[strings.ToLower(trimmedKey)]; ok {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			masked[trimmedKey] = MaskSensitive(nested)
			continue
		}
		masked[trimmedKey] = value
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case []string:
		out := make([]string, 0, len(cast))
		for _, item := range cast {
			out = append(out, MaskSecret(item))
		}
		return out
	default:
		return value
	}
}
