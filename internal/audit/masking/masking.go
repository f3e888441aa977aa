package masking

import (
	"regexp"
	"strings"
)

const maskToken = "****"

var (
	rechargeCodeRe = regexp.MustCompile(`\b\d{20}\b`)

	sensitiveKeys = map[string]struct{}{
		"code":          {},
		"code_recharge": {},
		"recharge_code": {},
		"authorization": {},
	}
)

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskText masks every 20 digit recharge code found in free text.
func MaskText(value string) string {
	return rechargeCodeRe.ReplaceAllStringFunc(value, MaskSecret)
}

// MaskPayload returns a copy of the input where sensitive keys are redacted
// and recharge codes embedded in other strings are masked.
func MaskPayload(input map[string]any) map[string]any {
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
			if s, isString := value.(string); isString {
				masked[trimmedKey] = MaskSecret(s)
				continue
			}
		}
		masked[trimmedKey] = maskValue(value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskText(cast)
	case map[string]any:
		return MaskPayload(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	default:
		return value
	}
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
