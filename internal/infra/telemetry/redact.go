package telemetry

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// FieldArgs carries redacted tool arguments.
const FieldArgs = "args"

const maxLoggedValue = 128

var sensitiveKeys = []string{
	"token",
	"secret",
	"password",
	"authorization",
	"api_key",
	"apikey",
	"cookie",
}

// ContainsSensitiveKey reports whether the key should be redacted.
func ContainsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range sensitiveKeys {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// RedactValue masks the value if the key is sensitive.
func RedactValue(key, value string) string {
	if ContainsSensitiveKey(key) {
		return "***"
	}
	return value
}

// RedactArgs renders tool arguments for logging with sensitive values masked
// and long values truncated.
func RedactArgs(args map[string]any) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for key, value := range args {
		out[key] = TruncateString(RedactValue(key, fmt.Sprint(value)), maxLoggedValue)
	}
	return out
}

// ArgsField returns a zap field with redacted tool arguments.
func ArgsField(args map[string]any) zap.Field {
	return zap.Any(FieldArgs, RedactArgs(args))
}

// TruncateString truncates the value to limit bytes and appends a suffix when needed.
func TruncateString(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
