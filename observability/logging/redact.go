package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// sensitiveFragments match attribute keys case-insensitively.
var sensitiveFragments = []string{
	"secret",
	"token",
	"password",
	"passphrase",
	"authorization",
	"dsn",
	"privkey",
}

// IsSensitive reports whether values logged under key are masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// MaskValue returns RedactedValue for non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

func redact(attr slog.Attr) slog.Attr {
	if !IsSensitive(attr.Key) {
		return attr
	}
	switch attr.Value.Kind() {
	case slog.KindGroup:
		return attr
	case slog.KindString:
		return slog.String(attr.Key, MaskValue(attr.Value.String()))
	default:
		return slog.String(attr.Key, RedactedValue)
	}
}
