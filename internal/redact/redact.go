// Package redact provides utilities for sanitizing error text before it is
// persisted on task records or returned in API responses. It strips
// credentials, connection strings, and API keys from messages and bounds
// their length so verbose provider stack traces never reach users or
// grow storage without limit.
package redact

import (
	"regexp"

	"github.com/lingoshop/lingoshop-api/internal/domain"
)

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns
var (
	// Database and service connection strings
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|mysql|mongodb|redis|db|database|connection)://[^@\s]+@`)

	// Credentials and tokens
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// JWT token pattern - matches the standard three-part base64url-encoded format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	patterns = []*regexp.Regexp{dbConnRegex, passwordRegex, apiKeyRegex, jwtTokenRegex}

	patternPlaceholders = map[*regexp.Regexp]string{
		dbConnRegex:   RedactedCredentialPlaceholder,
		passwordRegex: RedactedCredentialPlaceholder,
		apiKeyRegex:   RedactedKeyPlaceholder,
		jwtTokenRegex: "[REDACTED_JWT]",
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		result = pattern.ReplaceAllString(result, patternPlaceholders[pattern])
	}

	return result
}

// Error redacts sensitive information from an error's Error() output.
// Returns an empty string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Truncate bounds a message to domain.MaxErrorLength runes.
func Truncate(msg string) string {
	return TruncateN(msg, domain.MaxErrorLength)
}

// TruncateN bounds a message to at most n runes.
func TruncateN(msg string, n int) string {
	runes := []rune(msg)
	if len(runes) <= n {
		return msg
	}
	return string(runes[:n])
}

// TaskError sanitizes and truncates an error for persistence on a task
// record: redacted first, then bounded to domain.MaxErrorLength.
func TaskError(err error) string {
	return Truncate(Error(err))
}
