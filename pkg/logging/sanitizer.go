// Package logging redacts credentials from strings before they reach the logs.
package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// "password":"xxx" inside JSON bodies echoed in errors
	jsonPasswordPattern = regexp.MustCompile(`(?i)"(password|password_hash)"\s*:\s*"[^"]*"`)

	// bcrypt hashes ($2a$10$...)
	bcryptPattern = regexp.MustCompile(`\$2[abxy]?\$\d{2}\$[./A-Za-z0-9]{53}`)

	// Bearer tokens and bare JWTs (three base64url segments)
	bearerPattern = regexp.MustCompile(`Bearer\s+\S+`)
	jwtPattern    = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)

	// user:pass@host in connection URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a database or Redis URL.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeError returns err's message with passwords, password hashes,
// tokens and connection credentials removed.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize applies every redaction to s.
func Sanitize(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = jsonPasswordPattern.ReplaceAllString(s, `"${1}":"`+RedactedText+`"`)
	s = bcryptPattern.ReplaceAllString(s, RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = jwtPattern.ReplaceAllString(s, RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
