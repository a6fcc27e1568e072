package logging

import (
	"net/url"
	"regexp"
)

const (
	// MaxBodyLogLength is the maximum length of an upstream response body to log
	MaxBodyLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings and query strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|secret)=[^;&\s]+`)

	// Pattern to match bearer JWTs (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match a bare JWT, e.g. the token cookie value
	bareJWTPattern = regexp.MustCompile(`eyJ[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key|token)=[A-Za-z0-9-_.]{20,}`)

	// Pattern to match URL credentials (user:pass@host format)
	userInfoPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// sensitiveParams are query parameters whose values never reach the logs.
var sensitiveParams = []string{"token", "access_token", "api_key", "apikey", "key", "password", "secret"}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error from the remote API, storage or chat backends.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText removes tokens, keys and passwords from free text.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = bareJWTPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = userInfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeURL strips credentials and sensitive query values from a URL.
// Unparseable input falls back to text sanitisation.
func SanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return SanitizeText(raw)
	}
	if u.User != nil {
		u.User = url.User(RedactedText)
	}

	q := u.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, RedactedText)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
