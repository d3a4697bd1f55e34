package log

import (
	"regexp"
	"strings"
)

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|dehashed[_-]?api[_-]?key)\b"?\s*[:=]\s*"?[^\s"',}]+`)
)

// Redact removes secret-bearing substrings from free text such as upstream
// error bodies. It is safe to call on any string.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return out
}

// Snippet returns Redact(s) trimmed and truncated to max bytes.
func Snippet(s string, max int) string {
	s = strings.TrimSpace(Redact(s))
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
