package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// Sanitizer masks query parameters before they reach the log, so secrets that
// pass through INSERT/UPDATE statements never end up in log storage. A
// statement is considered sensitive when its SQL text mentions any of the
// configured field names.
type Sanitizer struct {
	patterns []*regexp.Regexp
	mask     string
}

// defaultSensitiveFields covers common credential and secret column names.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "secret",
	"auth", "authorization",
	"private_key", "credit_card", "cvv", "ssn",
}

// NewSanitizer builds a sanitizer matching the given field names,
// case-insensitively on word boundaries. With no fields, a default set of
// common secret-bearing column names is used.
func NewSanitizer(fields []string) *Sanitizer {
	if len(fields) == 0 {
		fields = defaultSensitiveFields
	}
	patterns := make([]*regexp.Regexp, len(fields))
	for i, field := range fields {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(field) + `\b`)
	}
	return &Sanitizer{patterns: patterns, mask: "***REDACTED***"}
}

// MaskParams returns the parameters with every value replaced by the mask
// when the SQL text mentions a sensitive field. The original slice is not
// modified. Masking all parameters of a sensitive statement is deliberate:
// matching individual placeholders to columns would require parsing the SQL.
func (s *Sanitizer) MaskParams(sql string, params []any) []any {
	if len(params) == 0 || !s.sensitive(sql) {
		return params
	}
	masked := make([]any, len(params))
	for i := range params {
		masked[i] = s.mask
	}
	return masked
}

func (s *Sanitizer) sensitive(sql string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// FormatParams renders parameters as a single log-friendly string, truncating
// oversized values. Mask with MaskParams first.
func (s *Sanitizer) FormatParams(params []any) string {
	if len(params) == 0 {
		return "[]"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	str := fmt.Sprintf("%v", v)
	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
