package legco

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// disallowedPattern matches every character outside the free-text allow-list:
// letters, digits, underscore, whitespace, and - . , ( ) [ ] ' " &.
var disallowedPattern = regexp.MustCompile(`[^\w\s\-.,()\[\]'"&]`)

// SanitizeText cleans a free-text parameter for safe embedding in an OData
// filter expression: disallowed characters are stripped, surrounding
// whitespace trimmed, single quotes doubled, and the result capped at maxLen
// bytes. Interior whitespace is preserved so the query builder can split the
// value into independent search words.
//
// The function is idempotent: already-doubled quotes are collapsed before
// re-escaping, so sanitizing twice yields the same string. The cap never
// splits an escaped quote pair; a cut landing between the two halves backs
// off one byte so no lone quote survives.
func SanitizeText(s string, maxLen int) string {
	if s == "" {
		return s
	}
	s = disallowedPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "''", "'")
	s = strings.ReplaceAll(s, "'", "''")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
		run := 0
		for run < len(s) && s[len(s)-1-run] == '\'' {
			run++
		}
		if run%2 == 1 {
			s = s[:len(s)-1]
		}
	}
	return s
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
// The round-trip through formatting rejects values like 2024-2-3 that parse
// but do not match the canonical layout.
func ValidDate(s string) bool {
	t, err := time.Parse(dateLayout, s)
	return err == nil && t.Format(dateLayout) == s
}
