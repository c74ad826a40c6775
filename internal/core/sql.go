package core

import (
	"fmt"
	"strings"
)

// quoteIdentifier quotes a PostgreSQL identifier using double quotes.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// placeholder returns the PostgreSQL positional placeholder for index ($1, $2, ...).
func placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// numberPlaceholders rewrites the first n `?` markers in clause to positional
// placeholders starting at start. Conditions are accumulated with portable `?`
// markers and renumbered once at render time, so the same fragment works no
// matter where it lands in the final statement.
func numberPlaceholders(clause string, start, n int) string {
	for i := 0; i < n; i++ {
		clause = strings.Replace(clause, "?", placeholder(start+i), 1)
	}
	return clause
}
