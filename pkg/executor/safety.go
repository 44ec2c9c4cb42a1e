package executor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spiderbench/evalcore/pkg/apperrors"
)

// forbiddenKeywords rejects any statement touching data or schema mutation.
var forbiddenKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|create|alter|truncate|grant|revoke)\b`)

// validateSafe rejects data-modifying/schema-modifying SQL and anything but
// a single statement. It runs before a connection is ever acquired.
func validateSafe(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", apperrors.ErrUnsafeQuery)
	}
	if forbiddenKeywords.MatchString(trimmed) {
		return fmt.Errorf("%w: data or schema mutating keyword detected", apperrors.ErrUnsafeQuery)
	}
	if countStatements(trimmed) > 1 {
		return fmt.Errorf("%w: multiple statements are not allowed", apperrors.ErrUnsafeQuery)
	}
	return nil
}

// countStatements does a lightweight statement-boundary scan: splits on
// top-level semicolons (outside quoted strings) and counts non-empty
// trailing fragments. A single trailing empty fragment (the statement's
// closing semicolon) is tolerated.
func countStatements(sql string) int {
	var stmts []string
	var b strings.Builder
	var inSingle, inDouble bool
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteByte(c)
		case c == ';' && !inSingle && !inDouble:
			stmts = append(stmts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if strings.TrimSpace(b.String()) != "" {
		stmts = append(stmts, b.String())
	}

	n := 0
	for _, s := range stmts {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
