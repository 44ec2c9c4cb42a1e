// Package judge implements EquivalenceJudge: exact-match SQL normalization
// and execution-match rowset comparison, per spec.md §4.9.
package judge

import (
	"regexp"
	"strings"
)

// keywords get canonicalized to upper case during the structural pass.
// Kept short and benchmark-relevant rather than exhaustive.
var keywords = []string{
	"select", "from", "where", "group by", "order by", "having", "join",
	"inner join", "left join", "right join", "on", "and", "or", "not",
	"in", "distinct", "count", "sum", "avg", "min", "max", "as", "limit",
	"asc", "desc", "union", "intersect", "except", "between", "like",
}

var trailingSemicolons = regexp.MustCompile(`;+\s*$`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// normalize applies the spec's documented fallback path: lowercase,
// collapse whitespace, strip trailing semicolons, strip a schema prefix
// equal to dbID, then (best-effort, no parser) re-uppercase known
// keywords so two queries differing only in keyword case compare equal.
//
// No dialect-aware SQL parser appears anywhere in the retrieval pack, so
// this lexical fallback is the primary path, not a degraded one — exactly
// as spec.md §4.9 permits when parsing is unavailable.
func normalize(sql, dbID string) string {
	s := strings.TrimSpace(sql)
	s = trailingSemicolons.ReplaceAllString(s, "")
	s = stripSchemaPrefix(s, dbID)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	return canonicalizeKeywords(s)
}

// stripSchemaPrefix removes a "{dbID}." or `{dbID}`. prefix immediately
// preceding an identifier, when it equals the target database — the
// open question resolved in DESIGN.md: the source sometimes emits
// schema-qualified identifiers while gold SQL does not.
func stripSchemaPrefix(sql, dbID string) string {
	if dbID == "" {
		return sql
	}
	patterns := []string{
		dbID + ".",
		"`" + dbID + "`.",
		`"` + dbID + `".`,
	}
	out := sql
	for _, p := range patterns {
		out = strings.ReplaceAll(out, p, "")
	}
	return out
}

// canonicalizeKeywords re-uppercases recognized SQL keywords found as
// whole words in an otherwise-lowercased string, giving two queries that
// differ only in keyword casing an identical normalized form without a
// full parse.
func canonicalizeKeywords(s string) string {
	words := strings.Split(s, " ")
	kwSet := make(map[string]string, len(keywords))
	for _, kw := range keywords {
		kwSet[kw] = strings.ToUpper(kw)
	}
	for i, w := range words {
		trimmed := strings.Trim(w, "(),")
		if up, ok := kwSet[trimmed]; ok {
			words[i] = strings.Replace(w, trimmed, up, 1)
		}
	}
	return strings.Join(words, " ")
}

// ExactMatch reports whether candidate and gold normalize to the same
// string under the target database's schema-prefix policy.
func ExactMatch(gold, candidate, dbID string) bool {
	if candidate == "" {
		return false
	}
	return normalize(gold, dbID) == normalize(candidate, dbID)
}
