package judge

import "testing"

func TestExactMatch_IgnoresCaseAndWhitespace(t *testing.T) {
	gold := "SELECT count(*) FROM singer"
	cand := "select   COUNT(*)   from singer;"
	if !ExactMatch(gold, cand, "world_1") {
		t.Fatalf("expected exact match")
	}
}

func TestExactMatch_StripsMatchingSchemaPrefix(t *testing.T) {
	gold := "SELECT name FROM singer"
	cand := "SELECT name FROM world_1.singer"
	if !ExactMatch(gold, cand, "world_1") {
		t.Fatalf("expected schema-prefix-stripped match")
	}
}

func TestExactMatch_DoesNotStripDifferentSchema(t *testing.T) {
	gold := "SELECT name FROM singer"
	cand := "SELECT name FROM other_db.singer"
	if ExactMatch(gold, cand, "world_1") {
		t.Fatalf("expected mismatch: candidate qualifies with a different schema")
	}
}

func TestExactMatch_EmptyCandidateNeverMatches(t *testing.T) {
	if ExactMatch("SELECT 1", "", "world_1") {
		t.Fatalf("empty candidate must not match")
	}
}

func TestExactMatch_DifferentQueriesDoNotMatch(t *testing.T) {
	gold := "SELECT count(*) FROM singer"
	cand := "SELECT name FROM singer"
	if ExactMatch(gold, cand, "world_1") {
		t.Fatalf("expected mismatch")
	}
}
