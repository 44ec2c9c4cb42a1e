// Package spider loads the Spider 1.0 dev-set benchmark questions:
// dev.json entries trimmed to the fields this core consumes, assigned
// stable zero-padded question ids.
package spider

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spiderbench/evalcore/pkg/models"
)

// Question is one Spider dev-set question, trimmed to the fields the
// benchmark core consumes per spec.md §9.
type Question struct {
	ID         string
	Database   string
	Text       string
	GoldSQL    string
	Difficulty models.Difficulty
}

// rawQuestion mirrors one dev.json entry. Fields the core does not use
// (question_toks, sql, query_toks, ...) are left unmapped by omission.
type rawQuestion struct {
	DBID     string `json:"db_id"`
	Question string `json:"question"`
	Query    string `json:"query"`
	Hardness string `json:"hardness"`
}

var hardnessToDifficulty = map[string]models.Difficulty{
	"easy":   models.DifficultyEasy,
	"medium": models.DifficultyMedium,
	"hard":   models.DifficultyHard,
	"extra":  models.DifficultyExtra,
}

// Load reads a dev.json file and returns its questions in file order,
// each assigned a stable "dev_%04d" id.
func Load(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spider dataset %q: %w", path, err)
	}

	var raw []rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse spider dataset %q: %w", path, err)
	}

	questions := make([]Question, len(raw))
	for i, r := range raw {
		questions[i] = Question{
			ID:         fmt.Sprintf("dev_%04d", i+1),
			Database:   r.DBID,
			Text:       r.Question,
			GoldSQL:    r.Query,
			Difficulty: hardnessToDifficulty[r.Hardness],
		}
	}
	return questions, nil
}

// Filter returns the subset of questions whose database is in allowlist
// (or all questions, if allowlist is empty), capped at limit questions
// (or unbounded, if limit is nil or <= 0).
func Filter(questions []Question, allowlist []string, limit *int) []Question {
	var allowed map[string]bool
	if len(allowlist) > 0 {
		allowed = make(map[string]bool, len(allowlist))
		for _, db := range allowlist {
			allowed[db] = true
		}
	}

	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if allowed != nil && !allowed[q.Database] {
			continue
		}
		out = append(out, q)
		if limit != nil && *limit > 0 && len(out) >= *limit {
			break
		}
	}
	return out
}
