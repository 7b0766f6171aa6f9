package models

import "strings"

// Category identifies the kind of scored school activity.
type Category string

const (
	CategoryHomework                Category = "homework"
	CategoryQuiz                    Category = "quiz"
	CategoryAssignment              Category = "assignment"
	CategoryParticipation           Category = "participation"
	CategoryIndividualNonCurricular Category = "noncurr-individual"
	CategoryTeamNonCurricular       Category = "noncurr-team"
)

var categoryAliases = map[string]Category{
	"individual-noncurricular": CategoryIndividualNonCurricular,
	"team-noncurricular":       CategoryTeamNonCurricular,
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryHomework,
		CategoryQuiz,
		CategoryAssignment,
		CategoryParticipation,
		CategoryIndividualNonCurricular,
		CategoryTeamNonCurricular,
	}
}

// ParseCategory normalises a raw category id, accepting the long-form aliases.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := categoryAliases[raw]; ok {
		return alias, true
	}
	for _, c := range Categories() {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// OutcomeRule maps a (category, label) pair to its point deltas.
type OutcomeRule struct {
	Category      Category `json:"category" yaml:"-"`
	Label         string   `json:"label" yaml:"label"`
	StudentPoints int      `json:"student_points" yaml:"student"`
	ClassPoints   int      `json:"class_points" yaml:"class"`
}
