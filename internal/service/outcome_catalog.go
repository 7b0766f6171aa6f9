package service

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

// Outcome labels referenced by the status fallbacks.
const (
	labelHomeworkOnTime    = "Completed on time"
	labelHomeworkLate      = "Late but done"
	labelHomeworkAbsent    = "Marked absent"
	labelHomeworkMissing   = "Not submitted"
	labelQuizTop           = "Score 90%+"
	labelQuizHigh          = "Score 70–89%"
	labelQuizMid           = "Score 50–69%"
	labelQuizLow           = "Below 50%"
	labelQuizAbsent        = "Absent without reason"
	labelAssignmentOnTime  = "Completed Average"
	labelAssignmentLate    = "Late Submission"
	labelAssignmentMissing = "Not Submitted"
	labelIndividualNoShow  = "Absent after registering"
	labelTeamNoShow        = "Absent after selection"
)

var defaultOutcomeRules = []models.OutcomeRule{
	{Category: models.CategoryHomework, Label: labelHomeworkOnTime, StudentPoints: 5, ClassPoints: 2},
	{Category: models.CategoryHomework, Label: labelHomeworkLate, StudentPoints: 2, ClassPoints: 1},
	{Category: models.CategoryHomework, Label: labelHomeworkAbsent, StudentPoints: 0, ClassPoints: 0},
	{Category: models.CategoryHomework, Label: labelHomeworkMissing, StudentPoints: -3, ClassPoints: 0},

	{Category: models.CategoryQuiz, Label: labelQuizTop, StudentPoints: 10, ClassPoints: 5},
	{Category: models.CategoryQuiz, Label: labelQuizHigh, StudentPoints: 7, ClassPoints: 3},
	{Category: models.CategoryQuiz, Label: labelQuizMid, StudentPoints: 4, ClassPoints: 2},
	{Category: models.CategoryQuiz, Label: labelQuizLow, StudentPoints: 1, ClassPoints: 0},
	{Category: models.CategoryQuiz, Label: labelQuizAbsent, StudentPoints: -3, ClassPoints: 0},

	{Category: models.CategoryAssignment, Label: "Completed & Good Quality", StudentPoints: 12, ClassPoints: 5},
	{Category: models.CategoryAssignment, Label: labelAssignmentOnTime, StudentPoints: 8, ClassPoints: 4},
	{Category: models.CategoryAssignment, Label: labelAssignmentLate, StudentPoints: 5, ClassPoints: 2},
	{Category: models.CategoryAssignment, Label: labelAssignmentMissing, StudentPoints: -5, ClassPoints: 0},

	{Category: models.CategoryParticipation, Label: "Active Participation", StudentPoints: 5, ClassPoints: 2},
	{Category: models.CategoryParticipation, Label: "Passive/Attentive", StudentPoints: 2, ClassPoints: 1},
	{Category: models.CategoryParticipation, Label: "Distractive/Disengaged", StudentPoints: -2, ClassPoints: 0},

	{Category: models.CategoryIndividualNonCurricular, Label: "Participated", StudentPoints: 5, ClassPoints: 2},
	{Category: models.CategoryIndividualNonCurricular, Label: "Won 1st Place", StudentPoints: 15, ClassPoints: 5},
	{Category: models.CategoryIndividualNonCurricular, Label: "Won 2nd Place", StudentPoints: 10, ClassPoints: 4},
	{Category: models.CategoryIndividualNonCurricular, Label: "Won 3rd Place", StudentPoints: 7, ClassPoints: 3},
	{Category: models.CategoryIndividualNonCurricular, Label: "Special Mention", StudentPoints: 6, ClassPoints: 2},
	{Category: models.CategoryIndividualNonCurricular, Label: labelIndividualNoShow, StudentPoints: -3, ClassPoints: 0},

	{Category: models.CategoryTeamNonCurricular, Label: "Participated", StudentPoints: 4, ClassPoints: 4},
	{Category: models.CategoryTeamNonCurricular, Label: "Team Won 1st Place", StudentPoints: 10, ClassPoints: 6},
	{Category: models.CategoryTeamNonCurricular, Label: "Team Won 2nd/3rd Place", StudentPoints: 7, ClassPoints: 5},
	{Category: models.CategoryTeamNonCurricular, Label: "Team Lost", StudentPoints: 4, ClassPoints: 2},
	{Category: models.CategoryTeamNonCurricular, Label: "Player of the Match/Best X", StudentPoints: 8, ClassPoints: 3},
	{Category: models.CategoryTeamNonCurricular, Label: labelTeamNoShow, StudentPoints: -3, ClassPoints: 0},
}

// fallbackLabels lists every label the status fallbacks can produce. A custom
// catalog must define all of them.
var fallbackLabels = map[models.Category][]string{
	models.CategoryHomework:                {labelHomeworkOnTime, labelHomeworkLate, labelHomeworkAbsent, labelHomeworkMissing},
	models.CategoryQuiz:                    {labelQuizTop, labelQuizHigh, labelQuizMid, labelQuizLow, labelQuizAbsent},
	models.CategoryAssignment:              {labelAssignmentOnTime, labelAssignmentLate, labelAssignmentMissing},
	models.CategoryIndividualNonCurricular: {labelIndividualNoShow},
	models.CategoryTeamNonCurricular:       {labelTeamNoShow},
}

type outcomeKey struct {
	category models.Category
	label    string
}

// OutcomeCatalog is the immutable (category, label) to points table.
type OutcomeCatalog struct {
	rules   map[outcomeKey]models.OutcomeRule
	ordered []models.OutcomeRule
}

// NewOutcomeCatalog validates rules and builds a catalog from them.
func NewOutcomeCatalog(rules []models.OutcomeRule) (*OutcomeCatalog, error) {
	catalog := &OutcomeCatalog{
		rules:   make(map[outcomeKey]models.OutcomeRule, len(rules)),
		ordered: make([]models.OutcomeRule, 0, len(rules)),
	}
	for _, rule := range rules {
		category, ok := models.ParseCategory(string(rule.Category))
		if !ok {
			return nil, fmt.Errorf("outcome %q: unknown category %q", rule.Label, rule.Category)
		}
		rule.Category = category
		rule.Label = strings.TrimSpace(rule.Label)
		if rule.Label == "" {
			return nil, fmt.Errorf("category %s: outcome label is required", category)
		}
		key := outcomeKey{category: category, label: rule.Label}
		if _, exists := catalog.rules[key]; exists {
			return nil, fmt.Errorf("category %s: duplicate outcome %q", category, rule.Label)
		}
		catalog.rules[key] = rule
		catalog.ordered = append(catalog.ordered, rule)
	}

	var missing []string
	for _, category := range models.Categories() {
		for _, label := range fallbackLabels[category] {
			if _, ok := catalog.rules[outcomeKey{category: category, label: label}]; !ok {
				missing = append(missing, fmt.Sprintf("%s/%s", category, label))
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog is missing fallback outcomes: %s", strings.Join(missing, ", "))
	}
	return catalog, nil
}

// DefaultOutcomeCatalog returns the built-in school outcome table.
func DefaultOutcomeCatalog() *OutcomeCatalog {
	catalog, err := NewOutcomeCatalog(defaultOutcomeRules)
	if err != nil {
		panic(fmt.Sprintf("built-in outcome catalog: %v", err))
	}
	return catalog
}

// LoadOutcomeCatalog reads a YAML catalog keyed by category id:
//
//	homework:
//	  - label: Completed on time
//	    student: 5
//	    class: 2
//
// An empty path yields the built-in catalog.
func LoadOutcomeCatalog(path string) (*OutcomeCatalog, error) {
	if path == "" {
		return DefaultOutcomeCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read outcome catalog: %w", err)
	}

	var doc map[string][]models.OutcomeRule
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse outcome catalog %s: %w", path, err)
	}

	// Canonical keys load before aliases of the same category.
	keys := make([]string, 0, len(doc))
	for rawCategory := range doc {
		keys = append(keys, rawCategory)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := isCanonicalCategory(keys[i]), isCanonicalCategory(keys[j])
		if ci != cj {
			return ci
		}
		return keys[i] < keys[j]
	})

	byCategory := make(map[models.Category][]models.OutcomeRule, len(doc))
	for _, rawCategory := range keys {
		category, ok := models.ParseCategory(rawCategory)
		if !ok {
			return nil, fmt.Errorf("outcome catalog %s: unknown category %q", path, rawCategory)
		}
		for _, rule := range doc[rawCategory] {
			rule.Category = category
			byCategory[category] = append(byCategory[category], rule)
		}
	}

	var rules []models.OutcomeRule
	for _, category := range models.Categories() {
		rules = append(rules, byCategory[category]...)
	}
	return NewOutcomeCatalog(rules)
}

func isCanonicalCategory(raw string) bool {
	category, ok := models.ParseCategory(raw)
	return ok && string(category) == raw
}

// Lookup returns the rule registered for the pair.
func (c *OutcomeCatalog) Lookup(category models.Category, label string) (models.OutcomeRule, error) {
	rule, ok := c.rules[outcomeKey{category: category, label: label}]
	if !ok {
		return models.OutcomeRule{}, appErrors.Withf(appErrors.ErrUnknownOutcome, "unknown outcome %q for category %s", label, category)
	}
	return rule, nil
}

// Rules lists the catalog in a stable order.
func (c *OutcomeCatalog) Rules() []models.OutcomeRule {
	out := make([]models.OutcomeRule, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Resolve picks the rule that scores rec. The bool is false when the record
// carries no label and no status fallback applies, or when it is still
// pending, so it scores zero. A pending label must still exist in the catalog.
func (c *OutcomeCatalog) Resolve(rec models.SubmissionRecord) (models.OutcomeRule, bool, error) {
	label := rec.OutcomeLabel()
	if label == "" {
		label = fallbackLabel(rec)
		if label == "" {
			return models.OutcomeRule{}, false, nil
		}
	}
	rule, err := c.Lookup(rec.Category, label)
	if err != nil {
		return models.OutcomeRule{}, false, err
	}
	if rec.Status == models.SubmissionPending {
		return models.OutcomeRule{}, false, nil
	}
	return rule, true, nil
}

func fallbackLabel(rec models.SubmissionRecord) string {
	switch rec.Category {
	case models.CategoryHomework:
		switch rec.Status {
		case models.SubmissionCompleted:
			if !rec.IsApproved() {
				return ""
			}
			if submittedSameDay(rec) {
				return labelHomeworkOnTime
			}
			return labelHomeworkLate
		case models.SubmissionAbsent:
			return labelHomeworkAbsent
		case models.SubmissionIncomplete:
			return labelHomeworkMissing
		}
	case models.CategoryQuiz:
		switch rec.Status {
		case models.SubmissionCompleted:
			if rec.QuizScore == nil {
				return ""
			}
			return quizBand(*rec.QuizScore)
		case models.SubmissionAbsent:
			return labelQuizAbsent
		}
	case models.CategoryAssignment:
		switch rec.Status {
		case models.SubmissionCompleted:
			if !rec.IsApproved() {
				return ""
			}
			if submittedSameDay(rec) {
				return labelAssignmentOnTime
			}
			return labelAssignmentLate
		case models.SubmissionIncomplete:
			return labelAssignmentMissing
		}
	case models.CategoryIndividualNonCurricular:
		if rec.Status == models.SubmissionAbsent {
			return labelIndividualNoShow
		}
	case models.CategoryTeamNonCurricular:
		if rec.Status == models.SubmissionAbsent {
			return labelTeamNoShow
		}
	}
	return ""
}

func quizBand(score float64) string {
	switch {
	case score >= 90:
		return labelQuizTop
	case score >= 70:
		return labelQuizHigh
	case score >= 50:
		return labelQuizMid
	default:
		return labelQuizLow
	}
}

// submittedSameDay treats a missing timestamp as on time.
func submittedSameDay(rec models.SubmissionRecord) bool {
	if rec.SubmittedAt == nil {
		return true
	}
	return rec.SubmittedAt.UTC().Format(models.DateLayout) == rec.Date
}
