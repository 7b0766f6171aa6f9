package service

import (
	"errors"
	"os"
	"strconv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

func strPtr(s string) *string        { return &s }
func floatPtr(f float64) *float64    { return &f }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }

func TestOutcomeCatalogLookupIsDeterministic(t *testing.T) {
	catalog := DefaultOutcomeCatalog()
	rules := catalog.Rules()
	require.Len(t, rules, 28)

	for _, rule := range rules {
		for i := 0; i < 3; i++ {
			got, err := catalog.Lookup(rule.Category, rule.Label)
			require.NoError(t, err)
			assert.Equal(t, rule, got)
		}
	}

	rule, err := catalog.Lookup(models.CategoryQuiz, "Score 70–89%")
	require.NoError(t, err)
	assert.Equal(t, 7, rule.StudentPoints)
	assert.Equal(t, 3, rule.ClassPoints)
}

func TestOutcomeCatalogUnknownPair(t *testing.T) {
	catalog := DefaultOutcomeCatalog()

	_, err := catalog.Lookup(models.CategoryHomework, "Won 1st Place")
	assert.True(t, errors.Is(err, appErrors.ErrUnknownOutcome))

	_, err = catalog.Lookup(models.CategoryQuiz, "score 90%+")
	assert.True(t, errors.Is(err, appErrors.ErrUnknownOutcome))
}

func TestOutcomeCatalogSameLabelAcrossCategories(t *testing.T) {
	catalog := DefaultOutcomeCatalog()

	individual, err := catalog.Lookup(models.CategoryIndividualNonCurricular, "Participated")
	require.NoError(t, err)
	team, err := catalog.Lookup(models.CategoryTeamNonCurricular, "Participated")
	require.NoError(t, err)

	assert.Equal(t, 2, individual.ClassPoints)
	assert.Equal(t, 4, team.ClassPoints)
}

func TestNewOutcomeCatalogRejectsDuplicates(t *testing.T) {
	rules := append(DefaultOutcomeCatalog().Rules(), models.OutcomeRule{Category: models.CategoryQuiz, Label: "Below 50%", StudentPoints: 2})
	_, err := NewOutcomeCatalog(rules)
	assert.ErrorContains(t, err, "duplicate")
}

func TestNewOutcomeCatalogRequiresFallbackLabels(t *testing.T) {
	var rules []models.OutcomeRule
	for _, rule := range DefaultOutcomeCatalog().Rules() {
		if rule.Label == "Not submitted" {
			continue
		}
		rules = append(rules, rule)
	}
	_, err := NewOutcomeCatalog(rules)
	assert.ErrorContains(t, err, "homework/Not submitted")
}

func TestLoadOutcomeCatalogFromYAML(t *testing.T) {
	var doc string
	for _, category := range models.Categories() {
		doc += string(category) + ":\n"
		for _, rule := range DefaultOutcomeCatalog().Rules() {
			if rule.Category != category {
				continue
			}
			student := rule.StudentPoints
			if rule.Label == "Completed on time" {
				student = 6
			}
			doc += "  - label: \"" + rule.Label + "\"\n"
			doc += "    student: " + strconv.Itoa(student) + "\n"
			doc += "    class: " + strconv.Itoa(rule.ClassPoints) + "\n"
		}
	}
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	catalog, err := LoadOutcomeCatalog(path)
	require.NoError(t, err)

	rule, err := catalog.Lookup(models.CategoryHomework, "Completed on time")
	require.NoError(t, err)
	assert.Equal(t, 6, rule.StudentPoints)
	assert.Equal(t, DefaultOutcomeCatalog().Rules()[0].Label, catalog.Rules()[0].Label)
}

func TestLoadOutcomeCatalogAcceptsAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("individual-noncurricular:\n  - label: Participated\n    student: 1\n    class: 1\n"), 0o600))

	_, err := LoadOutcomeCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing fallback outcomes")
	assert.NotContains(t, err.Error(), "unknown category")
}

func TestLoadOutcomeCatalogMergesAliasAfterCanonicalKey(t *testing.T) {
	var doc string
	for _, category := range models.Categories() {
		doc += string(category) + ":\n"
		for _, rule := range DefaultOutcomeCatalog().Rules() {
			if rule.Category != category {
				continue
			}
			doc += "  - label: \"" + rule.Label + "\"\n"
			doc += "    student: " + strconv.Itoa(rule.StudentPoints) + "\n"
			doc += "    class: " + strconv.Itoa(rule.ClassPoints) + "\n"
		}
	}
	doc += "individual-noncurricular:\n  - label: \"Regional finalist\"\n    student: 8\n    class: 4\n"
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	first, err := LoadOutcomeCatalog(path)
	require.NoError(t, err)

	var individual []string
	for _, rule := range first.Rules() {
		if rule.Category == models.CategoryIndividualNonCurricular {
			individual = append(individual, rule.Label)
		}
	}
	require.NotEmpty(t, individual)
	assert.Equal(t, "Regional finalist", individual[len(individual)-1])

	for i := 0; i < 20; i++ {
		again, err := LoadOutcomeCatalog(path)
		require.NoError(t, err)
		assert.Equal(t, first.Rules(), again.Rules())
	}
}

func TestLoadOutcomeCatalogDefaultsWhenPathEmpty(t *testing.T) {
	catalog, err := LoadOutcomeCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOutcomeCatalog().Rules(), catalog.Rules())
}

func TestResolveFallbacks(t *testing.T) {
	catalog := DefaultOutcomeCatalog()
	sameDay := time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)
	nextDay := time.Date(2024, 9, 3, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rec     models.SubmissionRecord
		label   string
		applies bool
	}{
		{"homework on time", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionCompleted, SubmittedAt: timePtr(sameDay)}, "Completed on time", true},
		{"homework late", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionCompleted, SubmittedAt: timePtr(nextDay)}, "Late but done", true},
		{"homework not approved", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionCompleted, Approved: boolPtr(false)}, "", false},
		{"homework absent", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionAbsent}, "Marked absent", true},
		{"homework incomplete", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionIncomplete}, "Not submitted", true},
		{"quiz band", models.SubmissionRecord{Category: models.CategoryQuiz, Status: models.SubmissionCompleted, QuizScore: floatPtr(72)}, "Score 70–89%", true},
		{"quiz low band", models.SubmissionRecord{Category: models.CategoryQuiz, Status: models.SubmissionCompleted, QuizScore: floatPtr(49.9)}, "Below 50%", true},
		{"quiz no score", models.SubmissionRecord{Category: models.CategoryQuiz, Status: models.SubmissionCompleted}, "", false},
		{"quiz absent", models.SubmissionRecord{Category: models.CategoryQuiz, Status: models.SubmissionAbsent}, "Absent without reason", true},
		{"assignment late", models.SubmissionRecord{Category: models.CategoryAssignment, Status: models.SubmissionCompleted, SubmittedAt: timePtr(nextDay)}, "Late Submission", true},
		{"assignment incomplete", models.SubmissionRecord{Category: models.CategoryAssignment, Status: models.SubmissionIncomplete}, "Not Submitted", true},
		{"team no show", models.SubmissionRecord{Category: models.CategoryTeamNonCurricular, Status: models.SubmissionAbsent}, "Absent after selection", true},
		{"participation has no fallback", models.SubmissionRecord{Category: models.CategoryParticipation, Status: models.SubmissionCompleted}, "", false},
		{"pending scores zero", models.SubmissionRecord{Category: models.CategoryHomework, Status: models.SubmissionPending}, "", false},
		{"explicit label wins", models.SubmissionRecord{Category: models.CategoryAssignment, Status: models.SubmissionCompleted, Outcome: strPtr("Completed & Good Quality")}, "Completed & Good Quality", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.rec.Date = "2024-09-02"
			rule, ok, err := catalog.Resolve(tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.applies, ok)
			assert.Equal(t, tc.label, rule.Label)
		})
	}
}
