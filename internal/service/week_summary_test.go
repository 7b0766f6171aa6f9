package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-points-api/internal/models"
)

func TestSummarizeWeekClassTenAScenario(t *testing.T) {
	agg := NewDailyAggregator(DefaultOutcomeCatalog(), 10)
	week, err := models.NewWeekRange("2024-09-02", 2)
	require.NoError(t, err)
	roster := []string{"s1", "s2"}

	monday, err := agg.AggregateDay("10-A", "2024-09-02", roster, []models.SubmissionRecord{
		homework("s1", "2024-09-02", "Completed on time"),
		homework("s2", "2024-09-02", "Completed on time"),
	})
	require.NoError(t, err)
	tuesday, err := agg.AggregateDay("10-A", "2024-09-03", roster, []models.SubmissionRecord{
		homework("s1", "2024-09-03", "Completed on time"),
	})
	require.NoError(t, err)

	summary := SummarizeWeek("10-A", week, []models.DayScore{monday, tuesday})

	assert.Equal(t, 14, monday.Total)
	assert.Equal(t, 2, tuesday.Total)
	assert.Equal(t, 16, summary.TotalPoints)
	assert.Equal(t, 1, summary.MaxStreak)
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Equal(t, 1, summary.FullSubmissionDays)
	assert.Equal(t, 100, summary.CompletionPercent)
	assert.Nil(t, summary.QuizAverage)
	assert.Equal(t, []models.StudentPoints{{StudentID: "s1", Points: 10}, {StudentID: "s2", Points: 5}}, summary.Students)
	assert.Equal(t, "2024-09-03", summary.WeekEnd)
}

func TestSummarizeWeekRatios(t *testing.T) {
	week, err := models.NewWeekRange("2024-09-02", 5)
	require.NoError(t, err)

	summary := SummarizeWeek("10-B", week, []models.DayScore{
		{CompletedTasks: 2, TotalTasks: 3, QuizScoreSum: 180, QuizScoreCount: 2},
		{CompletedTasks: 0, TotalTasks: 0},
		{CompletedTasks: 0, TotalTasks: 0, QuizScoreSum: 77.5, QuizScoreCount: 1},
	})

	assert.Equal(t, 67, summary.CompletionPercent)
	require.NotNil(t, summary.QuizAverage)
	assert.Equal(t, 85.83, *summary.QuizAverage)
}

func TestSummarizeWeekEmpty(t *testing.T) {
	week, err := models.NewWeekRange("2024-09-02", 5)
	require.NoError(t, err)

	summary := SummarizeWeek("9-A", week, nil)
	assert.Equal(t, 0, summary.TotalPoints)
	assert.Equal(t, 0, summary.CompletionPercent)
	assert.Empty(t, summary.Students)
}
