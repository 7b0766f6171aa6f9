package service

import (
	"math"

	"github.com/noah-isme/class-points-api/internal/models"
)

// SummarizeWeek folds chronologically ordered day scores into a class-week summary.
func SummarizeWeek(classID string, week models.DateRange, days []models.DayScore) models.ClassWeekSummary {
	summary := models.ClassWeekSummary{
		ClassID:   classID,
		WeekStart: week.From.Format(models.DateLayout),
		WeekEnd:   week.To.Format(models.DateLayout),
		Days:      days,
	}

	totals := make(map[string]int)
	var quizSum float64
	var quizCount int
	for _, day := range days {
		summary.TotalPoints += day.Total
		if day.FullSubmission {
			summary.FullSubmissionDays++
		}
		summary.CompletedTasks += day.CompletedTasks
		summary.TotalTasks += day.TotalTasks
		quizSum += day.QuizScoreSum
		quizCount += day.QuizScoreCount
		for id, p := range day.StudentPoints {
			totals[id] += p
		}
	}

	streak := ComputeStreak(days)
	summary.MaxStreak = streak.Max
	summary.CurrentStreak = streak.Current

	if summary.TotalTasks > 0 {
		summary.CompletionPercent = int(math.Round(float64(summary.CompletedTasks) / float64(summary.TotalTasks) * 100))
	}
	if quizCount > 0 {
		avg := math.Round(quizSum/float64(quizCount)*100) / 100
		summary.QuizAverage = &avg
	}
	summary.Students = TopPerformers(totals, 0)
	return summary
}
