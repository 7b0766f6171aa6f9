package service

import (
	"sort"

	"github.com/noah-isme/class-points-api/internal/models"
)

// RankClasses orders summaries by total points, breaking ties by class id,
// and assigns 1-based ranks. The input slice is left untouched.
func RankClasses(summaries []models.ClassWeekSummary) []models.RankedClass {
	ordered := make([]models.ClassWeekSummary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TotalPoints != ordered[j].TotalPoints {
			return ordered[i].TotalPoints > ordered[j].TotalPoints
		}
		return ordered[i].ClassID < ordered[j].ClassID
	})

	ranked := make([]models.RankedClass, len(ordered))
	for i, summary := range ordered {
		ranked[i] = models.RankedClass{Rank: i + 1, ClassWeekSummary: summary}
	}
	return ranked
}

// TopPerformers returns the n highest-scoring students, ties broken by id.
// A non-positive n returns every student.
func TopPerformers(points map[string]int, n int) []models.StudentPoints {
	students := make([]models.StudentPoints, 0, len(points))
	for id, p := range points {
		students = append(students, models.StudentPoints{StudentID: id, Points: p})
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Points != students[j].Points {
			return students[i].Points > students[j].Points
		}
		return students[i].StudentID < students[j].StudentID
	})
	if n > 0 && n < len(students) {
		students = students[:n]
	}
	return students
}
