package service

import (
	"strings"
	"time"

	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

// DailyAggregator turns one class-day of submission records into a DayScore.
type DailyAggregator struct {
	catalog *OutcomeCatalog
	bonus   int
}

// NewDailyAggregator constructs an aggregator that awards bonus on full-submission days.
func NewDailyAggregator(catalog *OutcomeCatalog, bonus int) *DailyAggregator {
	if catalog == nil {
		catalog = DefaultOutcomeCatalog()
	}
	return &DailyAggregator{catalog: catalog, bonus: bonus}
}

// AggregateDay scores classID on date. Records from students outside the
// roster earn points but never count toward full submission. A day with no
// enrolled students is never a full-submission day.
func (a *DailyAggregator) AggregateDay(classID, date string, enrolled []string, submissions []models.SubmissionRecord) (models.DayScore, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.DayScore{}, appErrors.Withf(appErrors.ErrMalformedRecord, "invalid day %q", date)
	}

	roster := make(map[string]struct{}, len(enrolled))
	points := make(map[string]int, len(enrolled))
	for _, id := range enrolled {
		roster[id] = struct{}{}
		points[id] = 0
	}

	day := models.DayScore{ClassID: classID, Date: date, Enrolled: len(roster)}
	submitted := make(map[string]struct{}, len(roster))

	for _, rec := range submissions {
		if err := ValidateSubmission(rec); err != nil {
			return models.DayScore{}, err
		}
		rec.Category, _ = models.ParseCategory(string(rec.Category))
		if rec.ClassID != classID || rec.Date != date {
			return models.DayScore{}, appErrors.Withf(appErrors.ErrMalformedRecord,
				"record %s belongs to %s on %s, not %s on %s", rec.TaskID, rec.ClassID, rec.Date, classID, date)
		}

		rule, ok, err := a.catalog.Resolve(rec)
		if err != nil {
			return models.DayScore{}, err
		}
		if ok {
			points[rec.StudentID] += rule.StudentPoints
			day.ClassPoints += rule.ClassPoints
		} else if _, known := points[rec.StudentID]; !known {
			points[rec.StudentID] = 0
		}

		day.TotalTasks++
		if rec.Status == models.SubmissionCompleted && rec.IsApproved() {
			day.CompletedTasks++
		}
		if rec.QuizScore != nil {
			day.QuizScoreSum += *rec.QuizScore
			day.QuizScoreCount++
		}
		if _, member := roster[rec.StudentID]; member {
			submitted[rec.StudentID] = struct{}{}
		}
	}

	day.Submitted = len(submitted)
	day.FullSubmission = len(roster) > 0 && len(submitted) == len(roster)
	if day.FullSubmission {
		day.Bonus = a.bonus
	}
	day.Total = day.ClassPoints + day.Bonus
	day.StudentPoints = points
	return day, nil
}

// ValidateSubmission rejects records the aggregator cannot score.
func ValidateSubmission(rec models.SubmissionRecord) error {
	switch {
	case strings.TrimSpace(rec.StudentID) == "":
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record %s has no student id", rec.TaskID)
	case strings.TrimSpace(rec.TaskID) == "":
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record for student %s has no task id", rec.StudentID)
	case !rec.Status.Valid():
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record %s has unknown status %q", rec.TaskID, rec.Status)
	}
	if _, err := time.Parse(models.DateLayout, rec.Date); err != nil {
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record %s has invalid date %q", rec.TaskID, rec.Date)
	}
	if _, ok := models.ParseCategory(string(rec.Category)); !ok {
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record %s has unknown category %q", rec.TaskID, rec.Category)
	}
	if rec.QuizScore != nil && (*rec.QuizScore < 0 || *rec.QuizScore > 100) {
		return appErrors.Withf(appErrors.ErrMalformedRecord, "record %s has quiz score %.2f outside 0-100", rec.TaskID, *rec.QuizScore)
	}
	return nil
}
