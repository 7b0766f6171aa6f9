package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for submission dates.
const DateLayout = "2006-01-02"

// SubmissionStatus captures what happened to a task on a given day.
type SubmissionStatus string

const (
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionIncomplete SubmissionStatus = "incomplete"
	SubmissionAbsent     SubmissionStatus = "absent"
	SubmissionPending    SubmissionStatus = "pending"
)

// Valid reports whether the status is one of the known values.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionCompleted, SubmissionIncomplete, SubmissionAbsent, SubmissionPending:
		return true
	}
	return false
}

// SubmissionRecord is one student's interaction with one task on one day.
type SubmissionRecord struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	ClassID     string           `db:"class_id" json:"class_id"`
	Date        string           `db:"date" json:"date"`
	TaskID      string           `db:"task_id" json:"task_id"`
	Category    Category         `db:"category" json:"category"`
	Status      SubmissionStatus `db:"status" json:"status"`
	Approved    *bool            `db:"approved" json:"approved,omitempty"`
	SubmittedAt *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	QuizScore   *float64         `db:"quiz_score" json:"quiz_score,omitempty"`
	Outcome     *string          `db:"outcome" json:"outcome,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// IsApproved treats a missing approval flag as approved.
func (r SubmissionRecord) IsApproved() bool {
	return r.Approved == nil || *r.Approved
}

// OutcomeLabel returns the explicit outcome label, or "" when none is set.
func (r SubmissionRecord) OutcomeLabel() string {
	if r.Outcome == nil {
		return ""
	}
	return *r.Outcome
}

// DateRange is an inclusive run of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewWeekRange parses start and returns a range spanning days calendar days.
func NewWeekRange(start string, days int) (DateRange, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse week start %q: %w", start, err)
	}
	if days <= 0 {
		days = 1
	}
	return DateRange{From: from, To: from.AddDate(0, 0, days-1)}, nil
}

// Dates lists every day in the range in chronological order.
func (r DateRange) Dates() []string {
	var dates []string
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// Contains reports whether the formatted date falls within the range.
func (r DateRange) Contains(date string) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return !d.Before(r.From) && !d.After(r.To)
}
