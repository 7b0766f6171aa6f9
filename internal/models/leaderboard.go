package models

import "time"

// DayScore is one class's derived result for one calendar day.
type DayScore struct {
	ClassID        string         `json:"class_id"`
	Date           string         `json:"date"`
	ClassPoints    int            `json:"class_points"`
	Bonus          int            `json:"bonus"`
	Total          int            `json:"total"`
	FullSubmission bool           `json:"full_submission"`
	Enrolled       int            `json:"enrolled"`
	Submitted      int            `json:"submitted"`
	StudentPoints  map[string]int `json:"student_points"`
	CompletedTasks int            `json:"completed_tasks"`
	TotalTasks     int            `json:"total_tasks"`
	QuizScoreSum   float64        `json:"quiz_score_sum"`
	QuizScoreCount int            `json:"quiz_score_count"`
}

// StreakState tracks consecutive full-submission days.
type StreakState struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// StudentPoints is a student's point total within a class.
type StudentPoints struct {
	StudentID string `json:"student_id"`
	Points    int    `json:"points"`
}

// ClassWeekSummary aggregates one class over a week of school days.
type ClassWeekSummary struct {
	ClassID            string          `json:"class_id"`
	WeekStart          string          `json:"week_start"`
	WeekEnd            string          `json:"week_end"`
	TotalPoints        int             `json:"total_points"`
	FullSubmissionDays int             `json:"full_submission_days"`
	MaxStreak          int             `json:"max_streak"`
	CurrentStreak      int             `json:"current_streak"`
	CompletedTasks     int             `json:"completed_tasks"`
	TotalTasks         int             `json:"total_tasks"`
	CompletionPercent  int             `json:"completion_percent"`
	QuizAverage        *float64        `json:"quiz_average,omitempty"`
	Students           []StudentPoints `json:"students"`
	Days               []DayScore      `json:"days"`
}

// RankedClass is a summary with its leaderboard position.
type RankedClass struct {
	Rank int `json:"rank"`
	ClassWeekSummary
}

// ClassFailure annotates a class whose data could not be aggregated.
type ClassFailure struct {
	ClassID string `json:"class_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Leaderboard is the ranked weekly table plus any classes that failed.
type Leaderboard struct {
	WeekStart   string         `json:"week_start"`
	WeekEnd     string         `json:"week_end"`
	Entries     []RankedClass  `json:"entries"`
	Failures    []ClassFailure `json:"failures"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// DayBreakdown is one day of a class week, scored or annotated with an error.
type DayBreakdown struct {
	Date  string        `json:"date"`
	Score *DayScore     `json:"score,omitempty"`
	Error *ClassFailure `json:"error,omitempty"`
}
