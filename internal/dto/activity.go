package dto

import (
	"time"

	"github.com/noah-isme/class-points-api/internal/models"
)

// EventRequest records one outcome for every listed student, as entered from
// the event entry form.
type EventRequest struct {
	Category   string   `json:"category" validate:"required,category"`
	ClassID    string   `json:"classId" validate:"required"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Subject    string   `json:"subject"`
	Outcome    string   `json:"outcome" validate:"required"`
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}

// EventResponse summarises what RecordEvent wrote.
type EventResponse struct {
	TaskID   string             `json:"taskId"`
	Recorded int                `json:"recorded"`
	Outcome  models.OutcomeRule `json:"outcome"`
}

// SubmissionRequest records a single task interaction.
type SubmissionRequest struct {
	StudentID   string     `json:"studentId" validate:"required"`
	ClassID     string     `json:"classId" validate:"required"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	TaskID      string     `json:"taskId" validate:"required"`
	Category    string     `json:"category" validate:"required,category"`
	Status      string     `json:"status" validate:"required,oneof=completed incomplete absent pending"`
	Approved    *bool      `json:"approved,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	QuizScore   *float64   `json:"quizScore,omitempty" validate:"omitempty,gte=0,lte=100"`
	Outcome     *string    `json:"outcome,omitempty"`
}
