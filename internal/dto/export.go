package dto

import "github.com/noah-isme/class-points-api/internal/models"

// ExportRequest captures POST /leaderboard/exports payload. An empty class
// list exports the configured default classes.
type ExportRequest struct {
	WeekStart string              `json:"weekStart" validate:"required,datetime=2006-01-02"`
	ClassIDs  []string            `json:"classIds" validate:"omitempty,dive,required"`
	Format    models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
