package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-points-api/internal/dto"
	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
	"github.com/noah-isme/class-points-api/pkg/response"
)

type activityService interface {
	RecordEvent(ctx context.Context, req dto.EventRequest) (*dto.EventResponse, error)
	RecordSubmission(ctx context.Context, req dto.SubmissionRequest) (*models.SubmissionRecord, error)
}

// ActivityHandler accepts event outcomes and task submissions.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service activityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// RecordEvent godoc
// @Summary Record an outcome for several students
// @Tags Activity
// @Accept json
// @Produce json
// @Param payload body dto.EventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *ActivityHandler) RecordEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.service.RecordEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RecordSubmission godoc
// @Summary Record one task submission
// @Tags Activity
// @Accept json
// @Produce json
// @Param payload body dto.SubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions [post]
func (h *ActivityHandler) RecordSubmission(c *gin.Context) {
	var req dto.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	record, err := h.service.RecordSubmission(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
