package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/class-points-api/internal/dto"
	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

// SubmissionWriter persists submission records into the store.
type SubmissionWriter interface {
	SaveSubmissions(ctx context.Context, records []models.SubmissionRecord) error
}

type classCacheInvalidator interface {
	InvalidateClass(ctx context.Context, classID string)
}

// ActivityService records events and task submissions.
type ActivityService struct {
	writer      SubmissionWriter
	catalog     *OutcomeCatalog
	invalidator classCacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewActivityService constructs the service.
func NewActivityService(writer SubmissionWriter, catalog *OutcomeCatalog, invalidator classCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultOutcomeCatalog()
	}
	svc := &ActivityService{
		writer:      writer,
		catalog:     catalog,
		invalidator: invalidator,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
	svc.validator.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	})
	return svc
}

// RecordEvent writes one completed record per student for an event outcome.
func (s *ActivityService) RecordEvent(ctx context.Context, req dto.EventRequest) (*dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	category, _ := models.ParseCategory(req.Category)
	rule, err := s.lookupInput(category, req.Outcome)
	if err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "event"
	}
	taskID := fmt.Sprintf("%s-%s-%s-%s", category, req.ClassID, req.Date, subject)

	now := s.now().UTC()
	outcome := rule.Label
	approved := true
	records := make([]models.SubmissionRecord, 0, len(req.StudentIDs))
	for _, studentID := range uniqueIDs(req.StudentIDs) {
		records = append(records, models.SubmissionRecord{
			ID:          uuid.NewString(),
			StudentID:   studentID,
			ClassID:     req.ClassID,
			Date:        req.Date,
			TaskID:      taskID,
			Category:    category,
			Status:      models.SubmissionCompleted,
			Approved:    &approved,
			SubmittedAt: &now,
			Outcome:     &outcome,
			CreatedAt:   now,
		})
	}

	if err := s.save(ctx, req.ClassID, records); err != nil {
		return nil, err
	}
	s.logger.Info("event recorded",
		zap.String("class_id", req.ClassID),
		zap.String("task_id", taskID),
		zap.String("outcome", rule.Label),
		zap.Int("students", len(records)))
	return &dto.EventResponse{TaskID: taskID, Recorded: len(records), Outcome: rule}, nil
}

// RecordSubmission writes a single task interaction after validating it the
// same way the aggregator will.
func (s *ActivityService) RecordSubmission(ctx context.Context, req dto.SubmissionRequest) (*models.SubmissionRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	category, _ := models.ParseCategory(req.Category)
	now := s.now().UTC()
	rec := models.SubmissionRecord{
		ID:          uuid.NewString(),
		StudentID:   req.StudentID,
		ClassID:     req.ClassID,
		Date:        req.Date,
		TaskID:      req.TaskID,
		Category:    category,
		Status:      models.SubmissionStatus(req.Status),
		Approved:    req.Approved,
		SubmittedAt: req.SubmittedAt,
		QuizScore:   req.QuizScore,
		CreatedAt:   now,
	}
	if req.Outcome != nil && strings.TrimSpace(*req.Outcome) != "" {
		label := strings.TrimSpace(*req.Outcome)
		rec.Outcome = &label
	}
	if rec.SubmittedAt == nil && rec.Status == models.SubmissionCompleted {
		rec.SubmittedAt = &now
	}

	if err := ValidateSubmission(rec); err != nil {
		appErr := appErrors.FromError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErr.Message)
	}
	if _, _, err := s.catalog.Resolve(rec); err != nil {
		return nil, inputOutcomeError(err)
	}

	if err := s.save(ctx, rec.ClassID, []models.SubmissionRecord{rec}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *ActivityService) lookupInput(category models.Category, label string) (models.OutcomeRule, error) {
	rule, err := s.catalog.Lookup(category, strings.TrimSpace(label))
	if err != nil {
		return models.OutcomeRule{}, inputOutcomeError(err)
	}
	return rule, nil
}

func (s *ActivityService) save(ctx context.Context, classID string, records []models.SubmissionRecord) error {
	if err := s.writer.SaveSubmissions(ctx, records); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return appErrors.WrapAs(appErrors.ErrStorageUnavailable, err, "failed to store submissions")
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateClass(ctx, classID)
	}
	return nil
}

// inputOutcomeError downgrades an unknown outcome to a client error.
func inputOutcomeError(err error) error {
	appErr := appErrors.FromError(err)
	return appErrors.Wrap(err, appErr.Code, http.StatusBadRequest, appErr.Message)
}
