package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/class-points-api/internal/dto"
	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

type memorySubmissionWriter struct {
	saved []models.SubmissionRecord
	err   error
}

func (m *memorySubmissionWriter) SaveSubmissions(_ context.Context, records []models.SubmissionRecord) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, records...)
	return nil
}

type recordingInvalidator struct {
	classes []string
}

func (r *recordingInvalidator) InvalidateClass(_ context.Context, classID string) {
	r.classes = append(r.classes, classID)
}

func newTestActivityService(writer SubmissionWriter, inv classCacheInvalidator) *ActivityService {
	svc := NewActivityService(writer, DefaultOutcomeCatalog(), inv, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestRecordEventWritesOneRecordPerStudent(t *testing.T) {
	writer := &memorySubmissionWriter{}
	inv := &recordingInvalidator{}
	svc := newTestActivityService(writer, inv)

	resp, err := svc.RecordEvent(context.Background(), dto.EventRequest{
		Category:   "team-noncurricular",
		ClassID:    "class-10-A",
		Date:       "2024-09-02",
		Subject:    "football",
		Outcome:    "Team Won 1st Place",
		StudentIDs: []string{"s1", "s2", "s1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "noncurr-team-class-10-A-2024-09-02-football", resp.TaskID)
	assert.Equal(t, 2, resp.Recorded)
	assert.Equal(t, 10, resp.Outcome.StudentPoints)
	require.Len(t, writer.saved, 2)
	for _, rec := range writer.saved {
		assert.Equal(t, models.CategoryTeamNonCurricular, rec.Category)
		assert.Equal(t, models.SubmissionCompleted, rec.Status)
		assert.Equal(t, "Team Won 1st Place", rec.OutcomeLabel())
		assert.NotEmpty(t, rec.ID)
	}
	assert.Equal(t, []string{"class-10-A"}, inv.classes)
}

func TestRecordEventDefaultsSubject(t *testing.T) {
	writer := &memorySubmissionWriter{}
	svc := newTestActivityService(writer, nil)

	resp, err := svc.RecordEvent(context.Background(), dto.EventRequest{
		Category:   "participation",
		ClassID:    "class-9-A",
		Date:       "2024-09-03",
		Outcome:    "Active Participation",
		StudentIDs: []string{"s9"},
	})
	require.NoError(t, err)
	assert.Equal(t, "participation-class-9-A-2024-09-03-event", resp.TaskID)
}

func TestRecordEventUnknownOutcomeIsClientError(t *testing.T) {
	writer := &memorySubmissionWriter{}
	svc := newTestActivityService(writer, nil)

	_, err := svc.RecordEvent(context.Background(), dto.EventRequest{
		Category:   "homework",
		ClassID:    "class-9-A",
		Date:       "2024-09-03",
		Outcome:    "Won 1st Place",
		StudentIDs: []string{"s9"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnknownOutcome))
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, writer.saved)
}

func TestRecordEventValidation(t *testing.T) {
	svc := newTestActivityService(&memorySubmissionWriter{}, nil)

	tests := []dto.EventRequest{
		{Category: "sports", ClassID: "c", Date: "2024-09-02", Outcome: "Participated", StudentIDs: []string{"s1"}},
		{Category: "homework", ClassID: "c", Date: "02-09-2024", Outcome: "Not submitted", StudentIDs: []string{"s1"}},
		{Category: "homework", ClassID: "c", Date: "2024-09-02", Outcome: "Not submitted"},
		{Category: "homework", Date: "2024-09-02", Outcome: "Not submitted", StudentIDs: []string{"s1"}},
	}
	for _, req := range tests {
		_, err := svc.RecordEvent(context.Background(), req)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), "request %+v", req)
	}
}

func TestRecordSubmission(t *testing.T) {
	writer := &memorySubmissionWriter{}
	inv := &recordingInvalidator{}
	svc := newTestActivityService(writer, inv)

	rec, err := svc.RecordSubmission(context.Background(), dto.SubmissionRequest{
		StudentID: "s1",
		ClassID:   "class-10-B",
		Date:      "2024-09-02",
		TaskID:    "quiz-algebra",
		Category:  "quiz",
		Status:    "completed",
		QuizScore: floatPtr(88),
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryQuiz, rec.Category)
	require.NotNil(t, rec.SubmittedAt)
	assert.Nil(t, rec.Outcome)
	assert.Len(t, writer.saved, 1)
	assert.Equal(t, []string{"class-10-B"}, inv.classes)
}

func TestRecordSubmissionRejectsBadInput(t *testing.T) {
	svc := newTestActivityService(&memorySubmissionWriter{}, nil)
	base := dto.SubmissionRequest{StudentID: "s1", ClassID: "c", Date: "2024-09-02", TaskID: "t", Category: "quiz", Status: "completed"}

	outOfRange := base
	outOfRange.QuizScore = floatPtr(101)
	_, err := svc.RecordSubmission(context.Background(), outOfRange)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badStatus := base
	badStatus.Status = "done"
	_, err = svc.RecordSubmission(context.Background(), badStatus)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badOutcome := base
	badOutcome.Outcome = strPtr("Late but done")
	_, err = svc.RecordSubmission(context.Background(), badOutcome)
	assert.True(t, errors.Is(err, appErrors.ErrUnknownOutcome))
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestRecordSubmissionStoreFailure(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := newTestActivityService(&memorySubmissionWriter{err: errors.New("timeout")}, inv)

	_, err := svc.RecordSubmission(context.Background(), dto.SubmissionRequest{
		StudentID: "s1", ClassID: "c", Date: "2024-09-02", TaskID: "t", Category: "homework", Status: "absent",
	})
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
	assert.Empty(t, inv.classes)
}
