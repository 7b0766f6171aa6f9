package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/dynamo/v2"

	"github.com/noah-isme/class-points-api/internal/models"
)

const dynamoBatchSize = 25

// submissionRow is one record in the Submissions table, partitioned per class-day.
type submissionRow struct {
	ClassDate   string     `dynamo:"class_date,hash"`
	StudentTask string     `dynamo:"student_task,range"`
	ID          string     `dynamo:"id"`
	StudentID   string     `dynamo:"student_id"`
	ClassID     string     `dynamo:"class_id"`
	Date        string     `dynamo:"date"`
	TaskID      string     `dynamo:"task_id"`
	Category    string     `dynamo:"category"`
	Status      string     `dynamo:"status"`
	Approved    *bool      `dynamo:"approved"`
	SubmittedAt *time.Time `dynamo:"submitted_at"`
	QuizScore   *float64   `dynamo:"quiz_score"`
	Outcome     *string    `dynamo:"outcome"`
	CreatedAt   time.Time  `dynamo:"created_at"`
}

type userRow struct {
	ID      string `dynamo:"uuid,hash"`
	ClassID string `dynamo:"class_id"`
	Role    string `dynamo:"role"`
}

// DynamoSubmissionRepository reads and writes submissions in DynamoDB.
type DynamoSubmissionRepository struct {
	submissions dynamo.Table
	users       dynamo.Table
	classIndex  string
}

// NewDynamoSubmissionRepository binds the repository to its tables.
func NewDynamoSubmissionRepository(db *dynamo.DB, submissionsTable, usersTable, classIndex string) *DynamoSubmissionRepository {
	return &DynamoSubmissionRepository{
		submissions: db.Table(submissionsTable),
		users:       db.Table(usersTable),
		classIndex:  classIndex,
	}
}

// LoadSubmissions queries each class-day partition of the week.
func (r *DynamoSubmissionRepository) LoadSubmissions(ctx context.Context, classID string, week models.DateRange) ([]models.SubmissionRecord, error) {
	records := make([]models.SubmissionRecord, 0)
	for _, date := range week.Dates() {
		var rows []submissionRow
		err := r.submissions.Get("class_date", classDateKey(classID, date)).All(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("query submissions for %s on %s: %w", classID, date, err)
		}
		for _, row := range rows {
			records = append(records, row.toModel())
		}
	}
	sortSubmissions(records)
	return records, nil
}

// EnrolledStudents queries the class index of the Users table.
func (r *DynamoSubmissionRepository) EnrolledStudents(ctx context.Context, classID string) ([]string, error) {
	var rows []userRow
	err := r.users.Get("class_id", classID).
		Index(r.classIndex).
		Filter("'role' = ?", "student").
		All(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("query students of %s: %w", classID, err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveSubmissions writes records in batches of 25. Items with the same keys overwrite earlier ones.
func (r *DynamoSubmissionRepository) SaveSubmissions(ctx context.Context, records []models.SubmissionRecord) error {
	for start := 0; start < len(records); start += dynamoBatchSize {
		end := start + dynamoBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := make([]interface{}, 0, end-start)
		for _, rec := range records[start:end] {
			batch = append(batch, newSubmissionRow(rec))
		}
		if _, err := r.submissions.Batch("class_date", "student_task").Write().Put(batch...).Run(ctx); err != nil {
			return fmt.Errorf("batch write submissions: %w", err)
		}
	}
	return nil
}

func classDateKey(classID, date string) string {
	return classID + "#" + date
}

func studentTaskKey(studentID, taskID string) string {
	return studentID + "#" + taskID
}

func newSubmissionRow(rec models.SubmissionRecord) submissionRow {
	return submissionRow{
		ClassDate:   classDateKey(rec.ClassID, rec.Date),
		StudentTask: studentTaskKey(rec.StudentID, rec.TaskID),
		ID:          rec.ID,
		StudentID:   rec.StudentID,
		ClassID:     rec.ClassID,
		Date:        rec.Date,
		TaskID:      rec.TaskID,
		Category:    string(rec.Category),
		Status:      string(rec.Status),
		Approved:    rec.Approved,
		SubmittedAt: rec.SubmittedAt,
		QuizScore:   rec.QuizScore,
		Outcome:     rec.Outcome,
		CreatedAt:   rec.CreatedAt,
	}
}

func (row submissionRow) toModel() models.SubmissionRecord {
	return models.SubmissionRecord{
		ID:          row.ID,
		StudentID:   row.StudentID,
		ClassID:     row.ClassID,
		Date:        row.Date,
		TaskID:      row.TaskID,
		Category:    models.Category(row.Category),
		Status:      models.SubmissionStatus(row.Status),
		Approved:    row.Approved,
		SubmittedAt: row.SubmittedAt,
		QuizScore:   row.QuizScore,
		Outcome:     row.Outcome,
		CreatedAt:   row.CreatedAt,
	}
}

func sortSubmissions(records []models.SubmissionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.TaskID < b.TaskID
	})
}
