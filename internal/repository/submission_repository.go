package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-points-api/internal/models"
)

// SubmissionRepository reads and writes submission records in PostgreSQL.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// LoadSubmissions returns every record of classID within week, ordered by date, student and task.
func (r *SubmissionRepository) LoadSubmissions(ctx context.Context, classID string, week models.DateRange) ([]models.SubmissionRecord, error) {
	const query = `SELECT id, student_id, class_id, to_char(date, 'YYYY-MM-DD') AS date, task_id, category, status,
        approved, submitted_at, quiz_score, outcome, created_at
        FROM submissions WHERE class_id = $1 AND date BETWEEN $2 AND $3
        ORDER BY date ASC, student_id ASC, task_id ASC`
	records := make([]models.SubmissionRecord, 0)
	from := week.From.Format(models.DateLayout)
	to := week.To.Format(models.DateLayout)
	if err := r.db.SelectContext(ctx, &records, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("load submissions for %s: %w", classID, err)
	}
	return records, nil
}

// EnrolledStudents returns the current roster of classID.
func (r *SubmissionRepository) EnrolledStudents(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT id FROM users WHERE class_id = $1 AND role = 'student' ORDER BY id ASC`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list students of %s: %w", classID, err)
	}
	return ids, nil
}

// SaveSubmissions upserts records in one transaction. A record for the same
// class, day, student and task replaces the earlier one.
func (r *SubmissionRepository) SaveSubmissions(ctx context.Context, records []models.SubmissionRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submissions tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO submissions (id, student_id, class_id, date, task_id, category, status, approved, submitted_at, quiz_score, outcome, created_at)
VALUES (:id, :student_id, :class_id, :date, :task_id, :category, :status, :approved, :submitted_at, :quiz_score, :outcome, :created_at)
ON CONFLICT (class_id, date, student_id, task_id) DO UPDATE SET
    category = EXCLUDED.category,
    status = EXCLUDED.status,
    approved = EXCLUDED.approved,
    submitted_at = EXCLUDED.submitted_at,
    quiz_score = EXCLUDED.quiz_score,
    outcome = EXCLUDED.outcome`
	for _, rec := range records {
		if _, err = tx.NamedExecContext(ctx, query, rec); err != nil {
			return fmt.Errorf("save submission %s/%s: %w", rec.StudentID, rec.TaskID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit submissions: %w", err)
	}
	return nil
}
