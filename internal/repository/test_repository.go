package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepline/testprep-backend/internal/model"
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, author_id, scheduled_start, scheduled_end,
        duration_text, question_count, status, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.Title, &t.AuthorID, &t.ScheduledStart, &t.ScheduledEnd,
		&t.DurationText, &t.QuestionCount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// ListPaginated retrieves tests filtered by author with pagination.
// Pass authorID=0 to list all tests.
func (r *TestRepository) ListPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Test, int, error) {
	countQuery := `SELECT COUNT(*) FROM tests`
	var countArgs []any
	if authorID > 0 {
		countQuery += ` WHERE author_id = $1`
		countArgs = append(countArgs, authorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + testColumns + ` FROM tests`
	var args []any
	argIdx := 1
	if authorID > 0 {
		query += ` WHERE author_id = $1`
		args = append(args, authorID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, *t)
	}
	return tests, total, rows.Err()
}

// ListPublished returns all PUBLISHED tests ordered by schedule, soonest
// first. Used by the student lobby and for cache prewarming on startup.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE status = $1
		 ORDER BY scheduled_start NULLS LAST, created_at DESC`, model.TestStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Create inserts a new test in DRAFT status.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, author_id, scheduled_start, scheduled_end, duration_text, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, question_count, created_at, updated_at`,
		t.Title, t.AuthorID, t.ScheduledStart, t.ScheduledEnd, t.DurationText, t.Status,
	).Scan(&t.ID, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt)
}

// Update rewrites the editable fields of a test.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, scheduled_start = $2, scheduled_end = $3,
		     duration_text = $4, updated_at = NOW()
		 WHERE id = $5`,
		t.Title, t.ScheduledStart, t.ScheduledEnd, t.DurationText, t.ID)
	return err
}

// UpdateStatus updates a test's status.
func (r *TestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// SyncQuestionCount recounts the test's questions after authoring changes.
func (r *TestRepository) SyncQuestionCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET question_count = (SELECT COUNT(*) FROM questions WHERE test_id = $1),
		     updated_at = NOW()
		 WHERE id = $1`, id)
	return err
}

// Delete removes a test; questions cascade at the schema level.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}
