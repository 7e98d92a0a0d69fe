package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepline/testprep-backend/internal/model"
)

// QuestionRepository handles question data access. Options are stored
// as a JSONB column, mirroring the authored four-option structure.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions for a test, ordered by order_num.
// Subject grouping downstream depends on this ordering being stable.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, question_text, subject, options, image_url, solution,
		        marks, negative_marks, order_num
		 FROM questions WHERE test_id = $1
		 ORDER BY order_num, id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var rawOpts []byte
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.Subject, &rawOpts, &q.ImageURL,
			&q.Solution, &q.Marks, &q.NegativeMarks, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawOpts, &q.Options); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	rawOpts, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, question_text, subject, options, image_url, solution, marks, negative_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		q.TestID, q.Text, q.Subject, rawOpts, q.ImageURL, q.Solution,
		q.Marks, q.NegativeMarks, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceForTest atomically swaps a test's entire question set. Used by
// the bulk authoring endpoint so a half-written import never becomes
// visible to a session start.
func (r *QuestionRepository) ReplaceForTest(ctx context.Context, testID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID); err != nil {
		return err
	}

	if len(questions) > 0 {
		rows := make([][]any, 0, len(questions))
		for i := range questions {
			q := &questions[i]
			rawOpts, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			rows = append(rows, []any{
				testID, q.Text, q.Subject, rawOpts, q.ImageURL, q.Solution,
				q.Marks, q.NegativeMarks, q.OrderNum,
			})
		}

		// CopyFrom beats row-at-a-time inserts for large imports.
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"questions"},
			[]string{"test_id", "question_text", "subject", "options", "image_url", "solution", "marks", "negative_marks", "order_num"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a single question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// CountByTest returns the number of questions in a test.
func (r *QuestionRepository) CountByTest(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE test_id = $1`, testID).Scan(&n)
	return n, err
}
