package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepline/testprep-backend/internal/model"
)

// SubmissionResult joins a submission row with the student profile for
// the admin results listing.
type SubmissionResult struct {
	StudentID        int       `json:"student_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Score            int       `json:"score"`
	TotalScore       int       `json:"total_score"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Forced           bool      `json:"forced"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// SubmissionRepository handles durable submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Upsert writes a submission, replacing any earlier attempt by the same
// student on the same test. Retaking overwrites; the engine guarantees
// at most one record per live session.
func (r *SubmissionRepository) Upsert(ctx context.Context, testID uuid.UUID, sub *model.TestSubmission) error {
	rawAnswers, err := json.Marshal(sub.Answers)
	if err != nil {
		return err
	}

	score := 0
	if sub.Score != nil {
		score = *sub.Score
	}
	total := 0
	if sub.TotalScore != nil {
		total = *sub.TotalScore
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO submissions (test_id, student_id, answers, score, total_score, time_taken_seconds, forced, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (test_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     score = EXCLUDED.score,
		     total_score = EXCLUDED.total_score,
		     time_taken_seconds = EXCLUDED.time_taken_seconds,
		     forced = EXCLUDED.forced,
		     submitted_at = EXCLUDED.submitted_at`,
		testID, sub.StudentID, rawAnswers, score, total,
		sub.TimeTakenSeconds, sub.Forced, sub.SubmittedAt)
	return err
}

// GetByTestAndStudent retrieves one student's submission for a test.
func (r *SubmissionRepository) GetByTestAndStudent(ctx context.Context, testID uuid.UUID, studentID int) (*model.TestSubmission, error) {
	sub := &model.TestSubmission{TestID: testID.String(), StudentID: studentID}
	var rawAnswers []byte
	var score, total int

	err := r.pool.QueryRow(ctx,
		`SELECT answers, score, total_score, time_taken_seconds, forced, submitted_at
		 FROM submissions WHERE test_id = $1 AND student_id = $2`,
		testID, studentID,
	).Scan(&rawAnswers, &score, &total, &sub.TimeTakenSeconds, &sub.Forced, &sub.SubmittedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawAnswers, &sub.Answers); err != nil {
		return nil, err
	}
	sub.Score = &score
	sub.TotalScore = &total
	sub.TimeTaken = model.TimeObject{Minutes: sub.TimeTakenSeconds / 60, Seconds: sub.TimeTakenSeconds % 60}
	return sub, nil
}

// ListByTest retrieves all results for a test with pagination.
func (r *SubmissionRepository) ListByTest(ctx context.Context, testID uuid.UUID, limit, offset int) ([]SubmissionResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE test_id = $1`, testID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.student_id, st.name, st.email, s.score, s.total_score,
		        s.time_taken_seconds, s.forced, s.submitted_at
		 FROM submissions s
		 JOIN students st ON st.id = s.student_id
		 WHERE s.test_id = $1
		 ORDER BY s.score DESC, s.time_taken_seconds ASC
		 LIMIT $2 OFFSET $3`, testID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionResult
	for rows.Next() {
		var res SubmissionResult
		if err := rows.Scan(&res.StudentID, &res.Name, &res.Email, &res.Score, &res.TotalScore,
			&res.TimeTakenSeconds, &res.Forced, &res.SubmittedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// ListCompletedTestIDs returns the ids of tests a student has submitted.
// The lobby uses it to flip "Start Test" into "View Solution".
func (r *SubmissionRepository) ListCompletedTestIDs(ctx context.Context, studentID int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT test_id FROM submissions WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
