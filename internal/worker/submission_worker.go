package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
)

// SubmissionWorker drains the submission queue and persists records to
// PostgreSQL in batches. Grading already happened in the session
// engine; this path is write-only.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	repo *repository.SubmissionRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		repo: repository.NewSubmissionRepository(pool),
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled, then flushes the
// remaining batch.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	batch := make([]*service.SubmissionPayload, 0, SubmissionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SubmissionBatchSize || time.Since(lastFlush) >= SubmissionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SubmissionPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.SubmissionPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*service.SubmissionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk submission upsert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
	}
}

// bulkUpsert writes the whole batch with one UNNEST statement. The
// (test_id, student_id) conflict target makes a retake overwrite its
// earlier record.
func (w *SubmissionWorker) bulkUpsert(ctx context.Context, batch []*service.SubmissionPayload) error {
	n := len(batch)

	testIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	answers := make([][]byte, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	timeTakens := make([]int, 0, n)
	forceds := make([]bool, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		tID, err := uuid.Parse(p.TestID)
		if err != nil {
			return err
		}
		rawAnswers, err := json.Marshal(p.Answers)
		if err != nil {
			return err
		}
		testIDs = append(testIDs, tID)
		students = append(students, p.StudentID)
		answers = append(answers, rawAnswers)
		scores = append(scores, p.Score)
		totals = append(totals, p.TotalScore)
		timeTakens = append(timeTakens, p.TimeTakenSeconds)
		forceds = append(forceds, p.Forced)
		submittedAts = append(submittedAts, p.SubmittedAt)
	}

	query := `
		INSERT INTO submissions (test_id, student_id, answers, score, total_score, time_taken_seconds, forced, submitted_at)
		SELECT u.test_id, u.student_id, u.answers, u.score, u.total_score, u.time_taken_seconds, u.forced, u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::jsonb[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::bool[],
			$8::timestamptz[]
		) AS u (test_id, student_id, answers, score, total_score, time_taken_seconds, forced, submitted_at)
		ON CONFLICT (test_id, student_id) DO UPDATE
		SET answers = EXCLUDED.answers,
		    score = EXCLUDED.score,
		    total_score = EXCLUDED.total_score,
		    time_taken_seconds = EXCLUDED.time_taken_seconds,
		    forced = EXCLUDED.forced,
		    submitted_at = EXCLUDED.submitted_at
	`

	_, err := w.pool.Exec(ctx, query, testIDs, students, answers, scores, totals, timeTakens, forceds, submittedAts)
	return err
}

func (w *SubmissionWorker) persistSingle(ctx context.Context, p *service.SubmissionPayload) error {
	tID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}

	score, total := p.Score, p.TotalScore
	sub := &model.TestSubmission{
		TestID:           p.TestID,
		StudentID:        p.StudentID,
		Answers:          p.Answers,
		TimeTakenSeconds: p.TimeTakenSeconds,
		Score:            &score,
		TotalScore:       &total,
		SubmittedAt:      p.SubmittedAt,
		Forced:           p.Forced,
	}
	return w.repo.Upsert(ctx, tID, sub)
}
