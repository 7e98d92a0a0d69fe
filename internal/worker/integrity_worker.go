package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	IntegrityBatchSize    = 100
	IntegrityBatchTimeout = 3 * time.Second
	IntegrityPollTimeout  = 1 * time.Second
)

// IntegrityWorker drains recorded lockdown events into PostgreSQL so
// staff can review them after the fact. Events are append-only.
type IntegrityWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewIntegrityWorker creates an IntegrityWorker.
func NewIntegrityWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *IntegrityWorker {
	return &IntegrityWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "integrity_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("IntegrityWorker started")

	batch := make([]*service.IntegrityPayload, 0, IntegrityBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= IntegrityBatchSize || time.Since(lastFlush) >= IntegrityBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, IntegrityPollTimeout, config.WorkerKey.PersistIntegrityQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.IntegrityPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *IntegrityWorker) flushSafe(ctx context.Context, batch []*service.IntegrityPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk integrity insert failed, requeueing batch")
		for _, p := range batch {
			raw, _ := json.Marshal(p)
			w.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, raw)
		}
	}
}

// bulkInsert streams the batch with CopyFrom; integrity events have no
// conflict target so the copy protocol applies.
func (w *IntegrityWorker) bulkInsert(ctx context.Context, batch []*service.IntegrityPayload) error {
	rows := make([][]any, 0, len(batch))
	for _, p := range batch {
		tID, err := uuid.Parse(p.TestID)
		if err != nil {
			w.log.Error().Str("test_id", p.TestID).Msg("Dropping event with invalid test id")
			continue
		}
		rows = append(rows, []any{tID, p.StudentID, p.Event, p.OccurredAt})
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"integrity_events"},
		[]string{"test_id", "student_id", "event", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}
