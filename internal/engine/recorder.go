package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/rs/zerolog"
)

// Recorder persists completed submissions in the durable key-value
// store under the test_<id>_<field> convention, and maintains the
// global completed-tests set that list views use to switch from
// "Start Test" to "View Solution".
type Recorder struct {
	store storage.KV
	log   zerolog.Logger
}

// NewRecorder creates a Recorder on the given store.
func NewRecorder(store storage.KV, log zerolog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.With().Str("component", "submission_recorder").Logger(),
	}
}

// Save persists a submission, overwriting any previous attempt for the
// same test id. The composite record and the independent score /
// totalscore / timetaken fields are written separately so a partial
// record can be reconstructed later. Returns false when any write
// failed; the submission itself is still usable in memory.
func (r *Recorder) Save(ctx context.Context, sub *model.TestSubmission) bool {
	ok := true
	key := config.StoreKey

	raw, err := json.Marshal(sub)
	if err != nil {
		r.log.Error().Err(err).Str("test_id", sub.TestID).Msg("Marshal submission failed")
		return false
	}
	if err := r.store.Set(ctx, key.SubmissionKey(sub.TestID), string(raw)); err != nil {
		r.log.Warn().Err(err).Str("test_id", sub.TestID).Msg("Could not save submission record")
		ok = false
	}

	if sub.Score != nil {
		if err := r.store.Set(ctx, key.ScoreKey(sub.TestID), strconv.Itoa(*sub.Score)); err != nil {
			ok = false
		}
	}
	if sub.TotalScore != nil {
		if err := r.store.Set(ctx, key.TotalScoreKey(sub.TestID), strconv.Itoa(*sub.TotalScore)); err != nil {
			ok = false
		}
	}
	if err := r.store.Set(ctx, key.TimeTakenKey(sub.TestID), strconv.Itoa(sub.TimeTakenSeconds)); err != nil {
		ok = false
	}

	if err := r.markCompleted(ctx, sub.TestID); err != nil {
		r.log.Warn().Err(err).Str("test_id", sub.TestID).Msg("Could not update completed tests set")
		ok = false
	}

	return ok
}

// Get returns the submission for a test id, reconstructing a partial
// record from the independently-stored fields when the composite record
// is missing. Never returns an error: nil means nothing is recoverable.
func (r *Recorder) Get(ctx context.Context, testID string) *model.TestSubmission {
	key := config.StoreKey

	if raw, err := r.store.Get(ctx, key.SubmissionKey(testID)); err == nil {
		var sub model.TestSubmission
		if err := json.Unmarshal([]byte(raw), &sub); err == nil {
			return &sub
		}
		r.log.Warn().Str("test_id", testID).Msg("Corrupt submission record, reconstructing")
	}

	// Best-effort reconstruction from independent fields.
	sub := &model.TestSubmission{TestID: testID}
	found := false

	if raw, err := r.store.Get(ctx, key.ScoreKey(testID)); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			sub.Score = &n
			found = true
		}
	}
	if raw, err := r.store.Get(ctx, key.TotalScoreKey(testID)); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			sub.TotalScore = &n
			found = true
		}
	}
	if raw, err := r.store.Get(ctx, key.TimeTakenKey(testID)); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			sub.TimeTakenSeconds = n
			sub.TimeTaken = SecondsToTimeObject(n)
			found = true
		}
	}

	if !found {
		return nil
	}
	return sub
}

// IsCompleted reports membership in the completed-tests set.
func (r *Recorder) IsCompleted(ctx context.Context, testID string) bool {
	for _, id := range r.CompletedTests(ctx) {
		if id == testID {
			return true
		}
	}
	return false
}

// CompletedTests returns every test id with a recorded submission.
func (r *Recorder) CompletedTests(ctx context.Context) []string {
	raw, err := r.store.Get(ctx, config.StoreKey.CompletedTestsKey())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.Warn().Err(err).Msg("Could not read completed tests set")
		}
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		r.log.Warn().Err(err).Msg("Corrupt completed tests set")
		return nil
	}
	return ids
}

func (r *Recorder) markCompleted(ctx context.Context, testID string) error {
	ids := r.CompletedTests(ctx)
	for _, id := range ids {
		if id == testID {
			return nil
		}
	}
	ids = append(ids, testID)
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, config.StoreKey.CompletedTestsKey(), string(raw))
}
