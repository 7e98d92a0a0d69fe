package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/rs/zerolog"
)

func intp(n int) *int { return &n }

func sampleSubmission(testID string, score int) *model.TestSubmission {
	return &model.TestSubmission{
		TestID:           testID,
		StudentID:        7,
		Answers:          []*string{strp("A"), nil, strp("C")},
		TimeTaken:        SecondsToTimeObject(754),
		TimeTakenSeconds: 754,
		Score:            intp(score),
		TotalScore:       intp(12),
		SubmittedAt:      time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
}

func TestRecorderSaveAndGet(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	if !rec.Save(ctx, sampleSubmission("mock-01", 3)) {
		t.Fatal("Save reported failure on healthy store")
	}

	got := rec.Get(ctx, "mock-01")
	if got == nil {
		t.Fatal("Get returned nil after Save")
	}
	if got.Score == nil || *got.Score != 3 {
		t.Fatalf("score = %v, want 3", got.Score)
	}
	if got.TimeTakenSeconds != 754 {
		t.Fatalf("time taken = %d, want 754", got.TimeTakenSeconds)
	}
	if len(got.Answers) != 3 || got.Answers[1] != nil {
		t.Fatalf("answers not round-tripped: %v", got.Answers)
	}
}

func TestRecorderOverwritesPreviousAttempt(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	rec.Save(ctx, sampleSubmission("mock-01", 3))
	rec.Save(ctx, sampleSubmission("mock-01", 8))

	got := rec.Get(ctx, "mock-01")
	if got == nil || got.Score == nil || *got.Score != 8 {
		t.Fatalf("latest attempt not kept: %+v", got)
	}

	// Re-saving must not duplicate the completed-set entry.
	ids := rec.CompletedTests(ctx)
	if len(ids) != 1 || ids[0] != "mock-01" {
		t.Fatalf("completed set = %v, want single mock-01", ids)
	}
}

func TestRecorderReconstructsPartialRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	// Only the independent fields survive, no composite record.
	key := config.StoreKey
	store.Set(ctx, key.ScoreKey("mock-02"), strconv.Itoa(5))
	store.Set(ctx, key.TimeTakenKey("mock-02"), strconv.Itoa(120))

	got := rec.Get(ctx, "mock-02")
	if got == nil {
		t.Fatal("reconstruction returned nil despite recoverable fields")
	}
	if got.Score == nil || *got.Score != 5 {
		t.Fatalf("score = %v, want 5", got.Score)
	}
	if got.TotalScore != nil {
		t.Fatalf("missing total should stay nil, got %v", *got.TotalScore)
	}
	if got.TimeTaken != (model.TimeObject{Minutes: 2, Seconds: 0}) {
		t.Fatalf("time taken = %+v, want 2:00", got.TimeTaken)
	}
}

func TestRecorderGetUnknownTest(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStore(), zerolog.Nop())

	if got := rec.Get(context.Background(), "nope"); got != nil {
		t.Fatalf("expected nil for unknown test, got %+v", got)
	}
	if rec.IsCompleted(context.Background(), "nope") {
		t.Fatal("unknown test reported completed")
	}
}

func TestRecorderCompletedSetAccumulates(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	rec.Save(ctx, sampleSubmission("mock-01", 3))
	rec.Save(ctx, sampleSubmission("mock-02", 6))

	ids := rec.CompletedTests(ctx)
	if len(ids) != 2 {
		t.Fatalf("completed set = %v, want two entries", ids)
	}
	if !rec.IsCompleted(ctx, "mock-01") || !rec.IsCompleted(ctx, "mock-02") {
		t.Fatal("membership check failed for saved tests")
	}
}
