package service

import (
	"context"
	"testing"

	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/rs/zerolog"
)

// The results view must be able to read a submission back from the
// durable store before the persistence worker has written the database
// row, and only from the owning student's namespace.
func TestRecordedSubmissionReadsStudentNamespace(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := &SessionService{store: store, log: zerolog.Nop()}

	score, total := 3, 12
	recorder := engine.NewRecorder(svc.studentStore(7), zerolog.Nop())
	recorder.Save(ctx, &model.TestSubmission{
		TestID:           "mock-01",
		StudentID:        7,
		Score:            &score,
		TotalScore:       &total,
		TimeTakenSeconds: 40,
	})

	sub := svc.RecordedSubmission(ctx, "mock-01", 7)
	if sub == nil {
		t.Fatal("expected a recorded submission, got nil")
	}
	if sub.Score == nil || *sub.Score != 3 {
		t.Errorf("Score = %v, want 3", sub.Score)
	}
	if sub.TotalScore == nil || *sub.TotalScore != 12 {
		t.Errorf("TotalScore = %v, want 12", sub.TotalScore)
	}
	if sub.TimeTakenSeconds != 40 {
		t.Errorf("TimeTakenSeconds = %d, want 40", sub.TimeTakenSeconds)
	}
	if sub.StudentID != 7 {
		t.Errorf("StudentID = %d, want 7", sub.StudentID)
	}

	if other := svc.RecordedSubmission(ctx, "mock-01", 8); other != nil {
		t.Errorf("student 8 read student 7's record: %+v", other)
	}
	if missing := svc.RecordedSubmission(ctx, "mock-02", 7); missing != nil {
		t.Errorf("unknown test returned a record: %+v", missing)
	}
}
