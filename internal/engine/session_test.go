package engine

import (
	"context"
	"testing"

	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/rs/zerolog"
)

func newTestSession(t *testing.T, questions []model.Question) *Session {
	t.Helper()
	s, err := NewSession(SessionConfig{
		TestID:         "mock-01",
		StudentID:      7,
		Questions:      questions,
		DurationText:   "3 hours",
		SubjectCatalog: defaultCatalog,
		Store:          storage.NewMemoryStore(),
		Log:            zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func threeSubjectQuestions() []model.Question {
	return []model.Question{
		question("physics", "A"),     // 0
		question("physics", "B"),     // 1
		question("chemistry", "C"),   // 2
		question("mathematics", "D"), // 3
	}
}

func TestSessionRejectsEmptyQuestionSet(t *testing.T) {
	_, err := NewSession(SessionConfig{
		TestID:    "mock-01",
		StudentID: 7,
		Store:     storage.NewMemoryStore(),
		Log:       zerolog.Nop(),
	})
	if err != ErrNoQuestions {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestSessionSelectClearReviewFlow(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	if err := s.SelectOption(0, "A"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	st := s.State()
	if st.Statuses[0] != StatusAnswered {
		t.Fatalf("status after select = %s, want ANSWERED", st.Statuses[0])
	}
	if st.Answers[0] == nil || *st.Answers[0] != "A" {
		t.Fatalf("answer not recorded: %v", st.Answers[0])
	}

	if err := s.MarkForReview(0); err != nil {
		t.Fatalf("MarkForReview: %v", err)
	}
	if st = s.State(); st.Statuses[0] != StatusReviewWithAnswer {
		t.Fatalf("status = %s, want REVIEW_WITH_ANSWER", st.Statuses[0])
	}

	if err := s.ClearSelection(0); err != nil {
		t.Fatalf("ClearSelection: %v", err)
	}
	st = s.State()
	if st.Statuses[0] != StatusReview {
		t.Fatalf("status after clear = %s, want REVIEW", st.Statuses[0])
	}
	if st.Answers[0] != nil {
		t.Fatalf("answer survived clear: %v", *st.Answers[0])
	}
}

func TestSessionSelectValidatesInput(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	if err := s.SelectOption(0, "E"); err != ErrInvalidOpt {
		t.Fatalf("err = %v, want ErrInvalidOpt", err)
	}
	if err := s.SelectOption(99, "A"); err != ErrInvalidIndex {
		t.Fatalf("err = %v, want ErrInvalidIndex", err)
	}
	if err := s.Navigate(-1); err != ErrInvalidIndex {
		t.Fatalf("err = %v, want ErrInvalidIndex", err)
	}

	st := s.State()
	for i, status := range st.Statuses {
		if status != StatusNotVisited {
			t.Fatalf("invalid input mutated question %d to %s", i, status)
		}
	}
}

func TestSessionNavigateMarksVisited(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	if err := s.Navigate(1); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	st := s.State()
	if st.Statuses[0] != StatusUnanswered {
		t.Fatalf("left question status = %s, want UNANSWERED", st.Statuses[0])
	}
	if st.Statuses[1] != StatusNotVisited {
		t.Fatalf("target question status = %s, want NOT_VISITED until left", st.Statuses[1])
	}
	if st.Current != 1 {
		t.Fatalf("current = %d, want 1", st.Current)
	}
}

func TestSessionNavigateFollowsSubject(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	if err := s.Navigate(2); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if st := s.State(); st.ActiveSubject != "chemistry" {
		t.Fatalf("active subject = %q, want chemistry", st.ActiveSubject)
	}
}

func TestSessionSelectSubjectMovesToFirstQuestion(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	s.SelectSubject("mathematics")
	st := s.State()
	if st.ActiveSubject != "mathematics" {
		t.Fatalf("active subject = %q, want mathematics", st.ActiveSubject)
	}
	if st.Current != 3 {
		t.Fatalf("current = %d, want 3", st.Current)
	}
	// The question we left is now visited.
	if st.Statuses[0] != StatusUnanswered {
		t.Fatalf("left question status = %s, want UNANSWERED", st.Statuses[0])
	}
}

func TestSessionSubmitIdempotent(t *testing.T) {
	submits := 0
	s, err := NewSession(SessionConfig{
		TestID:         "mock-01",
		StudentID:      7,
		Questions:      threeSubjectQuestions(),
		DurationText:   "3 hours",
		SubjectCatalog: defaultCatalog,
		Store:          storage.NewMemoryStore(),
		Log:            zerolog.Nop(),
		OnSubmit:       func(*model.TestSubmission, bool) { submits++ },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.SelectOption(0, "A")

	first, created := s.Submit(context.Background(), false)
	if !created {
		t.Fatal("first submit should create the record")
	}
	second, created := s.Submit(context.Background(), true)
	if created {
		t.Fatal("second submit must not create a new record")
	}
	if first != second {
		t.Fatal("repeated submit returned a different record")
	}
	if submits != 1 {
		t.Fatalf("OnSubmit fired %d times, want 1", submits)
	}
	if first.Forced {
		t.Fatal("record should keep the first call's forced=false")
	}
}

func TestSessionForcedSubmitOnExpiry(t *testing.T) {
	var forcedSeen bool
	s, err := NewSession(SessionConfig{
		TestID:         "mock-01",
		StudentID:      7,
		Questions:      threeSubjectQuestions(),
		DurationText:   "1 minute",
		SubjectCatalog: defaultCatalog,
		Store:          storage.NewMemoryStore(),
		Log:            zerolog.Nop(),
		OnSubmit:       func(_ *model.TestSubmission, forced bool) { forcedSeen = forced },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.SelectOption(0, "A")

	// Drain the clock deterministically; the last tick submits.
	for i := 0; i < 60; i++ {
		s.Countdown().Tick()
	}

	if !s.Submitted() {
		t.Fatal("session not submitted after expiry")
	}
	if !forcedSeen {
		t.Fatal("expiry submission should be forced")
	}

	sub, created := s.Submit(context.Background(), false)
	if created {
		t.Fatal("manual submit after expiry must be a no-op")
	}
	if sub.TimeTakenSeconds != 60 {
		t.Fatalf("time taken = %d, want full 60s", sub.TimeTakenSeconds)
	}
}

func TestSessionOperationsAfterSubmitIgnored(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())
	s.Submit(context.Background(), false)

	if err := s.SelectOption(0, "A"); err != nil {
		t.Fatalf("post-submit select returned error: %v", err)
	}
	st := s.State()
	if st.Answers[0] != nil {
		t.Fatal("post-submit select mutated the answer sheet")
	}
	if !st.Submitted {
		t.Fatal("state should report submitted")
	}
}

func TestSessionGradesOnSubmit(t *testing.T) {
	s := newTestSession(t, threeSubjectQuestions())

	s.SelectOption(0, "A") // correct
	s.SelectOption(1, "C") // incorrect
	// 2, 3 unattempted

	sub, _ := s.Submit(context.Background(), false)
	if sub.Score == nil || *sub.Score != 3 {
		t.Fatalf("score = %v, want 3", sub.Score)
	}
	if sub.TotalScore == nil || *sub.TotalScore != 16 {
		t.Fatalf("total = %v, want 16", sub.TotalScore)
	}

	res := s.Result()
	if res == nil || res.Correct != 1 || res.Incorrect != 1 || res.Unattempted != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestSessionSubmissionPersisted(t *testing.T) {
	store := storage.NewMemoryStore()
	s, err := NewSession(SessionConfig{
		TestID:         "mock-01",
		StudentID:      7,
		Questions:      threeSubjectQuestions(),
		DurationText:   "3 hours",
		SubjectCatalog: defaultCatalog,
		Store:          store,
		Log:            zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	s.Submit(context.Background(), false)

	rec := NewRecorder(store, zerolog.Nop())
	if !rec.IsCompleted(context.Background(), "mock-01") {
		t.Fatal("submitted test missing from completed set")
	}
	if got := rec.Get(context.Background(), "mock-01"); got == nil {
		t.Fatal("submission record not readable back")
	}
}
