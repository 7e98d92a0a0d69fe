package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNoQuestions  = errors.New("test has no questions")
	ErrInvalidIndex = errors.New("invalid question index")
	ErrInvalidOpt   = errors.New("invalid option letter")
)

// SessionConfig carries everything a live attempt needs. The store is
// injected so tests can fake persistence and so a storage outage
// degrades instead of failing the attempt.
type SessionConfig struct {
	TestID    string
	StudentID int
	Questions []model.Question
	// DurationText is the authored duration string ("3 hours"); an
	// unparseable value falls back to the 3-hour default.
	DurationText string
	// SubjectCatalog lists recognized subject identifiers; empty
	// accepts any subject tag.
	SubjectCatalog []string
	Store          storage.KV
	Log            zerolog.Logger

	// OnWarning fires once at 5 and once at 1 minute remaining.
	OnWarning func(minutesLeft int)
	// OnSubmit fires exactly once per attempt, on both manual and
	// forced submission paths, after the record has been built.
	OnSubmit func(sub *model.TestSubmission, forced bool)
}

// Session owns all mutable state of one timed attempt: the answer
// sheet, the status tracker, the subject partitioner, the countdown and
// the integrity guard. All operations are serialized by one mutex; the
// countdown tick is the only non-user-triggered source of transitions.
type Session struct {
	mu sync.Mutex

	testID    string
	studentID int
	questions []model.Question
	answers   []*string
	tracker   *StatusTracker
	parts     *SubjectPartitioner
	countdown *Countdown
	guard     *Guard
	recorder  *Recorder

	durationSeconds int
	current         int
	submitted       bool
	submission      *model.TestSubmission
	result          *ScoreResult

	onSubmit func(*model.TestSubmission, bool)
	log      zerolog.Logger
}

// NewSession builds a session from a question set. Returns
// ErrNoQuestions for an empty set so callers can present the explicit
// empty state instead of crashing.
func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	log := cfg.Log.With().
		Str("component", "test_session").
		Str("test_id", cfg.TestID).
		Int("student_id", cfg.StudentID).
		Logger()

	duration := ParseDurationToSeconds(cfg.DurationText)
	if duration == DefaultDurationSeconds && cfg.DurationText != "" {
		log.Warn().Str("duration_text", cfg.DurationText).Msg("Duration text may be unparseable, using default")
	}

	s := &Session{
		testID:          cfg.TestID,
		studentID:       cfg.StudentID,
		questions:       cfg.Questions,
		answers:         make([]*string, len(cfg.Questions)),
		tracker:         NewStatusTracker(len(cfg.Questions), log),
		parts:           NewSubjectPartitioner(cfg.Questions, cfg.SubjectCatalog, log),
		guard:           NewGuard(log),
		recorder:        NewRecorder(cfg.Store, log),
		durationSeconds: duration,
		onSubmit:        cfg.OnSubmit,
		log:             log,
	}

	s.countdown = NewCountdown(duration, cfg.OnWarning, func() {
		// Timer hit zero: forced submission, no confirmation step.
		s.Submit(context.Background(), true)
	})

	// The first question of the active subject is current from the
	// start; it stays NOT_VISITED until the student moves off it.
	if view := s.parts.View(); len(view) > 0 {
		s.current = view[0]
	}

	return s, nil
}

// Start arms the integrity guard and launches the countdown. The
// countdown goroutine exits on submission, teardown or ctx cancel.
func (s *Session) Start(ctx context.Context) {
	s.guard.Arm()
	go s.countdown.Start(ctx)
	s.log.Info().Int("questions", len(s.questions)).Int("duration_seconds", s.durationSeconds).Msg("Session started")
}

// TestID returns the attempt's test id.
func (s *Session) TestID() string { return s.testID }

// StudentID returns the attempt's student id.
func (s *Session) StudentID() int { return s.studentID }

// Countdown exposes the attempt's clock (tests drive Tick directly).
func (s *Session) Countdown() *Countdown { return s.countdown }

// Guard exposes the integrity guard.
func (s *Session) Guard() *Guard { return s.guard }

// Recorder exposes the submission recorder.
func (s *Session) Recorder() *Recorder { return s.recorder }

// Navigate makes the question at fullIndex current. Moving off a
// never-answered NOT_VISITED question marks it UNANSWERED, and the
// active subject follows the target question.
func (s *Session) Navigate(fullIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil
	}
	if fullIndex < 0 || fullIndex >= len(s.questions) {
		s.log.Warn().Int("index", fullIndex).Msg("Navigate to invalid index ignored")
		return ErrInvalidIndex
	}
	if fullIndex == s.current {
		return nil
	}

	prev := s.current
	s.tracker.Transition(prev, NextStatus(s.tracker.Get(prev), ActionVisitAway, s.answers[prev] != nil))
	s.current = fullIndex
	s.parts.SetActive(s.parts.SubjectOf(fullIndex))
	return nil
}

// SelectOption records the chosen option letter for a question and
// synchronizes its status. Only the targeted index changes.
func (s *Session) SelectOption(fullIndex int, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil
	}
	if fullIndex < 0 || fullIndex >= len(s.questions) {
		s.log.Warn().Int("index", fullIndex).Msg("Select on invalid index ignored")
		return ErrInvalidIndex
	}
	if !validOption(option) {
		s.log.Warn().Str("option", option).Msg("Select with invalid option ignored")
		return ErrInvalidOpt
	}

	opt := option
	s.answers[fullIndex] = &opt
	s.tracker.Transition(fullIndex, NextStatus(s.tracker.Get(fullIndex), ActionSelect, true))
	return nil
}

// ClearSelection removes the chosen option for a question, moving it
// back to UNANSWERED or REVIEW depending on review state.
func (s *Session) ClearSelection(fullIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil
	}
	if fullIndex < 0 || fullIndex >= len(s.questions) {
		s.log.Warn().Int("index", fullIndex).Msg("Clear on invalid index ignored")
		return ErrInvalidIndex
	}

	s.answers[fullIndex] = nil
	s.tracker.Transition(fullIndex, NextStatus(s.tracker.Get(fullIndex), ActionClear, false))
	return nil
}

// MarkForReview flags a question for later revisit; the resulting
// status depends on whether an answer is currently selected.
func (s *Session) MarkForReview(fullIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil
	}
	if fullIndex < 0 || fullIndex >= len(s.questions) {
		s.log.Warn().Int("index", fullIndex).Msg("Review on invalid index ignored")
		return ErrInvalidIndex
	}

	s.tracker.Transition(fullIndex, NextStatus(s.tracker.Get(fullIndex), ActionReview, s.answers[fullIndex] != nil))
	return nil
}

// SelectSubject switches the active subject tab and moves to its first
// question.
func (s *Session) SelectSubject(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return
	}
	s.parts.SetActive(subject)
	if view := s.parts.View(); len(view) > 0 && view[0] != s.current {
		prev := s.current
		s.tracker.Transition(prev, NextStatus(s.tracker.Get(prev), ActionVisitAway, s.answers[prev] != nil))
		s.current = view[0]
	}
}

// HandleIntegrity forwards a lockdown event to the guard.
func (s *Session) HandleIntegrity(evt IntegrityEvent) Directive {
	return s.guard.Handle(evt)
}

// Submit ends the attempt: stops the clock, disarms the guard, grades
// the answer sheet and persists the record. Idempotent — the second and
// later calls (e.g. the timer firing exactly as the student clicks
// submit) return the already-built submission with created=false, and
// at most one submission record is ever produced.
func (s *Session) Submit(ctx context.Context, forced bool) (*model.TestSubmission, bool) {
	s.mu.Lock()
	if s.submitted {
		sub := s.submission
		s.mu.Unlock()
		return sub, false
	}
	s.submitted = true

	s.countdown.Stop()
	s.guard.Disarm()

	remaining := s.countdown.RemainingSeconds()
	taken := s.durationSeconds - remaining
	if taken < 0 {
		taken = 0
	}

	result := Score(s.questions, s.answers)
	s.result = &result

	answers := make([]*string, len(s.answers))
	copy(answers, s.answers)

	score := result.Score
	total := result.TotalScore
	sub := &model.TestSubmission{
		TestID:           s.testID,
		StudentID:        s.studentID,
		Answers:          answers,
		TimeTaken:        SecondsToTimeObject(taken),
		TimeTakenSeconds: taken,
		Score:            &score,
		TotalScore:       &total,
		SubmittedAt:      time.Now().UTC(),
		Forced:           forced,
	}
	s.submission = sub
	onSubmit := s.onSubmit
	s.mu.Unlock()

	if !s.recorder.Save(ctx, sub) {
		s.log.Warn().Str("test_id", s.testID).Msg("Submission not fully persisted, kept in memory")
	}
	s.log.Info().
		Bool("forced", forced).
		Int("score", score).
		Int("total_score", total).
		Int("time_taken_seconds", taken).
		Msg("Test submitted")

	if onSubmit != nil {
		onSubmit(sub, forced)
	}
	return sub, true
}

// Submitted reports whether the attempt has ended.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Result returns the grading result after submission, or nil before.
func (s *Session) Result() *ScoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Teardown stops the countdown and disarms the guard without
// submitting, e.g. when the client disconnects and may resume later.
func (s *Session) Teardown() {
	s.countdown.Stop()
	s.guard.Disarm()
	s.log.Debug().Msg("Session torn down")
}

// SessionState is the snapshot pushed to the client on connect/reload.
type SessionState struct {
	TestID           string           `json:"test_id"`
	Current          int              `json:"current"`
	ActiveSubject    string           `json:"active_subject"`
	Subjects         []string         `json:"subjects"`
	Answers          []*string        `json:"answers"`
	Statuses         []QuestionStatus `json:"statuses"`
	Counts           StatusCounts     `json:"counts"`
	TimeRemaining    model.TimeObject `json:"time_remaining"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Submitted        bool             `json:"submitted"`
	Empty            bool             `json:"empty"`
}

// State builds a consistent snapshot of the attempt.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]*string, len(s.answers))
	copy(answers, s.answers)

	remaining := s.countdown.Remaining()
	return SessionState{
		TestID:           s.testID,
		Current:          s.current,
		ActiveSubject:    s.parts.Active(),
		Subjects:         s.parts.Subjects(),
		Answers:          answers,
		Statuses:         s.tracker.Statuses(),
		Counts:           s.tracker.Counts(),
		TimeRemaining:    remaining,
		RemainingSeconds: TimeObjectToSeconds(remaining),
		Submitted:        s.submitted,
		Empty:            s.parts.Empty(),
	}
}

func validOption(opt string) bool {
	switch opt {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
