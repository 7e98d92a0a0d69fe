package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session errors.
var (
	ErrTestNotAvailable = errors.New("test is not available right now")
	ErrSessionNotFound  = errors.New("no active session for this test")
)

// SubmissionPayload is the queue message handed to the submission
// persistence worker.
type SubmissionPayload struct {
	TestID           string    `json:"test_id"`
	StudentID        int       `json:"student_id"`
	Answers          []*string `json:"answers"`
	Score            int       `json:"score"`
	TotalScore       int       `json:"total_score"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Forced           bool      `json:"forced"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// IntegrityPayload is the queue message for recorded lockdown events.
type IntegrityPayload struct {
	TestID     string    `json:"test_id"`
	StudentID  int       `json:"student_id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SessionEvents are the callbacks a connected client registers to
// receive pushes. Detached sessions keep running; events are dropped.
type SessionEvents struct {
	OnWarning func(minutesLeft int)
	OnGraded  func(sub *model.TestSubmission, result engine.ScoreResult, forced bool)
}

// SessionService owns the live attempt registry. One engine.Session per
// (test, student) pair; the session survives a dropped WebSocket and is
// resumed on reconnect.
type SessionService struct {
	testService *TestService
	subjectRepo *repository.SubjectRepository
	rdb         *redis.Client
	store       storage.KV
	log         zerolog.Logger

	mu        sync.Mutex
	sessions  map[string]*engine.Session
	listeners map[string]*SessionEvents
}

// NewSessionService creates a SessionService. The durable store is the
// Redis-backed fallback store so a Redis outage degrades a session to
// in-memory persistence instead of failing it.
func NewSessionService(
	testService *TestService,
	subjectRepo *repository.SubjectRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		testService: testService,
		subjectRepo: subjectRepo,
		rdb:         rdb,
		store:       storage.NewFallbackStore(storage.NewRedisStore(rdb), log),
		log:         log.With().Str("component", "session_service").Logger(),
		sessions:    make(map[string]*engine.Session),
		listeners:   make(map[string]*SessionEvents),
	}
}

func sessionKey(testID string, studentID int) string {
	return fmt.Sprintf("%s:%d", testID, studentID)
}

// studentStore namespaces the shared durable store per student, so the
// test_<id>_<field> key convention cannot collide across students.
func (s *SessionService) studentStore(studentID int) storage.KV {
	return storage.NewPrefixStore(fmt.Sprintf("student:%d:", studentID), s.store)
}

// StartSession begins or resumes an attempt. Resuming an in-flight
// session returns the same engine.Session so a reload keeps the clock,
// answers and statuses.
func (s *SessionService) StartSession(ctx context.Context, testID uuid.UUID, studentID int) (*engine.Session, error) {
	key := sessionKey(testID.String(), studentID)

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		s.log.Debug().Str("session", key).Msg("Resuming live session")
		return existing, nil
	}
	s.mu.Unlock()

	test, err := s.testService.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.Status != model.TestStatusPublished {
		return nil, ErrTestNotPublished
	}

	avail := engine.CheckAvailability(time.Now(), test.ScheduledStart, test.ScheduledEnd)
	if avail.Status == engine.AvailabilityInvalid {
		s.log.Warn().
			Str("test_id", testID.String()).
			Msg("Test schedule is invalid, allowing start anyway")
	}
	if !avail.IsAvailable {
		return nil, ErrTestNotAvailable
	}

	questions, err := s.testService.ListQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	catalog, err := s.subjectRepo.ListNames(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Subject catalog unavailable, grouping by question tags")
		catalog = nil
	}

	sess, err := engine.NewSession(engine.SessionConfig{
		TestID:         testID.String(),
		StudentID:      studentID,
		Questions:      questions,
		DurationText:   test.DurationText,
		SubjectCatalog: catalog,
		Store:          s.studentStore(studentID),
		Log:            s.log,
		OnWarning: func(minutesLeft int) {
			s.notifyWarning(key, minutesLeft)
		},
		OnSubmit: func(sub *model.TestSubmission, forced bool) {
			s.onSubmitted(key, sub, forced)
		},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		// Lost the race to a concurrent start; keep the first session.
		s.mu.Unlock()
		sess.Teardown()
		return existing, nil
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	startedAt := time.Now().UTC().Format(time.RFC3339)
	if err := s.rdb.Set(ctx, config.CacheKey.StudentSessionStartKey(testID.String(), studentID), startedAt, 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("session", key).Msg("Could not record session start")
	}

	sess.Start(context.Background())
	s.log.Info().Str("session", key).Int("questions", len(questions)).Msg("Session started")
	return sess, nil
}

// Get returns the live session for a (test, student) pair.
func (s *SessionService) Get(testID string, studentID int) (*engine.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(testID, studentID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Attach registers push callbacks for a live session. Only one client
// receives pushes at a time; a reconnect replaces the previous one.
func (s *SessionService) Attach(testID string, studentID int, events *SessionEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[sessionKey(testID, studentID)] = events
}

// Detach removes the push callbacks of a disconnected client. The
// session itself keeps running.
func (s *SessionService) Detach(testID string, studentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, sessionKey(testID, studentID))
}

// ReportIntegrity forwards a lockdown event to the session guard and
// enqueues it for asynchronous persistence.
func (s *SessionService) ReportIntegrity(ctx context.Context, sess *engine.Session, evt engine.IntegrityEvent) engine.Directive {
	directive := sess.HandleIntegrity(evt)

	payload := IntegrityPayload{
		TestID:     sess.TestID(),
		StudentID:  sess.StudentID(),
		Event:      string(evt),
		OccurredAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	if err == nil {
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, raw).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Could not enqueue integrity event")
		}
	}
	return directive
}

// RecordedSubmission reads a student's durable store record for a test,
// reconstructing a partial record when the composite one is missing.
// The results view falls back to this while the persistence worker has
// not written the PostgreSQL row yet, or when enqueueing failed and the
// store holds the only copy. Nil means nothing is recoverable.
func (s *SessionService) RecordedSubmission(ctx context.Context, testID string, studentID int) *model.TestSubmission {
	recorder := engine.NewRecorder(s.studentStore(studentID), s.log)
	sub := recorder.Get(ctx, testID)
	if sub != nil {
		sub.StudentID = studentID
	}
	return sub
}

// Degraded reports whether the durable store has fallen back to memory.
// Surfaced to clients as a non-blocking "could not save" notice.
func (s *SessionService) Degraded() bool {
	if fb, ok := s.store.(*storage.FallbackStore); ok {
		return fb.Degraded()
	}
	return false
}

// notifyWarning pushes a time warning to the attached client, if any.
func (s *SessionService) notifyWarning(key string, minutesLeft int) {
	s.mu.Lock()
	events := s.listeners[key]
	s.mu.Unlock()

	if events != nil && events.OnWarning != nil {
		events.OnWarning(minutesLeft)
	}
}

// onSubmitted runs once per attempt: enqueues the submission for the
// persistence worker, notifies the client and retires the session.
func (s *SessionService) onSubmitted(key string, sub *model.TestSubmission, forced bool) {
	ctx := context.Background()

	payload := SubmissionPayload{
		TestID:           sub.TestID,
		StudentID:        sub.StudentID,
		Answers:          sub.Answers,
		TimeTakenSeconds: sub.TimeTakenSeconds,
		Forced:           sub.Forced,
		SubmittedAt:      sub.SubmittedAt,
	}
	if sub.Score != nil {
		payload.Score = *sub.Score
	}
	if sub.TotalScore != nil {
		payload.TotalScore = *sub.TotalScore
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("session", key).Msg("Marshal submission payload failed")
	} else if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("session", key).Msg("Could not enqueue submission, record kept in store only")
	}

	s.mu.Lock()
	sess := s.sessions[key]
	events := s.listeners[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if err := s.rdb.Del(ctx, config.CacheKey.StudentSessionStartKey(sub.TestID, sub.StudentID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("session", key).Msg("Could not clear session start key")
	}

	if events != nil && events.OnGraded != nil && sess != nil {
		if res := sess.Result(); res != nil {
			events.OnGraded(sub, *res, forced)
		}
	}

	s.log.Info().Str("session", key).Bool("forced", forced).Msg("Session retired")
}

// TeardownAll stops every live session without submitting, used on
// graceful shutdown.
func (s *SessionService) TeardownAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sess := range s.sessions {
		sess.Teardown()
		delete(s.sessions, key)
	}
}
