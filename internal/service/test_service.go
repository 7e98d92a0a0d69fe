package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNotTestAuthor    = errors.New("not the author of this test")
	ErrNoQuestions      = errors.New("test has no questions, cannot publish")
	ErrNoCorrectOption  = errors.New("every question must have exactly one correct option")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
)

// TestService handles test authoring, publication and Redis caching.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	subjectRepo  *repository.SubjectRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	subjectRepo *repository.SubjectRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		subjectRepo:  subjectRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// List retrieves tests, filtered by author when authorID > 0.
func (s *TestService) List(ctx context.Context, authorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	tests, total, err := s.testRepo.ListPaginated(ctx, authorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return tests, pagination, nil
}

// ListPublished returns all PUBLISHED tests for the student lobby.
func (s *TestService) ListPublished(ctx context.Context) ([]model.Test, error) {
	return s.testRepo.ListPublished(ctx)
}

// Create inserts a new test as DRAFT.
func (s *TestService) Create(ctx context.Context, test *model.Test) error {
	test.Status = model.TestStatusDraft
	return s.testRepo.Create(ctx, test)
}

// Update modifies an existing draft test.
func (s *TestService) Update(ctx context.Context, authorID int, test *model.Test) error {
	existing, err := s.testRepo.GetByID(ctx, test.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Update(ctx, test)
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// ReplaceQuestions swaps a draft test's question set and resyncs its
// question count.
func (s *TestService) ReplaceQuestions(ctx context.Context, testID uuid.UUID, authorID int, questions []model.Question) error {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.questionRepo.ReplaceForTest(ctx, testID, questions); err != nil {
		return err
	}
	return s.testRepo.SyncQuestionCount(ctx, testID)
}

// AddQuestion appends a single question to a draft test. An unset
// order number places it after the existing questions.
func (s *TestService) AddQuestion(ctx context.Context, testID uuid.UUID, authorID int, q *model.Question) error {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if q.OrderNum == 0 {
		count, err := s.questionRepo.CountByTest(ctx, testID)
		if err != nil {
			return err
		}
		q.OrderNum = count + 1
	}
	q.TestID = testID

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return err
	}
	return s.testRepo.SyncQuestionCount(ctx, testID)
}

// DeleteQuestion removes a single question from a draft test.
func (s *TestService) DeleteQuestion(ctx context.Context, testID uuid.UUID, authorID int, questionID uuid.UUID) error {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}
	return s.testRepo.SyncQuestionCount(ctx, testID)
}

// ListQuestions returns a test's full questions, grading data included.
func (s *TestService) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByTest(ctx, testID)
}

// Publish flips a draft test to PUBLISHED and warms the Redis cache.
// Publication is where authoring integrity is enforced: an empty test
// or a question without exactly one correct option never goes live.
func (s *TestService) Publish(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test published")
	return nil
}

// Archive retires a published test from the lobby.
func (s *TestService) Archive(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}
	return s.testRepo.UpdateStatus(ctx, testID, model.TestStatusArchived)
}

// WarmTestCache loads a test's payload, answer key and parsed duration
// from PostgreSQL into Redis. Core warming logic shared by Publish and
// PrewarmAllCaches.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	answerKey := make(map[string]interface{}, len(questions))
	for i := range questions {
		q := &questions[i]
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			s.log.Warn().
				Str("test_id", test.ID.String()).
				Str("question_id", q.ID.String()).
				Int("correct_options", correct).
				Msg("Question fails one-correct-option check")
			return ErrNoCorrectOption
		}
		answerKey[q.ID.String()] = q.CorrectOption()
	}

	catalog, err := s.subjectRepo.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}

	durationSeconds := engine.ParseDurationToSeconds(test.DurationText)

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}
	payload := model.TestPayload{
		TestID:          test.ID,
		Title:           test.Title,
		DurationSeconds: durationSeconds,
		Subjects:        subjectsOf(questions, catalog),
		Questions:       studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	id := test.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(id), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.TestDurationKey(id), strconv.Itoa(durationSeconds), 0)
	pipe.Del(ctx, config.CacheKey.TestAnswerKey(id))
	pipe.HSet(ctx, config.CacheKey.TestAnswerKey(id), answerKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", id).
		Int("questions", len(questions)).
		Int("duration_seconds", durationSeconds).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every published test into Redis on startup so
// the first session start never lazy-loads under load.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}
	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(tests)).Msg("Prewarming published tests...")

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(tests)).Msg("Prewarming complete")
	return nil
}

// GetTestPayload retrieves the cached student payload from Redis.
func (s *TestService) GetTestPayload(ctx context.Context, testID uuid.UUID) (*model.TestPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("test not published or payload not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the cached answer key (question id → letter).
func (s *TestService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKey(testID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return result, nil
}

// subjectsOf resolves each question's subject against the catalog and
// returns the display-ordered subject list the payload carries.
func subjectsOf(questions []model.Question, catalog []string) []string {
	known := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		known[c] = true
	}

	present := make(map[string]bool)
	uncategorized := false
	for i := range questions {
		subject := questions[i].Subject
		if len(catalog) > 0 && !known[subject] {
			uncategorized = true
			continue
		}
		present[subject] = true
	}

	var out []string
	if len(catalog) == 0 {
		seen := make(map[string]bool)
		for i := range questions {
			if s := questions[i].Subject; !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out
	}
	for _, c := range catalog {
		if present[c] {
			out = append(out, c)
		}
	}
	if uncategorized {
		out = append(out, model.SubjectUncategorized)
	}
	return out
}
