package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/middleware"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/response"
	"github.com/prepline/testprep-backend/internal/service"
	"github.com/rs/zerolog"
)

// PortalHandler serves the student-facing test lobby and results.
type PortalHandler struct {
	testService    *service.TestService
	sessionService *service.SessionService
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	testService *service.TestService,
	sessionService *service.SessionService,
	submissionRepo *repository.SubmissionRepository,
	log zerolog.Logger,
) *PortalHandler {
	return &PortalHandler{
		testService:    testService,
		sessionService: sessionService,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "portal_handler").Logger(),
	}
}

// lobbyEntry is one test card in the student lobby.
type lobbyEntry struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	DurationText  string              `json:"duration_text"`
	QuestionCount int                 `json:"question_count"`
	Availability  engine.Availability `json:"availability"`
	Completed     bool                `json:"completed"`
}

// ListTests godoc
// GET /api/v1/student/tests
// Lists published tests with availability and a completed overlay, so
// the client can render "Start Test" vs "View Solution" per card.
func (h *PortalHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tests, err := h.testService.ListPublished(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List published tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	completed := make(map[uuid.UUID]bool)
	ids, err := h.submissionRepo.ListCompletedTestIDs(c.Request.Context(), claims.UserID)
	if err != nil {
		// The lobby still renders without the overlay.
		h.log.Warn().Err(err).Int("student_id", claims.UserID).Msg("Completed overlay unavailable")
	}
	for _, id := range ids {
		completed[id] = true
	}

	now := time.Now()
	entries := make([]lobbyEntry, 0, len(tests))
	for i := range tests {
		t := &tests[i]
		entries = append(entries, lobbyEntry{
			ID:            t.ID,
			Title:         t.Title,
			DurationText:  t.DurationText,
			QuestionCount: t.QuestionCount,
			Availability:  engine.CheckAvailability(now, t.ScheduledStart, t.ScheduledEnd),
			Completed:     completed[t.ID],
		})
	}

	response.Success(c, http.StatusOK, gin.H{"tests": entries})
}

// GetTest godoc
// GET /api/v1/student/tests/:test_id
// Returns the cached student payload (no correct answers).
func (h *PortalHandler) GetTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.testService.GetTestPayload(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotPublished)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// StartSession godoc
// POST /api/v1/student/tests/:test_id/start
// Starts (or resumes) a timed attempt and returns the initial state.
func (h *PortalHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.sessionService.StartSession(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		switch err {
		case service.ErrTestNotAvailable:
			response.Fail(c, http.StatusForbidden, response.ErrTestNotAvailable)
		case service.ErrTestNotPublished:
			response.Fail(c, http.StatusForbidden, response.ErrTestNotPublished)
		case engine.ErrNoQuestions:
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			h.log.Error().Err(err).Str("test_id", testID.String()).Msg("Start session failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":    sess.State(),
		"degraded": h.sessionService.Degraded(),
	})
}

// GetState godoc
// GET /api/v1/student/tests/:test_id/state
// Returns the live snapshot; used when the client reloads mid-attempt.
func (h *PortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sess, err := h.sessionService.Get(c.Param("test_id"), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotStarted)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":    sess.State(),
		"degraded": h.sessionService.Degraded(),
	})
}

// GetResult godoc
// GET /api/v1/student/tests/:test_id/result
// Returns the durable submission record for a completed test.
func (h *PortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// The worker persists rows asynchronously, so the durable store has
	// the record before PostgreSQL does (and keeps the only copy when
	// enqueueing failed). Fall back to it on a repository miss.
	sub, err := h.submissionRepo.GetByTestAndStudent(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		sub = h.sessionService.RecordedSubmission(c.Request.Context(), testID.String(), claims.UserID)
		if sub == nil {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
	}

	// The answer key lets the client paint right/wrong per question
	// without pulling the full solutions payload.
	answerKey, err := h.testService.GetAnswerKey(c.Request.Context(), testID)
	if err != nil {
		h.log.Debug().Err(err).Str("test_id", testID.String()).Msg("Answer key not cached")
		answerKey = nil
	}

	response.Success(c, http.StatusOK, gin.H{
		"submission": sub,
		"answer_key": answerKey,
	})
}

// GetSolutions godoc
// GET /api/v1/student/tests/:test_id/solutions
// Returns full questions with correct options and explanations, only
// after the student has submitted this test.
func (h *PortalHandler) GetSolutions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.submissionRepo.GetByTestAndStudent(c.Request.Context(), testID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
		return
	}

	questions, err := h.testService.ListQuestions(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}
