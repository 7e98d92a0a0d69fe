package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepline/testprep-backend/internal/middleware"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/response"
	"github.com/prepline/testprep-backend/internal/service"
	"github.com/prepline/testprep-backend/internal/validator"
	"github.com/rs/zerolog"
)

// TestHandler handles admin test authoring endpoints.
type TestHandler struct {
	testService    *service.TestService
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService, submissionRepo *repository.SubmissionRepository, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		testService:    testService,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "test_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/admin/tests?page=&per_page=
func (h *TestHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	tests, pagination, err := h.testService.List(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("List tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// Create godoc
// POST /api/v1/admin/tests
func (h *TestHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test := &model.Test{
		Title:          req.Title,
		AuthorID:       claims.UserID,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		DurationText:   req.DurationText,
	}
	if err := h.testService.Create(c.Request.Context(), test); err != nil {
		h.log.Error().Err(err).Msg("Create test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// Get godoc
// GET /api/v1/admin/tests/:test_id
func (h *TestHandler) Get(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// Update godoc
// PUT /api/v1/admin/tests/:test_id
func (h *TestHandler) Update(c *gin.Context) {
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

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	existing, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.ScheduledStart != nil {
		existing.ScheduledStart = req.ScheduledStart
	}
	if req.ScheduledEnd != nil {
		existing.ScheduledEnd = req.ScheduledEnd
	}
	if req.DurationText != "" {
		existing.DurationText = req.DurationText
	}

	if err := h.testService.Update(c.Request.Context(), claims.UserID, existing); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": existing})
}

// Delete godoc
// DELETE /api/v1/admin/tests/:test_id
func (h *TestHandler) Delete(c *gin.Context) {
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

	if err := h.testService.Delete(c.Request.Context(), testID, claims.UserID); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/admin/tests/:test_id/publish
func (h *TestHandler) Publish(c *gin.Context) {
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

	if err := h.testService.Publish(c.Request.Context(), testID, claims.UserID); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "published"})
}

// Archive godoc
// POST /api/v1/admin/tests/:test_id/archive
func (h *TestHandler) Archive(c *gin.Context) {
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

	if err := h.testService.Archive(c.Request.Context(), testID, claims.UserID); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "archived"})
}

// ListQuestions godoc
// GET /api/v1/admin/tests/:test_id/questions
func (h *TestHandler) ListQuestions(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
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

// AddQuestion godoc
// POST /api/v1/admin/tests/:test_id/questions
func (h *TestHandler) AddQuestion(c *gin.Context) {
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

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := buildQuestion(testID, 0, req)
	// Leave placement to the service when no explicit order was given.
	question.OrderNum = req.OrderNum
	if err := h.testService.AddQuestion(c.Request.Context(), testID, claims.UserID, &question); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/tests/:test_id/questions/:question_id
func (h *TestHandler) DeleteQuestion(c *gin.Context) {
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
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.DeleteQuestion(c.Request.Context(), testID, claims.UserID, questionID); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/tests/:test_id/questions
// Swaps the entire question set of a draft test atomically.
func (h *TestHandler) ReplaceQuestions(c *gin.Context) {
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

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		questions = append(questions, buildQuestion(testID, i, qr))
	}

	if err := h.testService.ReplaceQuestions(c.Request.Context(), testID, claims.UserID, questions); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(questions)})
}

// Results godoc
// GET /api/v1/admin/tests/:test_id/results?page=&per_page=
func (h *TestHandler) Results(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	results, total, err := h.submissionRepo.ListByTest(c.Request.Context(), testID, perPage, (page-1)*perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("List results failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.SubmissionResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// failDomain maps service-level errors onto API error codes.
func (h *TestHandler) failDomain(c *gin.Context, err error) {
	switch err {
	case service.ErrNotTestAuthor:
		response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
	case service.ErrTestNotDraft:
		response.Fail(c, http.StatusConflict, response.ErrTestNotDraft)
	case service.ErrTestNotPublished:
		response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
	case service.ErrNoQuestions:
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case service.ErrNoCorrectOption:
		response.Fail(c, http.StatusConflict, response.ErrNoCorrectOption)
	default:
		h.log.Error().Err(err).Msg("Test operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// buildQuestion converts an authoring request into the stored model,
// applying the default marking scheme when unset.
func buildQuestion(testID uuid.UUID, index int, qr model.AddQuestionRequest) model.Question {
	marks := model.DefaultMarks
	if qr.Marks != nil {
		marks = *qr.Marks
	}
	negative := model.DefaultNegativeMarks
	if qr.NegativeMarks != nil {
		negative = *qr.NegativeMarks
	}
	orderNum := qr.OrderNum
	if orderNum == 0 {
		orderNum = index + 1
	}

	options := make([]model.Option, len(qr.Options))
	for i, o := range qr.Options {
		options[i] = model.Option{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect, ImageURL: o.ImageURL}
	}

	return model.Question{
		TestID:        testID,
		Text:          qr.Text,
		Subject:       qr.Subject,
		Options:       options,
		ImageURL:      qr.ImageURL,
		Solution:      qr.Solution,
		Marks:         marks,
		NegativeMarks: negative,
		OrderNum:      orderNum,
	}
}
