package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/response"
	"github.com/prepline/testprep-backend/internal/validator"
	"github.com/rs/zerolog"
)

// SubjectHandler handles the subject catalog endpoints.
type SubjectHandler struct {
	subjectRepo *repository.SubjectRepository
	log         zerolog.Logger
}

// NewSubjectHandler creates a new SubjectHandler.
func NewSubjectHandler(subjectRepo *repository.SubjectRepository, log zerolog.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjectRepo: subjectRepo,
		log:         log.With().Str("component", "subject_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/admin/subjects
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.subjectRepo.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List subjects failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Create godoc
// POST /api/v1/admin/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req model.CreateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	subject := &model.Subject{Name: req.Name}
	if err := h.subjectRepo.Create(c.Request.Context(), subject); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subject": subject})
}

// Update godoc
// PUT /api/v1/admin/subjects/:subject_id
func (h *SubjectHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subject_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	subject := &model.Subject{ID: id, Name: req.Name}
	if err := h.subjectRepo.Update(c.Request.Context(), subject); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subject": subject})
}

// Delete godoc
// DELETE /api/v1/admin/subjects/:subject_id
func (h *SubjectHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subject_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.subjectRepo.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
