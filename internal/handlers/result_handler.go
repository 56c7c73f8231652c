package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	service services.ResultService
}

func NewResultHandler(service services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// SubmitResult scores a submission that names its exam in the body
// @Summary Submit result
// @Tags results
// @Accept json
// @Produce json
// @Param submission body services.SubmitResultRequest true "Exam id, answers and per-question time"
// @Success 201 {object} models.Result
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already submitted"
// @Router /result [post]
func (h *ResultHandler) SubmitResult(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.SubmitResultRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting result", "exam_id", req.ExamID, "answers", len(req.Answers))

	result, err := h.service.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetResult retrieves a single result
// @Summary Get result
// @Tags results
// @Produce json
// @Param id path uint true "Result ID"
// @Success 200 {object} models.Result
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /result/{id} [get]
func (h *ResultHandler) GetResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting result", "result_id", id)

	result, err := h.service.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAllResults lists every result, teachers only
// @Summary List all results
// @Tags results
// @Produce json
// @Param examId query int false "Exam"
// @Param studentId query string false "Student"
// @Param passed query bool false "Passed"
// @Param dateFrom query string false "Completed at or after"
// @Param dateTo query string false "Completed at or before"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param sortBy query string false "completed_at, percentage or score"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} services.ResultListResponse
// @Failure 403 {object} ErrorResponse
// @Router /result/all [get]
func (h *ResultHandler) ListAllResults(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	q := newQueryParser(c)
	filters := q.resultFilters()
	if !q.ok() {
		return
	}

	h.LogRequest(c, "Listing all results")

	results, err := h.service.ListAll(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ListStudentResults lists one student's results
// @Summary List student results
// @Tags results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.ResultListResponse
// @Failure 403 {object} ErrorResponse
// @Router /result/student/{studentId} [get]
func (h *ResultHandler) ListStudentResults(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if studentID == "" {
		h.badRequest(c, "Invalid studentId parameter", nil)
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	q := newQueryParser(c)
	filters := q.resultFilters()
	if !q.ok() {
		return
	}

	h.LogRequest(c, "Listing student results", "student_id", studentID)

	results, err := h.service.ListByStudent(c.Request.Context(), studentID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
