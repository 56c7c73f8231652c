package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	service services.StudentService
}

func NewStudentHandler(service services.StudentService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== STUDENT ENDPOINTS =====

// GetMyExams returns the current student's exams grouped by state
// @Summary Get student exams
// @Description Upcoming, available and completed exams of the student's class
// @Tags students
// @Produce json
// @Success 200 {object} services.StudentExamsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a student"
// @Router /student/exams [get]
func (h *StudentHandler) GetMyExams(c *gin.Context) {
	h.LogRequest(c, "Getting student exams")

	studentID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	exams, err := h.service.MyExams(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetMyResults returns the current student's results and performance summary
// @Summary Get student results
// @Tags students
// @Produce json
// @Success 200 {object} services.StudentResultsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a student"
// @Router /student/results [get]
func (h *StudentHandler) GetMyResults(c *gin.Context) {
	h.LogRequest(c, "Getting student results")

	studentID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.service.MyResults(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetMyAnalytics returns the score time series and weak-topic frequency
// @Summary Get student analytics
// @Tags students
// @Produce json
// @Success 200 {object} services.StudentAnalyticsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a student"
// @Router /student/analytics [get]
func (h *StudentHandler) GetMyAnalytics(c *gin.Context) {
	h.LogRequest(c, "Getting student analytics")

	studentID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	analytics, err := h.service.Analytics(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}
