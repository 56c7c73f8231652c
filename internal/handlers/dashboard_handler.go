package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboardStats returns totals over the caller's exams
// @Summary Get dashboard statistics
// @Description Exam, question, result and student counts with average percentage and pass rate
// @Tags dashboard
// @Produce json
// @Success 200 {object} repositories.TeacherStats
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a teacher"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetDashboardStats(c *gin.Context) {
	h.LogRequest(c, "Getting dashboard stats")

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPerformanceBySubject returns average percentage per subject
// @Summary Get performance by subject
// @Tags dashboard
// @Produce json
// @Success 200 {array} repositories.SubjectPerformance
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a teacher"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard/performance-by-subject [get]
func (h *DashboardHandler) GetPerformanceBySubject(c *gin.Context) {
	h.LogRequest(c, "Getting performance by subject")

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	performance, err := h.service.GetPerformanceBySubject(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, performance)
}
