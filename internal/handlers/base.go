package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string      `json:"message"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logging and error mapping shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLogger(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	if userID := c.GetString(ctxUserID); userID != "" {
		args = append(args, "user_id", userID)
	}
	h.log(c).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	h.log(c).Error(msg, args...)
}

func abortWithError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message: message,
		Error:   code,
		Details: details,
	})
}

func (h *BaseHandler) badRequest(c *gin.Context, message string, details interface{}) {
	abortWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// parseIDParam returns 0 after writing a 400 when the path id is not a positive integer
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.badRequest(c, "Invalid "+name+" parameter", c.Param(name))
		return 0
	}
	return uint(id)
}

// currentUserID returns the authenticated user id or writes a 401
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "User not authenticated", nil)
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.badRequest(c, "Invalid request payload", err.Error())
		return false
	}
	return true
}

// handleServiceError maps service errors onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var (
		verrs   services.ValidationErrors
		verr    *services.ValidationError
		permErr *services.PermissionError
		ruleErr *services.BusinessRuleError
	)

	switch {
	case errors.As(err, &verrs):
		abortWithError(c, http.StatusBadRequest, "validation_failed", "Validation failed", verrs)
	case errors.As(err, &verr):
		abortWithError(c, http.StatusBadRequest, "validation_failed", "Validation failed", services.ValidationErrors{*verr})
	case errors.As(err, &ruleErr):
		abortWithError(c, http.StatusConflict, "conflict", ruleErr.Message, ruleErr.Context)
	case errors.As(err, &permErr):
		abortWithError(c, http.StatusForbidden, "forbidden", "Forbidden - insufficient permissions", permErr.Reason)
	case errors.Is(err, services.ErrForbidden):
		abortWithError(c, http.StatusForbidden, "forbidden", "Forbidden - insufficient permissions", nil)

	case errors.Is(err, services.ErrExamNotFound):
		abortWithError(c, http.StatusNotFound, "not_found", "Exam not found", nil)
	case errors.Is(err, services.ErrResultNotFound):
		abortWithError(c, http.StatusNotFound, "not_found", "Result not found", nil)
	case errors.Is(err, services.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, "not_found", "User not found", nil)

	case errors.Is(err, services.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, "conflict", "User already exists", nil)
	case errors.Is(err, services.ErrEmailTaken):
		abortWithError(c, http.StatusConflict, "conflict", "Email already in use", nil)
	case errors.Is(err, services.ErrAlreadySubmitted):
		abortWithError(c, http.StatusConflict, "conflict", "Exam already submitted", nil)
	case errors.Is(err, services.ErrExamHasSubmissions):
		abortWithError(c, http.StatusConflict, "conflict", "Exam already has submissions", nil)
	case errors.Is(err, services.ErrExamChanged):
		abortWithError(c, http.StatusConflict, "conflict", "Exam changed, please submit again", nil)

	case errors.Is(err, services.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials", nil)
	case errors.Is(err, services.ErrUnauthorized):
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "Unauthorized access", nil)
	case errors.Is(err, services.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, "validation_failed", "Validation failed", nil)

	default:
		h.LogError(c, err, "Unexpected service error")
		abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

// ===== QUERY PARSING =====

type queryParser struct {
	c    *gin.Context
	errs map[string]string
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c, errs: map[string]string{}}
}

func (p *queryParser) str(name string) *string {
	v := strings.TrimSpace(p.c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func (p *queryParser) integer(name string) int {
	raw := p.c.Query(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.errs[name] = "must be a non-negative integer"
		return 0
	}
	return n
}

func (p *queryParser) uintPtr(name string) *uint {
	raw := p.c.Query(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		p.errs[name] = "must be a positive integer"
		return nil
	}
	id := uint(n)
	return &id
}

func (p *queryParser) boolPtr(name string) *bool {
	raw := p.c.Query(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs[name] = "must be true or false"
		return nil
	}
	return &b
}

func (p *queryParser) timePtr(name string) *time.Time {
	raw := p.c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse(time.DateOnly, raw); err != nil {
			p.errs[name] = "must be an RFC3339 timestamp or YYYY-MM-DD date"
			return nil
		}
	}
	return &t
}

func (p *queryParser) sortOrder() string {
	order := strings.ToLower(p.c.Query("sortOrder"))
	if order != "" && order != "asc" && order != "desc" {
		p.errs["sortOrder"] = "must be asc or desc"
		return ""
	}
	return order
}

func (p *queryParser) examFilters() repositories.ExamFilters {
	f := repositories.ExamFilters{
		Subject:   p.str("subject"),
		Class:     p.str("class"),
		TeacherID: p.str("teacherId"),
		Limit:     p.integer("limit"),
		Offset:    p.integer("offset"),
		SortBy:    p.c.Query("sortBy"),
		SortOrder: p.sortOrder(),
	}
	if s := p.str("status"); s != nil {
		status := models.ExamStatus(strings.ToLower(*s))
		switch status {
		case models.ExamUpcoming, models.ExamOngoing, models.ExamCompleted:
			f.Status = &status
		default:
			p.errs["status"] = "must be upcoming, ongoing or completed"
		}
	}
	return f
}

func (p *queryParser) resultFilters() repositories.ResultFilters {
	return repositories.ResultFilters{
		ExamID:    p.uintPtr("examId"),
		StudentID: p.str("studentId"),
		Passed:    p.boolPtr("passed"),
		DateFrom:  p.timePtr("dateFrom"),
		DateTo:    p.timePtr("dateTo"),
		Limit:     p.integer("limit"),
		Offset:    p.integer("offset"),
		SortBy:    p.c.Query("sortBy"),
		SortOrder: p.sortOrder(),
	}
}

// ok writes a 400 listing every bad query parameter
func (p *queryParser) ok() bool {
	if len(p.errs) == 0 {
		return true
	}
	abortWithError(p.c, http.StatusBadRequest, "bad_request", "Invalid query parameters", p.errs)
	return false
}
