package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Users and auth
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this identifier already exists")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")

	// Exams
	ErrExamNotFound       = errors.New("exam not found")
	ErrExamHasSubmissions = errors.New("exam already has submissions")
	ErrExamChanged        = errors.New("exam changed while the submission was being scored")

	// Results
	ErrResultNotFound   = errors.New("result not found")
	ErrAlreadySubmitted = errors.New("exam already submitted")

	ErrValidationFailed = errors.New("validation failed")
)

// ===== TYPED ERRORS =====

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

// PermissionError is returned when the caller may not perform action on a resource
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id,omitempty"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	if e.ResourceID != 0 {
		return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
	}
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// BusinessRuleError reports a request that is well formed but conflicts with stored state
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	cause   error
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

// WithCause attaches the sentinel the rule maps to, so errors.Is keeps working
func (e *BusinessRuleError) WithCause(cause error) *BusinessRuleError {
	e.cause = cause
	return e
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.cause
}
