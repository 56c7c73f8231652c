package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any request
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExamCreate validates exam creation business rules
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.PassingMarks > req.TotalMarks {
		errors = append(errors, ValidationError{
			Field:   "passingMarks",
			Message: "cannot exceed totalMarks",
			Value:   req.PassingMarks,
			Rule:    "business_logic",
		})
	}
	errors = append(errors, bv.validateQuestions(req.Questions)...)

	return errors
}

// ValidateExamUpdate validates a partial update against the stored exam
func (bv *BusinessValidator) ValidateExamUpdate(req *ExamUpdateRequest, existing *models.Exam) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	totalMarks := existing.TotalMarks
	if req.TotalMarks != nil {
		totalMarks = *req.TotalMarks
	}
	passingMarks := existing.PassingMarks
	if req.PassingMarks != nil {
		passingMarks = *req.PassingMarks
	}
	if passingMarks > totalMarks {
		errors = append(errors, ValidationError{
			Field:   "passingMarks",
			Message: "cannot exceed totalMarks",
			Value:   passingMarks,
			Rule:    "business_logic",
		})
	}
	errors = append(errors, bv.validateQuestions(req.Questions)...)

	return errors
}

// validateQuestions checks the per-type question rules tags cannot express
func (bv *BusinessValidator) validateQuestions(questions []QuestionRequest) ValidationErrors {
	var errors ValidationErrors

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		switch q.Type {
		case models.QuestionMCQ:
			if len(q.Options) < 2 {
				errors = append(errors, ValidationError{
					Field:   field + ".options",
					Message: "multiple choice questions need at least 2 options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
				continue
			}

			seen := make(map[string]bool, len(q.Options))
			for j, opt := range q.Options {
				if seen[opt] {
					errors = append(errors, ValidationError{
						Field:   fmt.Sprintf("%s.options[%d]", field, j),
						Message: "duplicate option",
						Value:   opt,
						Rule:    "business_logic",
					})
				}
				seen[opt] = true
			}
			if q.CorrectAnswer != "" && !seen[q.CorrectAnswer] {
				errors = append(errors, ValidationError{
					Field:   field + ".correctAnswer",
					Message: "must be one of the options",
					Value:   q.CorrectAnswer,
					Rule:    "business_logic",
				})
			}
		case models.QuestionText:
			if len(q.Options) > 0 {
				errors = append(errors, ValidationError{
					Field:   field + ".options",
					Message: "text questions cannot have options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		}
	}

	return errors
}

// ValidateDeletePermission validates if an exam can be deleted
func (bv *BusinessValidator) ValidateDeletePermission(resultCount int64) ValidationErrors {
	if resultCount == 0 {
		return nil
	}
	return ValidationErrors{{
		Field:   "results",
		Message: "cannot delete exam with existing results",
		Value:   resultCount,
		Rule:    "business_logic",
	}}
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Exam duration validation (1-300 minutes)
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 300
	})

	bv.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionMCQ, models.QuestionText:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("exam_status", func(fl validator.FieldLevel) bool {
		switch models.ExamStatus(fl.Field().String()) {
		case models.ExamUpcoming, models.ExamOngoing, models.ExamCompleted:
			return true
		}
		return false
	})

	// Self-registration never grants admin
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})
}
