package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type resultRepository struct {
	s *store
}

func (r *resultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextResultID++
	result.ID = r.s.nextResultID
	for i := range result.QuestionResults {
		result.QuestionResults[i].ResultID = result.ID
	}

	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now
	if result.CompletedAt.IsZero() {
		result.CompletedAt = now
	}

	r.s.results[result.ID] = cloneResult(*result)
	return nil
}

// hydrate attaches Exam and Student the way the SQL store preloads them.
// Must be called with s.mu held.
func (r *resultRepository) hydrate(res models.Result, withQuestions bool) *models.Result {
	out := cloneResult(res)
	if !withQuestions {
		out.QuestionResults = nil
	}
	if e, ok := r.s.exams[res.ExamID]; ok {
		exam := cloneExam(e)
		exam.QuestionsCount = len(exam.Questions)
		exam.Questions = nil
		out.Exam = &exam
	}
	if u, ok := r.s.users[res.StudentID]; ok {
		out.Student = cloneUser(u)
	}
	return &out
}

func (r *resultRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Result, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.results[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.hydrate(res, true), nil
}

// LockSubmission is a no-op: WithTransaction already serializes writers
func (r *resultRepository) LockSubmission(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error {
	return nil
}

func (r *resultRepository) ExistsByStudentAndExam(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, res := range r.s.results {
		if res.StudentID == studentID && res.ExamID == examID {
			return true, nil
		}
	}
	return false, nil
}

func (r *resultRepository) CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, res := range r.s.results {
		if res.ExamID == examID {
			count++
		}
	}
	return count, nil
}

func (r *resultRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	r.s.mu.RLock()
	var matched []*models.Result
	for _, res := range r.s.results {
		if !r.matchResult(res, filters) {
			continue
		}
		matched = append(matched, r.hydrate(res, false))
	}
	r.s.mu.RUnlock()

	sortResults(matched, filters.SortBy, strings.EqualFold(filters.SortOrder, "asc"))

	limit, offset := repositories.NormalizePagination(filters.Limit, filters.Offset)
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (r *resultRepository) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	filters.StudentID = &studentID
	return r.List(ctx, tx, filters)
}

func (r *resultRepository) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	filters.ExamID = &examID
	return r.List(ctx, tx, filters)
}

// matchResult must be called with s.mu held
func (r *resultRepository) matchResult(res models.Result, f repositories.ResultFilters) bool {
	if f.ExamID != nil && res.ExamID != *f.ExamID {
		return false
	}
	if f.StudentID != nil && res.StudentID != *f.StudentID {
		return false
	}
	if f.TeacherID != nil {
		e, ok := r.s.exams[res.ExamID]
		if !ok || e.TeacherID != *f.TeacherID {
			return false
		}
	}
	if f.Passed != nil && res.Passed != *f.Passed {
		return false
	}
	if f.DateFrom != nil && res.CompletedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && res.CompletedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func sortResults(results []*models.Result, sortBy string, asc bool) {
	less := func(a, b *models.Result) bool {
		switch sortBy {
		case "percentage":
			return a.Percentage < b.Percentage
		case "score":
			return a.Score < b.Score
		case "id":
			return a.ID < b.ID
		default:
			if a.CompletedAt.Equal(b.CompletedAt) {
				return a.ID < b.ID
			}
			return a.CompletedAt.Before(b.CompletedAt)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if asc {
			return less(results[i], results[j])
		}
		return less(results[j], results[i])
	})
}
