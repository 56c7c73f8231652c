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

type examRepository struct {
	s *store
}

// assignQuestionIDs must be called with s.mu held
func (r *examRepository) assignQuestionIDs(examID uint, questions []models.Question) {
	for i := range questions {
		r.s.nextQuestionID++
		questions[i].ID = r.s.nextQuestionID
		questions[i].ExamID = examID
	}
}

func (r *examRepository) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextExamID++
	exam.ID = r.s.nextExamID
	r.assignQuestionIDs(exam.ID, exam.Questions)

	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	exam.QuestionsCount = len(exam.Questions)

	r.s.exams[exam.ID] = cloneExam(*exam)
	return nil
}

func (r *examRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	exam := cloneExam(e)
	exam.QuestionsCount = len(exam.Questions)
	return &exam, nil
}

func (r *examRepository) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.exams[exam.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Title = exam.Title
	existing.Description = exam.Description
	existing.Subject = exam.Subject
	existing.Class = exam.Class
	existing.Duration = exam.Duration
	existing.TotalMarks = exam.TotalMarks
	existing.PassingMarks = exam.PassingMarks
	existing.Status = exam.Status
	existing.StartsAt = exam.StartsAt
	existing.UpdatedAt = stampOrNow(exam.UpdatedAt)

	r.s.exams[exam.ID] = cloneExam(existing)
	return nil
}

func (r *examRepository) ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uint, questions []models.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.exams[examID]
	if !ok {
		return repositories.ErrNotFound
	}
	r.assignQuestionIDs(examID, questions)
	existing.Questions = questions
	existing.QuestionsCount = len(questions)

	r.s.exams[examID] = cloneExam(existing)
	return nil
}

func (r *examRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.exams[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.exams, id)
	return nil
}

// LockForUpdate only checks existence: WithTransaction already serializes writers
func (r *examRepository) LockForUpdate(ctx context.Context, tx *gorm.DB, id uint) error {
	_, err := r.LockForShare(ctx, tx, id)
	return err
}

func (r *examRepository) LockForShare(ctx context.Context, tx *gorm.DB, id uint) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.exams[id]
	if !ok {
		return time.Time{}, repositories.ErrNotFound
	}
	return e.UpdatedAt, nil
}

func (r *examRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	r.s.mu.RLock()
	var matched []*models.Exam
	for _, e := range r.s.exams {
		if !matchExam(e, filters) {
			continue
		}
		exam := cloneExam(e)
		exam.QuestionsCount = len(exam.Questions)
		exam.Questions = nil
		matched = append(matched, &exam)
	}
	r.s.mu.RUnlock()

	sortExams(matched, filters.SortBy, strings.EqualFold(filters.SortOrder, "asc"))

	limit, offset := repositories.NormalizePagination(filters.Limit, filters.Offset)
	return page(matched, limit, offset), int64(len(matched)), nil
}

func matchExam(e models.Exam, f repositories.ExamFilters) bool {
	if f.Subject != nil && e.Subject != *f.Subject {
		return false
	}
	if f.Class != nil {
		switch {
		case e.Class == nil:
			if !f.IncludeUnassigned {
				return false
			}
		case *e.Class != *f.Class:
			return false
		}
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.TeacherID != nil && e.TeacherID != *f.TeacherID {
		return false
	}
	return true
}

func sortExams(exams []*models.Exam, sortBy string, asc bool) {
	less := func(a, b *models.Exam) bool {
		switch sortBy {
		case "title":
			return a.Title < b.Title
		case "subject":
			return a.Subject < b.Subject
		case "status":
			return a.Status < b.Status
		case "starts_at", "startsAt":
			return timeOrZero(a.StartsAt).Before(timeOrZero(b.StartsAt))
		case "id":
			return a.ID < b.ID
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(exams, func(i, j int) bool {
		if asc {
			return less(exams[i], exams[j])
		}
		return less(exams[j], exams[i])
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
