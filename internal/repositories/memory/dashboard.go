package memory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type dashboardRepository struct {
	s *store
}

func (r *dashboardRepository) GetTeacherStats(ctx context.Context, tx *gorm.DB, teacherID string) (*repositories.TeacherStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &repositories.TeacherStats{}
	owned := map[uint]bool{}
	for id, e := range r.s.exams {
		if teacherID != "" && e.TeacherID != teacherID {
			continue
		}
		owned[id] = true
		stats.TotalExams++
		stats.TotalQuestions += int64(len(e.Questions))
	}

	students := map[string]bool{}
	var sum, passed float64
	for _, res := range r.s.results {
		if !owned[res.ExamID] {
			continue
		}
		stats.TotalResults++
		students[res.StudentID] = true
		sum += res.Percentage
		if res.Passed {
			passed++
		}
	}
	stats.TotalStudents = int64(len(students))
	if stats.TotalResults > 0 {
		stats.AverageScore = sum / float64(stats.TotalResults)
		stats.PassRate = passed * 100 / float64(stats.TotalResults)
	}
	return stats, nil
}

func (r *dashboardRepository) GetPerformanceBySubject(ctx context.Context, tx *gorm.DB, teacherID string) ([]repositories.SubjectPerformance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type acc struct {
		exams          int64
		results        int64
		sum, passCount float64
	}
	bySubject := map[string]*acc{}
	examSubject := map[uint]string{}
	for id, e := range r.s.exams {
		if teacherID != "" && e.TeacherID != teacherID {
			continue
		}
		a, ok := bySubject[e.Subject]
		if !ok {
			a = &acc{}
			bySubject[e.Subject] = a
		}
		a.exams++
		examSubject[id] = e.Subject
	}
	for _, res := range r.s.results {
		subject, ok := examSubject[res.ExamID]
		if !ok {
			continue
		}
		a := bySubject[subject]
		a.results++
		a.sum += res.Percentage
		if res.Passed {
			a.passCount++
		}
	}

	out := make([]repositories.SubjectPerformance, 0, len(bySubject))
	for subject, a := range bySubject {
		p := repositories.SubjectPerformance{Subject: subject, ExamCount: a.exams, ResultCount: a.results}
		if a.results > 0 {
			p.AverageScore = a.sum / float64(a.results)
			p.PassRate = a.passCount * 100 / float64(a.results)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}
