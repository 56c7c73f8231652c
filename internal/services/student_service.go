package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/scoring"
)

const studentPageSize = 100

type studentService struct {
	repo   repositories.Repository
	logger *slog.Logger
	config config.ExamConfig
	now    func() time.Time
}

func NewStudentService(repo repositories.Repository, logger *slog.Logger, cfg config.ExamConfig) StudentService {
	return &studentService{
		repo:   repo,
		logger: logger,
		config: cfg,
		now:    time.Now,
	}
}

// MyExams groups the exams of the student's class by what the student can do with them
func (s *studentService) MyExams(ctx context.Context, studentID string) (*StudentExamsResponse, error) {
	user, err := requireRole(ctx, s.repo, studentID, "exam", "list_own", models.RoleStudent)
	if err != nil {
		return nil, err
	}

	results, err := s.allResults(ctx, studentID, "desc")
	if err != nil {
		return nil, err
	}
	byExam := make(map[uint][]*models.Result)
	for _, r := range results {
		byExam[r.ExamID] = append(byExam[r.ExamID], redactResult(user, r))
	}

	now := s.now()
	resp := &StudentExamsResponse{
		UpcomingExams:  []*models.Exam{},
		AvailableExams: []*models.Exam{},
		CompletedExams: []*StudentExam{},
	}

	upcoming, err := s.classExams(ctx, user, models.ExamUpcoming, "asc")
	if err != nil {
		return nil, err
	}
	for _, exam := range upcoming {
		if exam.StartsAt == nil || exam.StartsAt.After(now) {
			resp.UpcomingExams = append(resp.UpcomingExams, exam.ForStudent())
		}
	}

	ongoing, err := s.classExams(ctx, user, models.ExamOngoing, "asc")
	if err != nil {
		return nil, err
	}
	for _, exam := range ongoing {
		if len(byExam[exam.ID]) > 0 && !s.config.AllowResubmission {
			continue
		}
		resp.AvailableExams = append(resp.AvailableExams, exam.ForStudent())
	}

	completed, err := s.classExams(ctx, user, models.ExamCompleted, "desc")
	if err != nil {
		return nil, err
	}
	for _, exam := range completed {
		own := byExam[exam.ID]
		if own == nil {
			own = []*models.Result{}
		}
		resp.CompletedExams = append(resp.CompletedExams, &StudentExam{Exam: exam.ForStudent(), Results: own})
	}

	return resp, nil
}

func (s *studentService) MyResults(ctx context.Context, studentID string) (*StudentResultsResponse, error) {
	user, err := requireRole(ctx, s.repo, studentID, "result", "list_own", models.RoleStudent)
	if err != nil {
		return nil, err
	}

	results, err := s.allResults(ctx, studentID, "desc")
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		results[i] = redactResult(user, r)
	}

	return &StudentResultsResponse{
		Results:            results,
		PerformanceSummary: Summarize(results),
	}, nil
}

// Analytics returns the percentage series in submission order and how often
// each topic showed up as weak
func (s *studentService) Analytics(ctx context.Context, studentID string) (*StudentAnalyticsResponse, error) {
	if _, err := requireRole(ctx, s.repo, studentID, "result", "analytics", models.RoleStudent); err != nil {
		return nil, err
	}

	results, err := s.allResults(ctx, studentID, "asc")
	if err != nil {
		return nil, err
	}

	points := make([]PerformancePoint, 0, len(results))
	for _, r := range results {
		p := PerformancePoint{Date: r.CompletedAt, Score: r.Percentage, ExamID: r.ExamID}
		if r.Exam != nil {
			p.Subject = r.Exam.Subject
		}
		points = append(points, p)
	}

	return &StudentAnalyticsResponse{
		Performance: points,
		WeakTopics:  weakTopicFrequency(results),
	}, nil
}

// Summarize computes the performance summary over result percentages
func Summarize(results []*models.Result) PerformanceSummary {
	if len(results) == 0 {
		return PerformanceSummary{}
	}

	summary := PerformanceSummary{
		TotalExams:   len(results),
		HighestScore: results[0].Percentage,
		LowestScore:  results[0].Percentage,
	}
	var sum float64
	passed := 0
	for _, r := range results {
		sum += r.Percentage
		summary.HighestScore = max(summary.HighestScore, r.Percentage)
		summary.LowestScore = min(summary.LowestScore, r.Percentage)
		if r.Passed {
			passed++
		}
	}
	summary.AverageScore = scoring.Round2(sum / float64(len(results)))
	summary.PassRate = scoring.Round2(float64(passed) / float64(len(results)) * 100)
	return summary
}

func weakTopicFrequency(results []*models.Result) []WeakTopicFrequency {
	index := make(map[string]int)
	out := []WeakTopicFrequency{}
	for _, r := range results {
		for _, wt := range r.WeakTopics {
			i, ok := index[wt.Topic]
			if !ok {
				i = len(out)
				index[wt.Topic] = i
				out = append(out, WeakTopicFrequency{Topic: wt.Topic})
			}
			out[i].Count++
		}
	}
	// most frequent first, ties keep first appearance
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (s *studentService) classExams(ctx context.Context, user *models.User, status models.ExamStatus, order string) ([]*models.Exam, error) {
	filters := repositories.ExamFilters{
		Status:    &status,
		SortBy:    "starts_at",
		SortOrder: order,
		Limit:     studentPageSize,
	}
	if user.Class != nil && *user.Class != "" {
		filters.Class = user.Class
		filters.IncludeUnassigned = true
	}

	var all []*models.Exam
	for {
		page, total, err := s.repo.Exam().List(ctx, nil, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s exams: %w", status, err)
		}
		all = append(all, page...)
		filters.Offset += len(page)
		if len(page) == 0 || int64(filters.Offset) >= total {
			return all, nil
		}
	}
}

func (s *studentService) allResults(ctx context.Context, studentID, order string) ([]*models.Result, error) {
	filters := repositories.ResultFilters{
		SortBy:    "completed_at",
		SortOrder: order,
		Limit:     studentPageSize,
	}

	all := []*models.Result{}
	for {
		page, total, err := s.repo.Result().ListByStudent(ctx, nil, studentID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list student results: %w", err)
		}
		all = append(all, page...)
		filters.Offset += len(page)
		if len(page) == 0 || int64(filters.Offset) >= total {
			return all, nil
		}
	}
}
