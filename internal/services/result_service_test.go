package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func TestResultService_Submit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
	exam := env.seedExam(t, teacher, sampleExam())

	tests := []struct {
		name    string
		role    models.UserRole
		req     *SubmitResultRequest
		check   func(t *testing.T, err error)
		wantRes func(t *testing.T, r *models.Result)
	}{
		{
			name: "teacher with invalid payload gets permission error",
			role: models.RoleTeacher,
			req:  &SubmitResultRequest{},
			check: func(t *testing.T, err error) {
				var perr *PermissionError
				if !errors.As(err, &perr) {
					t.Errorf("error = %v, want PermissionError", err)
				}
			},
		},
		{
			name: "admin cannot submit",
			role: models.RoleAdmin,
			req:  &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrForbidden) {
					t.Errorf("error = %v, want forbidden", err)
				}
			},
		},
		{
			name: "missing answers",
			role: models.RoleStudent,
			req:  &SubmitResultRequest{ExamID: exam.ID},
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Errorf("error = %v, want ValidationErrors", err)
				}
			},
		},
		{
			name: "negative time",
			role: models.RoleStudent,
			req:  &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1"}, TimeTaken: []int{-1}},
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Errorf("error = %v, want ValidationErrors", err)
				}
			},
		},
		{
			name: "unknown exam is not found, not zero",
			role: models.RoleStudent,
			req:  &SubmitResultRequest{ExamID: 9999, Answers: []string{"1"}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrExamNotFound) {
					t.Errorf("error = %v, want ErrExamNotFound", err)
				}
			},
		},
		{
			name: "all algebra wrong",
			role: models.RoleStudent,
			req:  &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"0", "2", "6"}, TimeTaken: []int{10, 20, 30}},
			wantRes: func(t *testing.T, r *models.Result) {
				if r.Score != 1 || r.TotalQuestions != 3 || r.TimeTaken != 60 {
					t.Errorf("score %d/%d time %d", r.Score, r.TotalQuestions, r.TimeTaken)
				}
				if want := []models.WeakTopic{{Topic: "Algebra", Score: 0}}; !reflect.DeepEqual([]models.WeakTopic(r.WeakTopics), want) {
					t.Errorf("weak topics = %+v, want %+v", r.WeakTopics, want)
				}
				if r.Percentage != 33.33 || r.MarksObtained != 10 || r.Grade != "F" || r.Passed {
					t.Errorf("percentage %v marks %v grade %s passed %v", r.Percentage, r.MarksObtained, r.Grade, r.Passed)
				}
			},
		},
		{
			name: "half algebra is not weak",
			role: models.RoleStudent,
			req:  &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "2", "6"}},
			wantRes: func(t *testing.T, r *models.Result) {
				if r.Score != 2 || len(r.WeakTopics) != 0 || !r.Passed {
					t.Errorf("score %d weak %+v passed %v", r.Score, r.WeakTopics, r.Passed)
				}
				if r.Exam == nil || r.Exam.Questions[0].CorrectAnswer != "" {
					t.Error("submit response must not carry correct answers")
				}
			},
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := env.seedUser(t, "caller-"+string(rune('a'+i)), tt.role, strPtr("10A"))
			env.publisher.ClearEvents()

			got, err := env.services.Result().Submit(ctx, tt.req, user.ID)
			if tt.check != nil {
				tt.check(t, err)
				if n := len(env.publisher.GetPublishedEvents()); n != 0 {
					t.Errorf("failed submit published %d events", n)
				}
				return
			}
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			tt.wantRes(t, got)

			published := env.publisher.GetPublishedEvents()
			if len(published) != 1 || published[0].Type != events.ResultSubmitted {
				t.Fatalf("events = %+v, want one result.submitted", published)
			}
			payload := published[0].Data.(events.ResultSubmittedEvent)
			if payload.ResultID != got.ID || payload.StudentID != user.ID {
				t.Errorf("payload = %+v", payload)
			}
		})
	}
}

func TestResultService_Resubmission(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		allow       bool
		wantErr     error
		wantResults int64
	}{
		{name: "blocked by default", wantErr: ErrAlreadySubmitted, wantResults: 1},
		{name: "allowed when configured", allow: true, wantResults: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.ExamConfig{AllowResubmission: tt.allow})
			teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
			student := env.seedUser(t, "student", models.RoleStudent, nil)
			exam := env.seedExam(t, teacher, sampleExam())
			req := &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "3", "6"}}

			if _, err := env.services.Result().Submit(ctx, req, student.ID); err != nil {
				t.Fatalf("first Submit() error = %v", err)
			}
			if _, err := env.services.Result().Submit(ctx, req, student.ID); !errors.Is(err, tt.wantErr) {
				t.Fatalf("second Submit() error = %v, want %v", err, tt.wantErr)
			}

			count, _ := env.repo.Result().CountByExam(ctx, nil, exam.ID)
			if count != tt.wantResults {
				t.Errorf("stored %d results, want %d", count, tt.wantResults)
			}
		})
	}
}

func TestResultService_ConcurrentSubmitStoresOne(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
	student := env.seedUser(t, "student", models.RoleStudent, nil)
	exam := env.seedExam(t, teacher, sampleExam())

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.services.Result().Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1"}}, student.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadySubmitted):
				conflicts++
			default:
				t.Errorf("Submit() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != 7 {
		t.Errorf("ok = %d conflicts = %d, want 1 and 7", ok, conflicts)
	}
}

func TestResultService_PublishFailureDoesNotFailSubmit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
	student := env.seedUser(t, "student", models.RoleStudent, nil)
	exam := env.seedExam(t, teacher, sampleExam())

	env.publisher.FailWith(errors.New("broker down"))
	if _, err := env.services.Result().Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1"}}, student.ID); err != nil {
		t.Errorf("Submit() error = %v, want nil", err)
	}
}

func TestResultService_Access(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	owner := env.seedUser(t, "owner", models.RoleTeacher, nil)
	otherTeacher := env.seedUser(t, "other-teacher", models.RoleTeacher, nil)
	alice := env.seedUser(t, "alice", models.RoleStudent, nil)
	bob := env.seedUser(t, "bob", models.RoleStudent, nil)
	exam := env.seedExam(t, owner, sampleExam())

	result, err := env.services.Result().Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "3", "6"}}, alice.ID)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("get by id", func(t *testing.T) {
		if _, err := env.services.Result().GetByID(ctx, result.ID, bob.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("other student error = %v, want forbidden", err)
		}
		if got, err := env.services.Result().GetByID(ctx, result.ID, otherTeacher.ID); err != nil || len(got.QuestionResults) != 3 {
			t.Errorf("any teacher GetByID() = %v", err)
		}
		got, err := env.services.Result().GetByID(ctx, result.ID, alice.ID)
		if err != nil || got.Student == nil || got.Student.ID != alice.ID {
			t.Errorf("own GetByID() = %+v, %v", got, err)
		}
		if _, err := env.services.Result().GetByID(ctx, 999, alice.ID); !errors.Is(err, ErrResultNotFound) {
			t.Errorf("missing result error = %v", err)
		}
	})

	t.Run("list by student", func(t *testing.T) {
		if _, err := env.services.Result().ListByStudent(ctx, alice.ID, repositories.ResultFilters{}, bob.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("other student error = %v", err)
		}
		got, err := env.services.Result().ListByStudent(ctx, alice.ID, repositories.ResultFilters{}, otherTeacher.ID)
		if err != nil || got.Total != 1 {
			t.Errorf("teacher ListByStudent() = %+v, %v", got, err)
		}
		empty, err := env.services.Result().ListByStudent(ctx, bob.ID, repositories.ResultFilters{}, bob.ID)
		if err != nil || empty.Results == nil || empty.Total != 0 {
			t.Errorf("empty list = %+v, %v", empty, err)
		}
	})

	t.Run("list by exam is owner only", func(t *testing.T) {
		if _, err := env.services.Result().ListByExam(ctx, exam.ID, repositories.ResultFilters{}, otherTeacher.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("non owner error = %v", err)
		}
		got, err := env.services.Result().ListByExam(ctx, exam.ID, repositories.ResultFilters{}, owner.ID)
		if err != nil || got.Total != 1 {
			t.Errorf("owner ListByExam() = %+v, %v", got, err)
		}
	})

	t.Run("list all is teacher only", func(t *testing.T) {
		if _, err := env.services.Result().ListAll(ctx, repositories.ResultFilters{}, alice.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("student ListAll() error = %v", err)
		}
		got, err := env.services.Result().ListAll(ctx, repositories.ResultFilters{Limit: 500}, otherTeacher.ID)
		if err != nil || got.Total != 1 || got.Limit != 100 {
			t.Errorf("ListAll() = %+v, %v", got, err)
		}
	})
}

// recordingResults captures what the service hands to the store, before any
// store side defaults are applied
type recordingResults struct {
	repositories.ResultRepository
	created []models.Result
}

func (r *recordingResults) Create(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	r.created = append(r.created, *result)
	return r.ResultRepository.Create(ctx, tx, result)
}

type recordingRepo struct {
	*memory.Repository
	results *recordingResults
}

func (r *recordingRepo) Result() repositories.ResultRepository { return r.results }

func TestResultService_SubmitStampsCompletedAt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
	student := env.seedUser(t, "student", models.RoleStudent, strPtr("10A"))
	exam := env.seedExam(t, teacher, sampleExam())

	repo := &recordingRepo{
		Repository: env.repo,
		results:    &recordingResults{ResultRepository: env.repo.Result()},
	}
	svc := NewResultService(repo, events.NewNoopEventPublisher(), slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), config.ExamConfig{}).(*resultService)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	svc.now = func() time.Time { return fixed }

	got, err := svc.Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "3", "6"}}, student.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(repo.results.created) != 1 {
		t.Fatalf("Create called %d times, want 1", len(repo.results.created))
	}
	stored := repo.results.created[0].CompletedAt
	if !stored.Equal(fixed) || stored.Location() != time.UTC {
		t.Errorf("CompletedAt handed to store = %v, want %v in UTC", stored, fixed.UTC())
	}
	if !got.CompletedAt.Equal(fixed) {
		t.Errorf("returned CompletedAt = %v, want %v", got.CompletedAt, fixed.UTC())
	}
}

// staleExamRepo serves exams as they were before their last edit
type staleExamRepo struct {
	*memory.Repository
}

func (r *staleExamRepo) Exam() repositories.ExamRepository {
	return &staleExams{ExamRepository: r.Repository.Exam()}
}

type staleExams struct {
	repositories.ExamRepository
}

func (e *staleExams) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, err := e.ExamRepository.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	exam.UpdatedAt = exam.UpdatedAt.Add(-time.Second)
	return exam, nil
}

func TestResultService_SubmitRejectsEditedExam(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	teacher := env.seedUser(t, "teacher", models.RoleTeacher, nil)
	student := env.seedUser(t, "student", models.RoleStudent, strPtr("10A"))
	exam := env.seedExam(t, teacher, sampleExam())

	svc := NewResultService(&staleExamRepo{Repository: env.repo}, events.NewNoopEventPublisher(), slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), config.ExamConfig{})

	_, err := svc.Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "3", "6"}}, student.ID)
	if !errors.Is(err, ErrExamChanged) {
		t.Fatalf("Submit() error = %v, want ErrExamChanged", err)
	}
	if count, _ := env.repo.Result().CountByExam(ctx, nil, exam.ID); count != 0 {
		t.Errorf("results stored = %d, want 0", count)
	}

	if _, err := env.services.Result().Submit(ctx, &SubmitResultRequest{ExamID: exam.ID, Answers: []string{"1", "3", "6"}}, student.ID); err != nil {
		t.Errorf("Submit() against the current exam error = %v", err)
	}
}
