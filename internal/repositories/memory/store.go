// Package memory is an in-process Repository used for local runs and tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type store struct {
	// txMu serializes transactions, standing in for row and advisory locks
	txMu sync.Mutex

	mu      sync.RWMutex
	users   map[string]models.User
	exams   map[uint]models.Exam
	results map[uint]models.Result

	nextExamID     uint
	nextQuestionID uint
	nextResultID   uint
}

// Repository implements repositories.Repository on maps guarded by a mutex
type Repository struct {
	s *store

	user      *userRepository
	exam      *examRepository
	result    *resultRepository
	dashboard *dashboardRepository
}

func NewRepository() *Repository {
	s := &store{
		users:   map[string]models.User{},
		exams:   map[uint]models.Exam{},
		results: map[uint]models.Result{},
	}
	return &Repository{
		s:         s,
		user:      &userRepository{s: s},
		exam:      &examRepository{s: s},
		result:    &resultRepository{s: s},
		dashboard: &dashboardRepository{s: s},
	}
}

func (r *Repository) User() repositories.UserRepository           { return r.user }
func (r *Repository) Exam() repositories.ExamRepository           { return r.exam }
func (r *Repository) Result() repositories.ResultRepository       { return r.result }
func (r *Repository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction runs fn with a nil tx. Writes made by fn are rolled back
// when it returns an error.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	snap := r.s.snapshot()
	if err := fn(nil); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error { return ctx.Err() }
func (r *Repository) Close() error                   { return nil }

type snapshot struct {
	users   map[string]models.User
	exams   map[uint]models.Exam
	results map[uint]models.Result

	nextExamID, nextQuestionID, nextResultID uint
}

// Stored values are never mutated in place, so a shallow map copy is enough
func (s *store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:          maps.Clone(s.users),
		exams:          maps.Clone(s.exams),
		results:        maps.Clone(s.results),
		nextExamID:     s.nextExamID,
		nextQuestionID: s.nextQuestionID,
		nextResultID:   s.nextResultID,
	}
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.exams = snap.exams
	s.results = snap.results
	s.nextExamID = snap.nextExamID
	s.nextQuestionID = snap.nextQuestionID
	s.nextResultID = snap.nextResultID
}

// RepositoryManager wraps a memory Repository in the manager lifecycle
type RepositoryManager struct {
	repo *Repository
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{}
}

func (rm *RepositoryManager) Initialize() error {
	rm.repo = NewRepository()
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
