package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type userRepository struct {
	s *store
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Identifier == user.Identifier {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := r.s.users[user.ID]; ok {
		return repositories.ErrDuplicate
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *cloneUser(*user)
	return nil
}

func (r *userRepository) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Class = user.Class
	existing.UpdatedAt = stampOrNow(user.UpdatedAt)
	r.s.users[user.ID] = *cloneUser(existing)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepository) GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Identifier == identifier {
			return cloneUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepository) ExistsByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (bool, error) {
	_, err := r.GetByIdentifier(ctx, tx, identifier)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *userRepository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email != nil && *u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
