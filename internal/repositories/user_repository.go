package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// UserRepository stores local accounts
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error

	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*models.User, error)

	// Validation and checks
	ExistsByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (bool, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string, excludeID string) (bool, error)
}
