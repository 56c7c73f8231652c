package auth

import (
	"context"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

// CasdoorVerifier validates tokens issued by a Casdoor instance
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg config.CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Id == "" {
		return nil, ErrInvalidToken
	}

	name := claims.User.DisplayName
	if name == "" {
		name = claims.User.Name
	}
	return &Identity{
		UserID:   claims.Id,
		Role:     MapCasdoorRole(claims.User.Type),
		Email:    claims.User.Email,
		Name:     name,
		External: true,
	}, nil
}

// MapCasdoorRole maps a Casdoor user type to a local role
func MapCasdoorRole(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}
