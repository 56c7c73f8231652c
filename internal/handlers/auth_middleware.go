package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const (
	ctxUser     = "user"
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// AuthMiddleware authenticates bearer tokens and gates routes by role
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	userRepo repositories.UserRepository
	logger   utils.Logger
}

func NewAuthMiddleware(verifier auth.TokenVerifier, userRepo repositories.UserRepository, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Authenticate requires a valid bearer token whose subject is a known user
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "authorization header missing", nil)
			return
		}

		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid authorization header format", nil)
			return
		}

		identity, err := am.verifier.Verify(c.Request.Context(), tokenParts[1])
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token", nil)
			return
		}

		user, err := am.resolveUser(c.Request.Context(), identity)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "user no longer exists", nil)
				return
			}
			utils.GetLogger(c, am.logger).Error("Failed to resolve authenticated user", "user_id", identity.UserID, "error", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxUserID, user.ID)
		c.Set(ctxUserRole, user.Role)
		c.Next()
	}
}

// RequireRole lets admins and any of roles through
func (am *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusForbidden, "forbidden", "user role not found in context", nil)
			return
		}

		for _, required := range roles {
			if role == required || role == models.RoleAdmin {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusForbidden, "forbidden", fmt.Sprintf("insufficient permissions, required role: %v", roles), nil)
	}
}

// resolveUser reloads the user on every request. Identities from an external
// provider get a local user row on first sight.
func (am *AuthMiddleware) resolveUser(ctx context.Context, identity *auth.Identity) (*models.User, error) {
	user, err := am.userRepo.GetByID(ctx, nil, identity.UserID)
	if err == nil || !identity.External || !repositories.IsNotFoundError(err) {
		return user, err
	}

	user = userFromIdentity(identity)
	if err := am.userRepo.Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return am.userRepo.GetByID(ctx, nil, identity.UserID)
		}
		return nil, fmt.Errorf("failed to provision external user: %w", err)
	}
	am.logger.Info("Provisioned external user", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func userFromIdentity(identity *auth.Identity) *models.User {
	identifier := identity.UserID
	var email *string
	if identity.Email != "" {
		identifier = identity.Email
		email = &identity.Email
	}
	name := identity.Name
	if name == "" {
		name = identifier
	}
	return &models.User{
		ID:         identity.UserID,
		Name:       name,
		Identifier: identifier,
		Email:      email,
		Role:       identity.Role,
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get(ctxUser)
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
