package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	svc := env.services.Auth()

	resp, err := svc.Register(ctx, &RegisterRequest{
		Name:       "Asha",
		Identifier: " R-001 ",
		Email:      strPtr("asha@school.io"),
		Password:   "secret123",
		Role:       models.RoleStudent,
		Class:      strPtr("10A"),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.User.Identifier != "R-001" {
		t.Errorf("Identifier = %q, want trimmed R-001", resp.User.Identifier)
	}
	if resp.User.PasswordHash == "secret123" || resp.User.PasswordHash == "" {
		t.Error("password should be stored hashed")
	}

	identity, err := env.tokens.Verify(ctx, resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if identity.UserID != resp.User.ID || identity.Role != models.RoleStudent {
		t.Errorf("identity = %+v", identity)
	}

	tests := []struct {
		name    string
		req     *RegisterRequest
		wantErr error
		wantVal bool
	}{
		{
			name:    "duplicate identifier",
			req:     &RegisterRequest{Name: "B", Identifier: "R-001", Password: "secret123", Role: models.RoleStudent},
			wantErr: ErrUserAlreadyExists,
		},
		{
			name:    "email in use",
			req:     &RegisterRequest{Name: "B", Identifier: "R-002", Email: strPtr("asha@school.io"), Password: "secret123", Role: models.RoleTeacher},
			wantErr: ErrEmailTaken,
		},
		{
			name:    "admin cannot self register",
			req:     &RegisterRequest{Name: "B", Identifier: "R-003", Password: "secret123", Role: models.RoleAdmin},
			wantVal: true,
		},
		{
			name:    "short password",
			req:     &RegisterRequest{Name: "B", Identifier: "R-004", Password: "123", Role: models.RoleStudent},
			wantVal: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			if tt.wantVal {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("Register() error = %v, want ValidationErrors", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	svc := env.services.Auth()

	if _, err := svc.Register(ctx, &RegisterRequest{Name: "T", Identifier: "teach", Password: "correct-horse", Role: models.RoleTeacher}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "ok", identifier: "teach", password: "correct-horse"},
		{name: "wrong password", identifier: "teach", password: "battery", wantErr: ErrInvalidCredentials},
		{name: "unknown user", identifier: "nobody", password: "correct-horse", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, &LoginRequest{Identifier: tt.identifier, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (resp.Token == "" || resp.User.Role != models.RoleTeacher) {
				t.Errorf("Login() = %+v", resp)
			}
		})
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	svc := env.services.Auth()

	other := env.seedUser(t, "other", models.RoleStudent, nil)
	other.Email = strPtr("taken@school.io")
	if err := env.repo.User().Update(ctx, nil, other); err != nil {
		t.Fatal(err)
	}
	me := env.seedUser(t, "me", models.RoleStudent, strPtr("9B"))

	if _, err := svc.UpdateProfile(ctx, me.ID, &UpdateProfileRequest{Email: strPtr("taken@school.io")}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("UpdateProfile() error = %v, want ErrEmailTaken", err)
	}

	updated, err := svc.UpdateProfile(ctx, me.ID, &UpdateProfileRequest{Name: strPtr("New Name"), Class: strPtr("10A")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Name != "New Name" || *updated.Class != "10A" {
		t.Errorf("UpdateProfile() = %+v", updated)
	}

	got, err := svc.GetProfile(ctx, me.ID)
	if err != nil || got.Name != "New Name" {
		t.Errorf("GetProfile() = %+v, %v", got, err)
	}

	if _, err := svc.GetProfile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetProfile(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestAuthService_UpdateProfileStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.ExamConfig{})
	me := env.seedUser(t, "me", models.RoleStudent, nil)

	svc := NewAuthService(env.repo, env.tokens, slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New()).(*authService)
	fixed := time.Date(2031, 1, 5, 12, 0, 0, 987654321, time.FixedZone("PST", -8*3600))
	svc.now = func() time.Time { return fixed }

	updated, err := svc.UpdateProfile(ctx, me.ID, &UpdateProfileRequest{Name: strPtr("Renamed")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	want := fixed.UTC().Truncate(time.Microsecond)
	if !updated.UpdatedAt.Equal(want) || updated.UpdatedAt.Location() != time.UTC {
		t.Errorf("returned UpdatedAt = %v, want %v", updated.UpdatedAt, want)
	}
	stored, err := env.repo.User().GetByID(ctx, nil, me.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.UpdatedAt.Equal(want) {
		t.Errorf("stored UpdatedAt = %v, want %v", stored.UpdatedAt, want)
	}
}
