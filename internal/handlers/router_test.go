package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type testServer struct {
	router *gin.Engine
	repo   *memory.Repository
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, verifier auth.TokenVerifier, checks ...HealthCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)
	ts := &testServer{
		repo:   memory.NewRepository(),
		tokens: auth.NewTokenManager(config.JWTConfig{Secret: "handler-secret", Expiration: time.Hour, Issuer: "exam-service-test"}),
	}
	if verifier == nil {
		verifier = ts.tokens
	}

	sm := services.NewServiceManager(services.Dependencies{
		Repo:   ts.repo,
		Tokens: ts.tokens,
		Logger: slogger,
	}, services.ServiceManagerConfig{})
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	ts.router = gin.New()
	SetupMiddleware(ts.router, logger)
	NewHandlerManager(sm, verifier, ts.repo.User(), logger, checks...).SetupRoutes(ts.router)
	return ts
}

func (ts *testServer) seedUser(t *testing.T, identifier string, role models.UserRole) (*models.User, string) {
	t.Helper()
	class := "10A"
	u := &models.User{Name: identifier, Identifier: identifier, Role: role, Class: &class}
	if err := ts.repo.User().Create(context.Background(), nil, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, _, err := ts.tokens.Generate(u)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return u, token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func examPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":        "Fractions",
		"subject":      "Maths",
		"class":        "10A",
		"duration":     30,
		"totalMarks":   20,
		"passingMarks": 10,
		"status":       "ongoing",
		"questions": []map[string]interface{}{
			{"text": "1/2 + 1/2", "type": "mcq", "options": []string{"1", "2"}, "correctAnswer": "1", "topic": "Fractions"},
			{"text": "Name a prime", "type": "text", "correctAnswer": "2", "topic": "Primes"},
		},
	}
}

func (ts *testServer) createExam(t *testing.T, token string) uint {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/exams", token, examPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("create exam status = %d body = %s", w.Code, w.Body.String())
	}
	return decode[services.ExamResponse](t, w).ID
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, nil)
	_, token := ts.seedUser(t, "student", models.RoleStudent)

	ghost := &models.User{ID: "ghost", Role: models.RoleTeacher}
	ghostToken, _, _ := ts.tokens.Generate(ghost)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", want: http.StatusUnauthorized},
		{name: "unknown user", header: "Bearer " + ghostToken, want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if body := decode[ErrorResponse](t, w); body.Error != "unauthorized" || body.Message == "" {
					t.Errorf("error body = %+v", body)
				}
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	reg := map[string]interface{}{"name": "Ana", "identifier": "ana", "password": "secret1", "role": "student", "class": "10A"}
	w := ts.do(t, http.MethodPost, "/api/auth/register", "", reg)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", w.Code, w.Body.String())
	}
	if resp := decode[services.AuthResponse](t, w); resp.Token == "" || resp.User.Identifier != "ana" {
		t.Errorf("register response = %+v", resp)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("register response leaks the password hash")
	}

	if w := ts.do(t, http.MethodPost, "/api/auth/register", "", reg); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/auth/register", "", `{"name":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed register status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "ana", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	token := decode[services.AuthResponse](t, w).Token

	if w := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "ana", "password": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPut, "/api/auth/me", token, map[string]string{"name": "Ana Maria"})
	if w.Code != http.StatusOK || decode[models.User](t, w).Name != "Ana Maria" {
		t.Errorf("update profile status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestExamLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	_, teacherToken := ts.seedUser(t, "teacher", models.RoleTeacher)
	_, otherToken := ts.seedUser(t, "other", models.RoleTeacher)
	_, studentToken := ts.seedUser(t, "student", models.RoleStudent)

	if w := ts.do(t, http.MethodPost, "/api/exams", studentToken, examPayload()); w.Code != http.StatusForbidden {
		t.Errorf("student create status = %d", w.Code)
	}
	examID := ts.createExam(t, teacherToken)
	path := "/api/exam/" + itoa(examID)

	t.Run("students never see correct answers", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, path, studentToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "correctAnswer") {
			t.Errorf("student body contains correctAnswer: %s", w.Body.String())
		}
		w = ts.do(t, http.MethodGet, path, teacherToken, nil)
		if !strings.Contains(w.Body.String(), "correctAnswer") {
			t.Error("owner body should contain correctAnswer")
		}
	})

	t.Run("not found and bad id", func(t *testing.T) {
		if w := ts.do(t, http.MethodGet, "/api/exams/999", studentToken, nil); w.Code != http.StatusNotFound {
			t.Errorf("missing exam status = %d", w.Code)
		}
		if w := ts.do(t, http.MethodGet, "/api/exams/abc", studentToken, nil); w.Code != http.StatusBadRequest {
			t.Errorf("bad id status = %d", w.Code)
		}
		if w := ts.do(t, http.MethodGet, "/api/exams?limit=abc", studentToken, nil); w.Code != http.StatusBadRequest {
			t.Errorf("bad limit status = %d", w.Code)
		}
	})

	t.Run("non owner cannot modify", func(t *testing.T) {
		if w := ts.do(t, http.MethodPut, path, otherToken, map[string]string{"title": "Hijacked"}); w.Code != http.StatusForbidden {
			t.Errorf("update status = %d", w.Code)
		}
		if w := ts.do(t, http.MethodDelete, path, otherToken, nil); w.Code != http.StatusForbidden {
			t.Errorf("delete status = %d", w.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/exams?subject=Maths&sortOrder=asc", studentToken, nil)
		if w.Code != http.StatusOK || decode[services.ExamListResponse](t, w).Total != 1 {
			t.Errorf("list status = %d body = %s", w.Code, w.Body.String())
		}
	})

	if w := ts.do(t, http.MethodPost, path+"/submit", studentToken, map[string]interface{}{"answers": []string{"1", "2"}}); w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body = %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodDelete, path, teacherToken, nil); w.Code != http.StatusConflict {
		t.Errorf("delete with results status = %d", w.Code)
	}
	replace := map[string]interface{}{"questions": []map[string]string{{"text": "q", "type": "text", "correctAnswer": "a", "topic": "T"}}}
	if w := ts.do(t, http.MethodPut, path, teacherToken, replace); w.Code != http.StatusConflict {
		t.Errorf("replace questions with results status = %d", w.Code)
	}
}

func TestSubmitFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	_, teacherToken := ts.seedUser(t, "teacher", models.RoleTeacher)
	student, studentToken := ts.seedUser(t, "student", models.RoleStudent)
	_, otherStudentToken := ts.seedUser(t, "other-student", models.RoleStudent)
	examID := ts.createExam(t, teacherToken)

	t.Run("teacher is rejected before payload validation", func(t *testing.T) {
		if w := ts.do(t, http.MethodPost, "/api/result", teacherToken, map[string]interface{}{}); w.Code != http.StatusForbidden {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("unknown exam is 404", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/result", studentToken, map[string]interface{}{"examId": 4242, "answers": []string{"1"}})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("missing answers is 400", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/results", studentToken, map[string]interface{}{"examId": examID})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		if body := decode[ErrorResponse](t, w); body.Error != "validation_failed" || body.Details == nil {
			t.Errorf("error body = %+v", body)
		}
	})

	w := ts.do(t, http.MethodPost, "/api/result", studentToken, map[string]interface{}{
		"examId": examID, "answers": []string{"1", "7"}, "timeTaken": []int{10, 25},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body = %s", w.Code, w.Body.String())
	}
	result := decode[models.Result](t, w)
	if result.Score != 1 || result.TotalQuestions != 2 || result.TimeTaken != 35 {
		t.Errorf("result = score %d/%d time %d", result.Score, result.TotalQuestions, result.TimeTaken)
	}
	if len(result.WeakTopics) != 1 || result.WeakTopics[0].Topic != "Primes" {
		t.Errorf("weak topics = %+v", result.WeakTopics)
	}
	if strings.Contains(w.Body.String(), "correctAnswer") {
		t.Error("submit response contains correctAnswer")
	}

	if w := ts.do(t, http.MethodPost, "/api/exams/"+itoa(examID)+"/submit", studentToken, map[string]interface{}{"answers": []string{"1"}}); w.Code != http.StatusConflict {
		t.Errorf("resubmit status = %d", w.Code)
	}

	resultPath := "/api/result/" + itoa(result.ID)
	if w := ts.do(t, http.MethodGet, resultPath, studentToken, nil); w.Code != http.StatusOK {
		t.Errorf("own result status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, resultPath, otherStudentToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("other student result status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/result/student/"+student.ID, teacherToken, nil); w.Code != http.StatusOK || decode[services.ResultListResponse](t, w).Total != 1 {
		t.Errorf("teacher student results status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/results/all", studentToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("student list all status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/results/all?passed=maybe", teacherToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad passed filter status = %d", w.Code)
	}

	t.Run("student views", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/student/results", studentToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if summary := decode[services.StudentResultsResponse](t, w).PerformanceSummary; summary.TotalExams != 1 || summary.AverageScore != 50 {
			t.Errorf("summary = %+v", summary)
		}
		if w := ts.do(t, http.MethodGet, "/api/student/exams", studentToken, nil); w.Code != http.StatusOK {
			t.Errorf("exams status = %d", w.Code)
		}
		if w := ts.do(t, http.MethodGet, "/api/student/analytics", teacherToken, nil); w.Code != http.StatusForbidden {
			t.Errorf("teacher analytics status = %d", w.Code)
		}
	})

	t.Run("teacher views", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/dashboard/stats", teacherToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("stats status = %d", w.Code)
		}
		w = ts.do(t, http.MethodGet, "/api/exams/"+itoa(examID)+"/results/export", teacherToken, nil)
		if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
			t.Errorf("export status = %d content type = %q", w.Code, w.Header().Get("Content-Type"))
		}
		if !strings.Contains(w.Header().Get("Content-Disposition"), ".xlsx") {
			t.Errorf("content disposition = %q", w.Header().Get("Content-Disposition"))
		}
	})
}

type externalVerifier struct{}

func (externalVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if token != "casdoor-token" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: "cd-1", Role: models.RoleTeacher, Email: "t@school.test", Name: "Casdoor Teacher", External: true}, nil
}

func TestAuthMiddleware_ProvisionsExternalUsers(t *testing.T) {
	ts := newTestServer(t, externalVerifier{})

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, "/api/auth/me", "casdoor-token", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d body = %s", i, w.Code, w.Body.String())
		}
	}
	user, err := ts.repo.User().GetByID(context.Background(), nil, "cd-1")
	if err != nil || user.Role != models.RoleTeacher || user.Identifier != "t@school.test" {
		t.Errorf("provisioned user = %+v, %v", user, err)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
	}{
		{name: "all ok", checks: []HealthCheck{{Name: "database", Critical: true, Check: ok}, {Name: "cache", Check: ok}}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "cache down", checks: []HealthCheck{{Name: "database", Critical: true, Check: ok}, {Name: "cache", Check: down}}, wantCode: http.StatusOK, wantStatus: "degraded"},
		{name: "database down", checks: []HealthCheck{{Name: "database", Critical: true, Check: down}, {Name: "cache", Check: ok}}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil, tt.checks...)
			w := ts.do(t, http.MethodGet, "/health", "", nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			body := decode[map[string]interface{}](t, w)
			if body["status"] != tt.wantStatus {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestMiddleware_RequestIDAndHeaders(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", w.Header())
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/exams", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("X-Request-ID") != "fixed-id" {
		t.Errorf("preflight status = %d request id = %q", rec.Code, rec.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/exams", nil)
	req.Header.Set("X-Request-ID", "bad id\r\n")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got == "" || got == "bad id\r\n" {
		t.Errorf("request id not replaced: %q", got)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"3f1c2a9e-7b1d-4c55-9d1e-0c2b6b8f4a10", true},
		{"trace_01.a", true},
		{"has space", false},
		{strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		if got := validRequestID(tt.id); got != tt.want {
			t.Errorf("validRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
