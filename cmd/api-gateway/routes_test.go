package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment-api/internal/handler"
	"github.com/noah-isme/course-enrollment-api/internal/models"
	"github.com/noah-isme/course-enrollment-api/internal/service"
	"github.com/noah-isme/course-enrollment-api/pkg/config"
	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
)

type staticTokens map[string]models.UserRole

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: token, Role: role}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	return newRouter(cfg, zap.NewNop(), routeDeps{
		tokens:      staticTokens{"student": models.RoleStudent, "lecturer": models.RoleLecturer},
		metrics:     service.NewMetricsService(),
		enrollments: handler.NewEnrollmentHandler(nil),
		projects:    handler.NewProjectHandler(nil, nil),
		health:      handler.NewHealthHandler(nil, nil),
	})
}

func request(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouterRegistersLifecycleRoutes(t *testing.T) {
	r := newTestRouter(t)
	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, expected := range []string{
		"POST /api/v1/enrollments",
		"GET /api/v1/enrollments/lookup",
		"PUT /api/v1/enrollments/:id/project",
		"POST /api/v1/enrollments/:id/remove-from-project",
		"POST /api/v1/enrollments/:id/restore-to-project",
		"POST /api/v1/enrollments/:id/restore",
		"GET /api/v1/enrollments/projects/:projectId/history",
		"DELETE /api/v1/projects/:id",
		"POST /api/v1/projects/:id/restore",
		"GET /metrics",
	} {
		assert.True(t, registered[expected], expected)
	}
	assert.False(t, registered["GET /docs/*any"])
}

func TestRouterGuardsMutations(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodPost, "/api/v1/enrollments", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodPost, "/api/v1/enrollments", "forged").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/api/v1/enrollments", "student").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/api/v1/enrollments/1/remove-from-project", "student").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodDelete, "/api/v1/projects/1", "student").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/api/v1/projects/1/restore", "student").Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodGet, "/api/v1/enrollments/projects/1/history", "student").Code)
}

func TestRouterProbes(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusOK, request(r, http.MethodGet, "/ready", "").Code)

	w := request(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
