package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/service"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
)

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newRouter(auth Authenticator, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(auth)}, guards...)
	chain = append(chain, func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	r.GET("/users/:id", chain...)
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var stub = stubAuthenticator{users: map[string]*models.User{
	"admin-token":   {ID: "a1", Role: models.RoleAdmin, Active: true},
	"teacher-token": {ID: "t1", Role: models.RoleTeacher, Active: true},
}}

func TestJWTRequiresBearerToken(t *testing.T) {
	r := newRouter(stub)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer    ", "Bearer wrong"} {
		w := do(r, "/users/t1", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"), header)
	}

	w := do(r, "/users/t1", "bearer teacher-token")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "t1", body["id"])
}

func TestJWTPropagatesInactiveAccount(t *testing.T) {
	r := newRouter(stubAuthenticator{err: appErrors.ErrInactiveAccount})
	w := do(r, "/users/t1", "Bearer any")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ACCOUNT_INACTIVE")
}

func TestRBACRolesAndSelf(t *testing.T) {
	adminOnly := newRouter(stub, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, do(adminOnly, "/users/t1", "Bearer admin-token").Code)
	assert.Equal(t, http.StatusForbidden, do(adminOnly, "/users/t1", "Bearer teacher-token").Code)

	adminOrSelf := newRouter(stub, RBAC(string(models.RoleAdmin), AllowSelf))
	assert.Equal(t, http.StatusOK, do(adminOrSelf, "/users/t1", "Bearer teacher-token").Code)
	assert.Equal(t, http.StatusForbidden, do(adminOrSelf, "/users/a1", "Bearer teacher-token").Code)
}

func TestRBACWithoutUserIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, do(r, "/x", "").Code)
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, "/students/42", "")
	do(r, "/nowhere", "")

	w := do(metrics.Handler(), "/metrics", "")
	assert.Contains(t, w.Body.String(), `path="/students/:id"`)
	assert.Contains(t, w.Body.String(), `path="unmatched"`)
	assert.NotContains(t, w.Body.String(), "/students/42")
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/stats", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.GET("/plain", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	do(r, "/stats", "")
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")

	do(r, "/plain", "")
	assert.Nil(t, meta)
}
