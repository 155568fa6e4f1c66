package handler

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sice-api/internal/middleware"
	"github.com/noah-isme/sice-api/internal/models"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

var (
	admin   = &models.User{ID: "admin-1", Email: "admin@sice.test", Role: models.RoleAdmin, Active: true}
	teacher = &models.User{ID: "teacher-1", Email: "ana@sice.test", Role: models.RoleTeacher, Active: true}
)

// newContext builds a test context; a non-nil user is stored as the authenticated caller.
func newContext(method, target string, body io.Reader, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	if user != nil {
		c.Set(middleware.ContextUserKey, user)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
