package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/database/testutil"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *services.UserService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		Issuer:         "taskhive-test",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	store := cache.New(cache.NewDatabaseStore(db))

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	tasks, err := services.NewTaskService(db, audit, store, nil)
	require.NoError(t, err)
	users, err := services.NewUserService(db, store)
	require.NoError(t, err)

	r, err := NewRouter(Deps{DB: db, JWT: jwt, Tasks: tasks, Audit: audit, Users: users})
	require.NoError(t, err)

	return r, users
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func loginToken(t *testing.T, r *gin.Engine, identifier, password string) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	tokens := data["tokens"].(map[string]any)
	return tokens["access_token"].(string)
}

func TestRouterTaskLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	// Register and login.
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	token := loginToken(t, r, "alice", "password1")

	// Unauthenticated access is rejected.
	w = doJSON(t, r, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Create a task.
	w = doJSON(t, r, http.MethodPost, "/api/tasks", token, gin.H{
		"title": "ship it", "description": "v1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeData(t, w)
	taskID := task["id"].(string)
	require.Equal(t, "ship it", task["title"])

	// Toggle completion.
	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%s/toggle", taskID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decodeData(t, w)["completed"])

	// History is reachable by the owner.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/audit/task/%s", taskID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Success bool             `json:"success"`
		Data    []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 2)
	require.Equal(t, models.ActionCompleted, history.Data[0]["action"])
	require.Equal(t, models.ActionCreated, history.Data[1]["action"])

	// Delete hides the task but keeps the history endpoint working.
	w = doJSON(t, r, http.MethodDelete, "/api/tasks/"+taskID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/tasks/"+taskID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/audit/task/%s", taskID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 3)
	require.Equal(t, models.ActionDeleted, history.Data[0]["action"])
}

func TestRouterAdminBoundaries(t *testing.T) {
	r, users := newTestRouter(t)

	_, err := users.Create(context.Background(), services.CreateUserInput{
		Username: "root", Email: "root@example.com", Password: "password1", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "bob@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	adminToken := loginToken(t, r, "root", "password1")
	userToken := loginToken(t, r, "bob", "password1")

	// Audit listing is admin-only.
	w = doJSON(t, r, http.MethodGet, "/api/audit", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// So is the user directory.
	w = doJSON(t, r, http.MethodGet, "/api/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A stranger cannot read another user's task.
	w = doJSON(t, r, http.MethodPost, "/api/tasks", userToken, gin.H{"title": "bob's"})
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := decodeData(t, w)["id"].(string)

	strangerRegister := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "carol", "email": "carol@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, strangerRegister.Code)
	carolToken := loginToken(t, r, "carol", "password1")

	w = doJSON(t, r, http.MethodGet, "/api/tasks/"+taskID, carolToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Admins see everything.
	w = doJSON(t, r, http.MethodGet, "/api/tasks/"+taskID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decodeData(t, w)["status"])

	w = doJSON(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
