package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberlab/internal/auth"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
	"cyberlab/internal/repo"
	"cyberlab/internal/secrets"
)

type env struct {
	router *mux.Router
	users  repo.Users
	svc    *auth.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repo.NewMemUserStore()
	svc := auth.NewService(store, repo.NewMemCodeStore(),
		auth.NewTokenIssuer("test-secret", 30*time.Minute), nil, 5*time.Minute)
	r := mux.NewRouter()
	RegisterRoutes(r, svc, NewHandler(store))
	return &env{router: r, users: store, svc: svc}
}

func (e *env) addUser(t *testing.T, email, role string) string {
	t.Helper()
	hash, err := secrets.HashPassword("pw-for-" + email)
	require.NoError(t, err)
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		IsVerified:   true,
	}
	u.SetCustomPerms(nil)
	require.NoError(t, e.users.Create(context.Background(), u))
	token, err := e.svc.IssueToken(email)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")

	rec := e.do(t, http.MethodPost, "/users/create", admin, map[string]any{
		"email":              "new@e.com",
		"password":           "secret123",
		"full_name":          "New User",
		"role":               "co_admin",
		"custom_permissions": []string{"keyvault:delete_keys", "bogus:perm"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := e.users.GetByEmail(context.Background(), "new@e.com")
	require.NoError(t, err)
	assert.Equal(t, "co_admin", u.Role)
	assert.Equal(t, "admin@e.com", u.CreatedBy)
	// мусорные идентификаторы отфильтрованы
	assert.Equal(t, []string{"keyvault:delete_keys"}, u.CustomPerms())

	// дубликат
	rec = e.do(t, http.MethodPost, "/users/create", admin, map[string]any{
		"email": "new@e.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUser_RequiresPermission(t *testing.T) {
	e := newEnv(t)
	normal := e.addUser(t, "user@e.com", "normal")
	rec := e.do(t, http.MethodPost, "/users/create", normal, map[string]any{
		"email": "x@e.com", "password": "x",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/users/create", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateUser_SelfDemotionRejected(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")

	rec := e.do(t, http.MethodPut, "/users/admin@e.com", admin, map[string]any{
		"role": "normal",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// другие поля себе менять можно
	rec = e.do(t, http.MethodPut, "/users/admin@e.com", admin, map[string]any{
		"full_name": "Root Admin",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")
	e.addUser(t, "target@e.com", "normal")

	rec := e.do(t, http.MethodPut, "/users/target@e.com", admin, map[string]any{
		"role":      "limited",
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := e.users.GetByEmail(context.Background(), "target@e.com")
	require.NoError(t, err)
	assert.Equal(t, "limited", u.Role)
	assert.False(t, u.IsActive)

	rec = e.do(t, http.MethodPut, "/users/ghost@e.com", admin, map[string]any{"role": "normal"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")
	e.addUser(t, "doomed@e.com", "normal")

	// себя удалить нельзя
	rec := e.do(t, http.MethodDelete, "/users/admin@e.com", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodDelete, "/users/doomed@e.com", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := e.users.GetByEmail(context.Background(), "doomed@e.com")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	rec = e.do(t, http.MethodDelete, "/users/doomed@e.com", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePermissions(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")
	e.addUser(t, "target@e.com", "limited")

	rec := e.do(t, http.MethodPut, "/users/target@e.com/permissions", admin, map[string]any{
		"action":      "set",
		"permissions": []string{"scanner:redact", "nonsense"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	u, err := e.users.GetByEmail(context.Background(), "target@e.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"scanner:redact"}, u.CustomPerms())

	rec = e.do(t, http.MethodPut, "/users/target@e.com/permissions", admin, map[string]any{
		"action":      "add",
		"permissions": []string{"password:breach_check", "scanner:redact"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	u, _ = e.users.GetByEmail(context.Background(), "target@e.com")
	assert.ElementsMatch(t, []string{"scanner:redact", "password:breach_check"}, u.CustomPerms())

	rec = e.do(t, http.MethodPut, "/users/target@e.com/permissions", admin, map[string]any{
		"action":      "remove",
		"permissions": []string{"scanner:redact"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	u, _ = e.users.GetByEmail(context.Background(), "target@e.com")
	assert.Equal(t, []string{"password:breach_check"}, u.CustomPerms())

	rec = e.do(t, http.MethodPut, "/users/target@e.com/permissions", admin, map[string]any{
		"action": "explode",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserPermissions_SelfAndAdmin(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "admin@e.com", "admin")
	admin := "admin@e.com"
	adminTok, err := e.svc.IssueToken(admin)
	require.NoError(t, err)
	userTok := e.addUser(t, "user@e.com", "normal")

	// свои права видит каждый
	rec := e.do(t, http.MethodGet, "/users/user@e.com/permissions", userTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// чужие — только управляющий правами
	rec = e.do(t, http.MethodGet, "/users/admin@e.com/permissions", userTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/users/user@e.com/permissions", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Role      string   `json:"role"`
		Effective []string `json:"effective_permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "normal", body.Role)
	assert.NotEmpty(t, body.Effective)
}

func TestRolesAndCategories(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "admin@e.com", "admin")

	rec := e.do(t, http.MethodGet, "/users/roles", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roles struct {
		Roles     map[string]any `json:"roles"`
		Available []string       `json:"available_permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	assert.Len(t, roles.Roles, 4)
	assert.Len(t, roles.Available, len(rbac.AllPermissions))

	rec = e.do(t, http.MethodGet, "/users/permissions/categories", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats struct {
		Categories map[string][]map[string]string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Len(t, cats.Categories, len(rbac.Categories))
	assert.Contains(t, cats.Categories, "Security Simulations")

	rec = e.do(t, http.MethodGet, "/users/permissions", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine.Permissions, len(rbac.AllPermissions))
}
