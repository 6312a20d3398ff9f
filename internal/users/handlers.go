package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"cyberlab/internal/auth"
	"cyberlab/internal/logs"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
	"cyberlab/internal/repo"
	"cyberlab/internal/secrets"
)

// Handler — админский контур управления пользователями.
type Handler struct {
	users repo.Users
}

func NewHandler(users repo.Users) *Handler { return &Handler{users: users} }

func RegisterRoutes(r *mux.Router, authSvc *auth.Service, h *Handler) {
	sub := r.PathPrefix("/users").Subrouter()
	sub.Use(auth.RequireAuth(authSvc))

	perm := func(p rbac.Permission, fn http.HandlerFunc) http.Handler {
		return auth.RequirePermission(p)(fn)
	}

	// статические пути раньше шаблонных
	sub.Handle("/all", perm(rbac.PermUsersView, h.ListUsers)).Methods(http.MethodGet)
	sub.Handle("/create", perm(rbac.PermUsersManage, h.CreateUser)).Methods(http.MethodPost)
	sub.HandleFunc("/permissions", h.MyPermissions).Methods(http.MethodGet)
	sub.Handle("/permissions/categories",
		perm(rbac.PermUsersManagePermissions, h.PermissionCategories)).Methods(http.MethodGet)
	sub.Handle("/roles", perm(rbac.PermUsersView, h.Roles)).Methods(http.MethodGet)

	sub.Handle("/{email}", perm(rbac.PermUsersManage, h.UpdateUser)).Methods(http.MethodPut)
	sub.Handle("/{email}", perm(rbac.PermUsersManage, h.DeleteUser)).Methods(http.MethodDelete)
	sub.HandleFunc("/{email}/permissions", h.UserPermissions).Methods(http.MethodGet)
	sub.Handle("/{email}/permissions",
		perm(rbac.PermUsersManagePermissions, h.UpdatePermissions)).Methods(http.MethodPut)
}

// userView — пользователь наружу, без хэша пароля.
type userView struct {
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Role              string     `json:"role"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	MFAEnabled        bool       `json:"mfa_enabled"`
	CustomPermissions []string   `json:"custom_permissions"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         *time.Time `json:"last_login"`
	CreatedBy         string     `json:"created_by,omitempty"`
}

func toView(u *models.User) userView {
	return userView{
		Email:             u.Email,
		FullName:          u.FullName,
		Role:              u.Role,
		IsActive:          u.IsActive,
		IsVerified:        u.IsVerified,
		MFAEnabled:        u.MFAEnabled,
		CustomPermissions: u.CustomPerms(),
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
		CreatedBy:         u.CreatedBy,
	}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to list users", nil)
		return
	}
	out := make([]userView, 0, len(list))
	for i := range list {
		out = append(out, toView(&list[i]))
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"total": len(out), "users": out})
}

type createUserRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	FullName          string   `json:"full_name"`
	Role              string   `json:"role"`
	CustomPermissions []string `json:"custom_permissions"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"email and password required", nil)
		return
	}
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to create user", nil)
		return
	}
	role := string(rbac.ParseRole(req.Role))
	u := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
		IsVerified:   true,
		MFAEnabled:   true,
		CreatedBy:    auth.IdentityFrom(r).Email,
	}
	u.SetCustomPerms(rbac.FilterValid(req.CustomPermissions))
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"user with this email already exists", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to create user", nil)
		return
	}
	logs.Component("users").WithField("email", u.Email).
		WithField("created_by", u.CreatedBy).Info("user created")
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user " + u.Email + " created successfully",
		"user":    toView(u),
	})
}

type updateUserRequest struct {
	FullName          *string   `json:"full_name"`
	Role              *string   `json:"role"`
	CustomPermissions *[]string `json:"custom_permissions"`
	IsActive          *bool     `json:"is_active"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	target := strings.ToLower(mux.Vars(r)["email"])
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	ident := auth.IdentityFrom(r)
	// админ не может снять роль с самого себя
	if target == ident.Email && req.Role != nil && rbac.ParseRole(*req.Role) != rbac.RoleAdmin &&
		rbac.ParseRole(ident.Role) == rbac.RoleAdmin {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"you cannot change your own admin role", nil)
		return
	}
	u, err := h.users.GetByEmail(r.Context(), target)
	if err != nil {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "user not found", nil)
		return
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Role != nil {
		u.Role = string(rbac.ParseRole(*req.Role))
	}
	if req.CustomPermissions != nil {
		u.SetCustomPerms(rbac.FilterValid(*req.CustomPermissions))
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to update user", nil)
		return
	}
	logs.Component("users").WithField("email", target).
		WithField("updated_by", ident.Email).Info("user updated")
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "user " + target + " updated successfully",
		"user":    toView(u),
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	target := strings.ToLower(mux.Vars(r)["email"])
	ident := auth.IdentityFrom(r)
	if target == ident.Email {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"you cannot delete your own account", nil)
		return
	}
	if err := h.users.Delete(r.Context(), target); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "user not found", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to delete user", nil)
		return
	}
	logs.Component("users").WithField("email", target).
		WithField("deleted_by", ident.Email).Info("user deleted")
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "user " + target + " deleted successfully",
	})
}

// UserPermissions — разбор прав конкретного пользователя. Свои права видит
// каждый, чужие — только с правом управления.
func (h *Handler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	target := strings.ToLower(mux.Vars(r)["email"])
	ident := auth.IdentityFrom(r)
	if target != ident.Email && !ident.Has(rbac.PermUsersManagePermissions) {
		models.WriteProblem(w, http.StatusForbidden, "Forbidden",
			"permission required: "+string(rbac.PermUsersManagePermissions), nil)
		return
	}
	u, err := h.users.GetByEmail(r.Context(), target)
	if err != nil {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "user not found", nil)
		return
	}
	role := rbac.ParseRole(u.Role)
	rolePerms := make([]string, 0, len(rbac.RolePermissions[role]))
	for _, p := range rbac.RolePermissions[role] {
		rolePerms = append(rolePerms, string(p))
	}
	custom := u.CustomPerms()
	effective := rbac.EffectiveList(u.Role, custom)
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"email":                 target,
		"role":                  string(role),
		"role_permissions":      rolePerms,
		"custom_permissions":    custom,
		"effective_permissions": effective,
		"total_permissions":     len(effective),
	})
}

type permissionUpdateRequest struct {
	Action      string   `json:"action"` // set | add | remove
	Permissions []string `json:"permissions"`
}

func (h *Handler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	target := strings.ToLower(mux.Vars(r)["email"])
	var req permissionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	u, err := h.users.GetByEmail(r.Context(), target)
	if err != nil {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "user not found", nil)
		return
	}
	valid := rbac.FilterValid(req.Permissions)
	current := u.CustomPerms()
	var next []string
	switch req.Action {
	case "set":
		next = valid
	case "add":
		seen := map[string]bool{}
		for _, p := range append(current, valid...) {
			if !seen[p] {
				seen[p] = true
				next = append(next, p)
			}
		}
	case "remove":
		drop := map[string]bool{}
		for _, p := range valid {
			drop[p] = true
		}
		for _, p := range current {
			if !drop[p] {
				next = append(next, p)
			}
		}
	default:
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"invalid action, use 'set', 'add' or 'remove'", nil)
		return
	}
	u.SetCustomPerms(next)
	if err := h.users.Update(r.Context(), u); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to update permissions", nil)
		return
	}
	logs.Component("users").WithField("email", target).
		WithField("action", req.Action).Info("permissions updated")
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"message":               "permissions updated for " + target,
		"action":                req.Action,
		"custom_permissions":    next,
		"effective_permissions": rbac.EffectiveList(u.Role, next),
	})
}

// MyPermissions — права текущего пользователя.
func (h *Handler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r)
	role := rbac.ParseRole(ident.Role)
	rolePerms := make([]string, 0, len(rbac.RolePermissions[role]))
	for _, p := range rbac.RolePermissions[role] {
		rolePerms = append(rolePerms, string(p))
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"email":              ident.Email,
		"role":               string(role),
		"permissions":        ident.Permissions,
		"role_permissions":   rolePerms,
		"custom_permissions": ident.CustomPermissions,
	})
}

func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	roles := map[string]any{}
	for role, perms := range rbac.RolePermissions {
		list := make([]string, 0, len(perms))
		for _, p := range perms {
			list = append(list, string(p))
		}
		roles[string(role)] = map[string]any{
			"name":             string(role),
			"permissions":      list,
			"permission_count": len(list),
		}
	}
	available := make([]string, 0, len(rbac.AllPermissions))
	for _, p := range rbac.AllPermissions {
		available = append(available, string(p))
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"roles":                 roles,
		"available_permissions": available,
	})
}

func (h *Handler) PermissionCategories(w http.ResponseWriter, r *http.Request) {
	type permInfo struct {
		Value string `json:"value"`
		Name  string `json:"name"`
	}
	categories := map[string][]permInfo{}
	for cat, perms := range rbac.Categories {
		for _, p := range perms {
			categories[cat] = append(categories[cat], permInfo{
				Value: string(p),
				Name:  rbac.Names[p],
			})
		}
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"categories":        categories,
		"total_permissions": len(rbac.AllPermissions),
	})
}
