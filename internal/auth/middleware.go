package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
)

type ctxKey string

const identityKey ctxKey = "identity"

// IdentityFrom достаёт Identity, положенный RequireAuth.
func IdentityFrom(r *http.Request) *Identity {
	id, _ := r.Context().Value(identityKey).(*Identity)
	return id
}

// RequireAuth — bearer-токен в Authorization, Authorize на каждый запрос.
// 401 — проблема идентичности, 403 — деактивированный аккаунт.
func RequireAuth(svc *Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, p) {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"missing bearer token", nil)
				return
			}
			id, err := svc.Authorize(r.Context(), strings.TrimPrefix(header, p))
			if err != nil {
				if errors.Is(err, ErrAccountDeactivated) {
					models.WriteProblem(w, http.StatusForbidden, "Forbidden",
						ErrAccountDeactivated.Error(), nil)
					return
				}
				// invalid token и user not found неразличимы снаружи
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"could not validate credentials", nil)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission — проверка разрешения поверх RequireAuth.
// Bypass для admin живёт в rbac-резолвере, здесь он не дублируется.
func RequirePermission(p rbac.Permission) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r)
			if id == nil {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"missing identity", nil)
				return
			}
			if !id.Has(p) {
				models.WriteProblem(w, http.StatusForbidden, "Forbidden",
					"permission required: "+string(p), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
