package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cyberlab/internal/models"
	"cyberlab/internal/repo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes вешает открытые auth-маршруты и защищённый /auth/me.
func RegisterRoutes(r *mux.Router, svc *Service) {
	h := NewHandler(svc)
	sub := r.PathPrefix("/auth").Subrouter()
	sub.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	sub.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	sub.HandleFunc("/mfa/send", h.SendCode).Methods(http.MethodPost)
	sub.HandleFunc("/mfa/verify", h.VerifyCode).Methods(http.MethodPost)

	me := r.PathPrefix("/auth").Subrouter()
	me.Use(RequireAuth(svc))
	me.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "email and password required", nil)
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"user with this email already exists", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"registration failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user registered successfully",
		"email":   u.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login — первый фактор. Токен здесь не выдаётся: только подтверждение
// пароля и приглашение пройти MFA.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	u, err := h.svc.Authenticate(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
				ErrInvalidCredentials.Error(), nil)
		case errors.Is(err, ErrEmailNotVerified):
			models.WriteProblem(w, http.StatusForbidden, "Forbidden",
				ErrEmailNotVerified.Error(), nil)
		case errors.Is(err, ErrAccountDeactivated):
			models.WriteProblem(w, http.StatusForbidden, "Forbidden",
				ErrAccountDeactivated.Error(), nil)
		default:
			models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
				"login failed", nil)
		}
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "credentials verified, please complete MFA",
		"mfa_required": true,
		"email":        u.Email,
	})
}

type mfaRequest struct {
	Email string `json:"email"`
}

func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req mfaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	deliveryErr, err := h.svc.IssueCode(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "unknown email", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to issue code", nil)
		return
	}
	resp := map[string]any{
		"success": true,
		"message": "code sent to " + email,
	}
	if deliveryErr != nil {
		// код сохранён и действует, доставка — предупреждение, не отказ
		resp["warning"] = "code stored but email delivery failed"
	}
	models.WriteJSON(w, http.StatusOK, resp)
}

type mfaVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req mfaVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	token, err := h.svc.CompleteLogin(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
				ErrInvalidCode.Error(), nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"verification failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, IdentityFrom(r))
}
