package password

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"cyberlab/internal/auth"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
)

type Handler struct {
	checker *Checker
	now     func() time.Time
}

func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker, now: time.Now}
}

func RegisterRoutes(r *mux.Router, svc *auth.Service, h *Handler) {
	sub := r.PathPrefix("/password-checker").Subrouter()
	sub.Use(auth.RequireAuth(svc))

	sub.Handle("/analyze",
		auth.RequirePermission(rbac.PermPasswordAnalyze)(http.HandlerFunc(h.Analyze))).Methods(http.MethodPost)
	sub.Handle("/check-breach",
		auth.RequirePermission(rbac.PermPasswordBreachCheck)(http.HandlerFunc(h.CheckBreach))).Methods(http.MethodPost)
	sub.HandleFunc("/policy/default", h.DefaultPolicy).Methods(http.MethodGet)
}

type analyzeRequest struct {
	Password      string  `json:"password"`
	CheckBreaches *bool   `json:"check_breaches"` // nil -> true
	CustomPolicy  *Policy `json:"custom_policy"`
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "password is required", nil)
		return
	}
	policy := DefaultPolicy()
	if req.CustomPolicy != nil {
		policy = *req.CustomPolicy
	}
	breach := BreachInfo{Checked: false}
	if req.CheckBreaches == nil || *req.CheckBreaches {
		breach = h.checker.CheckBreach(r.Context(), req.Password)
	}
	analysis := Analyze(req.Password, policy, breach, h.now().UTC())
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
	})
}

type breachRequest struct {
	Password string `json:"password"`
}

func (h *Handler) CheckBreach(w http.ResponseWriter, r *http.Request) {
	var req breachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "password is required", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"breach_info": h.checker.CheckBreach(r.Context(), req.Password),
	})
}

func (h *Handler) DefaultPolicy(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"policy":  DefaultPolicy(),
	})
}
