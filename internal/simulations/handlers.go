package simulations

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"cyberlab/internal/auth"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func RegisterRoutes(r *mux.Router, authSvc *auth.Service, h *Handler) {
	sub := r.PathPrefix("/simulations").Subrouter()
	sub.Use(auth.RequireAuth(authSvc))
	sub.Use(auth.RequirePermission(rbac.PermSimulationsRun))

	sub.HandleFunc("/encrypt/in-transit", h.EncryptInTransit).Methods(http.MethodPost)
	sub.HandleFunc("/decrypt/in-transit", h.DecryptInTransit).Methods(http.MethodPost)
	sub.HandleFunc("/encrypt/at-rest", h.EncryptAtRest).Methods(http.MethodPost)
	sub.HandleFunc("/decrypt/at-rest", h.DecryptAtRest).Methods(http.MethodPost)
	sub.HandleFunc("/encrypt/lifecycle", h.Lifecycle).Methods(http.MethodPost)
}

type encryptRequest struct {
	Data     string `json:"data"`
	Password string `json:"password"`
}

type decryptRequest struct {
	EncryptedData string `json:"encrypted_data"`
	Password      string `json:"password"`
	Salt          string `json:"salt"`
	Key           string `json:"key"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return false
	}
	return true
}

func (h *Handler) EncryptInTransit(w http.ResponseWriter, r *http.Request) {
	var req encryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Data == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "data is required", nil)
		return
	}
	if req.Password == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"password required for in-transit encryption", nil)
		return
	}
	res, err := h.svc.EncryptInTransit(req.Data, req.Password)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"encryption failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) DecryptInTransit(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.EncryptedData == "" || req.Password == "" || req.Salt == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"encrypted_data, password and salt are required", nil)
		return
	}
	plain, err := h.svc.DecryptInTransit(req.EncryptedData, req.Password, req.Salt)
	if err != nil {
		h.writeDecryptErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"decrypted_data": plain,
		"method":         methodName,
	})
}

func (h *Handler) EncryptAtRest(w http.ResponseWriter, r *http.Request) {
	var req encryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Data == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "data is required", nil)
		return
	}
	res, err := h.svc.EncryptAtRest(req.Data)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"encryption failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) DecryptAtRest(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.EncryptedData == "" || req.Key == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"encrypted_data and key are required", nil)
		return
	}
	plain, err := h.svc.DecryptAtRest(req.EncryptedData, req.Key)
	if err != nil {
		h.writeDecryptErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"decrypted_data": plain,
		"method":         methodName,
	})
}

func (h *Handler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	var req encryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Data == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "data is required", nil)
		return
	}
	res, err := h.svc.Lifecycle(req.Data)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"lifecycle demo failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}

// writeDecryptErr — неверный ключ/пароль и порченый токен отдаются как 400:
// это ошибка входа клиента, а не сервера.
func (h *Handler) writeDecryptErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrDecrypt) {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", ErrDecrypt.Error(), nil)
		return
	}
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
		"decryption failed", nil)
}
