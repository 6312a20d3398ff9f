package keyvault

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cyberlab/internal/auth"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
	"cyberlab/internal/repo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func RegisterRoutes(r *mux.Router, authSvc *auth.Service, h *Handler) {
	sub := r.PathPrefix("/keyvault").Subrouter()
	sub.Use(auth.RequireAuth(authSvc))

	perm := func(p rbac.Permission, fn http.HandlerFunc) http.Handler {
		return auth.RequirePermission(p)(fn)
	}

	sub.Handle("/keys/generate", perm(rbac.PermKeyvaultGenerateKeys, h.GenerateKey)).Methods(http.MethodPost)
	sub.Handle("/keys", perm(rbac.PermKeyvaultViewKeys, h.ListKeys)).Methods(http.MethodGet)
	sub.Handle("/keys/{id}", perm(rbac.PermKeyvaultViewKeys, h.GetKey)).Methods(http.MethodGet)
	sub.Handle("/keys/{id}/rotate", perm(rbac.PermKeyvaultRotateKeys, h.RotateKey)).Methods(http.MethodPost)
	sub.Handle("/keys/{id}", perm(rbac.PermKeyvaultDeleteKeys, h.DeleteKey)).Methods(http.MethodDelete)
	sub.Handle("/keys/{id}/download", perm(rbac.PermKeyvaultDownloadKeys, h.DownloadKey)).Methods(http.MethodGet)
	sub.Handle("/keys/{id}/send-email", perm(rbac.PermKeyvaultSendEmail, h.SendKeyEmail)).Methods(http.MethodPost)

	sub.Handle("/certificates/generate", perm(rbac.PermKeyvaultGenerateCerts, h.GenerateCert)).Methods(http.MethodPost)
	sub.Handle("/certificates", perm(rbac.PermKeyvaultViewCerts, h.ListCerts)).Methods(http.MethodGet)
	sub.Handle("/certificates/{id}/validate", perm(rbac.PermKeyvaultViewCerts, h.ValidateCert)).Methods(http.MethodGet, http.MethodPost)
	sub.Handle("/certificates/{id}/download", perm(rbac.PermKeyvaultDownloadCerts, h.DownloadCert)).Methods(http.MethodGet)

	sub.Handle("/statistics", perm(rbac.PermKeyvaultViewKeys, h.Statistics)).Methods(http.MethodGet)
}

type generateKeyRequest struct {
	KeyName string `json:"key_name"`
	KeyType string `json:"key_type"`
	KeySize int    `json:"key_size"`
}

func (h *Handler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	var req generateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	req.KeyName = strings.TrimSpace(req.KeyName)
	if req.KeyName == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "key_name is required", nil)
		return
	}
	if req.KeyType == "" {
		req.KeyType = "RSA"
	}
	info, err := h.svc.GenerateKey(r.Context(), auth.IdentityFrom(r).Email, req.KeyName, req.KeyType, req.KeySize)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNameTaken):
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"key with this name already exists", nil)
		case errors.Is(err, ErrUnsupportedKeyType), errors.Is(err, ErrBadKeySize):
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		default:
			models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
				"key generation failed", nil)
		}
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "key": info})
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListKeys(r.Context(), auth.IdentityFrom(r).Email)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to list keys", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"total": len(keys), "keys": keys})
}

func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetKey(r.Context(), auth.IdentityFrom(r).Email, mux.Vars(r)["id"])
	if err != nil {
		writeKeyErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "key": info})
}

func (h *Handler) RotateKey(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.RotateKey(r.Context(), auth.IdentityFrom(r).Email, mux.Vars(r)["id"])
	if err != nil {
		writeKeyErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "rotation": info})
}

func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteKey(r.Context(), auth.IdentityFrom(r).Email, mux.Vars(r)["id"]); err != nil {
		writeKeyErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "key deleted"})
}

func (h *Handler) DownloadKey(w http.ResponseWriter, r *http.Request) {
	includePrivate := r.URL.Query().Get("include_private") == "true"
	filename, content, err := h.svc.DownloadKey(r.Context(), auth.IdentityFrom(r).Email,
		mux.Vars(r)["id"], includePrivate)
	if err != nil {
		if errors.Is(err, ErrPrivateOnly) {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"aes keys only have private material, set include_private=true", nil)
			return
		}
		writeKeyErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", `attachment; filename=`+filename)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

type sendEmailRequest struct {
	To string `json:"to"`
}

func (h *Handler) SendKeyEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.To == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "recipient is required", nil)
		return
	}
	if err := h.svc.SendKeyEmail(r.Context(), auth.IdentityFrom(r).Email, mux.Vars(r)["id"], req.To); err != nil {
		switch {
		case errors.Is(err, repo.ErrKeyNotFound):
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "key not found", nil)
		case errors.Is(err, ErrPrivateOnly):
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"only rsa public keys can be emailed", nil)
		default:
			models.WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "mail delivery failed", nil)
		}
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "key sent to " + req.To})
}

type generateCertRequest struct {
	CertName     string `json:"cert_name"`
	CommonName   string `json:"common_name"`
	ValidityDays int    `json:"validity_days"`
}

func (h *Handler) GenerateCert(w http.ResponseWriter, r *http.Request) {
	var req generateCertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	req.CertName = strings.TrimSpace(req.CertName)
	req.CommonName = strings.TrimSpace(req.CommonName)
	if req.CertName == "" || req.CommonName == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"cert_name and common_name are required", nil)
		return
	}
	info, err := h.svc.GenerateCertificate(r.Context(), auth.IdentityFrom(r).Email,
		req.CertName, req.CommonName, req.ValidityDays)
	if err != nil {
		if errors.Is(err, repo.ErrNameTaken) {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"certificate with this name already exists", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"certificate generation failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "certificate": info})
}

func (h *Handler) ListCerts(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.ListCertificates(r.Context(), auth.IdentityFrom(r).Email)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to list certificates", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"total": len(certs), "certificates": certs})
}

func (h *Handler) ValidateCert(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ValidateCertificate(r.Context(), auth.IdentityFrom(r).Email, mux.Vars(r)["id"])
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"validation failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "validation": v})
}

func (h *Handler) DownloadCert(w http.ResponseWriter, r *http.Request) {
	includePrivate := r.URL.Query().Get("include_private_key") == "true"
	filename, content, err := h.svc.DownloadCertificate(r.Context(), auth.IdentityFrom(r).Email,
		mux.Vars(r)["id"], includePrivate)
	if err != nil {
		if errors.Is(err, repo.ErrCertNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "certificate not found", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"download failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", `attachment; filename=`+filename)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context(), auth.IdentityFrom(r).Email)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to compute statistics", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "statistics": stats})
}

func writeKeyErr(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrKeyNotFound) {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "key not found", nil)
		return
	}
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
		"keyvault operation failed", nil)
}
