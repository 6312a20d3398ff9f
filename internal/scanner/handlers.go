package scanner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"cyberlab/internal/auth"
	"cyberlab/internal/logs"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
	"cyberlab/internal/repo"
)

// maxUploadSize — потолок на загружаемый файл, 1 МиБ.
const maxUploadSize = 1 << 20

type Handler struct {
	engine  *Engine
	scans   repo.Scans
	fetcher *Fetcher
	now     func() time.Time
}

func NewHandler(engine *Engine, scans repo.Scans, fetcher *Fetcher) *Handler {
	return &Handler{engine: engine, scans: scans, fetcher: fetcher, now: time.Now}
}

// RegisterRoutes вешает маршруты сканера; все под токеном, операции — под
// соответствующими правами.
func RegisterRoutes(r *mux.Router, svc *auth.Service, h *Handler) {
	sub := r.PathPrefix("/secret-scanner").Subrouter()
	sub.Use(auth.RequireAuth(svc))

	sub.Handle("/scan/text",
		auth.RequirePermission(rbac.PermScannerScanText)(http.HandlerFunc(h.ScanText))).Methods(http.MethodPost)
	sub.Handle("/scan/file",
		auth.RequirePermission(rbac.PermScannerScanFiles)(http.HandlerFunc(h.ScanFile))).Methods(http.MethodPost)
	sub.Handle("/scan/github-url",
		auth.RequirePermission(rbac.PermScannerScanURLs)(http.HandlerFunc(h.ScanGitHub))).Methods(http.MethodPost)
	sub.Handle("/redact",
		auth.RequirePermission(rbac.PermScannerRedact)(http.HandlerFunc(h.Redact))).Methods(http.MethodPost)
	sub.Handle("/history",
		auth.RequirePermission(rbac.PermScannerViewHistory)(http.HandlerFunc(h.History))).Methods(http.MethodGet)
	sub.HandleFunc("/patterns", h.Patterns).Methods(http.MethodGet)
	sub.Handle("/statistics",
		auth.RequirePermission(rbac.PermScannerViewHistory)(http.HandlerFunc(h.Statistics))).Methods(http.MethodGet)
}

// saveHistory — запись в историю best-effort: отказ хранилища не валит ответ
// со сканом, находки в истории всегда урезаны.
func (h *Handler) saveHistory(ctx context.Context, email, scanType, filename string, res *Result) {
	redacted := make([]Finding, len(res.Findings))
	for i, f := range res.Findings {
		f.Value = truncate(f.Value)
		redacted[i] = f
	}
	raw, err := json.Marshal(redacted)
	if err != nil {
		logs.Component("scanner").WithError(err).Warn("history: findings marshal failed")
		return
	}
	rec := &models.ScanRecord{
		UserEmail:  email,
		ScanType:   scanType,
		Filename:   filename,
		TotalFound: res.TotalFound,
		Critical:   res.SeverityCounts[SeverityCritical],
		High:       res.SeverityCounts[SeverityHigh],
		Medium:     res.SeverityCounts[SeverityMedium],
		Low:        res.SeverityCounts[SeverityLow],
		Findings:   raw,
	}
	if err := h.scans.Save(ctx, rec); err != nil {
		logs.Component("scanner").WithError(err).Warn("history: save failed")
	}
}

type scanTextRequest struct {
	Text   string `json:"text"`
	Redact bool   `json:"redact"`
	Report bool   `json:"report"`
}

func (h *Handler) writeScan(w http.ResponseWriter, res *Result, source string, report bool) {
	body := map[string]any{
		"findings":        res.Findings,
		"total_found":     res.TotalFound,
		"severity_counts": res.SeverityCounts,
	}
	if report {
		body["report"] = Report(res, source, h.now())
	}
	models.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) ScanText(w http.ResponseWriter, r *http.Request) {
	var req scanTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.Text == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "text is required", nil)
		return
	}
	res := h.engine.Scan(req.Text, req.Redact)
	h.saveHistory(r.Context(), auth.IdentityFrom(r).Email, "text", "", res)
	h.writeScan(w, res, "text input", req.Report)
}

func (h *Handler) ScanFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid multipart form", nil)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "file is required", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to read file", nil)
		return
	}
	if !utf8.Valid(data) {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
			"file must be utf-8 text", nil)
		return
	}
	redact := r.FormValue("redact") == "true"
	res := h.engine.Scan(string(data), redact)
	h.saveHistory(r.Context(), auth.IdentityFrom(r).Email, "file", hdr.Filename, res)
	h.writeScan(w, res, hdr.Filename, r.FormValue("report") == "true")
}

type scanURLRequest struct {
	URL    string `json:"url"`
	Redact bool   `json:"redact"`
	Report bool   `json:"report"`
}

func (h *Handler) ScanGitHub(w http.ResponseWriter, r *http.Request) {
	var req scanURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	text, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		switch err {
		case ErrBadGitHubURL:
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		case ErrNotText:
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		default:
			models.WriteProblem(w, http.StatusBadGateway, "Bad Gateway",
				"failed to fetch file from github", nil)
		}
		return
	}
	res := h.engine.Scan(text, req.Redact)
	h.saveHistory(r.Context(), auth.IdentityFrom(r).Email, "github", req.URL, res)
	h.writeScan(w, res, req.URL, req.Report)
}

type redactRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Redact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.Text == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "text is required", nil)
		return
	}
	out, total, details := h.engine.Redact(req.Text)
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"redacted_text":  out,
		"total_redacted": total,
		"details":        details,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request",
				"limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}
	recs, err := h.scans.ListByUser(r.Context(), auth.IdentityFrom(r).Email, limit)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to load history", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(recs),
		"scans": recs,
	})
}

// Patterns — справочник детекторов без самих регулярок.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	type patternInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Severity string `json:"severity"`
	}
	out := make([]patternInfo, 0, len(h.engine.Patterns()))
	for _, p := range h.engine.Patterns() {
		out = append(out, patternInfo{ID: p.ID, Name: p.Name, Severity: p.Severity})
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"total":    len(out),
		"patterns": out,
	})
}

// Statistics — сводка по всей истории пользователя.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	recs, err := h.scans.ListByUser(r.Context(), auth.IdentityFrom(r).Email, 0)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
			"failed to load history", nil)
		return
	}

	totalSecrets := 0
	byType := map[string]int{}
	bySeverity := map[string]int{
		SeverityCritical: 0, SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0,
	}
	for _, rec := range recs {
		totalSecrets += rec.TotalFound
		byType[rec.ScanType]++
		bySeverity[SeverityCritical] += rec.Critical
		bySeverity[SeverityHigh] += rec.High
		bySeverity[SeverityMedium] += rec.Medium
		bySeverity[SeverityLow] += rec.Low
	}

	type recentScan struct {
		ScanType   string    `json:"scan_type"`
		Filename   string    `json:"filename,omitempty"`
		TotalFound int       `json:"total_found"`
		ScannedAt  time.Time `json:"scanned_at"`
	}
	recent := make([]recentScan, 0, 10)
	for _, rec := range recs { // recs уже отсортированы по убыванию времени
		if len(recent) == 10 {
			break
		}
		recent = append(recent, recentScan{
			ScanType:   rec.ScanType,
			Filename:   rec.Filename,
			TotalFound: rec.TotalFound,
			ScannedAt:  rec.CreatedAt,
		})
	}

	models.WriteJSON(w, http.StatusOK, map[string]any{
		"total_scans":         len(recs),
		"total_secrets_found": totalSecrets,
		"scans_by_type":       byType,
		"severity_breakdown":  bySeverity,
		"recent_scans":        recent,
	})
}
