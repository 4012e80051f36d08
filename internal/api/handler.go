// Package api implements the HTTP operator surface of the agent service.
//
// Routes:
//
//	GET  /status                → scheduler task status + today's counters
//	GET  /jobs?status=&limit=   → recent jobs, optionally filtered by status
//	GET  /stats?days=           → recent daily rollup rows
//	POST /credentials           → store an encrypted per-source credential
//	GET  /credentials?source=   → verify a stored credential decrypts
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"jobpilot/agent-service/internal/agent"
	"jobpilot/agent-service/internal/model"
	"jobpilot/agent-service/internal/store"
	"jobpilot/agent-service/internal/vault"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	agent *agent.Agent
	store *store.Store
	vault *vault.Vault
}

// NewHandler returns a configured Handler.
func NewHandler(a *agent.Agent, st *store.Store, v *vault.Vault) *Handler {
	return &Handler{agent: a, store: st, vault: v}
}

// RegisterRoutes mounts all agent-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/jobs", h.handleJobs)
	mux.HandleFunc("/stats", h.handleStats)
	mux.HandleFunc("/credentials", h.handleCredentials)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

// handleStatus handles GET /status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jsonOK(w, map[string]any{
		"tasks": h.agent.TaskStatus(),
		"today": h.agent.TodayStats(),
	})
}

// handleJobs handles GET /jobs?status=&limit=
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var status model.JobStatus
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := model.ParseJobStatus(s)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 100 {
			jsonError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = v
	}

	jobs, err := h.store.ListJobs(r.Context(), status, limit)
	if err != nil {
		log.Printf("[api] listJobs query error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, jobs)
}

// handleStats handles GET /stats?days=
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 365 {
			jsonError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = v
	}

	stats, err := h.store.RecentStats(r.Context(), days)
	if err != nil {
		log.Printf("[api] recentStats query error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, stats)
}

// handleCredentials handles POST /credentials and GET /credentials?source=
func (h *Handler) handleCredentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.storeCredential(w, r)
	case http.MethodGet:
		h.checkCredential(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) storeCredential(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source   string `json:"source"`
		Username string `json:"username"`
		Password string `json:"password"`
		Extra    string `json:"extra"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Source == "" || body.Username == "" {
		jsonError(w, "body must contain source and username", http.StatusBadRequest)
		return
	}

	err := h.vault.Put(r.Context(), model.Credential{
		Source:   body.Source,
		Username: body.Username,
		Password: body.Password,
		Extra:    body.Extra,
	})
	if errors.Is(err, vault.ErrNoKey) {
		jsonError(w, "credential vault is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("[api] storeCredential error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	// Plaintext never leaves the process; just confirm storage.
	jsonOK(w, map[string]string{"source": body.Source, "status": "stored"})
}

// checkCredential decrypts the stored credential to prove the key and
// ciphertext still match. Only the username is echoed back.
func (h *Handler) checkCredential(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("source")
	if src == "" {
		jsonError(w, "source query parameter is required", http.StatusBadRequest)
		return
	}

	cred, err := h.vault.Get(r.Context(), src)
	switch {
	case errors.Is(err, vault.ErrNoKey):
		jsonError(w, "credential vault is not configured", http.StatusServiceUnavailable)
		return
	case errors.Is(err, vault.ErrNotFound):
		jsonError(w, "no credential stored for "+src, http.StatusNotFound)
		return
	case err != nil:
		log.Printf("[api] checkCredential error: %v", err)
		jsonError(w, "credential could not be decrypted", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"source": cred.Source, "username": cred.Username, "status": "ok"})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
