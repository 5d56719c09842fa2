package handler

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/camda/countdown/internal/backup"
	"github.com/camda/countdown/internal/model"
	"github.com/camda/countdown/internal/store"
)

type BackupHandler struct {
	manager       *backup.Manager
	backupStore   *store.BackupStore
	settingsStore *store.SettingsStore
	logger        *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backupStore: bs, settingsStore: ss, logger: logger}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	backups, err := h.backupStore.List(limit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// SetPassphrase handles PUT /api/backups/passphrase. It generates a fresh
// salt, persists it, and caches the derived credentials so scheduled
// backups can run unattended.
func (h *BackupHandler) SetPassphrase(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.Passphrase) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passphrase must be at least 8 characters"})
		return
	}

	salt, err := backup.GenerateSalt()
	if err != nil {
		h.logger.Error("generate salt", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate salt"})
		return
	}

	if err := h.settingsStore.Set("backup_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save salt"})
		return
	}

	h.manager.CacheKey(req.Passphrase, salt)
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// RunNow handles POST /api/backups
func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Passphrase == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passphrase is required"})
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil || record == nil {
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Restore handles POST /api/backups/{id}/restore. On success the process
// exits so the supervisor restarts it against the restored database.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req passphraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Passphrase == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passphrase is required"})
		return
	}

	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
}

// Download handles GET /api/backups/{id}/download, streaming the
// encrypted archive.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	io.Copy(w, body)
}
