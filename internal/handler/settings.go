package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/camda/countdown/internal/backup"
	"github.com/camda/countdown/internal/store"
	"github.com/camda/countdown/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	backupMgr     *backup.Manager
	hub           *websocket.Hub
}

func NewSettingsHandler(ss *store.SettingsStore, bm *backup.Manager, hub *websocket.Hub) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, backupMgr: bm, hub: hub}
}

func (h *SettingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *SettingsHandler) GetDisplay(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.GetDisplaySettings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get settings"})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateDisplay(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := validateDisplaySettings(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}

	h.broadcast(websocket.NewMessage("settings", "updated", 0, nil))

	settings, err := h.settingsStore.GetDisplaySettings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get settings"})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func validateDisplaySettings(settings map[string]string) error {
	allowedKeys := map[string]bool{
		"display_time_format":    true,
		"display_week_start":     true,
		"display_show_completed": true,
		"default_color":          true,
		"default_text_color":     true,
	}

	for key, value := range settings {
		if !allowedKeys[key] {
			return fmt.Errorf("unknown setting: %s", key)
		}

		switch key {
		case "display_time_format":
			if value != "12h" && value != "24h" {
				return fmt.Errorf("display_time_format must be \"12h\" or \"24h\"")
			}
		case "display_week_start":
			if value != "sunday" && value != "monday" {
				return fmt.Errorf("display_week_start must be \"sunday\" or \"monday\"")
			}
		case "display_show_completed":
			if value != "true" && value != "false" {
				return fmt.Errorf("display_show_completed must be \"true\" or \"false\"")
			}
		case "default_color", "default_text_color":
			if !hexColorRegexp.MatchString(value) {
				return fmt.Errorf("%s must be a hex color like #4F46E5", key)
			}
		}
	}
	return nil
}

func (h *SettingsHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.GetBackupSettings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get settings"})
		return
	}
	// The salt never leaves the server.
	delete(settings, "backup_passphrase_salt")
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateBackup(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := validateBackupSettings(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func validateBackupSettings(settings map[string]string) error {
	allowedKeys := map[string]bool{
		"backup_enabled":        true,
		"backup_hour":           true,
		"backup_retention_days": true,
		"backup_s3_bucket":      true,
		"backup_s3_prefix":      true,
	}

	for key, value := range settings {
		if !allowedKeys[key] {
			return fmt.Errorf("unknown setting: %s", key)
		}

		switch key {
		case "backup_enabled":
			if value != "true" && value != "false" {
				return fmt.Errorf("backup_enabled must be \"true\" or \"false\"")
			}
		case "backup_hour":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 || n > 23 {
				return fmt.Errorf("backup_hour must be 0-23")
			}
		case "backup_retention_days":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 365 {
				return fmt.Errorf("backup_retention_days must be 1-365")
			}
		}
	}
	return nil
}

type s3ConfigRequest struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// UpdateS3 hot-reloads the backup manager's S3 target.
func (h *SettingsHandler) UpdateS3(w http.ResponseWriter, r *http.Request) {
	var req s3ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if h.backupMgr != nil {
		h.backupMgr.UpdateS3Config(backup.S3Config{
			Endpoint:  req.Endpoint,
			Bucket:    req.Bucket,
			Prefix:    req.Prefix,
			Region:    req.Region,
			AccessKey: req.AccessKey,
			SecretKey: req.SecretKey,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
