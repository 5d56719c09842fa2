package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/camda/countdown/internal/backup"
	"github.com/camda/countdown/internal/handler"
	"github.com/camda/countdown/internal/middleware"
	"github.com/camda/countdown/internal/push"
	"github.com/camda/countdown/internal/store"
	ws "github.com/camda/countdown/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	eventH        *handler.EventHandler
	settingsH     *handler.SettingsHandler
	backupH       *handler.BackupHandler
	icsH          *handler.ICSHandler
	pushH         *handler.PushHandler
	pushStore     *store.PushStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushService   *push.Service
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, vapidPublicKey, vapidPrivateKey string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	eventStore := store.NewEventStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)
	pushStore := store.NewPushStore(db)

	backupMgr := backup.NewManager(backupCfg, db, backupStore, settingsStore, func(st backup.Status) {
		hub.Broadcast(ws.BackupMessage(string(st.State), st.InProgress, st.Error))
	})

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if vapidPublicKey != "" && vapidPrivateKey != "" {
		pushSvc = push.NewService(vapidPublicKey, vapidPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, hub)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		eventH:        handler.NewEventHandler(eventStore, hub, logger.With("component", "event")),
		settingsH:     handler.NewSettingsHandler(settingsStore, backupMgr, hub),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, settingsStore, logger.With("component", "backup_handler")),
		icsH:          handler.NewICSHandler(eventStore, logger.With("component", "ics")),
		pushH:         pushH,
		pushStore:     pushStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushService:   pushSvc,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the reminder scheduler, nil when VAPID keys
// are not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// PushStore returns the push store for cleanup tasks.
func (s *Server) PushStore() *store.PushStore {
	return s.pushStore
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /calendar.ics", s.icsH.Feed)

	// Event API routes
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/complete", s.eventH.Complete)
	mux.HandleFunc("DELETE /api/events/{id}/complete", s.eventH.Uncomplete)
	mux.HandleFunc("POST /api/events/{id}/pin", s.eventH.Pin)

	// Settings API routes
	mux.HandleFunc("GET /api/settings/display", s.settingsH.GetDisplay)
	mux.HandleFunc("PUT /api/settings/display", s.settingsH.UpdateDisplay)
	mux.HandleFunc("GET /api/settings/backup", s.settingsH.GetBackup)
	mux.HandleFunc("PUT /api/settings/backup", s.settingsH.UpdateBackup)
	mux.HandleFunc("PUT /api/settings/s3", s.settingsH.UpdateS3)

	// Backup API routes
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups", s.rateLimitedHandler(s.backupH.RunNow))
	mux.HandleFunc("PUT /api/backups/passphrase", s.backupH.SetPassphrase)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.rateLimitedHandler(s.backupH.Restore))
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
