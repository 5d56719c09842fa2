package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camda/countdown/internal/backup"
	"github.com/camda/countdown/internal/database"
	"github.com/camda/countdown/internal/logging"
	"github.com/camda/countdown/internal/push"
	"github.com/camda/countdown/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("COUNTDOWN_LOG_LEVEL"))

	port := os.Getenv("COUNTDOWN_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("COUNTDOWN_DB_PATH")
	if dbPath == "" {
		dbPath = "countdown.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupCfg := backup.Config{
		DBPath: dbPath,
		S3: backup.S3Config{
			Endpoint:  os.Getenv("COUNTDOWN_S3_ENDPOINT"),
			Bucket:    os.Getenv("COUNTDOWN_S3_BUCKET"),
			Prefix:    os.Getenv("COUNTDOWN_S3_PREFIX"),
			Region:    os.Getenv("COUNTDOWN_S3_REGION"),
			AccessKey: os.Getenv("COUNTDOWN_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("COUNTDOWN_S3_SECRET_KEY"),
		},
	}
	if backupCfg.S3.Region == "" {
		backupCfg.S3.Region = "auto"
	}
	if backupCfg.S3.Prefix == "" {
		backupCfg.S3.Prefix = "backups"
	}

	vapidPublic := os.Getenv("COUNTDOWN_VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("COUNTDOWN_VAPID_PRIVATE_KEY")
	if vapidPublic == "" || vapidPrivate == "" {
		// Ephemeral keys invalidate existing subscriptions on restart.
		vapidPublic, vapidPrivate, err = push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		logger.Warn("VAPID keys not configured, generated ephemeral pair",
			"hint", "set COUNTDOWN_VAPID_PUBLIC_KEY and COUNTDOWN_VAPID_PRIVATE_KEY to keep subscriptions across restarts")
	}

	srv := server.New(db, backupCfg, vapidPublic, vapidPrivate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}
	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Periodic housekeeping for the rate limiter.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Countdown running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
