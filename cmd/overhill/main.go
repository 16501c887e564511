package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/overhill/internal/backup"
	"github.com/dukerupert/overhill/internal/database"
	"github.com/dukerupert/overhill/internal/logging"
	"github.com/dukerupert/overhill/internal/push"
	"github.com/dukerupert/overhill/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(os.Getenv("OVERHILL_LOG_LEVEL"))

	port := envOr("OVERHILL_PORT", "8080")
	dbPath := envOr("OVERHILL_DB_PATH", "overhill.db")
	baseURL := envOr("OVERHILL_BASE_URL", "http://localhost:"+port)

	shareWindow := time.Duration(0) // 0 means the shipped default window
	if v := os.Getenv("OVERHILL_SHARE_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			log.Fatalf("invalid OVERHILL_SHARE_WINDOW_DAYS: %q", v)
		}
		shareWindow = time.Duration(days) * 24 * time.Hour
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("OVERHILL_S3_ENDPOINT"),
			Bucket:    os.Getenv("OVERHILL_S3_BUCKET"),
			Region:    envOr("OVERHILL_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("OVERHILL_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("OVERHILL_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("OVERHILL_BACKUP_PASSPHRASE"),
	}
	if v := os.Getenv("OVERHILL_BACKUP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			backupCfg.RetentionDays = days
		}
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("OVERHILL_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("OVERHILL_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, baseURL, shareWindow, backupCfg, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	if notifier := srv.PushNotifier(); notifier != nil {
		notifier.Start(ctx)
		defer notifier.Stop()
	}

	// Periodic cleanup of expired sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
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
		fmt.Printf("Overhill running at http://localhost:%s\n", port)
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
