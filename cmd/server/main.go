// WebDesk Server
//
// Features:
// - Per-account sandboxed file storage
// - Listing, create, rename, batch delete/move, search
// - Multipart upload with quota enforcement, streamed download
// - Share links (public/private, password, expiry)
// - Favorites persistence
// - SSE change events
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/webdesk/webdesk/internal/api"
	"github.com/webdesk/webdesk/internal/auth"
	"github.com/webdesk/webdesk/internal/config"
	"github.com/webdesk/webdesk/internal/entries"
	"github.com/webdesk/webdesk/internal/events"
	"github.com/webdesk/webdesk/internal/favorites"
	"github.com/webdesk/webdesk/internal/logging"
	"github.com/webdesk/webdesk/internal/metrics"
	"github.com/webdesk/webdesk/internal/quota"
	"github.com/webdesk/webdesk/internal/sharing"
	"github.com/webdesk/webdesk/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	// Initialize structured logging
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("WebDesk Server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("data_root", cfg.DataRoot))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	logging.Info("connecting to PostgreSQL...")
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	// Initialize the entry store
	entryStore, err := entries.NewStore(cfg.DataRoot)
	if err != nil {
		logging.Fatal("data root init failed", zap.Error(err))
	}

	// Initialize auth
	authHandler := auth.New(cfg.JWTSecret)

	// Initialize SSE broadcaster
	broadcaster := events.NewBroadcaster()
	logging.Info("SSE broadcaster initialized")

	// Initialize domain stores
	shareStore := sharing.NewStore(db)
	favoriteStore := favorites.NewStore(db)
	tracker := quota.NewTracker(cfg.QuotaBytes, entries.SettingsDir, entries.LogsDir)
	rateLimiter := quota.NewRateLimiter()
	logging.Info("stores initialized", zap.Int64("quota_bytes", cfg.QuotaBytes))

	// Create API server
	srv := api.NewServer(
		entryStore, tracker, shareStore, favoriteStore,
		authHandler, broadcaster, rateLimiter, cfg,
	)

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	// Start HTTP(S) server
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		httpServer.Close()
		metricsServer.Close()
	}()

	// Start periodic rate limiter cleanup
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Cleanup(24 * time.Hour)
			}
		}
	}()

	// Start periodic share gauge refresh
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if count, err := shareStore.ActiveCount(ctx); err == nil {
					metrics.SetShareLinksActive(count)
				}
			}
		}
	}()

	if useTLS {
		logging.Info("server listening (TLS)", zap.String("addr", cfg.ListenAddr))
		err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
		err = httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
	logging.Info("server stopped")
}
