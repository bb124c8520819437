package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/admin"
	"github.com/tiendabot/pedidos/internal/bot"
	"github.com/tiendabot/pedidos/internal/catalog"
	"github.com/tiendabot/pedidos/internal/config"
	"github.com/tiendabot/pedidos/internal/events"
	"github.com/tiendabot/pedidos/internal/logger"
	"github.com/tiendabot/pedidos/internal/session"
	"github.com/tiendabot/pedidos/internal/store"
	"github.com/tiendabot/pedidos/internal/whatsapp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and admin HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	catalogStore, err := openCatalog(cmd.Context(), cfg)
	if err != nil {
		log.Error("loading catalog", zap.Error(err))
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	db, err := store.NewBoltStore(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	pub := connectEvents(cfg, log)
	defer pub.Close()

	waClient := whatsapp.NewClient(cfg.GraphAPIVersion, cfg.WAPhoneNumberID, cfg.WAAccessToken)
	sessionMgr := session.NewManager()

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessionMgr.Cleanup(1 * time.Hour); n > 0 {
				log.Debug("dropped idle sessions", zap.Int("count", n))
			}
		}
	}()

	botHandler := bot.NewHandler(waClient, catalogStore, sessionMgr, db, pub, log)
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WAVerifyToken, botHandler.Handle, log)
	adminHandler := admin.NewHandler(catalogStore, waClient, db, pub, log)

	r := newRouter(cfg, log, webhookHandler, adminHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Port), zap.String("catalog", catalogStore.Path()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.Error("server", zap.Error(err))
		return err
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}

// openCatalog loads the catalog document, seeding an empty one first when
// CATALOG_SEED_EMPTY is set. A missing or malformed document is fatal.
func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.FileStore, error) {
	fs := catalog.NewFileStore(cfg.CatalogPath)
	if cfg.SeedEmpty {
		if err := fs.EnsureExists(ctx); err != nil {
			return nil, err
		}
	}
	if _, err := fs.Load(ctx); err != nil {
		return nil, err
	}
	return fs, nil
}

func connectEvents(cfg *config.Config, log *zap.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return events.Nop{}
	}
	pub, err := events.Connect(cfg.NATSURL, log)
	if err != nil {
		log.Warn("nats unavailable, events disabled", zap.Error(err))
		return events.Nop{}
	}
	return pub
}
