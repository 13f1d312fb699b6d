package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/redisstore"
	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/sandbox"
	sqliteadapter "github.com/ericfisherdev/cookierelay/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/cookierelay/internal/adapter/driving/http"
	"github.com/ericfisherdev/cookierelay/internal/application"
	"github.com/ericfisherdev/cookierelay/internal/config"
	"github.com/ericfisherdev/cookierelay/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.LoadService()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"credential", cfg.CredentialName,
		"trigger_interval", cfg.TriggerInterval,
		"sandbox", cfg.SandboxName,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect the shared credential store.
	redisClient, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			slog.Error("error closing redis client", "error", closeErr)
		}
	}()

	var storeOpts []redisstore.Option
	if cfg.SecretKey != nil {
		storeOpts = append(storeOpts, redisstore.WithEncryptionKey(cfg.SecretKey))
	}
	if cfg.RecordTTL > 0 {
		storeOpts = append(storeOpts, redisstore.WithRecordTTL(cfg.RecordTTL))
	}
	store := redisstore.New(redisClient, "cookierelay:", storeOpts...)
	slog.Info("credential store connected", "addr", cfg.RedisAddr, "encrypted", cfg.SecretKey != nil)

	// 4. Open the local outcome history and run migrations.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	history := sqliteadapter.NewOutcomeRepo(db)
	slog.Info("outcome history opened", "path", cfg.DBPath)

	// 5. Wire the sandbox executor and metrics.
	executor := sandbox.NewClient(cfg.SandboxURL, cfg.SandboxName, cfg.SandboxToken, nil)
	collector := metrics.NewCollector()

	// 6. Create and start the trigger service.
	triggerSvc := application.NewTriggerService(
		executor,
		store,
		history,
		collector,
		cfg.CredentialName,
		cfg.TriggerInterval,
		cfg.TriggerTimeout,
	)
	go triggerSvc.Start(ctx)

	// 7. Create the status service and HTTP handler.
	statusSvc := application.NewStatusService(store, cfg.CredentialName)
	handler := httphandler.NewHandler(triggerSvc, statusSvc, history, cfg.CredentialName, cfg.TriggerSecret, slog.Default())
	mux := httphandler.NewServeMux(handler, collector.Registry(), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// The on-demand refresh can hold a request open for a cold sandbox
		// wake, so the write timeout must exceed the trigger timeout.
		WriteTimeout: cfg.TriggerTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("cookierelay started",
		"listen_addr", cfg.ListenAddr,
		"trigger_interval", cfg.TriggerInterval,
		"credential", cfg.CredentialName,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
