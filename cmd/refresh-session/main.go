// Command refresh-session runs one refresh cycle inside the compute sandbox.
// It prints exactly one structured JSON result line to stdout and appends
// human-readable log lines to the configured log file. Exit code 0 covers
// both ok and skipped (deferred) results; only errors exit non-zero.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/browser"
	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/filecache"
	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/redisstore"
	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/rotation"
	"github.com/ericfisherdev/cookierelay/internal/application"
	"github.com/ericfisherdev/cookierelay/internal/config"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable debug logging")
	forceReauth := flag.Bool("force-reauth", false, "skip the rotation tier and re-authenticate directly")
	flag.Parse()

	os.Exit(run(*verbose, *forceReauth))
}

func run(verbose, forceReauth bool) int {
	cfg, err := config.LoadRefresher()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logFile, err := openLog(cfg.LogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logFile.Close()

	// Stdout carries only the result line; logs go to the log file and stderr.
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logFile, os.Stderr), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redisstore.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	var storeOpts []redisstore.Option
	if cfg.SecretKey != nil {
		storeOpts = append(storeOpts, redisstore.WithEncryptionKey(cfg.SecretKey))
	}
	if cfg.RecordTTL > 0 {
		storeOpts = append(storeOpts, redisstore.WithRecordTTL(cfg.RecordTTL))
	}
	store := redisstore.New(redisClient, "cookierelay:", storeOpts...)

	cache := filecache.New(cfg.CachePath)
	rotator := rotation.NewClient(cfg.RotationURL, cfg.PrimaryCookie, cfg.RotationCookie)
	jar := browser.NewJar(cfg.JarPath)
	session := browser.NewEngine(jar, cfg.SessionURL, cfg.LoginURLPrefix, cfg.PrimaryCookie, cfg.RotationCookie)

	svc := application.NewRefreshService(store, cache, rotator, session, cfg.CredentialName)

	slog.Info("refresh starting", "credential", cfg.CredentialName, "force_reauth", forceReauth)
	result := svc.Run(ctx, forceReauth)
	slog.Info("refresh finished", "status", string(result.Status), "method", string(result.Method), "reason", result.Reason)

	line, err := json.Marshal(result)
	if err != nil {
		slog.Error("failed to marshal result", "error", err)
		return 1
	}
	fmt.Println(string(line))

	if result.Failed() {
		return 1
	}
	return 0
}

// openLog opens the fixed log location for appending, creating its directory
// if needed.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
