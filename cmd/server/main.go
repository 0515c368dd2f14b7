package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/moviediary/watchlog/internal/api"
	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/contentful"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/pkg/logger"
	"github.com/moviediary/watchlog/internal/posts"
	"github.com/moviediary/watchlog/internal/service/watchlist"
	"github.com/moviediary/watchlog/internal/stats"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := os.Getenv("WATCHLOG_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactSecrets(cfg.Log.Redact())

	if err := cfg.Contentful.Validate(); err != nil {
		fatal("invalid contentful config", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := contentful.NewClient(cfg.Contentful)
	repo := watchlist.NewContentfulRepository(client, cfg.Contentful.EntryID, cfg.Contentful.FieldID, cfg.Contentful.Locale)
	engine := stats.NewEngine(stats.DefaultPolicy().WithOverrides(cfg.Stats.AmbiguousLanguages, cfg.Stats.LanguageCountries))
	svc := watchlist.NewService(repo, watchlist.WithEngine(engine))
	feed := posts.NewFeed(client, cfg.Contentful.PostContentType, cfg.Contentful.Locale)

	// The lock backends and the backup bucket are only probed by /health.
	backends, err := distlock.Connect(ctx, cfg.Lock.RedisURL, cfg.Lock.DatabaseURL)
	if err != nil {
		logger.Warn("lock backends unavailable", "error", err)
		backends = &distlock.Backends{}
	}
	defer backends.Close()

	var bucket api.BucketHeader
	if cfg.Backup.S3Bucket != "" {
		awsCfg, err := backup.LoadAWSConfig(ctx, cfg.Backup.AWSRegion, cfg.Backup.GetAWSProfile())
		if err != nil {
			logger.Warn("AWS config for backup bucket failed", "error", err)
		} else {
			bucket = s3.NewFromConfig(awsCfg)
		}
	}

	health := api.NewHealthChecker(repo, backends.DB, backends.Redis, bucket, cfg.Backup.S3Bucket)
	server := api.NewServer(cfg.Server, api.NewHandlers(svc, feed, health))

	addr := server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		fatal("pre-flight check failed", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "entry", cfg.Contentful.EntryID, "space", cfg.Contentful.SpaceID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
