package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/cdn"
	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/contentful"
	"github.com/moviediary/watchlog/internal/maintenance"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/pkg/logger"
	"github.com/moviediary/watchlog/internal/report"
	"github.com/moviediary/watchlog/internal/service/watchlist"
	"github.com/moviediary/watchlog/internal/stats"
	"github.com/moviediary/watchlog/internal/tmdb"
)

// app holds the process-wide wiring shared by every subcommand.
type app struct {
	configPath string
	jsonOutput bool
	out        io.Writer

	cfg      *config.Config
	backends *distlock.Backends
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadFromEnv(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactSecrets(cfg.Log.Redact())
	a.cfg = cfg
	return nil
}

func (a *app) close() {
	a.backends.Close()
}

func (a *app) engine() *stats.Engine {
	return stats.NewEngine(stats.DefaultPolicy().WithOverrides(a.cfg.Stats.AmbiguousLanguages, a.cfg.Stats.LanguageCountries))
}

// watchlist builds the list service. Writes are serialized through the
// configured lock backend; an unreachable backend falls back to the next.
func (a *app) watchlist(ctx context.Context) (*watchlist.Service, error) {
	if err := a.cfg.Contentful.Validate(); err != nil {
		return nil, err
	}
	if a.backends == nil {
		backends, err := distlock.Connect(ctx, a.cfg.Lock.RedisURL, a.cfg.Lock.DatabaseURL)
		if err != nil {
			logger.Warn("lock backend unavailable, trying without redis", "error", err)
			backends, err = distlock.Connect(ctx, "", a.cfg.Lock.DatabaseURL)
			if err != nil {
				return nil, err
			}
		}
		a.backends = backends
	}

	client := contentful.NewClient(a.cfg.Contentful)
	repo := watchlist.NewContentfulRepository(client, a.cfg.Contentful.EntryID, a.cfg.Contentful.FieldID, a.cfg.Contentful.Locale)
	backends, lock := a.backends, a.cfg.Lock
	return watchlist.NewService(repo,
		watchlist.WithEngine(a.engine()),
		watchlist.WithLock(func() distlock.DistLock { return backends.Lock(lock.Key, lock.TTL()) }),
	), nil
}

// toolkit builds the maintenance toolkit with every optional backend the
// configuration names.
func (a *app) toolkit(ctx context.Context) (*maintenance.Toolkit, error) {
	svc, err := a.watchlist(ctx)
	if err != nil {
		return nil, err
	}

	var mirror backup.Mirror
	if m, err := backup.NewAWSMirror(ctx, a.cfg.Backup); err != nil {
		logger.Warn("backup mirror disabled", "error", err)
	} else if m != nil {
		mirror = m
	}

	deps := maintenance.Deps{
		Watchlist:     svc,
		Backups:       backup.NewStore(a.cfg.Backup, mirror),
		EntryID:       a.cfg.Contentful.EntryID,
		CleanupFields: a.cfg.Cleanup.Fields,
		Delay:         a.cfg.TMDB.Delay(),
	}
	if a.cfg.TMDB.APIKey != "" {
		deps.Metadata = tmdb.NewClient(a.cfg.TMDB)
	}
	if inv, err := cdn.New(ctx, a.cfg.CDN); err != nil {
		logger.Warn("cdn invalidation disabled", "error", err)
	} else if inv != nil {
		deps.CDN = inv
	}
	return maintenance.New(deps), nil
}

// print writes a report as JSON or through its text template.
func (a *app) print(name string, data any) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	r, err := report.New()
	if err != nil {
		return err
	}
	text, err := r.Render(name, data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, text)
	return err
}
