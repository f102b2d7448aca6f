package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-analysis/internal/activity"
	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/api"
	"github.com/p-n-ai/pai-analysis/internal/course"
	"github.com/p-n-ai/pai-analysis/internal/export"
	"github.com/p-n-ai/pai-analysis/internal/platform/cache"
	"github.com/p-n-ai/pai-analysis/internal/platform/config"
	"github.com/p-n-ai/pai-analysis/internal/platform/database"
	"github.com/p-n-ai/pai-analysis/internal/seminar"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from config. Validate has already checked the
// level and format names.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app is the wired service and whatever must be closed on shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects the optional database and cache and picks course and seminar
// sources. The database wins over fixtures; the seminar API wins over both.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	checks := map[string]api.HealthChecker{}

	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(ctx, cfg.Database)
		if err != nil {
			if cfg.FixturesPath == "" {
				return nil, fmt.Errorf("connecting database: %w", err)
			}
			slog.Warn("database unavailable, serving fixtures", "error", err)
			db, err = nil, nil
		} else {
			a.closers = append(a.closers, db.Close)
			checks["database"] = db
		}
	}

	resolverCfg := analysis.ResolverConfig{CacheTTL: cfg.Cache.DocumentTTL}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = c.Close() })
			checks["cache"] = c
			resolverCfg.Cache = c
		}
	}

	var fixtures *course.Loader
	if cfg.FixturesPath != "" && db == nil {
		fixtures, err = course.NewLoader(cfg.FixturesPath)
		if err != nil {
			return nil, err
		}
	}

	var courses course.Source
	switch {
	case db != nil:
		store, err := course.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		courses = store
	case fixtures != nil:
		courses = fixtures
	default:
		return nil, fmt.Errorf("no course source configured")
	}

	switch {
	case cfg.Seminar.APIURL != "":
		resolverCfg.Seminars = seminar.NewClient(cfg.Seminar.APIURL, cfg.Seminar.Timeout)
	case db != nil:
		store, err := seminar.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		resolverCfg.Seminars = store
	case fixtures != nil:
		resolverCfg.Seminars = fixtures
	}

	var events activity.EventLogger = activity.NopEventLogger{}
	if db != nil {
		events = activity.NewPostgresEventLogger(db.Pool)
	}

	exporter, err := export.NewExporter(export.Options{
		FontPath:   cfg.Export.FontPath,
		LegacyHWPX: cfg.Export.LegacyHWPX,
		TempDir:    cfg.Export.TempDir,
	})
	if err != nil {
		return nil, err
	}
	if !exporter.SupportsPDF() {
		slog.Warn("pdf export disabled until a Hangul font is configured", "setting", "LEARN_EXPORT_FONT_PATH")
	}

	srv := api.NewServer(api.Config{
		Courses:  courses,
		Resolver: analysis.NewResolver(resolverCfg),
		Exporter: exporter,
		Events:   events,
		Checks:   checks,
	})
	a.handler = srv.Handler()

	slog.Info("service configured",
		"database", db != nil,
		"cache", resolverCfg.Cache != nil,
		"fixtures", fixtures != nil,
		"seminar_api", cfg.Seminar.APIURL != "",
		"legacy_hwpx", cfg.Export.LegacyHWPX,
		"pdf", exporter.SupportsPDF(),
	)
	return a, nil
}
