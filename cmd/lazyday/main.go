package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/collection"
	"github.com/Joseda-hg/lazyday/internal/config"
	"github.com/Joseda-hg/lazyday/internal/db"
	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/metrics"
	"github.com/Joseda-hg/lazyday/internal/propagate"
	"github.com/Joseda-hg/lazyday/internal/push"
	"github.com/Joseda-hg/lazyday/internal/store"
	"github.com/Joseda-hg/lazyday/internal/timetracker"
	"github.com/Joseda-hg/lazyday/internal/today"
	"github.com/Joseda-hg/lazyday/internal/tui"
	"github.com/Joseda-hg/lazyday/internal/web"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPathFlag := pflag.String("config", "", "config file path (.json, .jsonc or .yaml)")
	dataDirFlag := pflag.String("data-dir", "", "directory holding the JSON documents")
	dbPathFlag := pflag.String("db", "", "sqlite db path")
	webFlag := pflag.Bool("web", false, "enable web server")
	webOnlyFlag := pflag.Bool("web-only", false, "run web server only")
	portFlag := pflag.Int("port", 0, "web server port")
	logLevelFlag := pflag.String("log-level", "", "log level (debug, info, warn, error)")
	pflag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if *dataDirFlag != "" {
		cfg.DataDir = *dataDirFlag
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(filepath.Dir(cfgPath), "data")
	}
	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazyday.db")
	}
	if *webFlag || *webOnlyFlag {
		cfg.WebEnabled = true
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = 3000
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if err := ensureVAPIDKeys(&cfg); err != nil {
		return err
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	logOutput := io.Writer(os.Stderr)
	if !*webOnlyFlag {
		// the dashboard owns the terminal
		logFile, err := openLogFile(cfg.DataDir)
		if err != nil {
			return err
		}
		defer logFile.Close()
		logOutput = logFile
	}
	logger := newLogger(logOutput, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := store.OpenDir(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	go func() {
		if err := dir.Watch(ctx); err != nil {
			logger.Warn("document watcher stopped", "error", err)
		}
	}()

	events, closeDB, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	clk := clock.Real()
	m := metrics.New()

	transport := &push.WebPush{
		PublicKey:  cfg.Push.VAPIDPublicKey,
		PrivateKey: cfg.Push.VAPIDPrivateKey,
		Subject:    cfg.Push.Subject,
		TTL:        cfg.Push.TTL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	dispatcher := push.NewDispatcher(push.NewSubscriptions(dir), transport, logger.With("component", "push"), m)

	experiences := experience.NewService(dir, clk, logger.With("component", "experience"))
	scheduler := experience.NewScheduler(experiences, dispatcher, clk, logger.With("component", "scheduler"), m, experience.SchedulerConfig{
		Interval:   cfg.SchedulerInterval(),
		QuietStart: cfg.Scheduler.QuietStart,
		QuietEnd:   cfg.Scheduler.QuietEnd,
	})
	if cfg.Scheduler.AutoStart {
		scheduler.Start()
	}
	defer scheduler.Stop()

	collections := collection.New(dir, cfg.Pages, clk, logger.With("component", "collection"))
	list := today.New(dir, clk, logger.With("component", "today"))
	propagator := propagate.New(collections, list, logger.With("component", "propagate"), m)

	var srv *http.Server
	serveErr := make(chan error, 1)
	if cfg.WebEnabled {
		handler := web.NewServer(web.Deps{
			Experiences:    experiences,
			Scheduler:      scheduler,
			Dispatcher:     dispatcher,
			VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
			Collections:    collections,
			Today:          list,
			Propagator:     propagator,
			Tracker:        timetracker.New(dir, clk, logger.With("component", "timetracker")),
			Events:         events,
			Metrics:        m,
			Clock:          clk,
			Logger:         logger.With("component", "web"),
		}).Handler()

		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.WebPort),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("web server listening", "addr", srv.Addr, "data_dir", cfg.DataDir)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
		defer shutdown(srv, logger)
	}

	if *webOnlyFlag {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case err := <-serveErr:
			return fmt.Errorf("web server: %w", err)
		}
	}

	return tui.Run(tui.Deps{
		Today:       list,
		Propagator:  propagator,
		Experiences: experiences,
		Clock:       clk,
		Logger:      logger.With("component", "tui"),
	})
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*db.Store, func(), error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	return db.NewStore(sqlDB), func() { _ = sqlDB.Close() }, nil
}

// ensureVAPIDKeys generates a key pair on first start. The caller persists
// it with the rest of the config.
func ensureVAPIDKeys(cfg *config.Config) error {
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		return nil
	}
	private, public, err := push.GenerateKeys()
	if err != nil {
		return fmt.Errorf("generate vapid keys: %w", err)
	}
	cfg.Push.VAPIDPrivateKey = private
	cfg.Push.VAPIDPublicKey = public
	return nil
}

func openLogFile(dataDir string) (*os.File, error) {
	path := filepath.Join(dataDir, "lazyday.log")
	if err := config.EnsureDir(path); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("web server shutdown", "error", err)
	}
}
