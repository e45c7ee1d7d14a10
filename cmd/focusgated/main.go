package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"focusgate/internal/focus/common/clock"
	"focusgate/internal/focus/common/log"
	"focusgate/internal/focus/config"
	"focusgate/internal/focus/domain"
	"focusgate/internal/focus/repos/history"
	"focusgate/internal/focus/repos/prefs"
	"focusgate/internal/focus/repos/seed"
	"focusgate/internal/focus/repos/verdictcache"
	"focusgate/internal/focus/services/guard"
	"focusgate/internal/focus/services/rules"
	"focusgate/internal/focus/services/timer"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "focusgated"

	// Default timeouts
	defaultShutdownTimeout = 10 * time.Second
	prunePeriod            = 24 * time.Hour
)

// Application holds all the components of the focus daemon
type Application struct {
	config   *config.AppConfig
	prefs    *prefs.Store
	history  *history.Store
	engine   *rules.Engine
	guard    *guard.Guard
	timer    *timer.Service
	pruneJob *history.PruneJob
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":        version,
		"env":            cfg.Env,
		"log_level":      cfg.LogLevel,
		"data_dir":       cfg.DataDir,
		"cache_size":     cfg.CacheSize,
		"retention_days": cfg.RetentionDays,
		"seed_dir":       cfg.SeedDir,
	}, "Starting focusgate daemon")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Daemon failed")
	}

	log.Info(nil, "Focusgate daemon stopped gracefully")
}

// buildApplication constructs all components and wires them together.
// Storage failures degrade to in-memory defaults instead of aborting;
// the daemon must come up even when the data directory is unusable.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	// Create shared clock for consistent time across all components
	clk := &clock.RealClock{}

	// Hand services a forwarder so runtime level changes reach them
	logger := log.NewGlobalLogger()

	// Build repository layer
	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	snap := loadSnapshot(cfg, repos.prefs)
	applyLogLevel(cfg, snap.Settings.Debug)

	// Build service layer
	engine := rules.New(rules.Options{
		Cache:  repos.verdicts,
		Logger: logger,
	})

	guardService := guard.New(guard.Options{
		Engine:   engine,
		Clock:    clk,
		Logger:   logger,
		Notifier: &logNotifier{logger: logger},
		Sink:     &logSink{logger: logger},
		Settings: snap.Settings,
	})
	guardService.ApplyRules(snap.BlockRules, snap.WhitelistRules, snap.BlockToggles, snap.WhitelistToggles)

	var recorder timer.Recorder
	if repos.history != nil {
		recorder = repos.history
	}
	timerService := timer.New(timer.Options{
		Clock:        clk,
		IDs:          clock.UUIDGenerator{},
		Logger:       logger,
		Listener:     guardService,
		Recorder:     recorder,
		Config:       snap.Settings.Pomodoro,
		TickInterval: time.Duration(cfg.TickMS) * time.Millisecond,
	})
	guardService.AttachTimer(timerService)

	// Every prefs write rebuilds the guard's collections wholesale
	if repos.prefs != nil {
		repos.prefs.Subscribe(func(snap prefs.Snapshot) {
			applyLogLevel(cfg, snap.Settings.Debug)
			guardService.ApplySettings(snap.Settings)
			guardService.ApplyRules(snap.BlockRules, snap.WhitelistRules, snap.BlockToggles, snap.WhitelistToggles)
		})
	}

	var pruneJob *history.PruneJob
	if repos.history != nil {
		pruneJob = history.NewPruneJob(repos.history, clk, logger)
		pruneJob.RetentionDays = cfg.RetentionDays
	}

	return &Application{
		config:   cfg,
		prefs:    repos.prefs,
		history:  repos.history,
		engine:   engine,
		guard:    guardService,
		timer:    timerService,
		pruneJob: pruneJob,
	}, nil
}

// repositories holds all repository implementations
type repositories struct {
	prefs    *prefs.Store
	history  *history.Store
	verdicts rules.VerdictCache
}

// buildRepositories creates and configures all repository implementations
func buildRepositories(cfg *config.AppConfig, logger log.Logger) (*repositories, error) {
	repos := &repositories{}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Warn(map[string]any{
			"data_dir": cfg.DataDir,
			"error":    err,
		}, "Data directory unavailable, running without persistence")
	} else {
		prefsStore, err := prefs.New(filepath.Join(cfg.DataDir, "prefs.db"))
		if err != nil {
			log.Warn(map[string]any{"error": err}, "Prefs store unavailable, using defaults")
		} else {
			repos.prefs = prefsStore
		}

		historyStore, err := history.New(filepath.Join(cfg.DataDir, "history.db"))
		if err != nil {
			log.Warn(map[string]any{"error": err}, "History store unavailable, sessions will not be recorded")
		} else {
			repos.history = historyStore
		}
	}

	if cfg.DisableCache {
		log.Info(map[string]any{"disabled": true}, "Verdict caching disabled")
		return repos, nil
	}

	// Safely convert uint to int with bounds check
	cacheSize := cfg.CacheSize
	if cacheSize > uint(^uint(0)>>1) {
		return nil, fmt.Errorf("cache size too large: %d (max %d)", cacheSize, ^uint(0)>>1)
	}
	verdicts, err := verdictcache.New(int(cacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict cache: %w", err)
	}
	repos.verdicts = verdicts
	log.Info(map[string]any{
		"type": "LRU",
		"size": cfg.CacheSize,
	}, "Verdict cache configured")

	return repos, nil
}

// applyLogLevel reinstalls the global logger honoring the settings debug
// flag, which overrides the configured level while set.
func applyLogLevel(cfg *config.AppConfig, debug bool) {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	if err := log.Configure(cfg.Env, level); err != nil {
		log.Warn(map[string]any{"error": err}, "Failed to adjust log level")
	}
}

// loadSnapshot reads the persisted configuration, seeding starter rule
// profiles first when the store is empty and a seed directory is set.
func loadSnapshot(cfg *config.AppConfig, store *prefs.Store) prefs.Snapshot {
	if store == nil {
		return prefs.Snapshot{
			Settings:         domain.DefaultSettings(),
			BlockToggles:     map[string]bool{},
			WhitelistToggles: map[string]bool{},
		}
	}

	snap, err := store.Load()
	if err != nil {
		log.Warn(map[string]any{"error": err}, "Failed to load prefs, using defaults")
		return prefs.Snapshot{
			Settings:         domain.DefaultSettings(),
			BlockToggles:     map[string]bool{},
			WhitelistToggles: map[string]bool{},
		}
	}

	if len(snap.BlockRules) > 0 || cfg.SeedDir == "" {
		return snap
	}

	profiles, err := seed.LoadDirectory(cfg.SeedDir)
	if err != nil {
		log.Warn(map[string]any{
			"seed_dir": cfg.SeedDir,
			"error":    err,
		}, "Failed to load seed profiles")
		return snap
	}
	block, whitelist := seed.Merge(profiles)
	if len(block) == 0 && len(whitelist) == 0 {
		return snap
	}

	if err := store.SaveBlockRules(block); err != nil {
		log.Warn(map[string]any{"error": err}, "Failed to persist seeded block rules")
		return snap
	}
	if err := store.SaveWhitelistRules(whitelist); err != nil {
		log.Warn(map[string]any{"error": err}, "Failed to persist seeded whitelist")
	}
	log.Info(map[string]any{
		"profiles":  len(profiles),
		"block":     len(block),
		"whitelist": len(whitelist),
	}, "Seed profiles applied")

	seeded, err := store.Load()
	if err != nil {
		log.Warn(map[string]any{"error": err}, "Failed to reload prefs after seeding")
		return snap
	}
	return seeded
}

// Run starts the daemon and blocks until the context is cancelled
func (app *Application) Run(ctx context.Context) error {
	if app.pruneJob != nil {
		if err := app.pruneJob.Run(ctx); err != nil {
			log.Warn(map[string]any{"error": err}, "Startup history prune failed")
		}
		go app.pruneJob.RunEvery(ctx, prunePeriod)
	}

	// Start the countdown loop
	timerDone := make(chan error, 1)
	go func() {
		timerDone <- app.timer.Run(ctx)
	}()

	if app.config.Autostart {
		if _, err := app.guard.Dispatch(domain.StartWork{}); err != nil {
			log.Warn(map[string]any{"error": err}, "Autostart failed")
		}
	}

	log.Info(map[string]any{
		"autostart": app.config.Autostart,
		"tick_ms":   app.config.TickMS,
	}, "Focus daemon started")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	// Let the countdown loop drain before the stores close under it
	done := make(chan struct{})
	go func() {
		<-timerDone
		app.closeStores()
		close(done)
	}()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}

func (app *Application) closeStores() {
	if app.history != nil {
		if err := app.history.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing history store")
		}
	}
	if app.prefs != nil {
		if err := app.prefs.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing prefs store")
		}
	}
}

// logNotifier writes session-complete notices to the log. Deployments
// with a desktop notifier swap this for a real one.
type logNotifier struct {
	logger log.Logger
}

func (n *logNotifier) Notify(notice domain.Notice) {
	n.logger.Info(map[string]any{
		"type":    string(notice.Type),
		"title":   notice.Title,
		"message": notice.Message,
		"sound":   notice.Sound,
	}, "Session notification")
}

// logSink mirrors countdown snapshots into debug logs.
type logSink struct {
	logger log.Logger
}

func (s *logSink) PushStatus(status domain.TimerStatus) {
	s.logger.Debug(map[string]any{
		"state":     string(status.State),
		"remaining": status.RemainingSeconds,
		"count":     status.SessionCount,
	}, "Timer status")
}
