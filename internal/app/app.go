package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/lemcache/internal/actions"
	"github.com/MrSnakeDoc/lemcache/internal/cache"
	"github.com/MrSnakeDoc/lemcache/internal/config"
	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/lemmy"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/prefs"
	"github.com/MrSnakeDoc/lemcache/internal/scheduler"
	"github.com/MrSnakeDoc/lemcache/internal/session"
	"github.com/MrSnakeDoc/lemcache/internal/settings"
	"github.com/MrSnakeDoc/lemcache/internal/sources/accounts"
	"github.com/MrSnakeDoc/lemcache/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	settings  settings.Store
	prefs     *prefs.Store
	actions   *actions.Service
	loader    *accounts.Loader // nil without an accounts file
	refresher *scheduler.TrendingRefresher
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	defaultSort, err := domain.ParseSortType(cfg.DefaultSort)
	if err != nil {
		return nil, fmt.Errorf("LEMCACHE_DEFAULT_SORT: %w", err)
	}

	// Open the durable store early - fail fast if unavailable
	loggerClient.Infof("Opening %s settings store", cfg.SettingsBackend)
	kv, err := settings.Open(cfg, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	loggerClient.Info("settings store initialized successfully",
		logger.String("backend", kv.Backend()))

	communityCache := cache.New()

	prefStore := prefs.New(kv, loggerClient.Named("prefs"), prefs.Options{
		QueueSize:    cfg.WriteQueueSize,
		WriteTimeout: cfg.WriteTimeout,
	})

	sessions := session.NewManager(loggerClient.Named("session"), func(instance, jwt string) (lemmy.API, error) {
		return lemmy.New(instance, lemmy.Options{
			JWT:       jwt,
			Timeout:   cfg.LemmyTimeout,
			UserAgent: version.UserAgent(cfg.LemmyUserAgent),
		})
	})

	svc := actions.New(communityCache, prefStore, sessions, loggerClient.Named("actions"), actions.Options{
		TrendingLimit: cfg.TrendingLimit,
		DefaultSort:   defaultSort,
	})

	var loader *accounts.Loader
	if cfg.AccountsFile != "" {
		loader = accounts.NewLoader(cfg.AccountsFile)
	} else {
		loggerClient.Warn("no accounts file configured, running without a session")
	}

	trendingTrigger := make(chan struct{}, 1)
	refresher := scheduler.NewTrendingRefresher(svc, loggerClient.Named("trending"), cfg.TrendingInterval, trendingTrigger)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		TrustProxy:         cfg.TrustProxy,
		RateLimitBurst:     cfg.RateLimitBurst,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Cache:              communityCache,
		Actions:            svc,
		Session:            sessions,
		Settings:           kv,
		TrendingTrigger:    trendingTrigger,
	}

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    httpserver.New(cfg, loggerClient, d),
		settings:  kv,
		prefs:     prefStore,
		actions:   svc,
		loader:    loader,
		refresher: refresher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting lemcache v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("lemcache %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.loadAccounts(ctx); err != nil {
		return err
	}

	var watcher *scheduler.AccountsWatcher
	if a.loader != nil && a.cfg.WatchAccounts {
		w, err := scheduler.NewAccountsWatcher(a.loader, a.actions, a.logger.Named("accounts"), a.cfg.WatchDebounce)
		if err != nil {
			// not fatal: the file is still read at startup
			a.logger.Warn("cannot watch accounts file", logger.Error(err))
		} else {
			watcher = w
			watcher.Start(ctx)
			a.logger.Info("watching accounts file", logger.String("path", a.loader.Path()))
		}
	}

	a.refresher.Start(ctx)
	a.logger.Info("trending refresher started",
		logger.Duration("interval", a.cfg.TrendingInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("⏳ Shutting down gracefully...")

		a.refresher.Stop()
		if watcher != nil {
			watcher.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	// queued preference writes land before the backend goes away
	flushCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.prefs.Close(flushCtx); err != nil {
		a.logger.Warn("some preference writes were not persisted", logger.Error(err))
	} else {
		a.logger.Info("✅ Preference writes flushed")
	}

	if err := a.settings.Close(); err != nil {
		a.logger.Warnf("failed to close %s settings store: %v", a.settings.Backend(), err)
	} else {
		a.logger.Infof("✅ %s settings store closed cleanly", a.settings.Backend())
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ lemcache stopped cleanly")
	return nil
}

// loadAccounts reads the accounts file and activates its active account.
// A broken file is fatal at startup; an instance that cannot be reached is not.
func (a *App) loadAccounts(ctx context.Context) error {
	if a.loader == nil {
		return nil
	}

	accs, err := a.loader.Read()
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	a.logger.Info("accounts loaded",
		logger.Int("accounts", len(accs.List)),
		logger.String("active", accs.Active.String()))

	if err := a.actions.ApplyAccounts(ctx, accs); err != nil {
		a.logger.Warn("active account could not be fully initialized", logger.Error(err))
	}
	return nil
}
