package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/medic/internal/config"
	"github.com/MrSnakeDoc/medic/internal/dispatch"
	"github.com/MrSnakeDoc/medic/internal/httpserver"
	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/index"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/metrics"
	"github.com/MrSnakeDoc/medic/internal/redis"
	"github.com/MrSnakeDoc/medic/internal/scheduler"
	"github.com/MrSnakeDoc/medic/internal/store"
	"github.com/MrSnakeDoc/medic/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/medic/internal/store/redis"
	"github.com/MrSnakeDoc/medic/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	components  *Components
	server      *httpserver.Server
	redisClient *goredis.Client
	targets     *index.TargetIndex
	reloader    *scheduler.TargetsReloader
	sweeper     *scheduler.Sweeper
	dispatcher  *dispatch.Dispatcher
}

func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	components, err := NewComponents(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	// Run history: Redis when configured (fail fast if unavailable), memory otherwise
	var (
		history     store.History
		redisClient *goredis.Client
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		history = redisstore.NewStore(redisClient, cfg.RedisRunTTL, cfg.HistoryLimit)
		loggerClient.Info("run history stored in redis")
	} else {
		history = memory.NewHistory(cfg.HistoryLimit)
		loggerClient.Info("redis not configured, run history kept in memory",
			logger.Int("limit", cfg.HistoryLimit))
	}

	m := metrics.New()

	dispatcher := dispatch.New(components.Loop, history, m, loggerClient, dispatch.Options{
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		RunTimeout: cfg.RunTimeout,
	})

	// Targets + manual reload trigger channel
	targets := index.NewTargetIndex(DefaultTargetName(cfg))
	reloadTrigger := make(chan struct{}, 1)

	watchPath := ""
	if cfg.WatchTargets {
		watchPath = cfg.TargetsFile
	}
	reloadInterval := cfg.ReloadInterval
	if cfg.TargetsFile == "" {
		reloadInterval = 0
	}
	reloader := scheduler.NewTargetsReloader(
		TargetLoader(cfg),
		targets,
		loggerClient,
		reloadInterval,
		reloadTrigger,
		watchPath,
	)

	sweeper := scheduler.NewSweeper(
		components.Prober,
		targets,
		dispatcher,
		loggerClient,
		cfg.SweepInterval,
	)

	// Dependencies passed to routes
	d := deps.Deps{
		Logger:              loggerClient,
		StartTime:           time.Now(),
		Version:             version.Version,
		Commit:              version.Commit,
		BuildDate:           version.BuildDate,
		GoVersion:           version.GoVersion,
		TimeNow:             time.Now,
		AllowedHosts:        cfg.AllowedHosts,
		AllowedCIDRS:        cfg.AllowedCIDRS,
		TrustProxy:          cfg.TrustProxy,
		WebhookBurst:        cfg.WebhookBurst,
		WebhookRefillPerMin: cfg.WebhookRefillPerMin,
		Targets:             targets,
		Dispatcher:          dispatcher,
		History:             history,
		RedisClient:         redisClient,
		Platform:            components.Runtime,
		Metrics:             m,
		ReloadTrigger:       reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		components:  components,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		targets:     targets,
		reloader:    reloader,
		sweeper:     sweeper,
		dispatcher:  dispatcher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting medic v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("%s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Platform reachability is reported, not required: runs fail per action
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := a.components.Runtime.Ping(pingCtx); err != nil {
		a.logger.Warn("docker daemon not reachable yet", logger.Error(err))
	}
	cancel()

	// Start targets reloader (initial load must succeed)
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start targets reloader: %w", err)
	}

	a.dispatcher.Start(ctx)

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.reloader.Stop()
	a.sweeper.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()

	// Stop accepting alerts before draining runs
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("failed to stop server", logger.Error(err))
	}
	if err := a.dispatcher.Stop(shutdownCtx); err != nil {
		a.logger.Warn("runs still in flight at shutdown", logger.Error(err))
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	a.components.Close()

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ medic stopped cleanly")
	return nil
}
