package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/gonasi-backend/internal/data/db"
	apphttp "github.com/yungbote/gonasi-backend/internal/http"
	"github.com/yungbote/gonasi-backend/internal/modules/live/autoplay"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
	"github.com/yungbote/gonasi-backend/internal/realtime"
	"github.com/yungbote/gonasi-backend/internal/realtime/bus"
)

type App struct {
	Log       *logger.Logger
	Cfg       Config
	DB        *db.Service
	Metrics   *observability.Metrics
	Bus       bus.Bus
	Redis     *goredis.Client
	SSEHub    *realtime.SSEHub
	Scheduler *autoplay.Scheduler
	Repos     Repos
	Services  Services
	Server    *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Config loaded", "app_env", cfg.AppEnv, "db_driver", cfg.DB.Driver, "redis", cfg.RedisAddr != "")

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.otelConfig())
	metrics := observability.Init(cfg.MetricsEnabled)

	dbs, err := db.Open(cfg.dbConfig(), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	var (
		sseBus bus.Bus
		rdb    *goredis.Client
	)
	if cfg.RedisAddr != "" {
		sseBus, rdb, err = bus.NewRedisBus(log, bus.RedisConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
		if err != nil {
			_ = dbs.Close()
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set; using in-process SSE bus")
		sseBus = bus.NewMemoryBus()
	}

	timing, err := autoplay.LoadTiming(cfg.AutoplayTimingYAML)
	if err != nil {
		log.Warn("Autoplay timing table unusable; using defaults", "path", cfg.AutoplayTimingYAML, "error", err)
		timing = autoplay.DefaultTiming()
	}
	scheduler := autoplay.NewScheduler(log, timing)
	hub := realtime.NewSSEHub(log, metrics)

	reposet := wireRepos(dbs.DB(), log)
	serviceset := wireServices(dbs.DB(), log, cfg, reposet, metrics, sseBus, scheduler)
	handlerset := wireHandlers(log, dbs.DB(), serviceset, hub)
	server := wireServer(log, cfg, metrics, serviceset, handlerset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           dbs,
		Metrics:      metrics,
		Bus:          sseBus,
		Redis:        rdb,
		SSEHub:       hub,
		Scheduler:    scheduler,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start attaches the bus forwarder to the hub, re-arms autoplay timers of
// sessions that were running before a restart and starts the background
// collectors. It is a no-op when already started.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}
	if _, err := a.Services.LiveSession.RearmAutoplay(ctx); err != nil {
		return fmt.Errorf("re-arm autoplay timers: %w", err)
	}
	if a.Cfg.MetricsEnabled {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		if a.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis, 15*time.Second)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		return a.Server.Run(":" + a.Cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("SSE bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
