package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/db"
	"github.com/yungbote/ielts-backend/internal/http"
	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
	"github.com/yungbote/ielts-backend/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "dev"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	tcfg := temporalx.LoadConfig()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := db.EnsurePostgresIndexes(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres indexes: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg, tcfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, tcfg, reposet, ssehub, clients)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       ssehub,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}
	if cfg.RunServer {
		handlerset := wireHandlers(theDB, log, serviceset, ssehub)
		middleware := wireMiddleware(log, serviceset)
		a.Server = wireServer(log, cfg, metrics, handlerset, middleware)
	}
	return a, nil
}

// Start launches the background loops for the configured roles.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartCollectors(ctx, a.Log, a.DB, a.Clients.Redis)

	// Events published by any instance reach streams connected here.
	if a.Cfg.RunServer && a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}

	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return err
		}
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	if a.Services.Scheduler != nil {
		if err := a.Services.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	a.Log.Info("App started", "server", a.Cfg.RunServer, "worker", a.Cfg.RunWorker, "temporal", a.Services.TemporalWorker != nil)
	return nil
}

// Run serves HTTP until Shutdown; a worker-only process blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Server == nil {
		<-ctx.Done()
		return nil
	}
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Wait()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(shutdownCtx)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.Log.Sync()
}
