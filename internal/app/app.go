package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/db"
	httpx "github.com/tracebind/passport-backend/internal/http"
	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Hub      *realtime.SSEHub
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *httpx.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	metrics := observability.NewMetrics()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "passport-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, hub, clients, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}

	server := httpx.NewServer(wireRouter(theDB, log, metrics, serviceset, hub))

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       theDB,
		Metrics:  metrics,
		Hub:      hub,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
		Server:   server,

		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces that outlive individual requests:
// the redis bus forwarder and the SLO evaluation loop. Both are env-gated,
// so a bare single-instance deployment has nothing to start.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Error("event bus forwarder failed to start", "error", err)
		}
	}
	a.Metrics.StartSLOEvaluator(ctx, a.Log)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("http server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Shutdown drains in flight requests, waits for post-commit effects to
// finish, then tears the external clients down.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	}
	if a.Services.Async != nil {
		a.Services.Async.Wait()
	}
	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.Close(); err != nil {
			a.Log.Warn("event bus close", "error", err)
		}
	}
	if a.Clients.Graph != nil {
		if err := a.Clients.Graph.Close(ctx); err != nil {
			a.Log.Warn("neo4j close", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
