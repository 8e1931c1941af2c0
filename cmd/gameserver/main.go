// Package main provides the game server binary: the Telnet acceptor, the
// optional web listener (websocket, metrics, health probe), and the gRPC
// health service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcore/internal/auth"
	"github.com/cory-johannsen/mudcore/internal/config"
	"github.com/cory-johannsen/mudcore/internal/frontend/handlers"
	"github.com/cory-johannsen/mudcore/internal/frontend/telnet"
	"github.com/cory-johannsen/mudcore/internal/frontend/web"
	"github.com/cory-johannsen/mudcore/internal/frontend/ws"
	"github.com/cory-johannsen/mudcore/internal/game/bus"
	"github.com/cory-johannsen/mudcore/internal/game/command"
	"github.com/cory-johannsen/mudcore/internal/game/dice"
	"github.com/cory-johannsen/mudcore/internal/game/session"
	"github.com/cory-johannsen/mudcore/internal/game/world"
	"github.com/cory-johannsen/mudcore/internal/observability"
	"github.com/cory-johannsen/mudcore/internal/server"
	"github.com/cory-johannsen/mudcore/internal/storage"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("storage", cfg.Database.Driver),
	)

	metrics := observability.NewMetrics()
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	storeStart := time.Now()
	store, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer store.Close()
	logger.Info("storage ready", zap.Duration("elapsed", time.Since(storeStart)))

	seed := world.SeedOptions{
		StartRoom:     cfg.Server.StartRoom,
		AdminUsername: cfg.Seed.AdminUsername,
		AdminPassword: cfg.Seed.AdminPassword,
	}
	if cfg.Seed.WorldFile != "" {
		seed.World, err = world.LoadSeedFile(cfg.Seed.WorldFile)
		if err != nil {
			logger.Fatal("loading world file", zap.String("path", cfg.Seed.WorldFile), zap.Error(err))
		}
	}
	if err := world.Seed(ctx, store, hasher, roller, seed, logger); err != nil {
		logger.Fatal("seeding world", zap.Error(err))
	}

	svc := world.NewService(store, cfg.Server.StartRoom, logger)
	sessions := session.NewRegistry(store, metrics)
	broadcast := bus.New(cfg.Server.SinkBuffer, metrics, logger)

	dispatcher, err := command.NewDispatcher(command.DefaultRegistry(), svc, sessions, broadcast, metrics, logger)
	if err != nil {
		logger.Fatal("creating dispatcher", zap.Error(err))
	}

	handler := handlers.NewHandler(
		handlers.Config{MaxUsers: cfg.Server.MaxUsers, StartRoom: cfg.Server.StartRoom},
		store, hasher, roller, sessions, broadcast, dispatcher, metrics, logger,
	)

	lifecycle := server.NewLifecycle(logger)

	// The Telnet listener is bound before any service starts; a bind
	// failure is fatal at startup.
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, metrics, logger)
	if err := acceptor.Listen(); err != nil {
		logger.Fatal("binding telnet listener", zap.Error(err))
	}
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.Serve,
		StopFn:  acceptor.Stop,
	})

	if cfg.Web.Enabled {
		wsHandler := ws.NewHandler(handler, cfg.Telnet.ReadTimeout, cfg.Telnet.WriteTimeout, metrics, logger)
		router := web.NewRouter(web.RouterConfig{
			Logger:    logger,
			WebSocket: wsHandler,
			Metrics:   metrics.Handler(),
			Storage:   store,
			Sessions:  sessions,
		})
		webServer := web.NewServer(cfg.Web.Addr(), router, wsHandler.Close, logger)
		if err := webServer.Listen(); err != nil {
			logger.Fatal("binding web listener", zap.Error(err))
		}
		lifecycle.Add("web", &server.FuncService{
			StartFn: webServer.Serve,
			StopFn:  webServer.Stop,
		})
	}

	if cfg.Health.Enabled {
		healthSvc := server.NewHealthService(cfg.Health.Addr(), cfg.Server.Name, logger)
		lifecycle.Add("health", healthSvc)

		monitorCtx, cancelMonitor := context.WithCancel(ctx)
		lifecycle.Add("storage-monitor", &server.FuncService{
			StartFn: func() error {
				server.Monitor(monitorCtx, cfg.Health.Interval, store.Ping, func(err error) {
					if err != nil {
						logger.Warn("storage health check failed", zap.Error(err))
					}
					metrics.StorageHealthy(err == nil)
					healthSvc.SetServing(err == nil)
				})
				return nil
			},
			StopFn: cancelMonitor,
		})
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", acceptor.Addr()),
		zap.Bool("web", cfg.Web.Enabled),
		zap.Bool("health", cfg.Health.Enabled),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
