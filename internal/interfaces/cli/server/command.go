// Package server implements the `server` command: the HTTP API with the
// embedded monitor loop.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/usecases"
	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/cache"
	"hyperfleet/internal/infrastructure/config"
	"hyperfleet/internal/infrastructure/credentials"
	"hyperfleet/internal/infrastructure/database"
	"hyperfleet/internal/infrastructure/notify"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/infrastructure/probe"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/infrastructure/repository"
	"hyperfleet/internal/infrastructure/scheduler"
	httpRouter "hyperfleet/internal/interfaces/http"
	"hyperfleet/internal/interfaces/http/handlers"
	"hyperfleet/internal/shared/goroutine"
	"hyperfleet/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API with the embedded monitor",
		Long:  `Start the hyperfleet HTTP server together with the health check scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run schema migration on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting server", "environment", env)

	gin.SetMode(mapEnvToGinMode(env))
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if err := database.Get().AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		log.Infow("schema migrated")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	engine, mon, err := buildEngine(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}

	if err := mon.Start(); err != nil {
		return fmt.Errorf("failed to start monitor scheduler: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	goroutine.SafeGo(log, "http-server", func() {
		log.Infow("http server listening", "address", cfg.Server.GetAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server stopped", "error", err)
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infow("shutting down", "signal", sig)

	cancel()
	if err := mon.Stop(); err != nil {
		log.Warnw("monitor scheduler shutdown failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown failed", "error", err)
	}

	log.Infow("server stopped")
	return nil
}

// buildEngine wires the repositories, engine components, use cases and the
// gin router, and returns the router plus the monitor scheduler.
func buildEngine(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log logger.Interface) (*gin.Engine, *scheduler.MonitorScheduler, error) {
	db := database.Get()
	mc := cfg.Monitor

	endpointRepo := repository.NewEndpointRepository(db, log)
	statusRepo := repository.NewStatusRepository(db, mc.TimeoutFloorMs, mc.TimeoutCeilingMs, log)
	probeRepo := repository.NewProbeRecordRepository(db, log)
	episodeRepo := repository.NewEpisodeRepository(db, log)

	credStore, err := credentials.NewGormStore(db, cfg.Credential.EncryptionKey, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	store := monitoring.NewStatusStore(mc.StatusWindow, mc.TimeoutFloorMs, mc.TimeoutCeilingMs)
	if snapshots, err := statusRepo.ListAll(ctx); err != nil {
		log.Warnw("failed to warm status store from persistence", "error", err)
	} else {
		store.Load(snapshots)
	}

	hysteresis := alert.NewHysteresisEngine()
	if episodes, err := episodeRepo.ListActive(ctx); err != nil {
		log.Warnw("failed to load active alert episodes", "error", err)
	} else {
		hysteresis.Load(episodes)
	}

	prober := probe.NewHTTPProber(credStore, log.Named("prober"))
	alertSink := notify.NewEmailSink(&cfg.Email, log.Named("alert-email"))
	notifyLock := cache.NewEpisodeNotifyLock(redisClient)
	fleetCache := cache.NewFleetStatusCache(redisClient)
	statusBus := pubsub.NewRedisStatusBus(redisClient, log.Named("status-bus"))

	thresholds := endpoint.Thresholds{
		SuccessRate: mc.SuccessRateThreshold,
		LatencyMs:   mc.LatencyThresholdMs,
	}

	runHealthCheckUC := usecases.NewRunHealthCheckUseCase(
		endpointRepo, statusRepo, probeRepo, episodeRepo,
		prober, store, hysteresis, alertSink, notifyLock,
		fleetCache, statusBus, thresholds, log.Named("health-check"),
	)
	applyTimeoutUC := usecases.NewApplyTimeoutUseCase(endpointRepo, statusRepo, store, statusBus, log)
	getFleetStatusUC := usecases.NewGetFleetStatusUseCase(endpointRepo, store, fleetCache, log)
	getEndpointStatusUC := usecases.NewGetEndpointStatusUseCase(endpointRepo, statusRepo, store, log)
	listProbeRecordsUC := usecases.NewListProbeRecordsUseCase(endpointRepo, probeRepo, log)
	reconcileUC := usecases.NewReconcileStatusUseCase(store, fleetCache, log.Named("reconciler"))
	createEndpointUC := usecases.NewCreateEndpointUseCase(endpointRepo, log)
	listEndpointsUC := usecases.NewListEndpointsUseCase(endpointRepo, store, log)
	deactivateEndpointUC := usecases.NewDeactivateEndpointUseCase(
		endpointRepo, statusRepo, episodeRepo, store, hysteresis,
		notifyLock, fleetCache, statusBus,
		mc.TimeoutFloorMs, mc.TimeoutCeilingMs, log,
	)

	runner := scheduler.CheckRunnerFunc(func(ctx context.Context, endpointID uint) error {
		_, err := runHealthCheckUC.Execute(ctx, usecases.RunHealthCheckCommand{EndpointID: endpointID})
		return err
	})

	mon, err := scheduler.NewMonitorScheduler(
		endpointRepo, statusRepo, store, runner,
		time.Duration(mc.CheckIntervalSeconds)*time.Second,
		mc.MaxConcurrentProbes, log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create monitor scheduler: %w", err)
	}

	goroutine.SafeGo(log, "status-reconciler", func() {
		err := statusBus.SubscribeStatusUpdates(ctx, func(update pubsub.StatusUpdate) {
			if _, err := reconcileUC.Execute(ctx, update); err != nil {
				log.Warnw("failed to reconcile status update", "endpoint_id", update.EndpointID, "error", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Errorw("status subscription terminated", "error", err)
		}
	})

	monitoringHandler := handlers.NewMonitoringHandler(
		getFleetStatusUC, getEndpointStatusUC, applyTimeoutUC, listProbeRecordsUC, mon, log,
	)
	endpointHandler := handlers.NewEndpointHandler(createEndpointUC, listEndpointsUC, deactivateEndpointUC, log)

	engine := httpRouter.NewRouter(&httpRouter.RouterConfig{
		Mode:              gin.Mode(),
		MonitoringHandler: monitoringHandler,
		EndpointHandler:   endpointHandler,
		Logger:            log.Named("http"),
	})

	return engine, mon, nil
}

func mapEnvToGinMode(env string) string {
	switch env {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
