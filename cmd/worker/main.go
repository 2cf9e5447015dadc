// hyperfleet-worker runs the health check scheduler without the HTTP API,
// for deployments that separate the monitor from the API servers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"hyperfleet/internal/application/monitoring"
	"hyperfleet/internal/application/monitoring/usecases"
	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/infrastructure/cache"
	"hyperfleet/internal/infrastructure/config"
	"hyperfleet/internal/infrastructure/credentials"
	"hyperfleet/internal/infrastructure/database"
	"hyperfleet/internal/infrastructure/notify"
	"hyperfleet/internal/infrastructure/probe"
	"hyperfleet/internal/infrastructure/pubsub"
	"hyperfleet/internal/infrastructure/repository"
	"hyperfleet/internal/infrastructure/scheduler"
	"hyperfleet/internal/shared/goroutine"
	"hyperfleet/internal/shared/logger"
)

func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting health monitor worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	db := database.Get()
	mc := cfg.Monitor

	endpointRepo := repository.NewEndpointRepository(db, log)
	statusRepo := repository.NewStatusRepository(db, mc.TimeoutFloorMs, mc.TimeoutCeilingMs, log)
	probeRepo := repository.NewProbeRecordRepository(db, log)
	episodeRepo := repository.NewEpisodeRepository(db, log)

	credStore, err := credentials.NewGormStore(db, cfg.Credential.EncryptionKey, log)
	if err != nil {
		log.Fatalw("failed to initialize credential store", "error", err)
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
	reconcileUC := usecases.NewReconcileStatusUseCase(store, fleetCache, log.Named("reconciler"))

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
		log.Fatalw("failed to create monitor scheduler", "error", err)
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

	if err := mon.Start(); err != nil {
		log.Fatalw("failed to start monitor scheduler", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infow("shutting down worker", "signal", sig)

	cancel()
	if err := mon.Stop(); err != nil {
		log.Warnw("monitor scheduler shutdown failed", "error", err)
	}
	log.Infow("worker stopped")
}
