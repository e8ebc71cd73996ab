package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vladislavdragonenkov/littlelemon/internal/health"
	"github.com/vladislavdragonenkov/littlelemon/internal/identity"
	"github.com/vladislavdragonenkov/littlelemon/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/littlelemon/internal/service/cart"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/catalog"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/httpapi"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/idempotency"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/membership"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/ordering"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/outbox"
	"github.com/vladislavdragonenkov/littlelemon/internal/version"
)

// newRouter собирает сервисы поверх репозиториев и публикует их через HTTP.
func newRouter(cfg Config, deps *runtimeDependencies, issuer *identity.Issuer, m *metrics.OrderMetrics, logger *log.Entry) *gin.Engine {
	layer := func(name string) *log.Entry { return logger.WithField("layer", name) }

	return httpapi.NewRouter(httpapi.Dependencies{
		Catalog:     catalog.NewService(deps.menu, layer("catalog")),
		Cart:        cartsvc.NewService(deps.carts, m, layer("cart")),
		Orders:      ordering.NewService(deps.orders, deps.members, deps.timeline, m, layer("ordering")),
		Membership:  membership.NewService(deps.members, layer("membership")),
		Resolver:    identity.NewResolver(issuer, deps.members),
		Idempotency: deps.idempotency,
		Metrics:     m,
		Logger:      layer("http"),
	}, httpapi.Config{CORSOrigins: cfg.CORSOrigins})
}

// startWorkers запускает фоновые воркеры; они останавливаются вместе с ctx.
func startWorkers(ctx context.Context, cfg Config, deps *runtimeDependencies, publishers *eventPublishers, logger *log.Entry) *sync.WaitGroup {
	var wg sync.WaitGroup

	if publishers.enabled() {
		worker := outbox.NewWorker(deps.outbox, publishers.events,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(publishers.dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	cleanup := idempotency.NewCleanupWorker(deps.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	return &wg
}

// Run поднимает HTTP API, сервер метрик, gRPC health и воркеры, и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "app")
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	issuer, err := identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	publishers, err := initEventPublishers(cfg, logger)
	if err != nil {
		return err
	}
	defer publishers.close()

	orderMetrics := metrics.NewOrderMetrics()
	healthHandler := health.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageCheck)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workers := startWorkers(workerCtx, cfg, deps, publishers, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcServer, grpcHealth := newGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen grpc: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, deps, issuer, orderMetrics, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC health сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервисы")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server stopped unexpectedly")
	}

	healthHandler.SetDraining(true)
	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(httpSrv, logger)
	stopGRPC(grpcServer, logger)
	stopWorkers()
	workers.Wait()
	shutdownHTTP(metricsSrv, logger)

	return runErr
}
