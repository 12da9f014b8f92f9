package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	repo "github.com/joseph-ayodele/leases-tracker/internal/repository"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log, nil)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	watcher := &dbWatcher{
		db:       db,
		health:   healthServer,
		metrics:  metrics,
		interval: cfg.Server.HealthInterval,
		logger:   logger,
		up:       true,
	}
	watcher.check(ctx)
	if watcher.interval > 0 {
		go watcher.run(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics serve error", "error", err)
			stop()
		}
	}()

	logger.Info("leasesd listening", "grpc_addr", cfg.Server.GRPCAddr, "metrics_addr", cfg.Server.MetricsAddr,
		"driver", db.Dialect())
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("leasesd shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	grpcServer.GracefulStop()
}
