package main

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/leases-tracker/internal/observability"
)

const pingTimeout = 3 * time.Second

// Pinger is satisfied by *repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// dbWatcher keeps the gRPC health status in step with the database.
type dbWatcher struct {
	db       Pinger
	health   *health.Server
	metrics  *observability.Metrics
	interval time.Duration
	logger   *slog.Logger

	up bool
}

// check pings once and publishes the result. It logs only transitions.
func (w *dbWatcher) check(ctx context.Context) {
	err := w.db.HealthCheck(ctx, pingTimeout)
	up := err == nil
	w.metrics.SetDatabaseUp(up)
	status := healthpb.HealthCheckResponse_SERVING
	if !up {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.health.SetServingStatus("", status)

	if up != w.up {
		if up {
			w.logger.Info("leasesd.db.up")
		} else {
			w.logger.Error("leasesd.db.down", "error", err)
		}
	}
	w.up = up
}

// run checks until ctx ends.
func (w *dbWatcher) run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.check(ctx)
		}
	}
}
