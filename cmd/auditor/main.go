package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/darukaa/siteboundary/internal/adapters/nats"
	"github.com/darukaa/siteboundary/internal/adapters/postgres"
	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/usecases"
	"github.com/darukaa/siteboundary/internal/pkg/config"
	"github.com/darukaa/siteboundary/internal/pkg/logging"
	"github.com/darukaa/siteboundary/internal/pkg/metrics"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

const durableName = "boundary-auditor"

// The auditor records every published boundary event in boundary_history.
func main() {
	cfg, err := config.Load("siteboundary-auditor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	audit := usecases.NewAuditService(postgres.NewBoundaryHistoryRepo(db))
	err = sub.SubscribeBoundaryEvents(ctx, func(ctx context.Context, ev *domain.BoundaryEvent) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := audit.Record(ctx, ev); err != nil {
			metrics.AuditErrors.Inc()
			slog.Error("audit boundary event", "site_id", ev.SiteID, "session_id", ev.SessionID, "error", err)
			return err
		}
		metrics.AuditedEvents.WithLabelValues(string(ev.Kind)).Inc()
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Metrics only; the auditor serves no API.
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port+1)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("boundary auditor started", "durable", durableName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down auditor", "signal", sig.String())
	cancel()
	_ = app.Shutdown()
}
