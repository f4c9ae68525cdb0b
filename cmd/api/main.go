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
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/darukaa/siteboundary/internal/adapters/http"
	natsadapter "github.com/darukaa/siteboundary/internal/adapters/nats"
	"github.com/darukaa/siteboundary/internal/adapters/postgres"
	"github.com/darukaa/siteboundary/internal/adapters/valkey"
	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/ports"
	"github.com/darukaa/siteboundary/internal/core/usecases"
	"github.com/darukaa/siteboundary/internal/mapview"
	"github.com/darukaa/siteboundary/internal/pkg/config"
	"github.com/darukaa/siteboundary/internal/pkg/logging"
	"github.com/darukaa/siteboundary/internal/pkg/metrics"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("siteboundary-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
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

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Optional dependencies stay nil interfaces when unavailable.
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer valkeyCache.Close()
		cache = valkeyCache
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, boundary events will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Separate connection for WebSocket relays
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	siteRepo := postgres.NewSiteRepo(db)
	siteSvc := usecases.NewSiteService(siteRepo, postgres.NewAnalyticsHistoryRepo(db), cache)
	projectSvc := usecases.NewProjectService(postgres.NewProjectRepo(db), siteRepo, cache)
	boundarySvc := usecases.NewBoundaryService(siteSvc, cache, publisher, usecases.BoundaryOptions{
		Map:         mapOptions(cfg.Map),
		DraftTTL:    cfg.Session.DraftTTL,
		MaxSessions: cfg.Session.MaxSessions,
	})
	auditSvc := usecases.NewAuditService(postgres.NewBoundaryHistoryRepo(db))

	deps := &http.Dependencies{
		Sites:      siteSvc,
		Projects:   projectSvc,
		Boundaries: boundarySvc,
		Audit:      auditSvc,
		NATS:       natsConn,
		DB:         db,
		Cache:      valkeyCache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Site Boundary API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + http.HeaderUserID,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	// Open editors are unmounted so their last events still go out.
	boundarySvc.CloseAll(shutdownCtx)

	slog.Info("server stopped")
}

func mapOptions(m config.MapConfig) mapview.Options {
	opts := mapview.DefaultOptions()
	opts.Center = domain.LatLng{m.CenterLat, m.CenterLon}
	opts.Zoom = m.Zoom
	opts.MinZoom = m.MinZoom
	opts.MaxZoom = m.MaxZoom
	opts.Padding = m.Padding
	opts.Tiles.URL = m.TileURL
	opts.Tiles.Attribution = m.Attribution
	return opts
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
