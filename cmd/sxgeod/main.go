package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gogrpc "google.golang.org/grpc"

	"github.com/TomasB/sxgeo/internal/config"
	"github.com/TomasB/sxgeo/internal/data"
	"github.com/TomasB/sxgeo/internal/handler/check"
	geogrpc "github.com/TomasB/sxgeo/internal/handler/grpc"
	"github.com/TomasB/sxgeo/internal/handler/health"
	"github.com/TomasB/sxgeo/internal/handler/locate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("service starting", "log_level", cfg.LogLevel.String(), "db_path", cfg.DBPath, "db_mode", cfg.DBMode.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	var metrics *data.Metrics
	if cfg.Metrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = data.NewMetrics(reg)
	}

	db, err := data.NewReloader(cfg.DBPath, func(path string) (data.LocationLookup, error) {
		return data.Open(path, cfg.DBMode)
	})
	if err != nil {
		return fmt.Errorf("load database: %w", err)
	}
	defer db.Close()

	info := db.Info()
	slog.Info("database loaded", "backend", info.Backend, "path", info.Path, "built_at", info.BuiltAt)

	lookup, err := buildLookup(cfg, db, metrics)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Watch {
		if err := db.Watch(ctx); err != nil {
			return fmt.Errorf("watch database: %w", err)
		}
		slog.Info("watching database for changes", "path", info.Path)
	}

	var grpcSrv *gogrpc.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = gogrpc.NewServer()
		geogrpc.Register(grpcSrv, geogrpc.NewHandler(lookup))
		g.Go(func() error {
			slog.Info("grpc server started", "port", cfg.GRPCPort)
			return grpcSrv.Serve(lis)
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(cfg, logger, db, lookup, reg),
	}
	g.Go(func() error {
		slog.Info("http server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("service shutting down")

		// Graceful shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// buildLookup stacks the cache and instrumentation on top of the reloader.
// The cache is purged after every reload.
func buildLookup(cfg *config.Config, db *data.Reloader, metrics *data.Metrics) (data.LocationLookup, error) {
	var lookup data.LocationLookup = db
	if cfg.CacheSize > 0 {
		cached, err := data.NewCachedLookup(db, cfg.CachePolicy, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		db.OnReload(func(_ data.Info, err error) {
			if err == nil {
				cached.Purge()
			}
		})
		lookup = cached
	}
	if metrics != nil {
		db.OnReload(metrics.ObserveReload)
		lookup = metrics.Instrument(lookup)
	}
	return lookup, nil
}

func newRouter(cfg *config.Config, logger *slog.Logger, db *data.Reloader, lookup data.LocationLookup, reg *prometheus.Registry) *gin.Engine {
	// Set Gin mode based on log level
	if cfg.LogLevel == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	healthHandler := health.NewHandler(db)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.POST("/check", check.NewHandler(lookup).Check)
		locate.NewHandler(lookup).Register(api)
	}
	return router
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		attrs := []any{
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		case status >= 500:
			logger.Error("request completed", attrs...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}
