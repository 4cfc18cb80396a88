package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/api"
	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/geo"
	"github.com/patrickwarner/adselect/internal/history"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/middleware"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
	"github.com/patrickwarner/adselect/internal/resources"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer store.Close()

	eventStore, err := events.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns)
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer eventStore.Close()

	geoDB, err := geo.Init(cfg.GeoIPDB)
	if err != nil {
		return fmt.Errorf("failed to load geoip db: %w", err)
	}
	defer func() { _ = geoDB.Close() }()
	subdivision := geo.NewSubdivisionTargeting(geoDB)

	antiTargeting := resources.NewAntiTargeting()
	if err := antiTargeting.Load(cfg.AntiTargetingPath); err != nil {
		// Selection degrades to no advertiser deny list; don't refuse to
		// start over a missing resource file.
		logger.Warn("load anti-targeting resource", zap.Error(err),
			zap.String("path", cfg.AntiTargetingPath))
	}

	metricsRegistry := observability.NewPrometheusRegistry()
	browsingHistory := history.NewPostgres(pg.DB)

	notificationStore := db.NotificationAds{PG: pg}
	notification := selectors.NewEligibleAds[models.CreativeNotificationAd](
		models.AdTypeNotification, notificationStore, store, eventStore, browsingHistory, cfg)
	notification.SetSubdivisionTargeting(subdivision)
	notification.SetAntiTargeting(antiTargeting)
	notification.SetMetrics(metricsRegistry)
	notification.SetLogger(logger)

	inlineContentStore := db.InlineContentAds{PG: pg}
	inlineContent := selectors.NewEligibleAds[models.CreativeInlineContentAd](
		models.AdTypeInlineContent, inlineContentStore, store, eventStore, browsingHistory, cfg)
	inlineContent.SetSubdivisionTargeting(subdivision)
	inlineContent.SetAntiTargeting(antiTargeting)
	inlineContent.SetMetrics(metricsRegistry)
	inlineContent.SetLogger(logger)

	srvDeps := api.NewServer(logger, store, pg, eventStore, subdivision, notification, inlineContent, metricsRegistry, cfg)
	if err := srvDeps.Reload(ctx); err != nil {
		logger.Warn("initial catalog load", zap.Error(err))
	}

	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(logger))
	r.HandleFunc("/v1/ads/notification", srvDeps.ServeNotificationAdHandler).Methods("POST")
	r.HandleFunc("/v1/ads/inline-content", srvDeps.ServeInlineContentAdHandler).Methods("POST")
	r.HandleFunc("/v1/events", srvDeps.EventHandler).Methods("POST")
	r.HandleFunc("/v1/segments", srvDeps.SegmentsHandler).Methods("GET")
	r.HandleFunc("/v1/catalog/reload", srvDeps.ReloadHandler).Methods("POST")
	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "adselect-http"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Ad selection server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(ctx); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
