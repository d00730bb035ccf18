package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/migrant-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/migrant-map/internal/adapter/kafka"
	"github.com/couchcryptid/migrant-map/internal/adapter/source"
	"github.com/couchcryptid/migrant-map/internal/config"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/couchcryptid/migrant-map/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	opts := pipeline.Options{
		Canvas: render.Canvas{
			Width:             cfg.CanvasWidth,
			Height:            cfg.CanvasHeight,
			HistogramFraction: cfg.HistogramFraction,
		},
		MaxRadius: cfg.MaxRadius,
		CacheSize: cfg.RenderCacheSize,
	}

	// Selection events are feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Sink = writer
		logger.Info("selection events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSelectionTopic)
	} else {
		logger.Info("selection events disabled")
	}

	dashboard := pipeline.NewDashboard(opts, logger, metrics)
	client := source.NewClient(cfg.DatasetURL, cfg.TopologyURL, cfg.FetchTimeout, logger)
	loader := pipeline.NewLoader(client, client, dashboard, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, dashboard, loader, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// The page serves a loading placeholder until both sources resolve.
	loader.Start(ctx)
	go func() {
		if err := loader.Wait(ctx); err != nil && ctx.Err() == nil {
			logger.Error("dashboard unavailable", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
