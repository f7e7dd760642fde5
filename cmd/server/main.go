// Command server runs the health assistant's HTTP API: chat session and
// streaming-message endpoints, document upload and background ingestion,
// and the lab/symptom query surfaces.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-chat-backend/internal/ai"
	"github.com/tbourn/go-chat-backend/internal/config"
	"github.com/tbourn/go-chat-backend/internal/health"
	httpapi "github.com/tbourn/go-chat-backend/internal/http"
	"github.com/tbourn/go-chat-backend/internal/ingest"
	"github.com/tbourn/go-chat-backend/internal/observability"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags; it defaults to "dev" for
// local builds and is only used for the OTel service.version resource
// attribute.
var version = "dev"

func main() {
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	dbPath := cfg.DBPath
	if cfg.Ingest.StoreURL != "" {
		dbPath = cfg.Ingest.StoreURL
	}
	db, err := repo.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := repo.SeedWearableSeriesTypes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed wearable series types")
	}

	if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Ingest.UploadDir).Msg("failed to create upload directory")
	}

	gateway := ai.NewGateway(cfg.Inference.Host, "", cfg.Inference.ChatModel, cfg.Inference.ExtractionModel, cfg.Inference.Timeout)
	dispatcher := health.NewDispatcher(db)
	ocrClient := ingest.NewOCRClient(cfg.Ingest.OCRServiceURL)

	queue, err := ingest.NewQueue(cfg.Ingest.QueueURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ingestion queue")
	}
	defer queue.Close()

	extractor := ingest.NewExtractor(gateway)
	pipeline := ingest.NewPipeline(db, ocrClient, extractor)
	worker := ingest.NewWorker(queue.Conn(), cfg.Ingest.QueueWorkers, pipeline.Handle, log.Logger)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	if err := worker.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start ingestion worker")
	}
	defer func() {
		cancelWorker()
		worker.Close()
	}()

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Dependencies{
		DB:         db,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Queue:      queue,
		OCR:        ocrClient,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	waitForShutdown(srv)
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains in-flight
// requests within a bounded window before returning.
func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("server exited gracefully")
	}
}
