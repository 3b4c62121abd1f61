package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Neerazan/ocr-project/internal/archive"
	"github.com/Neerazan/ocr-project/internal/cache"
	"github.com/Neerazan/ocr-project/internal/capability"
	"github.com/Neerazan/ocr-project/internal/config"
	"github.com/Neerazan/ocr-project/internal/pipeline"
	"github.com/Neerazan/ocr-project/internal/raster"
	"github.com/Neerazan/ocr-project/internal/search"
	"github.com/Neerazan/ocr-project/internal/server"
	"github.com/Neerazan/ocr-project/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var vertexClient *capability.VertexClient
	if cfg.OCREngine == "gemini" || cfg.Corrector == "gemini" {
		vertexClient, err = capability.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, "")
		if err != nil {
			logger.Error("failed to create vertex client", "error", err)
			os.Exit(1)
		}
		defer vertexClient.Close()
	}

	var extractor capability.Extractor
	switch cfg.OCREngine {
	case "gemini":
		extractor = capability.NewGeminiExtractor(vertexClient)
	case "tesseract":
		extractor = capability.NewTesseractExtractor(cfg.OCRLanguage)
	}

	var corrector capability.Corrector
	switch cfg.Corrector {
	case "gemini":
		corrector = capability.NewGeminiCorrector(vertexClient)
	case "ollama":
		corrector = capability.NewOllamaCorrector(cfg.OllamaURL, cfg.OllamaModel, cfg.CallTimeout)
	}

	var preprocessor capability.Preprocessor
	if cfg.PreprocessURL != "" {
		preprocessor = capability.NewHTTPPreprocessor(cfg.PreprocessURL, cfg.CallTimeout)
	}

	rasterizer := raster.NewPoppler(raster.Config{DPI: cfg.RasterDPI, ScaleTo: cfg.RasterScaleTo}, logger)
	pages := pipeline.NewPageProcessor(st, preprocessor, extractor, corrector, cfg.PreprocessPreset, cfg.CallTimeout, logger)
	pipe := pipeline.New(st, rasterizer, pages, cfg.ImageDir, cfg.PageWorkers, cfg.DocumentTimeout, logger)

	var pageCache *cache.PageCache
	if cfg.RedisAddr != "" {
		pageCache, err = cache.NewPageCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, logger)
		if err != nil {
			logger.Error("failed to connect page cache", "error", err)
			os.Exit(1)
		}
		defer pageCache.Close()
	}

	var archiver server.Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.ArchiveBucket, logger)
		if err != nil {
			logger.Error("failed to create archiver", "error", err)
			os.Exit(1)
		}
		defer gcs.Close()
		archiver = gcs
	}

	srv := server.New(st, pipe, search.New(st), pageCache, archiver, cfg.UploadDir, cfg.MaxUploadBytes, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Info("server starting",
			"port", cfg.Port, "store", cfg.StoreBackend,
			"ocrEngine", cfg.OCREngine, "corrector", cfg.Corrector,
			"pageWorkers", cfg.PageWorkers)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	logger.Info("server exited")
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "firestore":
		return store.NewFirestore(ctx, cfg.ProjectID, cfg.FirestoreCollection)
	case "memory":
		return store.NewMemory(), nil
	default:
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
}
