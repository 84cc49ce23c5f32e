// main.go - The entry point and router setup.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/configs"
	"github.com/bosocmputer/livecommerce_ocr/internal/ai"
	"github.com/bosocmputer/livecommerce_ocr/internal/api"
	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/extraction"
	"github.com/bosocmputer/livecommerce_ocr/internal/metrics"
	"github.com/bosocmputer/livecommerce_ocr/internal/ratelimit"
	"github.com/bosocmputer/livecommerce_ocr/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()
	logger := common.Logger()
	defer logger.Sync() //nolint:errcheck

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Create the UPLOAD_DIR folder if it doesn't exist
	if err := os.MkdirAll(configs.UPLOAD_DIR, 0o755); err != nil {
		logger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// Step 2: OCR providers and the extraction service
	primary, fallback, err := ai.CreateOCRProviderWithFallback(configs.ProviderConfig())
	if err != nil {
		logger.Fatal("failed to create OCR provider", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []extraction.Option{
		extraction.WithMetrics(m),
		extraction.WithRateLimiter(ratelimit.NewRateLimiter(configs.OCR_RATE_LIMIT_TOKENS, configs.OCR_RATE_LIMIT_REFILL)),
	}
	if fallback != nil {
		opts = append(opts, extraction.WithFallback(fallback))
	}

	cache, closeCache := openReadingCache(logger)
	defer closeCache()
	if cache != nil {
		opts = append(opts, extraction.WithCache(cache))
	}

	service := extraction.NewService(primary, configs.ExtractionConfig(), opts...)

	// Step 3: Initialize the Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.LoggingMiddleware())
	router.Use(api.MetricsMiddleware(m))
	router.Use(api.CORSMiddleware(configs.ALLOWED_ORIGINS))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "livecommerce-ocr",
			"version":  "1.0.0",
			"provider": primary.Name(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.NewHandler(service, configs.UPLOAD_DIR, api.WithRequestTimeout(configs.REQUEST_TIMEOUT)).Register(router)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   configs.WriteTimeout(),
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", configs.PORT),
			zap.Strings("endpoints", []string{
				"POST /api/v1/extract-metrics",
				"POST /api/v1/parse-text",
				"GET /health",
				"GET /metrics",
			}))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// openReadingCache picks the MongoDB cache when MONGO_URI is set, the in-memory
// cache otherwise, and no cache when OCR_CACHE_TTL is zero.
func openReadingCache(logger *zap.Logger) (storage.ReadingCache, func()) {
	noop := func() {}
	if configs.OCR_CACHE_TTL <= 0 {
		logger.Info("OCR reading cache disabled")
		return nil, noop
	}

	if configs.MONGO_URI == "" {
		logger.Info("using in-memory OCR reading cache", zap.Duration("ttl", configs.OCR_CACHE_TTL))
		return storage.NewMemoryReadingCache(configs.OCR_CACHE_TTL), noop
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cache, err := storage.NewMongoReadingCache(ctx, configs.MONGO_URI, configs.MONGO_DB_NAME, configs.OCR_CACHE_TTL)
	if err != nil {
		logger.Warn("MongoDB unavailable, falling back to in-memory OCR reading cache", zap.Error(err))
		return storage.NewMemoryReadingCache(configs.OCR_CACHE_TTL), noop
	}

	return cache, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.Close(ctx); err != nil {
			logger.Warn("failed to close MongoDB", zap.Error(err))
		}
	}
}
