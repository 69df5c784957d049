package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/aiva/internal/analysis"
	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/logging"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/middleware"
	"github.com/therealutkarshpriyadarshi/aiva/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/aiva/internal/queue"
	"github.com/therealutkarshpriyadarshi/aiva/internal/tracing"
	"github.com/therealutkarshpriyadarshi/aiva/internal/transform"
	"github.com/therealutkarshpriyadarshi/aiva/internal/voice"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithField("service", "api")
	zl := logger.Zerolog()

	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracerCloser.Close()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port).WithLogger(zl)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	ffmpeg := media.NewFFmpeg(cfg.Media, zl)
	if !ffmpeg.Available() {
		logger.Warn("ffmpeg not found on PATH, media operations will fail")
	}

	whisper := voice.NewWhisperCLI(cfg.Voice, ffmpeg, zl)
	if err := whisper.Init(context.Background()); err != nil {
		// The rest of the API works without a transcription model
		logger.WithError(err).Warn("Transcription unavailable")
	}

	api := &API{
		analyzer: analysis.NewEngine(ffmpeg, cfg.Analysis, zl),
		transformer: transform.NewDispatcher(transform.Deps{
			Media:       ffmpeg,
			Executor:    ffmpeg,
			Transcriber: whisper,
		}, cfg.Media, zl),
		voice:       voice.NewService(whisper, dsp.NewResampler(ffmpeg, zl), cfg.Voice, zl),
		transcriber: whisper,
		logger:      logger.Component("http"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Async jobs need both Redis and RabbitMQ; without them the API stays synchronous
	store, err := jobs.NewStore(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Job store unavailable, async jobs disabled")
	} else {
		defer store.Close()

		q, err := queue.New(cfg.Queue)
		if err != nil {
			logger.WithError(err).Warn("Queue unavailable, async jobs disabled")
		} else {
			defer q.Close()
			if err := q.SetupDeadLetterQueue(); err != nil {
				logger.Fatalf("Failed to set up dead letter queue: %v", err)
			}
			api.jobs = store
			api.publisher = q

			monitor := monitoring.NewMonitor(store, q, cfg.Metrics.StatusInterval, zl)
			monitor.Start(ctx)
			api.status = monitor
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, 10*time.Minute)

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api, cfg, limiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, cfg *config.Config, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(api.logger))
	router.Use(middleware.CORS())

	// Health check
	router.GET("/", api.root)
	router.GET("/health", api.healthCheck)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authenticate(cfg.Auth.Enabled))
	{
		// Analysis
		v1.POST("/analyze", api.analyze)
		v1.POST("/stats", api.stats)
		v1.POST("/scenes", api.scenes)

		// Voice
		v1.POST("/classify", api.classify)
		v1.POST("/voice", api.handleVoice)
		v1.POST("/transcribe", api.transcribe)

		// Transforms
		transforms := v1.Group("")
		transforms.Use(middleware.RateLimit(limiter))
		v1.GET("/actions", api.actions)
		transforms.POST("/apply", api.apply)
		transforms.POST("/jobs", api.createJob)

		v1.GET("/jobs/:id", api.getJob)
		v1.GET("/system/status", api.systemStatus)
	}

	return router
}
