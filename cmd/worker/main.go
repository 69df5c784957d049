package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/jobs"
	"github.com/therealutkarshpriyadarshi/aiva/internal/logging"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/queue"
	"github.com/therealutkarshpriyadarshi/aiva/internal/storage"
	"github.com/therealutkarshpriyadarshi/aiva/internal/tracing"
	"github.com/therealutkarshpriyadarshi/aiva/internal/transform"
	"github.com/therealutkarshpriyadarshi/aiva/internal/voice"
	"github.com/therealutkarshpriyadarshi/aiva/internal/webhook"
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

	workerID := cfg.Worker.ID
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}
	logger = logger.WithWorkerID(workerID)
	zl := logger.Zerolog()

	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracerCloser.Close()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port).WithLogger(zl)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
		defer metricsServer.Shutdown(context.Background())
	}

	// Initialize job store
	store, err := jobs.NewStore(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to job store: %v", err)
	}
	defer store.Close()

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	// Archiving derived outputs is optional
	var archiver Archiver
	if cfg.Storage.Enabled {
		stor, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		archiver = stor
	}

	ffmpeg := media.NewFFmpeg(cfg.Media, zl)
	whisper := voice.NewWhisperCLI(cfg.Voice, ffmpeg, zl)
	if err := whisper.Init(context.Background()); err != nil {
		logger.WithError(err).Warn("Transcription unavailable, transcribe jobs will fail")
	}

	dispatcher := transform.NewDispatcher(transform.Deps{
		Media:       ffmpeg,
		Executor:    ffmpeg,
		Transcriber: whisper,
	}, cfg.Media, zl)

	notifier := webhook.NewNotifier(cfg.Webhook, zl)
	proc := newProcessor(store, dispatcher, archiver, notifier, workerID, zl)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		runHeartbeat(ctx, store, proc, 30*time.Second, zl)
	}()

	// Start consuming jobs
	logger.WithFields(map[string]interface{}{
		"concurrency": cfg.Worker.Concurrency,
		"archive":     archiver != nil,
	}).Info("Worker started, waiting for jobs...")
	if err := q.ConsumeJobs(ctx, cfg.Worker.Concurrency, proc.handle); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	<-heartbeatDone
	logger.Info("Worker stopped")
}
