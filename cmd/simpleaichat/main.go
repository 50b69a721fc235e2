package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
	"github.com/devgamesan/SimpleAIChat/internal/capture"
	"github.com/devgamesan/SimpleAIChat/internal/config"
	"github.com/devgamesan/SimpleAIChat/internal/display"
	"github.com/devgamesan/SimpleAIChat/internal/metrics"
	"github.com/devgamesan/SimpleAIChat/internal/segment"
	"github.com/devgamesan/SimpleAIChat/internal/server"
	"github.com/devgamesan/SimpleAIChat/internal/session"
	"github.com/devgamesan/SimpleAIChat/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "simpleaichat"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("capture_source", cfg.Capture.Source),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Int("frame_size", cfg.Capture.FrameSize),
		slog.String("level_metric", cfg.Segmenter.Metric),
		slog.Float64("silence_threshold", cfg.Segmenter.SilenceThreshold),
		slog.Float64("silence_delay", cfg.Segmenter.SilenceDelay),
		slog.String("transcription_mode", cfg.Transcription.Mode),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the capture device
	device, err := capture.Open(cfg.Capture.Source, cfg.Capture.Path, capture.ReaderConfig{
		SampleRate: cfg.Capture.SampleRate,
		FrameSize:  cfg.Capture.FrameSize,
		Realtime:   cfg.Capture.Realtime,
	})
	if err != nil {
		logger.Error("Failed to open capture device", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Capture device opened",
		slog.String("source", cfg.Capture.Source),
		slog.String("path", cfg.Capture.Path),
	)

	// Create the transcription dispatcher
	dispatcher, err := transcription.NewDispatcher(cfg.Transcription.DispatcherConfig())
	if err != nil {
		logger.Error("Failed to create transcription dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription dispatcher initialized",
		slog.String("mode", cfg.Transcription.Mode),
		slog.String("endpoint", cfg.Transcription.Endpoint),
	)

	// Assemble the session controller
	metric, _ := audio.ParseMetric(cfg.Segmenter.Metric)
	encoding, _ := segment.ParseEncoding(cfg.Segmenter.Encoding)
	surface := display.NewConsole(os.Stdout, false)

	controller, err := session.NewController(session.Config{
		SampleRate:       cfg.Capture.SampleRate,
		Metric:           metric,
		SilenceThreshold: cfg.Segmenter.SilenceThreshold,
		SilenceDelay:     cfg.Segmenter.GetSilenceDelayDuration(),
		MinSegmentFrames: cfg.Segmenter.MinSegmentFrames,
		Encoding:         encoding,
		ContainerMIME:    cfg.Segmenter.ContainerMIME,
	}, device, dispatcher, surface, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create session controller", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the session
	if err := controller.Start(ctx); err != nil {
		logger.Error("Failed to start session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Session running, waiting for signals...")

	// Wait for a shutdown signal or for the capture source to end
	sessionDone := make(chan struct{})
	go func() {
		controller.Wait()
		close(sessionDone)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-sessionDone:
		logger.Info("Capture source ended, shutting down")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the session (flushes the open segment and waits for results)
	if err := controller.Stop(); err != nil {
		logger.Error("Error stopping session", slog.String("error", err.Error()))
	}

	// Log final statistics
	info := controller.Info()
	logger.Info("Final session statistics",
		slog.Uint64("frames_processed", info.Stats.FramesProcessed),
		slog.Uint64("segments_flushed", info.Stats.SegmentsFlushed),
		slog.Uint64("segments_discarded", info.Stats.SegmentsDiscarded),
		slog.Uint64("results_succeeded", info.Stats.ResultsSucceeded),
		slog.Uint64("results_failed", info.Stats.ResultsFailed),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination. Transcripts go to stdout, so logs
	// default to stderr to keep the two apart.
	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
