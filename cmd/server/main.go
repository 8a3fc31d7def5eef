package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"haven-chat/domain/event"
	"haven-chat/internal"
	"haven-chat/repositories"
	"haven-chat/risk"
	"haven-chat/runtime"
	"haven-chat/runtime/workers"
	"haven-chat/sink"
	"haven-chat/transport/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanup (database close, index flush) only runs reliably when the
// process exits through here rather than os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Classification pipeline
	emotions := risk.NewHTTPEmotionClassifier(config.EmotionEndpoint, config.EmotionToken, config.EmotionTimeout, logger)
	classifier, err := risk.NewClassifier(emotions, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("classifier init failed: %w", err)
	}
	if config.EmotionEndpoint == "" {
		logger.Warn("No emotion endpoint configured, running on keyword tiers only")
	}

	// 4. Core runtime
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, logger)
	searchIndex := repositories.NewSearchIndex(blugeWriter, logger)
	orchestrator := runtime.NewOrchestrator(logger, registry, messageRepository, classifier, searchIndex,
		config.BufferSize, config.HistoryLimit, config.SearchLimit)

	// 5. Transport
	table := ws.NewTable()
	wsServer := ws.NewServer(logger, table, orchestrator, config.ConnectionBufferSize)

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		debugPort := config.Port + 1
		logger.Info("Debug message inspector available",
			"url", fmt.Sprintf("http://localhost:%d/inspect", debugPort))
		internal.StartDebugServer(db, debugPort, "/inspect", func() map[string]any {
			return map[string]any{
				"Open sessions": table.Len(),
				"Time":          time.Now().Format(time.RFC822),
			}
		})
	}

	// 6. Workers under supervision
	telemetryChan := make(chan event.DomainEvent, config.BufferSize)
	fanout := workers.NewEventFanout(logger, registry, orchestrator.Events(), telemetryChan).
		Add(sink.NewSearchSink(searchIndex, logger))
	liveness := workers.NewLivenessWorker(logger, table, config.LivenessInterval)
	telemetry := workers.NewTelemetryWorker(logger, telemetryChan, []event.Handler{
		event.NewLatencyHandler(logger, config.LatencyThreshold),
		event.NewRiskHitHandler(logger),
	})
	health := workers.NewHealthWorker(logger, config.MetricInterval)

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(fanout, liveness, telemetry, health)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 8. HTTP server exposing the websocket endpoint
	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)

	address := fmt.Sprintf("0.0.0.0:%d", config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Final Cleanup (Graceful Shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	sup.Stop()

	logger.Info("Server stopped", "open_sessions", table.Len(), slog.Time("at", time.Now().UTC()))
	return exitOK, nil
}
