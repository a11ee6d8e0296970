// main package for the voice-clone-service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-clone-service/internal/config"
	"github.com/book-expert/voice-clone-service/internal/f5"
	"github.com/book-expert/voice-clone-service/internal/objectstore"
	"github.com/book-expert/voice-clone-service/internal/server"
	"github.com/book-expert/voice-clone-service/internal/voices"
	"github.com/book-expert/voice-clone-service/internal/worker"
)

const (
	bootstrapLogName = "voice-clone-service-bootstrap.log"
	serviceLogName   = "voice-clone-service.log"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Temporary logger for the bootstrap phase; the final logger location
	// comes out of the configuration.
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logsDir := cfg.Paths.BaseLogsDir
	if logsDir == "" {
		logsDir = os.TempDir()
	}

	log, err := logger.New(logsDir, serviceLogName)
	if err != nil {
		bootstrapLog.Error("Failed to create service logger: %v", err)

		return fmt.Errorf("failed to create service logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log)
}

// serve assembles the engine, catalog, HTTP server, and optional job lane,
// then blocks until shutdown.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	engine, err := f5.New(f5.Config{
		BinaryPath:    cfg.F5.BinaryPath,
		ModelName:     cfg.F5.ModelName,
		WorkDir:       cfg.F5.OutputDir,
		Timeout:       time.Duration(cfg.F5.TimeoutSeconds) * time.Second,
		MaxConcurrent: cfg.F5.MaxConcurrent,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create synthesis engine: %w", err)
	}

	probeErr := engine.Probe()
	if probeErr != nil {
		// Keep serving so /health can report the unloaded model instead of
		// flapping the whole process.
		log.Error("Engine probe failed, health will report model_loaded=false: %v", probeErr)
	}

	catalog := voices.NewCatalog(cfg.Voices.Dir, log)

	if cfg.Voices.Watch {
		watchErr := catalog.Watch()
		if watchErr != nil {
			log.Warn("Voices watcher disabled: %v", watchErr)
		} else {
			defer func() {
				closeErr := catalog.Close()
				if closeErr != nil {
					log.Warn("Failed to close voices catalog: %v", closeErr)
				}
			}()
		}
	}

	if cfg.WorkerEnabled() {
		workerErr := startWorker(ctx, cfg, catalog, engine, log)
		if workerErr != nil {
			return workerErr
		}
	}

	return serveHTTP(ctx, cfg, server.New(catalog, engine, log), log)
}

// startWorker connects to NATS and launches the job lane in the background.
func startWorker(
	ctx context.Context,
	cfg *config.Config,
	catalog *voices.Catalog,
	engine *f5.Engine,
	log *logger.Logger,
) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to open audio object store: %w", err)
	}

	natsWorker := worker.New(
		natsConnection,
		cfg.NATS.TextProcessedSubject,
		store,
		catalog,
		engine,
		cfg.NATS.DefaultVoiceID,
		log,
	)

	go func() {
		defer natsConnection.Close()

		runErr := natsWorker.Run(ctx)
		if runErr != nil {
			log.Error("NATS worker stopped: %v", runErr)
		}
	}()

	log.System("Job lane listening on subject: %s", cfg.NATS.TextProcessedSubject)

	return nil
}

// serveHTTP runs the HTTP listener until the context is cancelled, then
// shuts it down gracefully.
func serveHTTP(ctx context.Context, cfg *config.Config, srv *server.Server, log *logger.Logger) error {
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.System("Voice-clone HTTP API listening on %s", httpServer.Addr)

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}

		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("http server shutdown failed: %w", shutdownErr)
	}

	return nil
}
