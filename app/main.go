package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/quickcheck/app/api"
	"github.com/lysyi3m/quickcheck/app/cfg"
	"github.com/lysyi3m/quickcheck/app/content"
	"github.com/lysyi3m/quickcheck/app/database"
	"github.com/lysyi3m/quickcheck/app/feed"
	"github.com/lysyi3m/quickcheck/app/ingest"
	"github.com/lysyi3m/quickcheck/app/items"
	"github.com/lysyi3m/quickcheck/app/logging"
	"github.com/lysyi3m/quickcheck/app/tasks"
	"github.com/lysyi3m/quickcheck/app/upstream"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logOutput, logCloser := logging.Setup(logging.Options{Debug: appCfg.Debug, File: appCfg.LogFile})
	defer logCloser.Close()

	if err := run(appCfg, logOutput); err != nil {
		slog.Error("Server exited with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg, logOutput io.Writer) error {
	slog.Info("Starting quickcheck", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	client, err := newUpstreamClient()
	if err != nil {
		return err
	}

	itemRepo := database.NewItemRepository(db)
	contentRepo := database.NewContentRepository(db)

	engine := ingest.NewEngine(client, itemRepo, int64(appCfg.BootstrapWindow))
	defer engine.Close()
	service := items.NewService(itemRepo, contentRepo, engine)

	extractor := content.NewExtractor(&http.Client{Timeout: appCfg.UpstreamTimeoutDuration()}, appCfg.UserAgent)
	scheduler := tasks.NewScheduler(engine, contentRepo, extractor, tasks.Options{
		Interval:          appCfg.SyncIntervalDuration(),
		WorkerCount:       appCfg.WorkerCount,
		ExtractContent:    appCfg.ExtractContent,
		ExtractionTimeout: appCfg.UpstreamTimeoutDuration(),
	})
	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount,
		"interval", appCfg.SyncIntervalDuration(),
		"extract_content", appCfg.ExtractContent)
	scheduler.Start()
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(service, feed.NewGenerator(appCfg.BaseUrl, appCfg.Version), appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey, logOutput),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "write_api", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case runErr = <-serverErr:
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}

func newUpstreamClient() (upstream.Client, error) {
	appCfg := cfg.Get()

	if appCfg.UpstreamFixture != "" {
		client, err := upstream.LoadFixture(appCfg.UpstreamFixture)
		if err != nil {
			return nil, fmt.Errorf("failed to load upstream fixture: %w", err)
		}
		slog.Info("Using upstream fixture", "path", appCfg.UpstreamFixture)
		return client, nil
	}

	slog.Info("Using upstream API", "url", appCfg.UpstreamURL)
	return upstream.NewHTTPClient(appCfg.UpstreamURL, appCfg.UserAgent, appCfg.UpstreamTimeoutDuration()), nil
}
