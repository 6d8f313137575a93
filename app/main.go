package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veille/app/api"
	"veille/app/cfg"
	"veille/app/database"
	"veille/app/feed"
	"veille/app/sources"
	"veille/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting Veille server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	itemRepo := database.NewItemRepository(db)

	registerSeedSources(appCfg.SourcesFile, sourceRepo)

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent)
	ingestor := feed.NewIngestor(fetcher, sourceRepo, itemRepo)

	scheduler := tasks.NewScheduler(ingestor, time.Duration(appCfg.RefreshInterval)*time.Minute)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "interval_minutes", appCfg.RefreshInterval)

	handler := api.NewHandler(sourceRepo, itemRepo, scheduler,
		appCfg.AuthPassword, appCfg.AuthPasswordHash, appCfg.SessionSecret)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // manual full refresh is synchronous
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// registerSeedSources syncs the YAML seed file into the database. Seed
// problems are logged, never fatal: the server still serves whatever
// sources already exist.
func registerSeedSources(path string, sourceRepo *database.SourceRepository) {
	definitions, err := sources.Load(path)
	if err != nil {
		slog.Warn("Failed to load sources file", "path", path, "error", err)
		return
	}
	if len(definitions) == 0 {
		return
	}

	registered := 0
	created := 0
	for _, def := range definitions {
		_, isNew, err := sourceRepo.RegisterSource(def.Name, def.URL, def.Kind, def.Icon, def.IsEnabled())
		if err != nil {
			slog.Warn("Failed to register source", "name", def.Name, "error", err)
			continue
		}
		registered++
		if isNew {
			created++
		}
	}

	slog.Info("Seed sources registered", "total", registered, "created", created, "file", path)
}
