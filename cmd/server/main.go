package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-advisor/internal/api"
	"car-advisor/internal/catalog"
	"car-advisor/internal/config"
	"car-advisor/internal/core"
	"car-advisor/internal/logging"
	"car-advisor/internal/session"
	"car-advisor/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Static inputs: the catalog and the spec sheet must load or the
	// process has nothing to serve.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatalw("failed to load catalog", "path", cfg.CatalogPath, "error", err)
	}
	logger.Infow("catalog loaded", "models", cat.Len())

	specSheet, err := os.ReadFile(cfg.SpecSheetPath)
	if err != nil {
		logger.Fatalw("failed to load spec sheet", "path", cfg.SpecSheetPath, "error", err)
	}

	// Interaction log (best effort at runtime, but refuse to start broken)
	audit, err := store.NewInteractionLog(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to initialize interaction log", "error", err)
	}
	defer audit.Close()

	// Generation backend
	gemini, err := core.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Fatalw("failed to create generation client", "error", err)
	}
	defer gemini.Close()

	// Core services
	sessions := session.NewStore(cfg.SessionTTL)
	machine := session.NewMachine(cat, cfg.EmphasisChat)
	answerService := core.NewAnswerService(gemini, string(specSheet), cfg.StreamIdleTimeout, logger)
	chatService := core.NewChatService(sessions, machine, answerService, cat, cfg.EmphasisWeb, audit, logger)

	// HTTP surface
	apiHandler := api.NewAPIHandler(chatService, answerService, cat, audit, logger)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streamed answers are open-ended; the answer
		// service bounds backend inactivity itself.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("could not listen", "addr", serverAddr, "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give in-flight streams time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalw("server forced to shutdown", "error", err)
	}

	logger.Info("Server exiting gracefully")
}
