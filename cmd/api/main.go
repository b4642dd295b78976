package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/relationship-engine/internal/config"
	"github.com/jwebster45206/relationship-engine/internal/handlers"
	"github.com/jwebster45206/relationship-engine/internal/logger"
	"github.com/jwebster45206/relationship-engine/internal/middleware"
	"github.com/jwebster45206/relationship-engine/internal/services"
	"github.com/jwebster45206/relationship-engine/internal/storage"
	"github.com/jwebster45206/relationship-engine/pkg/memory"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Relationship Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider)

	ollama := services.NewOllamaService(cfg.OllamaURL, cfg.OllamaModel, cfg.EmbeddingModel, log)

	var llmService services.LLMService
	var modelName string
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
		modelName = cfg.AnthropicModel
		log.Info("Using Anthropic LLM provider")
	case "ollama":
		llmService = ollama
		modelName = cfg.OllamaModel
		log.Info("Using Ollama LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"anthropic", "ollama"})
		os.Exit(1)
	}

	// Embeddings always come from Ollama; Anthropic has no embeddings API.
	var embedder memory.Embedder = ollama

	var store storage.Storage
	if cfg.RedisURL != "" {
		redisStore := storage.NewRedisStorage(cfg.RedisURL, cfg.TurningPointsPath, cfg.PersonasPath, log)
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()
		if err := redisStore.WaitForConnection(storageCtx); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = redisStore
	} else {
		store = storage.NewFileStorage(cfg.SavesDir, cfg.TurningPointsPath, cfg.PersonasPath, log)
	}
	log.Info("Storage connection established successfully")

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, modelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", modelName)
		os.Exit(1)
	}

	catalog, err := store.GetCatalog(ctx)
	if err != nil {
		log.Error("Failed to load turning-point catalog", "error", err)
		os.Exit(1)
	}
	log.Info("Turning-point catalog loaded",
		"points", catalog.Len(),
		"scenes", catalog.TotalScenes())

	simConfig := simulation.Config{
		LLM:       llmService,
		Embedder:  embedder,
		Templates: prompts.NewStore(),
		Catalog:   catalog,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:    log,
	}

	registry := handlers.NewRegistry()

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	simulationHandler := handlers.NewSimulationHandler(registry, store, simConfig, cfg.InteractionsPerScene, log)
	mux.Handle("/v1/simulations", simulationHandler)
	mux.Handle("/v1/simulations/", simulationHandler)

	eventsHandler := handlers.NewEventsHandler(registry, cfg.InteractionsPerScene, log)
	mux.Handle("/v1/events/simulations/", eventsHandler)

	personaHandler := handlers.NewPersonaHandler(store, log)
	mux.Handle("/v1/personas", personaHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - streaming endpoints handle their own timeouts
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
