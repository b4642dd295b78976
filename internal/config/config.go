package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// LLM backend selection and connection settings.
	LLMProvider     string
	OllamaURL       string
	OllamaModel     string
	EmbeddingModel  string
	AnthropicAPIKey string
	AnthropicModel  string

	// Simulation defaults.
	InteractionsPerScene int
	MaxConcurrentRuns    int

	// Persistence.
	RedisURL          string
	SavesDir          string
	TurningPointsPath string
	PersonasPath      string
}

func Load() *Config {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-0"),

		InteractionsPerScene: getEnvInt("INTERACTIONS_PER_SCENE", 2),
		MaxConcurrentRuns:    getEnvInt("MAX_CONCURRENT_RUNS", 4),

		RedisURL:          getEnv("REDIS_URL", ""),
		SavesDir:          getEnv("SAVES_DIR", "saves"),
		TurningPointsPath: getEnv("TURNING_POINTS_PATH", "data/turning_points.json"),
		PersonasPath:      getEnv("PERSONAS_PATH", "data/personas.json"),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
