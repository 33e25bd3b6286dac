package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Llm       LLMConfig
	Knowledge KnowledgeConfig
	Relay     RelayConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type LLMConfig struct {
	Provider string // "openai", "dashscope", "zhipu", "ollama"
	Model    string
	BaseURL  string
	APIKey   string
}

type KnowledgeConfig struct {
	FilePath           string
	SearchLimit        int
	SessionIdleTimeout time.Duration
	ResetCommand       string
}

type RelayConfig struct {
	BaseURL string
	Timeout time.Duration
	AckText string
	Topic   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("ENVIRONMENT", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Llm: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "openai"),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
			APIKey:   getEnv("LLM_API_KEY", ""),
		},
		Knowledge: KnowledgeConfig{
			FilePath:           getEnv("KB_FILE_PATH", "music_data.json"),
			SearchLimit:        getEnvAsInt("SEARCH_LIMIT", 10),
			SessionIdleTimeout: time.Duration(getEnvAsInt("SESSION_IDLE_TIMEOUT_SECONDS", 600)) * time.Second,
			ResetCommand:       getEnv("RESET_COMMAND", "refresh data"),
		},
		Relay: RelayConfig{
			BaseURL: getEnv("RELAY_BASE_URL", "http://localhost:8081"),
			Timeout: time.Duration(getEnvAsInt("RELAY_TIMEOUT_SECONDS", 10)) * time.Second,
			AckText: getEnv("RELAY_ACK_TEXT", "Working on your music recommendation..."),
			Topic:   getEnv("RELAY_TOPIC", "RELAY_INBOUND_MESSAGE"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
