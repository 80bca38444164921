package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerConfig    ServerConfig    `json:"server"`
	BinanceConfig   BinanceConfig   `json:"binance"`
	EngineConfig    EngineConfig    `json:"engine"`
	SentimentConfig SentimentConfig `json:"sentiment"`
	RedisConfig     RedisConfig     `json:"redis"`
	AIConfig        AIConfig        `json:"ai"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                 int    `json:"port"`
	Host                 string `json:"host"`
	AllowedOrigins       string `json:"allowed_origins"` // CORS allowed origins, comma separated
	RateLimitPerMinute   int    `json:"rate_limit_per_minute"`
	ResponseCacheSeconds int    `json:"response_cache_seconds"`
	ShutdownTimeout      int    `json:"shutdown_timeout"` // Seconds
}

type BinanceConfig struct {
	FuturesBaseURL string `json:"futures_base_url"`
	SpotBaseURL    string `json:"spot_base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// EngineConfig controls the signal board lifecycle
type EngineConfig struct {
	TickIntervalSeconds int `json:"tick_interval_seconds"`
	BoardSize           int `json:"board_size"`
	MaxSignalAgeMinutes int `json:"max_signal_age_minutes"`
	UniverseTTLMinutes  int `json:"universe_ttl_minutes"`
}

type SentimentConfig struct {
	Enabled                bool `json:"enabled"`
	RefreshIntervalMinutes int  `json:"refresh_interval_minutes"`
	WorkerCount            int  `json:"worker_count"`
}

// RedisConfig holds Redis configuration for state persistence
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// AIConfig holds the LLM signal validation configuration
type AIConfig struct {
	Enabled        bool   `json:"enabled"`
	LLMProvider    string `json:"llm_provider"` // "claude", "openai", "deepseek" or "gemini"
	ClaudeAPIKey   string `json:"claude_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	GeminiAPIKey   string `json:"gemini_api_key"`
	LLMModel       string `json:"llm_model"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.RateLimitPerMinute = getEnvIntOrDefault("SERVER_RATE_LIMIT_PER_MINUTE", defaultInt(cfg.ServerConfig.RateLimitPerMinute, 45))
	cfg.ServerConfig.ResponseCacheSeconds = getEnvIntOrDefault("SERVER_RESPONSE_CACHE_SECONDS", defaultInt(cfg.ServerConfig.ResponseCacheSeconds, 15))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Binance config
	cfg.BinanceConfig.FuturesBaseURL = getEnvOrDefault("BINANCE_FUTURES_BASE_URL", defaultStr(cfg.BinanceConfig.FuturesBaseURL, "https://fapi.binance.com"))
	cfg.BinanceConfig.SpotBaseURL = getEnvOrDefault("BINANCE_SPOT_BASE_URL", defaultStr(cfg.BinanceConfig.SpotBaseURL, "https://api.binance.com"))
	cfg.BinanceConfig.TimeoutSeconds = getEnvIntOrDefault("BINANCE_TIMEOUT_SECONDS", defaultInt(cfg.BinanceConfig.TimeoutSeconds, 10))

	// Engine config
	cfg.EngineConfig.TickIntervalSeconds = getEnvIntOrDefault("ENGINE_TICK_INTERVAL_SECONDS", defaultInt(cfg.EngineConfig.TickIntervalSeconds, 5))
	cfg.EngineConfig.BoardSize = getEnvIntOrDefault("ENGINE_BOARD_SIZE", defaultInt(cfg.EngineConfig.BoardSize, 8))
	cfg.EngineConfig.MaxSignalAgeMinutes = getEnvIntOrDefault("ENGINE_MAX_SIGNAL_AGE_MINUTES", defaultInt(cfg.EngineConfig.MaxSignalAgeMinutes, 120))
	cfg.EngineConfig.UniverseTTLMinutes = getEnvIntOrDefault("ENGINE_UNIVERSE_TTL_MINUTES", defaultInt(cfg.EngineConfig.UniverseTTLMinutes, 60))

	// Sentiment config
	cfg.SentimentConfig.Enabled = getEnvOrDefault("SENTIMENT_ENABLED", "true") == "true"
	cfg.SentimentConfig.RefreshIntervalMinutes = getEnvIntOrDefault("SENTIMENT_REFRESH_INTERVAL_MINUTES", defaultInt(cfg.SentimentConfig.RefreshIntervalMinutes, 60))
	cfg.SentimentConfig.WorkerCount = getEnvIntOrDefault("SENTIMENT_WORKER_COUNT", defaultInt(cfg.SentimentConfig.WorkerCount, 8))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// AI config
	cfg.AIConfig.Enabled = getEnvOrDefault("AI_ENABLED", boolStr(cfg.AIConfig.Enabled)) == "true"
	cfg.AIConfig.LLMProvider = getEnvOrDefault("AI_LLM_PROVIDER", defaultStr(cfg.AIConfig.LLMProvider, "gemini"))
	cfg.AIConfig.ClaudeAPIKey = getEnvOrDefault("AI_CLAUDE_API_KEY", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = getEnvOrDefault("AI_OPENAI_API_KEY", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = getEnvOrDefault("AI_DEEPSEEK_API_KEY", cfg.AIConfig.DeepSeekAPIKey)
	cfg.AIConfig.GeminiAPIKey = getEnvOrDefault("AI_GEMINI_API_KEY", cfg.AIConfig.GeminiAPIKey)
	cfg.AIConfig.LLMModel = getEnvOrDefault("AI_LLM_MODEL", defaultStr(cfg.AIConfig.LLMModel, "gemini-2.5-flash"))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
}

// Origins splits the configured CORS origins. A "*" entry means any origin.
func (c ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" || c.AllowedOrigins == "*" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// TickInterval returns the engine cadence as a duration.
func (c EngineConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// MaxSignalAge returns the lifetime limit for board signals.
func (c EngineConfig) MaxSignalAge() time.Duration {
	return time.Duration(c.MaxSignalAgeMinutes) * time.Minute
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func defaultStr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func defaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:                 8080,
			Host:                 "0.0.0.0",
			AllowedOrigins:       "*",
			RateLimitPerMinute:   45,
			ResponseCacheSeconds: 15,
			ShutdownTimeout:      10,
		},
		BinanceConfig: BinanceConfig{
			FuturesBaseURL: "https://fapi.binance.com",
			SpotBaseURL:    "https://api.binance.com",
			TimeoutSeconds: 10,
		},
		EngineConfig: EngineConfig{
			TickIntervalSeconds: 5,
			BoardSize:           8,
			MaxSignalAgeMinutes: 120,
			UniverseTTLMinutes:  60,
		},
		SentimentConfig: SentimentConfig{
			Enabled:                true,
			RefreshIntervalMinutes: 60,
			WorkerCount:            8,
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		AIConfig: AIConfig{
			Enabled:     false,
			LLMProvider: "gemini",
			LLMModel:    "gemini-2.5-flash",
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
