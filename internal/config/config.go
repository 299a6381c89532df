package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM providers accepted by LLMProvider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Relevance-error policies accepted by RelevanceOnError.
const (
	RelevanceAssume = "assume_relevant"
	RelevanceSkip   = "skip"
)

// Session stores accepted by SessionStore.
const (
	StoreMemory  = "memory"
	StoreSurreal = "surreal"
)

// Config holds all configuration values.
type Config struct {
	// Search providers
	SerpAPIKey     string `yaml:"serpapi_api_key"`
	SerpAPIBaseURL string `yaml:"serpapi_base_url"`
	YouTubeAPIKey  string `yaml:"youtube_api_key"`
	YouTubeBaseURL string `yaml:"youtube_base_url"`
	SearchLang     string `yaml:"search_lang"`
	SearchCountry  string `yaml:"search_country"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OllamaHost      string `yaml:"ollama_host"`
	AWSRegion       string `yaml:"aws_region"`

	// Sessions
	SessionStore string `yaml:"session_store"`

	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Orchestration
	CooldownTurns     int           `yaml:"cooldown_turns"`
	DiscoveryWorkers  int           `yaml:"discovery_workers"`
	DiscoveryDeadline time.Duration `yaml:"discovery_deadline"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RelevanceOnError  string        `yaml:"relevance_on_error"`
	WebCacheTTL       time.Duration `yaml:"web_cache_ttl"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() Config {
	return Config{
		SerpAPIBaseURL: "https://serpapi.com/search",
		YouTubeBaseURL: "https://www.googleapis.com/youtube/v3/search",
		SearchLang:     "ko",
		SearchCountry:  "kr",

		LLMProvider: ProviderAnthropic,
		LLMModel:    "claude-3-5-haiku-latest",
		OllamaHost:  "http://localhost:11434",
		AWSRegion:   "us-east-1",

		SessionStore: StoreMemory,

		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "scout",
		SurrealDBDatabase:  "sessions",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		CooldownTurns:     10,
		DiscoveryWorkers:  8,
		DiscoveryDeadline: 45 * time.Second,
		RetryAttempts:     2,
		RetryDelay:        2 * time.Second,
		RelevanceOnError:  RelevanceAssume,
		WebCacheTTL:       15 * time.Minute,

		LogFile:  "/tmp/scout.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load reads configuration from environment variables. If SCOUT_CONFIG
// names a YAML file it is applied first and the environment wins over it.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("SCOUT_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file on top of Defaults.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw struct {
		Config   `yaml:",inline"`
		LogLevel string `yaml:"log_level"`
	}
	raw.Config = cfg
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg = raw.Config
	if raw.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(raw.LogLevel)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.SerpAPIKey = getEnv("SERPAPI_API_KEY", cfg.SerpAPIKey)
	cfg.SerpAPIBaseURL = getEnv("SERPAPI_BASE_URL", cfg.SerpAPIBaseURL)
	cfg.YouTubeAPIKey = getEnv("YOUTUBE_API_KEY", cfg.YouTubeAPIKey)
	cfg.YouTubeBaseURL = getEnv("YOUTUBE_BASE_URL", cfg.YouTubeBaseURL)
	cfg.SearchLang = getEnv("SCOUT_SEARCH_LANG", cfg.SearchLang)
	cfg.SearchCountry = getEnv("SCOUT_SEARCH_COUNTRY", cfg.SearchCountry)

	cfg.LLMProvider = getEnv("SCOUT_LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("SCOUT_LLM_MODEL", cfg.LLMModel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)

	cfg.SessionStore = getEnv("SCOUT_SESSION_STORE", cfg.SessionStore)

	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	cfg.CooldownTurns = getEnvInt("SCOUT_COOLDOWN_TURNS", cfg.CooldownTurns)
	cfg.DiscoveryWorkers = getEnvInt("SCOUT_DISCOVERY_WORKERS", cfg.DiscoveryWorkers)
	cfg.DiscoveryDeadline = getEnvDuration("SCOUT_DISCOVERY_DEADLINE", cfg.DiscoveryDeadline)
	cfg.RetryAttempts = getEnvInt("SCOUT_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = getEnvDuration("SCOUT_RETRY_DELAY", cfg.RetryDelay)
	cfg.RelevanceOnError = getEnv("SCOUT_RELEVANCE_ON_ERROR", cfg.RelevanceOnError)
	cfg.WebCacheTTL = getEnvDuration("SCOUT_WEB_CACHE_TTL", cfg.WebCacheTTL)

	cfg.LogFile = getEnv("SCOUT_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("SCOUT_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = parseLogLevel(lvl)
	}
}

// Validate rejects values the orchestrator cannot run with.
func (c Config) Validate() error {
	if c.CooldownTurns < 0 {
		return fmt.Errorf("cooldown_turns must be >= 0, got %d", c.CooldownTurns)
	}
	if c.DiscoveryWorkers < 1 {
		return fmt.Errorf("discovery_workers must be >= 1, got %d", c.DiscoveryWorkers)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be >= 1, got %d", c.RetryAttempts)
	}
	switch c.RelevanceOnError {
	case RelevanceAssume, RelevanceSkip:
	default:
		return fmt.Errorf("relevance_on_error must be %q or %q, got %q", RelevanceAssume, RelevanceSkip, c.RelevanceOnError)
	}
	switch c.SessionStore {
	case StoreMemory, StoreSurreal:
	default:
		return fmt.Errorf("session_store must be %q or %q, got %q", StoreMemory, StoreSurreal, c.SessionStore)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
