package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the querydojo server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	// URL is the superuser DSN. Tenant connections reuse its host, port
	// and database but log in with the tenant's own role.
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	// SessionSecret signs the short-lived session tokens handed out at
	// login. Tokens never carry the database credential itself.
	SessionSecret string
	SessionTTL    time.Duration
}

type LLMConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Groq             GroqConfig
	OpenAI           OpenAIConfig
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type EngineConfig struct {
	// Backend selects the execution backend: "postgres" (multi-tenant)
	// or "duckdb" (single-tenant analytical).
	Backend string
	// DuckDBPath is the database file for the duckdb backend;
	// ":memory:" for an in-memory database.
	DuckDBPath string
	// MaxTablesPerTenant is the tenant object quota.
	MaxTablesPerTenant int
}

var validProviders = map[string]bool{
	"groq":   true,
	"openai": true,
	"mock":   true,
}

var validBackends = map[string]bool{
	"postgres": true,
	"duckdb":   true,
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QUERYDOJO_PORT", 8080),
			Env:  envString("QUERYDOJO_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			SessionSecret: os.Getenv("SESSION_SECRET"),
			SessionTTL:    envDuration("SESSION_TTL", 15*time.Minute),
		},
		LLM: LLMConfig{
			Provider:         envString("LLM_PROVIDER", "groq"),
			InferenceTimeout: envDuration("LLM_INFERENCE_TIMEOUT", 60*time.Second),
			Groq: GroqConfig{
				APIKey:  os.Getenv("GROQ_API_KEY"),
				BaseURL: envString("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
				Model:   envString("GROQ_MODEL", "llama-3.1-70b-versatile"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4"),
			},
		},
		Engine: EngineConfig{
			Backend:            envString("ENGINE_BACKEND", "postgres"),
			DuckDBPath:         envString("DUCKDB_PATH", ":memory:"),
			MaxTablesPerTenant: envInt("MAX_TABLES_PER_TENANT", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !validBackends[c.Engine.Backend] {
		return fmt.Errorf("ENGINE_BACKEND must be one of postgres, duckdb; got %q", c.Engine.Backend)
	}
	if c.Engine.Backend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://, got %q", c.Database.URL)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of groq, openai, mock; got %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "groq" && c.LLM.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER is groq")
	}
	if c.LLM.Provider == "openai" && c.LLM.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
	}

	if c.Engine.MaxTablesPerTenant <= 0 {
		return fmt.Errorf("MAX_TABLES_PER_TENANT must be positive, got %d", c.Engine.MaxTablesPerTenant)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
