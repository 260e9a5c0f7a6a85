package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the business copilot.
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Solver  SolverConfig  `mapstructure:"solver"`
	Storage StorageConfig `mapstructure:"storage"`

	warnings []string
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	AppName          string `mapstructure:"app_name"`
	Version          string `mapstructure:"version"`
	Debug            bool   `mapstructure:"debug"`
	MaxChatHistory   int    `mapstructure:"max_chat_history"`
	AutoSaveInterval int    `mapstructure:"auto_save_interval"` // seconds
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	CleanupCron string `mapstructure:"cleanup_cron"`
	RetainDays  int    `mapstructure:"retain_days"`
}

// LLMConfig contains the chat model provider configuration.
type LLMConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	TopP             float64       `mapstructure:"top_p"`
	FrequencyPenalty float64       `mapstructure:"frequency_penalty"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// SearchConfig contains search provider and reranker settings.
type SearchConfig struct {
	SerperAPIKey     string        `mapstructure:"serper_api_key"`
	JinaAPIKey       string        `mapstructure:"jina_api_key"`
	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	SynthesisModel   string        `mapstructure:"synthesis_model"`
	MaxResults       int           `mapstructure:"max_results"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// SolverConfig controls the recursive task solver.
type SolverConfig struct {
	MaxDepth int           `mapstructure:"max_depth"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	DataDir  string         `mapstructure:"data_dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the optional plan archive connection settings.
type PostgresConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig contains the optional search cache connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != "" && strings.TrimSpace(r.Port) != ""
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// LoadConfig loads configuration from an optional file, COPILOT_* environment
// variables, and the flat environment names the original deployment used
// (FIREWORKS_API_KEY, SERPER_API_KEY, ...). Validation produces warnings for
// missing optional keys and hard errors for out-of-range values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.app_name", "Sentient Business Copilot")
	v.SetDefault("general.version", "1.0.0")
	v.SetDefault("general.max_chat_history", 100)
	v.SetDefault("general.auto_save_interval", 30)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cleanup_cron", "@daily")
	v.SetDefault("server.retain_days", 30)
	v.SetDefault("llm.base_url", "https://api.fireworks.ai/inference/v1")
	v.SetDefault("llm.model", "accounts/sentientfoundation/models/dobby-unhinged-llama-3-3-70b-new")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.frequency_penalty", 0.3)
	v.SetDefault("llm.timeout", 15*time.Second)
	v.SetDefault("search.synthesis_model", "openrouter/google/gemini-2.0-flash-001")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.cache_ttl", 15*time.Minute)
	v.SetDefault("solver.max_depth", 1)
	v.SetDefault("solver.timeout", 120*time.Second)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.postgres.timeout", 5*time.Second)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("COPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; env and defaults are enough unless a
		// path was given explicitly.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyLegacyEnv()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return &cfg, nil
}

// applyLegacyEnv overlays the flat environment variable names inherited from
// the original deployment. They win over file values so existing .env files
// keep working.
func (c *Config) applyLegacyEnv() {
	if s := os.Getenv("FIREWORKS_API_KEY"); s != "" {
		c.LLM.APIKey = s
	}
	if s := os.Getenv("SERPER_API_KEY"); s != "" {
		c.Search.SerperAPIKey = s
	}
	if s := os.Getenv("JINA_API_KEY"); s != "" {
		c.Search.JinaAPIKey = s
	}
	if s := os.Getenv("OPENROUTER_API_KEY"); s != "" {
		c.Search.OpenRouterAPIKey = s
	}
	if s := os.Getenv("DOBBY_MODEL_NAME"); s != "" {
		c.LLM.Model = s
	}
	if s := os.Getenv("OPENDEEPSEARCH_MODEL"); s != "" {
		c.Search.SynthesisModel = s
	}
	if s := os.Getenv("DEFAULT_TEMPERATURE"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			c.LLM.Temperature = f
		}
	}
	if s := os.Getenv("MAX_TOKENS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.LLM.MaxTokens = n
		}
	}
	if s := os.Getenv("DEBUG"); s != "" {
		c.General.Debug = strings.EqualFold(s, "true")
	}
	if s := os.Getenv("MAX_CHAT_HISTORY"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.General.MaxChatHistory = n
		}
	}
	if s := os.Getenv("AUTO_SAVE_INTERVAL"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.General.AutoSaveInterval = n
		}
	}
	if s := os.Getenv("DATABASE_URL"); s != "" {
		c.Storage.Postgres.URL = NormalizeDatabaseURL(s)
	}
}

// Validate checks value ranges and records warnings for missing optional
// keys. It returns hard errors only; warnings stay on the config.
func (c *Config) Validate() []string {
	c.warnings = c.warnings[:0]
	var errs []string

	if c.LLM.APIKey == "" {
		c.warnings = append(c.warnings, "FIREWORKS_API_KEY not set - chat model will use fallback responses")
	}
	if c.Search.SerperAPIKey == "" {
		c.warnings = append(c.warnings, "SERPER_API_KEY not set - search will use limited functionality")
	}
	if c.Search.JinaAPIKey == "" {
		c.warnings = append(c.warnings, "JINA_API_KEY not set - semantic reranking will be simplified")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "DEFAULT_TEMPERATURE must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 100 || c.LLM.MaxTokens > 8192 {
		errs = append(errs, "MAX_TOKENS must be between 100 and 8192")
	}
	return errs
}

// Warnings returns the non-fatal findings from the last Validate call.
func (c *Config) Warnings() []string {
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// ProductionReady reports whether the minimum keys for full functionality are
// present. The chat model key is the only hard requirement; everything else
// degrades gracefully.
func (c *Config) ProductionReady() bool {
	return c.LLM.APIKey != ""
}

// ServiceStatus describes the configuration state of one external service.
type ServiceStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	Purpose    string `json:"purpose"`
}

// ServiceStatuses returns the configuration state of every external service.
func (c *Config) ServiceStatuses() map[string]ServiceStatus {
	return map[string]ServiceStatus{
		"llm": {
			Name:       "Dobby-70B (Fireworks AI)",
			Configured: c.LLM.APIKey != "",
			Model:      c.LLM.Model,
			Purpose:    "Business planning and analysis",
		},
		"search": {
			Name:       "Serper API",
			Configured: c.Search.SerperAPIKey != "",
			Model:      "Google Search API",
			Purpose:    "Web search functionality",
		},
		"reranker": {
			Name:       "Jina AI Reranker",
			Configured: c.Search.JinaAPIKey != "",
			Model:      "Semantic reranking",
			Purpose:    "Search result optimization",
		},
	}
}

// NormalizeDatabaseURL strips any sslmode query parameter from a postgres
// connection URL. The original deployment rewrote DATABASE_URL for a driver
// that rejects sslmode; the stripping behaviour is kept so shared values work
// unchanged.
func NormalizeDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("sslmode") {
		q.Del("sslmode")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
