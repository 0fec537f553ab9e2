// Package config provides application configuration. All fields have safe
// defaults so the binary runs locally without any setup; an optional YAML
// file overlays the defaults and a handful of environment variables
// (secrets, home dir) override both. Settings are loaded once at startup
// and passed down; there is no process-wide mutable settings singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the task router.
type Config struct {
	Home    string        `yaml:"home"`
	API     APIConfig     `yaml:"api"`
	LLM     LLMConfig     `yaml:"llm"`
	LLMMode LLMModeConfig `yaml:"llm_mode"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	RAG     RAGConfig     `yaml:"rag"`
	HRM     HRMConfig     `yaml:"hrm"`
	Search  SearchConfig  `yaml:"search"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig configures the HTTP front door.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures the local model server (Ollama).
type LLMConfig struct {
	URL           string  `yaml:"url"`
	PrimaryModel  string  `yaml:"primary_model"`
	FallbackModel string  `yaml:"fallback_model"`
	EmbedModel    string  `yaml:"embed_model"`
	TimeoutS      float64 `yaml:"timeout_s"`
}

// Timeout returns the generation timeout as a duration.
func (c LLMConfig) Timeout() time.Duration { return secs(c.TimeoutS) }

// LLMModeConfig selects the chat backend once at process start.
type LLMModeConfig struct {
	Mode string `yaml:"mode"` // "local" | "openai"
}

// OpenAIConfig configures the cloud chat variant.
type OpenAIConfig struct {
	APIKey  string `yaml:"-"` // OPENAI_API_KEY only, never from file
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RAGConfig configures the retrieval provider. DBPath is resolved through
// Config.RAGDBPath so the default follows the effective home directory.
type RAGConfig struct {
	DBPath      string `yaml:"db_path"`
	K           int    `yaml:"k"`
	BM25MinDocs int    `yaml:"bm25_min_docs"`
}

// HRMConfig configures the external reasoning microservice.
type HRMConfig struct {
	URL                string  `yaml:"url"`
	HealthPath         string  `yaml:"health_path"`
	SolvePath          string  `yaml:"solve_path"`
	TimeoutS           float64 `yaml:"timeout_s"`
	EnforceFencedBlock bool    `yaml:"enforce_fenced_block"`
	DefaultTask        string  `yaml:"default_task"`
	DefaultStrategy    string  `yaml:"default_strategy"`
}

// Timeout returns the solve timeout as a duration.
func (c HRMConfig) Timeout() time.Duration { return secs(c.TimeoutS) }

// SearchConfig configures the web search provider.
type SearchConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Provider   string  `yaml:"provider"` // "tavily" | "serpapi"
	MaxResults int     `yaml:"max_results"`
	TimeoutS   float64 `yaml:"timeout_s"`
	TavilyKey  string  `yaml:"-"` // TAVILY_API_KEY only
	SerpAPIKey string  `yaml:"-"` // SERPAPI_API_KEY only
}

// Timeout returns the search timeout as a duration.
func (c SearchConfig) Timeout() time.Duration { return secs(c.TimeoutS) }

// LogConfig configures telemetry output.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// CachePath is the solver cache location under the home directory.
func (c Config) CachePath() string { return filepath.Join(c.Home, "cache.db") }

// LogFile is the rotated log file location under the home directory.
func (c Config) LogFile() string { return filepath.Join(c.Home, "logs", "lolo.log") }

// RAGDBPath is the vector store location: the configured db_path, or
// rag.db under the home directory. Derived lazily so a home override in
// the YAML overlay rebases it like CachePath and LogFile.
func (c Config) RAGDBPath() string {
	if c.RAG.DBPath != "" {
		return c.RAG.DBPath
	}
	return filepath.Join(c.Home, "rag.db")
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	home := envOr("LOLO_HOME", filepath.Join(userHome(), ".lolo"))
	return Config{
		Home: home,
		API:  APIConfig{Host: "127.0.0.1", Port: 8777},
		LLM: LLMConfig{
			URL:           "http://127.0.0.1:11434",
			PrimaryModel:  "qwen2.5:14b",
			FallbackModel: "qwen2.5:7b",
			EmbedModel:    "nomic-embed-text",
			TimeoutS:      60,
		},
		LLMMode: LLMModeConfig{Mode: "local"},
		OpenAI:  OpenAIConfig{},
		RAG: RAGConfig{
			K:           5,
			BM25MinDocs: 20,
		},
		HRM: HRMConfig{
			URL:         "http://127.0.0.1:8008",
			HealthPath:  "/health",
			SolvePath:   "/solve",
			TimeoutS:    20,
			DefaultTask: "sudoku",
		},
		Search: SearchConfig{
			Provider:   "tavily",
			MaxResults: 5,
			TimeoutS:   12,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// (LOLO_CONFIG, default config/config.yaml) when present, then environment
// overrides. The home directory and its logs/ subdirectory are created on
// first use.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local") // optional, ignore absence

	cfg := Defaults()

	yamlPath := envOr("LOLO_CONFIG", filepath.Join("config", "config.yaml"))
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	applyEnv(&cfg)

	if err := os.MkdirAll(filepath.Join(cfg.Home, "logs"), 0o755); err != nil {
		return Config{}, fmt.Errorf("config: create home %q: %w", cfg.Home, err)
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file-derived config.
// Secrets are env-only so they never land in a checked-in YAML file.
func applyEnv(cfg *Config) {
	cfg.Home = envOr("LOLO_HOME", cfg.Home)
	cfg.LLM.URL = envOr("LOLO_LLM_URL", cfg.LLM.URL)
	cfg.LLMMode.Mode = envOr("LOLO_LLM_MODE", cfg.LLMMode.Mode)
	cfg.HRM.URL = envOr("LOLO_HRM_URL", cfg.HRM.URL)
	cfg.Log.Level = envOr("LOLO_LOG_LEVEL", cfg.Log.Level)

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.BaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envOr("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.Search.TavilyKey = os.Getenv("TAVILY_API_KEY")
	cfg.Search.SerpAPIKey = os.Getenv("SERPAPI_API_KEY")
}

// envOr returns the value of the environment variable key, or fallback if
// not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func userHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
