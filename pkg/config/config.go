// Package config loads ikoma's runtime configuration from environment
// variables and an optional YAML file, following the env-var-first
// conventions of the original ikoma-ai agent.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the PER control loop reads at startup.
type Config struct {
	// MaxIterations bounds the number of Plan/Execute/Reflect cycles a run
	// may take before IterationLimitCriterion fires. IKOMA_MAX_ITER.
	MaxIterations int `yaml:"max_iterations"`

	// MaxRunTime bounds wall-clock time for a run before TimeLimitCriterion
	// fires. IKOMA_MAX_MINS (minutes).
	MaxRunTime time.Duration `yaml:"max_run_time"`

	// CheckpointEvery is the iteration stride at which
	// HumanCheckpointCriterion requests a pause. Zero disables checkpoint
	// requests entirely. IKOMA_CHECKPOINT_EVERY.
	CheckpointEvery int `yaml:"checkpoint_every"`

	// MaxPlanRepairRetries bounds the plan self-repair loop.
	// IKOMA_MAX_PLAN_RETRIES.
	MaxPlanRepairRetries int `yaml:"max_plan_repair_retries"`

	// CheckpointerEnabled toggles durable checkpointing.
	// CHECKPOINTER_ENABLED (legacy: IKOMA_DISABLE_CHECKPOINTER, inverted).
	CheckpointerEnabled bool `yaml:"checkpointer_enabled"`

	// ConversationDBPath is the DSN/file path for the checkpoint store.
	// CONVERSATION_DB_PATH.
	ConversationDBPath string `yaml:"conversation_db_path"`

	// ConversationDBDriver selects the SQL dialect: sqlite, postgres, mysql.
	ConversationDBDriver string `yaml:"conversation_db_driver"`

	// VectorStorePath is the on-disk persistence directory for long-term
	// memory. VECTOR_STORE_PATH.
	VectorStorePath string `yaml:"vector_store_path"`

	// VectorStoreCompress enables gzip compression of the persisted vector
	// store.
	VectorStoreCompress bool `yaml:"vector_store_compress"`

	// LLMBaseURL is the OpenAI-compatible chat completions endpoint.
	// LMSTUDIO_BASE_URL, defaulting to a local Ollama-compatible server.
	LLMBaseURL string `yaml:"llm_base_url"`

	// LLMModel is the chat completion model name. LMSTUDIO_MODEL.
	LLMModel string `yaml:"llm_model"`

	// LLMEmbedModel is the embedding model name. LMSTUDIO_EMBED_MODEL.
	LLMEmbedModel string `yaml:"llm_embed_model"`

	// LLMAPIKey is sent as a bearer token; local inference servers accept
	// any non-empty placeholder. LMSTUDIO_API_KEY.
	LLMAPIKey string `yaml:"llm_api_key"`

	// WorkingDirectory bounds the filesystem tools' reach. IKOMA_WORKDIR.
	WorkingDirectory string `yaml:"working_directory"`

	// DomainFilterFile optionally points at a hot-reloaded allow/block
	// domain list for the HTTP fetcher. IKOMA_DOMAIN_FILTER_FILE.
	DomainFilterFile string `yaml:"domain_filter_file"`

	// FetchCacheDir is the on-disk cache directory for fetched pages.
	// IKOMA_FETCH_CACHE_DIR.
	FetchCacheDir string `yaml:"fetch_cache_dir"`
}

// Defaults mirrors the original ikoma-ai agent's constants: 25 iterations,
// no wall-clock limit, a checkpoint every 5 iterations, 2 repair retries.
func Defaults() *Config {
	return &Config{
		MaxIterations:        25,
		MaxRunTime:           0,
		CheckpointEvery:      5,
		MaxPlanRepairRetries: 2,
		CheckpointerEnabled:  true,
		ConversationDBPath:   "ikoma.db",
		ConversationDBDriver: "sqlite3",
		VectorStorePath:      ".ikoma/vectors",
		VectorStoreCompress:  false,
		LLMBaseURL:           "http://127.0.0.1:11434/v1",
		LLMModel:             "meta-llama-3-8b-instruct",
		LLMEmbedModel:        "nomic-ai/nomic-embed-text-v1.5-GGUF",
		LLMAPIKey:            "sk-dummy",
		WorkingDirectory:     ".",
		FetchCacheDir:        ".ikoma/fetch-cache",
	}
}

// Load reads an optional YAML file at path (skipped if empty or missing)
// and then applies environment variable overrides on top, the same
// layering order hector's config loader uses for its own YAML + env
// expansion.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("max_iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.MaxPlanRepairRetries < 0 {
		return nil, fmt.Errorf("max_plan_repair_retries must be non-negative, got %d", cfg.MaxPlanRepairRetries)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("IKOMA_MAX_ITER"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v, ok := os.LookupEnv("IKOMA_MAX_MINS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRunTime = time.Duration(n) * time.Minute
		}
	}
	if v, ok := os.LookupEnv("IKOMA_CHECKPOINT_EVERY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.CheckpointEvery = n
		}
	}
	if v, ok := os.LookupEnv("IKOMA_MAX_PLAN_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPlanRepairRetries = n
		}
	}
	if v, ok := getenvWithLegacyFallback("CHECKPOINTER_ENABLED", "IKOMA_DISABLE_CHECKPOINTER"); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			// IKOMA_DISABLE_CHECKPOINTER is inverted relative to CHECKPOINTER_ENABLED.
			if _, viaLegacy := os.LookupEnv("CHECKPOINTER_ENABLED"); !viaLegacy {
				b = !b
			}
			c.CheckpointerEnabled = b
		}
	}
	if v, ok := os.LookupEnv("CONVERSATION_DB_PATH"); ok {
		c.ConversationDBPath = v
	}
	if v, ok := os.LookupEnv("VECTOR_STORE_PATH"); ok {
		c.VectorStorePath = v
	}
	if v, ok := os.LookupEnv("LMSTUDIO_BASE_URL"); ok {
		c.LLMBaseURL = v
	}
	if v, ok := os.LookupEnv("LMSTUDIO_MODEL"); ok {
		c.LLMModel = v
	}
	if v, ok := os.LookupEnv("LMSTUDIO_EMBED_MODEL"); ok {
		c.LLMEmbedModel = v
	}
	if v, ok := os.LookupEnv("LMSTUDIO_API_KEY"); ok {
		c.LLMAPIKey = v
	}
	if v, ok := os.LookupEnv("IKOMA_WORKDIR"); ok {
		c.WorkingDirectory = v
	}
	if v, ok := os.LookupEnv("IKOMA_DOMAIN_FILTER_FILE"); ok {
		c.DomainFilterFile = v
	}
	if v, ok := os.LookupEnv("IKOMA_FETCH_CACHE_DIR"); ok {
		c.FetchCacheDir = v
	}
}

// DatabaseConfig builds the *DatabaseConfig the checkpoint store's DBPool
// expects from the flat conversation DB settings above.
func (c *Config) DatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:   c.ConversationDBDriver,
		Database: c.ConversationDBPath,
	}
}
