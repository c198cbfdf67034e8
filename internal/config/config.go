package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the single configuration value object for a pipeline run.
// It is constructed once and threaded explicitly through every
// component; nothing reads the environment after startup.
type Config struct {
	ProjectDir       string `json:"project_dir"`
	StateDir         string `json:"state_dir"`
	ArticlesDir      string `json:"articles_dir"`
	FinancialDataDir string `json:"financial_data_dir"`
	DataCacheDir     string `json:"data_cache_dir"`
	HistoryDBPath    string `json:"history_db_path"`

	// Orchestration loop.
	MaxLoops       int      `json:"max_loops"`
	RequiredFields []string `json:"required_fields"`

	// Collaborator call settings. Retries apply only at the data
	// provider HTTP boundary; the core loop never retries.
	AgentTimeoutSec int `json:"agent_timeout_seconds"`
	MaxRetries      int `json:"max_retries"`
	RetryDelaySec   int `json:"retry_delay_seconds"`

	// LLM backend.
	LLMProvider    string `json:"llm_provider"`
	ChatModel      string `json:"chat_model"`
	BackendURL     string `json:"backend_url"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// Data provider keys.
	FMPAPIKey          string `json:"fmp_api_key"`
	AlphaVantageAPIKey string `json:"alpha_vantage_api_key"`

	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`
}

// DefaultRequiredFields is the field set a record must carry before the
// loop may finish.
func DefaultRequiredFields() []string {
	return []string{"guid", "ticker", "description", "currency", "isin", "News_Sentiment"}
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigWithRoot(currentDir)
}

func DefaultConfigWithRoot(root string) *Config {
	cfg := &Config{
		ProjectDir:       root,
		StateDir:         filepath.Join(root, "agent_state"),
		ArticlesDir:      filepath.Join(root, "agent_articles"),
		FinancialDataDir: filepath.Join(root, "financial_data"),
		DataCacheDir:     filepath.Join(root, "data", "cache"),
		HistoryDBPath:    filepath.Join(root, "data", "history.db"),

		MaxLoops:       10,
		RequiredFields: DefaultRequiredFields(),

		AgentTimeoutSec: 120,
		MaxRetries:      3,
		RetryDelaySec:   2,

		LLMProvider: "openai",
		ChatModel:   "gpt-4o-mini",
		BackendURL:  "https://api.openai.com/v1",

		CacheEnabled: true,
		Debug:        false,
	}

	// .env is ingested once, here; afterwards only the value object is
	// consulted.
	_ = godotenv.Load()

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	cfg.FMPAPIKey = os.Getenv("FMP_API_KEY")
	cfg.AlphaVantageAPIKey = os.Getenv("ALPHA_VANTAGE_API_KEY")

	if v := os.Getenv("FINSCOPE_LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	if v := os.Getenv("FINSCOPE_CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("FINSCOPE_MAX_LOOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.MaxLoops = n
		}
	}
	if os.Getenv("FINSCOPE_DEBUG") == "1" {
		cfg.Debug = true
	}

	return cfg
}

// Validate enforces the recognized-option contract: the iteration cap
// must allow at least one loop and the required-field set must not be
// empty.
func (c *Config) Validate() error {
	if c.MaxLoops < 1 {
		return fmt.Errorf("max_loops must be >= 1, got %d", c.MaxLoops)
	}
	if len(c.RequiredFields) == 0 {
		return fmt.Errorf("required_fields must not be empty")
	}
	if c.StateDir == "" || c.ArticlesDir == "" || c.FinancialDataDir == "" {
		return fmt.Errorf("storage directories must be configured")
	}
	if c.AgentTimeoutSec < 0 || c.MaxRetries < 0 || c.RetryDelaySec < 0 {
		return fmt.Errorf("timeouts and retries must not be negative")
	}
	return nil
}

// EnsureDirectories creates every storage directory the pipeline uses.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.StateDir,
		c.ArticlesDir,
		c.FinancialDataDir,
		c.DataCacheDir,
		filepath.Dir(c.HistoryDBPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
