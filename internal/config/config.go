// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values and validate

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Debug   bool          `yaml:"debug"`
	Browser BrowserConfig `yaml:"browser"`
	Agent   AgentConfig   `yaml:"agent"`
	Search  SearchConfig  `yaml:"search"`
	AI      AIConfig      `yaml:"ai"`
	Server  ServerConfig  `yaml:"server"`
	//Optional consumers
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
}

type BrowserConfig struct {
	//CDP endpoint of an already running Chrome, e.g. http://localhost:9222
	CDPURL        string `yaml:"cdp_url" env:"CHROME_CDP_URL"`
	Headless      bool   `yaml:"headless"`
	CookiesPath   string `yaml:"cookies_path"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	//Where the CLI remembers records it already relayed
	CacheDir      string `yaml:"cache_dir"`
	NavTimeoutMs  int    `yaml:"nav_timeout_ms"`
}

type AgentConfig struct {
	Strategy   string `yaml:"strategy"`
	MaxErrors  int    `yaml:"max_errors"`
	MinPauseMs int    `yaml:"min_pause_ms"`
	MaxPauseMs int    `yaml:"max_pause_ms"`
	JitterPx   int    `yaml:"jitter_px"`
}

type SearchConfig struct {
	MaxResults int `yaml:"max_results"`
	MaxPages   int `yaml:"max_pages"`
}

type AIConfig struct {
	APIKey  string `yaml:"api_key" env:"GROQ_API_KEY"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

const (
	StrategyStatic   = "static"
	StrategyAdaptive = "adaptive"
)

// Load reads .env and the YAML file at path (a missing file is not an error),
// applies environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = v == "1" || v == "true"
	}
	if v := os.Getenv("CHROME_CDP_URL"); v != "" {
		c.Browser.CDPURL = v
	}
	if v := os.Getenv("AGENT_STRATEGY"); v != "" {
		c.Agent.Strategy = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.AI.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.AI.APIKey == "" {
		c.AI.APIKey = v
		if c.AI.BaseURL == "" {
			c.AI.BaseURL = "https://api.openai.com/v1"
		}
		if c.AI.Model == "" {
			c.AI.Model = "gpt-4o"
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Browser.CookiesPath == "" {
		c.Browser.CookiesPath = "../.cookies/cookies-linkedin.json"
	}
	if c.Browser.CacheDir == "" {
		c.Browser.CacheDir = ".cache"
	}
	if c.Browser.NavTimeoutMs == 0 {
		c.Browser.NavTimeoutMs = 60000
	}
	if c.Agent.Strategy == "" {
		c.Agent.Strategy = StrategyStatic
	}
	if c.Agent.MinPauseMs == 0 && c.Agent.MaxPauseMs == 0 {
		c.Agent.MinPauseMs = 500
		c.Agent.MaxPauseMs = 1500
	}
	if c.Agent.JitterPx == 0 {
		c.Agent.JitterPx = 6
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 50
	}
	if c.Search.MaxPages == 0 {
		c.Search.MaxPages = 5
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "llama-3.3-70b-versatile"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Agent.Strategy {
	case StrategyStatic:
	case StrategyAdaptive:
		if c.AI.APIKey == "" {
			return errors.New("adaptive strategy requires GROQ_API_KEY or OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown agent strategy %q", c.Agent.Strategy)
	}
	if c.Agent.MinPauseMs < 0 || c.Agent.MaxPauseMs < c.Agent.MinPauseMs {
		return fmt.Errorf("invalid pause range [%d, %d]ms", c.Agent.MinPauseMs, c.Agent.MaxPauseMs)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxPages < 1 {
		return errors.New("search.max_results and search.max_pages must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// InferenceEnabled reports whether an inference capability is configured.
func (c *Config) InferenceEnabled() bool {
	return c.AI.APIKey != ""
}
