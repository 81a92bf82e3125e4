// Package config loads process settings from buraco.yaml and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "buraco.yaml"

const (
	DefaultAIProvider   = "gemini"
	DefaultAITimeoutSec = 60
	DefaultHTTPAddr     = ":8080"
	DefaultCacheSize    = 256
	DefaultCacheTTLMin  = 60
	DefaultLogMode      = "development"
)

type AIConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model,omitempty"`
	TimeoutSec int    `yaml:"timeout_sec"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
}

type MapsConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// HTTPConfig covers the network listeners. ImageRoot is the directory MCP
// clients may name photos in.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	MCPAddr   string `yaml:"mcp_addr,omitempty"`
	ImageRoot string `yaml:"image_root,omitempty"`
}

type CacheConfig struct {
	Size       int    `yaml:"size"`
	TTLMinutes int    `yaml:"ttl_min"`
	RedisAddr  string `yaml:"redis_addr,omitempty"`
}

type LogConfig struct {
	Mode     string `yaml:"mode"`
	HashSalt string `yaml:"hash_salt,omitempty"`
}

type WebhookConfig struct {
	URL        string `yaml:"url,omitempty"`
	Secret     string `yaml:"secret,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
	DeadLetter string `yaml:"dead_letter,omitempty"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// AuditConfig enables the hash-chained audit trail when Path is set.
type AuditConfig struct {
	Path string `yaml:"path,omitempty"`
}

type GitHubConfig struct {
	Token string `yaml:"token,omitempty"`
	Repo  string `yaml:"repo,omitempty"`
}

// Config is everything the binary needs, loaded once per process.
type Config struct {
	AI      AIConfig      `yaml:"ai"`
	Maps    MapsConfig    `yaml:"maps"`
	HTTP    HTTPConfig    `yaml:"http"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Webhook WebhookConfig `yaml:"webhook,omitempty"`
	Slack   SlackConfig   `yaml:"slack,omitempty"`
	GitHub  GitHubConfig  `yaml:"github,omitempty"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
}

// Default returns a config with every default filled in and no secrets.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (DefaultFile when empty), then applies environment
// overrides and defaults. A missing DefaultFile is not an error; a
// missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg as YAML. Secrets are included, so the file is 0600.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if path == "" {
		path = DefaultFile
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"GEMINI_API_KEY":           &c.AI.APIKey,
		"BURACO_AI_PROVIDER":       &c.AI.Provider,
		"BURACO_AI_MODEL":          &c.AI.Model,
		"OLLAMA_HOST":              &c.AI.BaseURL,
		"GOOGLE_MAPS_API_KEY":      &c.Maps.APIKey,
		"BURACO_HTTP_ADDR":         &c.HTTP.Addr,
		"BURACO_MCP_ADDR":          &c.HTTP.MCPAddr,
		"BURACO_MCP_IMAGE_ROOT":    &c.HTTP.ImageRoot,
		"REDIS_ADDR":               &c.Cache.RedisAddr,
		"LOG_MODE":                 &c.Log.Mode,
		"BURACO_LOG_HASH_SALT":     &c.Log.HashSalt,
		"BURACO_WEBHOOK_URL":       &c.Webhook.URL,
		"BURACO_WEBHOOK_SECRET":    &c.Webhook.Secret,
		"BURACO_SLACK_WEBHOOK_URL": &c.Slack.WebhookURL,
		"GITHUB_TOKEN":             &c.GitHub.Token,
		"BURACO_GITHUB_REPO":       &c.GitHub.Repo,
		"BURACO_AUDIT_LOG":         &c.Audit.Path,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if c.AI.APIKey == "" && c.AI.Provider == "openai" {
		c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	ints := map[string]*int{
		"BURACO_AI_TIMEOUT_SEC": &c.AI.TimeoutSec,
		"BURACO_CACHE_SIZE":     &c.Cache.Size,
		"BURACO_CACHE_TTL_MIN":  &c.Cache.TTLMinutes,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s %q: want a non-negative integer", name, v)
		}
		*dst = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AI.Provider == "" {
		c.AI.Provider = DefaultAIProvider
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = DefaultAITimeoutSec
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = DefaultCacheTTLMin
	}
	if c.Log.Mode == "" {
		c.Log.Mode = DefaultLogMode
	}
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// Warnings lists capabilities that will run degraded.
func (c *Config) Warnings() []string {
	var out []string
	switch {
	case c.AI.APIKey != "", c.AI.Provider == "mock", c.AI.Provider == "ollama":
	case c.AI.Provider == "openai":
		out = append(out, "OPENAI_API_KEY is not set: photo analysis is unavailable")
	default:
		out = append(out, "GEMINI_API_KEY is not set: photo analysis is unavailable")
	}
	if c.Maps.APIKey == "" {
		out = append(out, "GOOGLE_MAPS_API_KEY is not set: addresses are accepted without coordinates")
	}
	if c.GitHub.Repo != "" && c.GitHub.Token == "" {
		out = append(out, "BURACO_GITHUB_REPO is set without GITHUB_TOKEN: GitHub dispatch is disabled")
	}
	return out
}
