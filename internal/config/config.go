// Package config provides configuration management for the publisher.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	// ErrConfiguration marks every configuration problem. Callers treat it as fatal.
	ErrConfiguration      = errors.New("configuration error")
	ErrMissingCredentials = fmt.Errorf("%w: WECHAT_APP_ID and WECHAT_APP_SECRET must be set", ErrConfiguration)
)

// Environment variable names.
const (
	EnvAppID     = "WECHAT_APP_ID"
	EnvAppSecret = "WECHAT_APP_SECRET"
	EnvImagePath = "HOST_IMAGE_PATH"
	EnvArticles  = "ARTICLE_DIR"
	EnvLogLevel  = "LOG_LEVEL"
)

// Default platform endpoints.
const (
	DefaultTokenURL     = "https://api.weixin.qq.com/cgi-bin/token"
	DefaultUploadURL    = "https://api.weixin.qq.com/cgi-bin/material/add_material"
	DefaultDraftURL     = "https://api.weixin.qq.com/cgi-bin/draft/add"
	DefaultHostedPrefix = "https://mmbiz.qpic.cn"
)

// Config represents the complete publisher configuration.
type Config struct {
	Platform PlatformConfig `yaml:"platform"`
	Articles ArticlesConfig `yaml:"articles"`
	Render   RenderConfig   `yaml:"render"`
	Batch    BatchConfig    `yaml:"batch"`
	Watch    WatchConfig    `yaml:"watch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlatformConfig holds credentials and endpoints of the draft API.
type PlatformConfig struct {
	AppID        string `yaml:"app_id"`
	AppSecret    string `yaml:"app_secret"`
	TokenURL     string `yaml:"token_url"`
	UploadURL    string `yaml:"upload_url"`
	DraftURL     string `yaml:"draft_url"`
	HostedPrefix string `yaml:"hosted_prefix"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// ArticlesConfig describes the watched directory layout.
type ArticlesConfig struct {
	Dir             string   `yaml:"dir"`
	ProcessedDir    string   `yaml:"processed_dir"`
	ImageDir        string   `yaml:"image_dir"`
	ImageExtensions []string `yaml:"image_extensions"`
}

// RenderConfig controls how article bodies become HTML.
type RenderConfig struct {
	Markdown bool `yaml:"markdown"`
	Sanitize bool `yaml:"sanitize"`
}

// BatchConfig is the sequential publishing policy.
type BatchConfig struct {
	DelayMs     int `yaml:"delay_ms"`
	Concurrency int `yaml:"concurrency"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	IntervalSec int `yaml:"interval_sec"`
}

// MetricsConfig controls the optional metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			TokenURL:     DefaultTokenURL,
			UploadURL:    DefaultUploadURL,
			DraftURL:     DefaultDraftURL,
			HostedPrefix: DefaultHostedPrefix,
		},
		Articles: ArticlesConfig{
			Dir:             "./articles",
			ProcessedDir:    "processed",
			ImageExtensions: []string{".jpg", ".jpeg", ".png", ".gif"},
		},
		Render: RenderConfig{
			Markdown: true,
		},
		Batch: BatchConfig{
			DelayMs:     2000,
			Concurrency: 1,
		},
		Watch: WatchConfig{
			IntervalSec: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over the defaults.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfiguration, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrConfiguration, err)
		}
	}

	return cfg, nil
}

// Load reads the YAML file (optional), applies environment overrides and
// validates the result. envFile names an optional key=value file whose entries
// are used for variables missing from the process environment.
func Load(path, envFile string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	env, err := ReadEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}

		return env[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadEnvFile parses a key=value file. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read env file %s: %w", ErrConfiguration, path, err)
	}

	return env, nil
}

// ApplyEnv overrides fields from environment variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if v := lookup(EnvAppID); v != "" {
		c.Platform.AppID = strings.TrimSpace(v)
	}

	if v := lookup(EnvAppSecret); v != "" {
		c.Platform.AppSecret = strings.TrimSpace(v)
	}

	if v := lookup(EnvImagePath); v != "" {
		c.Articles.ImageDir = v
	}

	if v := lookup(EnvArticles); v != "" {
		c.Articles.Dir = v
	}

	if v := lookup(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration. Credentials are not checked here so
// read-only commands work without them; see RequireCredentials.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(&c.Platform,
		validation.Field(&c.Platform.TokenURL, validation.Required, is.URL),
		validation.Field(&c.Platform.UploadURL, validation.Required, is.URL),
		validation.Field(&c.Platform.DraftURL, validation.Required, is.URL),
		validation.Field(&c.Platform.HostedPrefix, validation.Required, is.URL),
		validation.Field(&c.Platform.TimeoutSec, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: platform: %w", ErrConfiguration, err)
	}

	err = validation.ValidateStruct(&c.Articles,
		validation.Field(&c.Articles.Dir, validation.Required),
		validation.Field(&c.Articles.ProcessedDir, validation.Required),
		validation.Field(&c.Articles.ImageExtensions, validation.Required, validation.Each(validation.By(isExtension))),
	)
	if err != nil {
		return fmt.Errorf("%w: articles: %w", ErrConfiguration, err)
	}

	err = validation.ValidateStruct(&c.Batch,
		validation.Field(&c.Batch.DelayMs, validation.Min(0)),
		validation.Field(&c.Batch.Concurrency, validation.Required, validation.Min(1), validation.Max(1).Error("only sequential publishing is supported")),
	)
	if err != nil {
		return fmt.Errorf("%w: batch: %w", ErrConfiguration, err)
	}

	err = validation.ValidateStruct(&c.Watch,
		validation.Field(&c.Watch.IntervalSec, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: watch: %w", ErrConfiguration, err)
	}

	err = validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Logging.Format, validation.In("text", "json")),
	)
	if err != nil {
		return fmt.Errorf("%w: logging: %w", ErrConfiguration, err)
	}

	return nil
}

// RequireCredentials fails when the application id or secret is missing.
func (c *Config) RequireCredentials() error {
	if c.Platform.AppID == "" || c.Platform.AppSecret == "" {
		return ErrMissingCredentials
	}

	return nil
}

// ProcessedPath returns the archive directory. Relative values live under the
// article directory.
func (c *Config) ProcessedPath() string {
	if filepath.IsAbs(c.Articles.ProcessedDir) {
		return c.Articles.ProcessedDir
	}

	return filepath.Join(c.Articles.Dir, c.Articles.ProcessedDir)
}

// ImageBaseDir is where relative inline image paths are resolved.
func (c *Config) ImageBaseDir() string {
	if c.Articles.ImageDir != "" {
		return c.Articles.ImageDir
	}

	return c.Articles.Dir
}

// BatchDelay returns the pause between two articles.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Batch.DelayMs) * time.Millisecond
}

// WatchInterval returns the pause between two scans in watch mode.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Watch.IntervalSec) * time.Second
}

// Timeout returns the HTTP client timeout. Zero keeps transport defaults.
func (p *PlatformConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// String returns a string representation of the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{AppID: %s, Articles: %s, Processed: %s, Delay: %s}",
		maskSecret(c.Platform.AppID),
		c.Articles.Dir,
		c.ProcessedPath(),
		c.BatchDelay(),
	)
}

func isExtension(value any) error {
	ext, _ := value.(string)
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return validation.NewError("config.articles.image_extension", "must start with a dot")
	}

	return nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}

	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
