package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logger"
)

const (
	DefaultBaseURL        = "http://localhost:8000/api"
	DefaultMaxUploadBytes = 10 * 1024 * 1024

	EnvBaseURL  = "DOCQA_BASE_URL"
	EnvTokenDir = "DOCQA_TOKEN_DIR"
	EnvLogLevel = "DOCQA_LOG_LEVEL"
)

type Config struct {
	BaseURL               string                `json:"base_url"`
	RequestTimeoutSeconds int64                 `json:"request_timeout_seconds"`
	LogConfig             logger.LogConfig      `json:"log_config"`
	TokenStore            StoreConfig           `json:"token_store"`
	Upload                UploadConfig          `json:"upload"`
	SuggestionCache       SuggestionCacheConfig `json:"suggestion_cache"`
	ExportStore           StoreConfig           `json:"export_store"`
	Refresh               RefreshConfig         `json:"refresh"`
}

// StoreConfig selects a registered backend by Type and hands Data to its
// factory untouched.
type StoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type UploadConfig struct {
	MaxBytes int64 `json:"max_bytes"`
}

type SuggestionCacheConfig struct {
	Size       int   `json:"size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

type RefreshConfig struct {
	LibraryCron string `json:"library_cron"`
	SessionCron string `json:"session_cron"`
}

func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "docqa")
}

func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// Load reads the config file at path. A missing file yields the defaults,
// so the client works without any setup. Environment variables, including
// ones from a .env file in the working directory, override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTokenDir)); v != "" {
		cfg.TokenStore = StoreConfig{Type: "file", Data: map[string]interface{}{"dir": v}}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogConfig.Level = v
	}
}

func normalize(cfg *Config) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) url, got %q", cfg.BaseURL)
	}
	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must be non-negative")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	// stdout belongs to command output, logs go to a file unless asked.
	if cfg.LogConfig.File == "" && !cfg.LogConfig.Console {
		cfg.LogConfig.File = filepath.Join(DefaultDir(), "docqa.log")
	}
	if cfg.TokenStore.Type == "" {
		cfg.TokenStore = StoreConfig{Type: "file", Data: map[string]interface{}{"dir": DefaultDir()}}
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = DefaultMaxUploadBytes
	}
	if cfg.Upload.MaxBytes < 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if cfg.SuggestionCache.Size == 0 {
		cfg.SuggestionCache.Size = 128
	}
	if cfg.SuggestionCache.TTLSeconds == 0 {
		cfg.SuggestionCache.TTLSeconds = 600
	}
	if cfg.ExportStore.Type == "" {
		cfg.ExportStore = StoreConfig{Type: "local", Data: map[string]interface{}{"dir": "."}}
	}
	switch cfg.ExportStore.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("export_store.type must be local or s3")
	}
	if cfg.Refresh.LibraryCron == "" {
		cfg.Refresh.LibraryCron = "*/5 * * * *"
	}
	if cfg.Refresh.SessionCron == "" {
		cfg.Refresh.SessionCron = "*/15 * * * *"
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"refresh.library_cron": cfg.Refresh.LibraryCron,
		"refresh.session_cron": cfg.Refresh.SessionCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
