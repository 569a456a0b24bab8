package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	PublicBaseURL string           `json:"public_base_url"`
	DB            DatabaseConfig   `json:"db"`
	Session       SessionConfig    `json:"session"`
	MergeSecret   string           `json:"merge_secret"`
	OAuth         OAuthConfig      `json:"oauth"`
	Properties    Properties       `json:"properties"`
	AI            AIConfig         `json:"ai"`
	FileStore     FileStoreConfig  `json:"file_store"`
	RateLimit     RateLimitConfig  `json:"rate_limit"`
	Jobs          JobsConfig       `json:"jobs"`
	CORSOrigins   []string         `json:"cors_origins"`
	LogConfig     logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type SessionConfig struct {
	Secret     string `json:"secret"`
	TTLHours   int    `json:"ttl_hours"`
	CookieName string `json:"cookie_name"`
	Secure     bool   `json:"secure"`
}

type ProviderConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

type OAuthConfig struct {
	Google ProviderConfig `json:"google"`
	Github ProviderConfig `json:"github"`
}

type Properties struct {
	EnableGoogleOauth bool `json:"enable_google_oauth"`
	EnableGithubOauth bool `json:"enable_github_oauth"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Data           interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type      string      `json:"type"`
	PublicURL string      `json:"public_url"`
	Data      interface{} `json:"data"`
}

type RateLimitConfig struct {
	MaxRequests   int `json:"max_requests"`
	WindowSeconds int `json:"window_seconds"`
}

type JobsConfig struct {
	SessionCleanupSpec string `json:"session_cleanup_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		return nil, fmt.Errorf("db.dsn or db.host is required")
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session.secret is required")
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 72
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "lm_session"
	}
	if cfg.MergeSecret == "" {
		cfg.MergeSecret = cfg.Session.Secret
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data"}
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 10
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Jobs.SessionCleanupSpec == "" {
		cfg.Jobs.SessionCleanupSpec = "17 * * * *"
	}
	if !cfg.Properties.EnableGoogleOauth && !cfg.Properties.EnableGithubOauth {
		return nil, fmt.Errorf("at least one oauth provider must be enabled")
	}
	return &cfg, nil
}
