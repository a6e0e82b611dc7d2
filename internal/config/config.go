package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageLocal    = "local"
	StorageSupabase = "supabase"
)

// Config holds all configuration for the application. Values are read from the
// environment (optionally seeded from a .env file by the caller).
type Config struct {
	// --- Server & Paths ---
	ServerAddr    string `env:"SERVER_ADDR" envDefault:":8080"`
	DataPath      string `env:"DATA_PATH" envDefault:"./data"`
	FrontendURL   string `env:"FRONTEND_URL"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// --- Security ---
	JwtSecret         string `env:"JWT_SECRET"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"matchday_session"`
	CookieSecure      bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// --- Logging ---
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// --- Email (SMTP) ---
	SmtpHost   string `env:"SMTP_HOST"`
	SmtpPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SmtpUser   string `env:"SMTP_USER"`
	SmtpPass   string `env:"SMTP_PASS"`
	SmtpSender string `env:"SMTP_SENDER"`

	// --- Google OAuth 2.0 ---
	GoogleOauthClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleOauthClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleOauthRedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL"`

	// --- Object storage ---
	StorageDriver          string `env:"STORAGE_DRIVER" envDefault:"local"`
	StorageBucket          string `env:"STORAGE_BUCKET" envDefault:"event-images"`
	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// --- Stock photos ---
	PexelsAPIKey  string        `env:"PEXELS_API_KEY"`
	PexelsTimeout time.Duration `env:"PEXELS_TIMEOUT" envDefault:"4s"`

	// --- Derived ---
	DbPath            string   `env:"-"`
	ImagePath         string   `env:"-"`
	ParsedFrontendURL *url.URL `env:"-"`
}

// New creates a Config from the process environment and validates it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize checks required values and fills in derived fields. The
// application fails fast when anything critical is missing.
func (c *Config) finalize() error {
	if c.JwtSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if c.FrontendURL == "" {
		return errors.New("FRONTEND_URL environment variable is not set")
	}
	if (c.GoogleOauthClientID == "") != (c.GoogleOauthClientSecret == "") {
		return errors.New("GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET must be set together")
	}

	parsedURL, err := url.Parse(c.FrontendURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return errors.New("invalid FRONTEND_URL format")
	}
	c.ParsedFrontendURL = parsedURL
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")

	switch c.StorageDriver {
	case StorageLocal:
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase storage driver")
		}
		c.SupabaseURL = strings.TrimRight(c.SupabaseURL, "/")
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.PexelsTimeout <= 0 {
		c.PexelsTimeout = 4 * time.Second
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost" + c.ServerAddr
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")

	c.DbPath = filepath.Join(c.DataPath, "databases")
	c.ImagePath = filepath.Join(c.DataPath, "images")
	return nil
}

// GoogleOAuthEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleOauthClientID != "" && c.GoogleOauthClientSecret != ""
}

// SMTPEnabled reports whether verification emails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SmtpHost != "" && c.SmtpSender != ""
}
