package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config holds the configuration for the application.
type Config struct {
	MenuURL      string
	MenuFile     string
	MenuCacheTTL time.Duration

	DatabasePath  string
	StoreBackend  string
	ShareDir      string
	AutosaveDelay time.Duration

	DefaultLanguage string
	DefaultPolicy   string

	Port          string
	LogLevel      slog.Level
	PublicBaseURL string

	// Telegram Config
	TelegramBotToken     string
	TelegramWebhookURL   string
	TelegramAllowUserIDs []int64
}

// LoadDotEnv reads a .env file into the environment when one exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
}

// NewFromEnv creates a new Config object from environment variables and
// requires a menu source.
func NewFromEnv() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the environment without requiring a menu source, for commands
// that only touch storage.
func Load() (*Config, error) {
	menuURL := os.Getenv("MENU_URL")
	if menuURL == "" {
		menuURL = os.Getenv("MIDDAGSURL")
	}

	menuCacheTTL, err := durationEnv("MENU_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	autosaveDelay, err := durationEnv("AUTOSAVE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(envOr("STORE_BACKEND", BackendSQLite))
	if backend != BackendSQLite && backend != BackendFile {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendFile, backend)
	}

	databasePath := envOr("DATABASE_PATH", filepath.Join("data", "middag.db"))

	var level slog.Level
	if err := level.UnmarshalText([]byte(envOr("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Telegram Config (optional)
	var allowIDs []int64
	for _, raw := range strings.Split(os.Getenv("TELEGRAM_ALLOW_USER_IDS"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", raw, err)
		}
		allowIDs = append(allowIDs, id)
	}

	return &Config{
		MenuURL:              menuURL,
		MenuFile:             os.Getenv("MENU_FILE"),
		MenuCacheTTL:         menuCacheTTL,
		DatabasePath:         databasePath,
		StoreBackend:         backend,
		ShareDir:             envOr("SHARE_DIR", filepath.Join(filepath.Dir(databasePath), "shared")),
		AutosaveDelay:        autosaveDelay,
		DefaultLanguage:      envOr("DEFAULT_LANGUAGE", "no"),
		DefaultPolicy:        envOr("DEFAULT_POLICY", "weighted"),
		Port:                 envOr("PORT", "8080"),
		LogLevel:             level,
		PublicBaseURL:        strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:   os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowUserIDs: allowIDs,
	}, nil
}

// Validate checks the settings needed to serve plans.
func (c *Config) Validate() error {
	if c.MenuURL == "" && c.MenuFile == "" {
		return fmt.Errorf("MENU_URL or MENU_FILE environment variable not set")
	}
	return nil
}

// DataPath is the location whose size is reported as data usage.
func (c *Config) DataPath() string {
	if c.StoreBackend == BackendFile {
		return c.ShareDir
	}
	return filepath.Dir(c.DatabasePath)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
