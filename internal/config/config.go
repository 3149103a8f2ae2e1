package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds settings read from the environment
type Config struct {
	DBPath    string
	Source    string
	Locale    string
	Addr      string
	LogLevel  string
	DevLog    bool
	RateLimit float64
	RateBurst int

	AnthropicKey string
	Model        string
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	// .env is optional when variables come from the environment
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:       os.Getenv("MSGEDIT_DB"),
		Source:       os.Getenv("MSGEDIT_SOURCE"),
		Locale:       getenv("MSGEDIT_LOCALE", "fr"),
		Addr:         getenv("MSGEDIT_ADDR", ":8080"),
		LogLevel:     getenv("MSGEDIT_LOG_LEVEL", "info"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:        getenv("MSGEDIT_MODEL", "claude-sonnet-4-20250514"),
	}

	var err error
	if cfg.DevLog, err = parseBool("MSGEDIT_LOG_DEV", false); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = parseFloat("MSGEDIT_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = parseInt("MSGEDIT_RATE_BURST", 40); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		home, _ := os.UserHomeDir()
		cfg.DBPath = filepath.Join(home, ".msgedit", "msgedit.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings. Flags may change fields after Load, so
// callers run it again before use.
func (c *Config) Validate() error {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return fmt.Errorf("config: MSGEDIT_LOCALE %q is not a language tag: %w", c.Locale, err)
	}
	c.Locale = tag.String()

	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("config: MSGEDIT_DB must not be empty")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("config: rate limit and burst must be positive")
	}
	return nil
}

// Tag returns the target locale as a language tag
func (c *Config) Tag() language.Tag {
	return language.Make(c.Locale)
}

// SnapshotKey is the store key of the work snapshot for the target locale
func (c *Config) SnapshotKey() string {
	return "snapshot:" + c.Locale
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func parseFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func parseInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
