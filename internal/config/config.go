package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string `yaml:"port"`
	LogMode    string `yaml:"log_mode"`

	DatabaseType   string `yaml:"database_type"`
	DatabaseURL    string `yaml:"database_url"`
	DatabasePath   string `yaml:"db_path"`
	MigrationsPath string `yaml:"migrations_path"`

	SessionDuration    time.Duration `yaml:"session_duration"`
	SessionSecret      string        `yaml:"session_secret"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`

	OpenAIAPIKey   string        `yaml:"openai_api_key"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	OpenAIModel    string        `yaml:"openai_model"`
	OpenAITimeout  time.Duration `yaml:"openai_timeout"`
	FlashcardCount int           `yaml:"flashcard_count"`

	GoogleClientID       string `yaml:"google_client_id"`
	GoogleClientSecret   string `yaml:"google_client_secret"`
	OAuthRedirectBaseURL string `yaml:"oauth_redirect_base_url"`

	AWSRegion    string `yaml:"aws_region"`
	SESFromEmail string `yaml:"ses_from_email"`
	SESFromName  string `yaml:"ses_from_name"`
	AppBaseURL   string `yaml:"app_base_url"`
	EmailDebug   bool   `yaml:"email_debug"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerPort:      "8080",
		LogMode:         "dev",
		DatabaseType:    "sqlite",
		DatabasePath:    "./studycards.db",
		SessionDuration: 24 * time.Hour,
		OpenAIBaseURL:   "https://api.openai.com",
		OpenAIModel:     "gpt-4o-mini",
		OpenAITimeout:   60 * time.Second,
		FlashcardCount:  10,
		AWSRegion:       "eu-central-1",
		SESFromName:     "StudyCards",
		AppBaseURL:      "http://localhost:8080",
	}
}

// Load reads configuration from defaults, an optional YAML file named by CONFIG_FILE,
// a .env file and environment variables, in that order of precedence (lowest first).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.LogMode = getEnv("LOG_MODE", c.LogMode)

	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)

	c.SessionDuration = getEnvDuration("SESSION_DURATION", c.SessionDuration)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	if secs := getEnvInt("OPENAI_TIMEOUT_SECONDS", 0); secs > 0 {
		c.OpenAITimeout = time.Duration(secs) * time.Second
	}
	c.FlashcardCount = getEnvInt("FLASHCARD_COUNT", c.FlashcardCount)

	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
	c.EmailDebug = getEnvBool("EMAIL_DEBUG", c.EmailDebug)
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
	if c.FlashcardCount <= 0 {
		return fmt.Errorf("flashcard count must be positive, got %d", c.FlashcardCount)
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("session duration must be positive, got %s", c.SessionDuration)
	}
	return nil
}

// GoogleLoginEnabled reports whether Google sign-in is configured
func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
