// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the admin API middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq background job system.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WhatsAppConfig provides settings for the WhatsApp HTTP bridge.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppVerifyToken() string
}

// SMTPConfig provides settings for the outbound email channel.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// OpenAIConfig provides settings for the semantic classifier/extractor.
type OpenAIConfig interface {
	GetOpenAIKey() string
	GetOpenAIModel() string
	GetAITimeout() time.Duration
	IsAIEnabled() bool
}

// EngineConfig provides tunables for the request lifecycle engine.
type EngineConfig interface {
	GetCompletenessThreshold() float64
	GetContinuationWindow() time.Duration
	GetPriceWeight() float64
	GetDeliveryWeight() float64
}

// CatalogConfig provides settings for category rule seeding.
type CatalogConfig interface {
	GetCategoryRulesPath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string

	RedisURL         string
	AsynqQueueName   string
	AsynqConcurrency int

	WhatsAppURL         string
	WhatsAppKey         string
	WhatsAppVerifyToken string

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	EmailEnabled     bool

	OpenAIKey   string
	OpenAIModel string
	AITimeout   time.Duration
	AIEnabled   bool

	CompletenessThreshold float64
	ContinuationWindow    time.Duration
	PriceWeight           float64
	DeliveryWeight        float64

	CategoryRulesPath string
}

// Load reads configuration from the environment, with .env support for development.
func Load() (*Config, error) {
	// .env is optional; real deployments use actual environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:    getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:     getEnvList("CORS_ORIGINS"),

		RedisURL:         os.Getenv("REDIS_URL"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		WhatsAppURL:         os.Getenv("WHATSAPP_URL"),
		WhatsAppKey:         os.Getenv("WHATSAPP_API_KEY"),
		WhatsAppVerifyToken: os.Getenv("WHATSAPP_VERIFY_TOKEN"),

		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Procurement"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:   getEnvDuration("AI_TIMEOUT", 4*time.Second),

		CompletenessThreshold: getEnvFloat("COMPLETENESS_THRESHOLD", 0.7),
		ContinuationWindow:    getEnvDuration("CONTINUATION_WINDOW", 30*24*time.Hour),
		PriceWeight:           getEnvFloat("QUOTE_PRICE_WEIGHT", 0.7),
		DeliveryWeight:        getEnvFloat("QUOTE_DELIVERY_WEIGHT", 0.3),

		CategoryRulesPath: getEnv("CATEGORY_RULES_PATH", "config/category_rules.yaml"),
	}

	cfg.EmailEnabled = cfg.SMTPHost != "" && cfg.EmailFromAddress != ""
	cfg.AIEnabled = cfg.OpenAIKey != ""

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.PriceWeight+cfg.DeliveryWeight != 1.0 {
		// Keep the pair normalized rather than failing startup on a tuning typo.
		total := cfg.PriceWeight + cfg.DeliveryWeight
		if total <= 0 {
			cfg.PriceWeight, cfg.DeliveryWeight = 0.7, 0.3
		} else {
			cfg.PriceWeight /= total
			cfg.DeliveryWeight /= total
		}
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetWhatsAppURL() string         { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string         { return c.WhatsAppKey }
func (c *Config) GetWhatsAppVerifyToken() string { return c.WhatsAppVerifyToken }

func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.EmailEnabled }

func (c *Config) GetOpenAIKey() string        { return c.OpenAIKey }
func (c *Config) GetOpenAIModel() string      { return c.OpenAIModel }
func (c *Config) GetAITimeout() time.Duration { return c.AITimeout }
func (c *Config) IsAIEnabled() bool           { return c.AIEnabled }

func (c *Config) GetCompletenessThreshold() float64    { return c.CompletenessThreshold }
func (c *Config) GetContinuationWindow() time.Duration { return c.ContinuationWindow }
func (c *Config) GetPriceWeight() float64              { return c.PriceWeight }
func (c *Config) GetDeliveryWeight() float64           { return c.DeliveryWeight }

func (c *Config) GetCategoryRulesPath() string { return c.CategoryRulesPath }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
