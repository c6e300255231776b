package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development" validate:"oneof=development staging production test"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	MongoDBURI      string `envconfig:"MONGODB_URI" required:"true" validate:"required"`
	MongoDBPassword string `envconfig:"MONGODB_PASSWORD"`
	MongoDBDatabase string `envconfig:"MONGODB_DATABASE" default:"slotbook"`

	SupabaseURL     string `envconfig:"SUPABASE_URL" required:"true" validate:"required,url"`
	SupabaseAnonKey string `envconfig:"SUPABASE_URL_ANON_KEY" required:"true" validate:"required"`

	ReservationBackend string `envconfig:"RESERVATION_BACKEND" default:"mongo" validate:"oneof=mongo redis"`
	RedisAddr          string `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=ReservationBackend redis"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`

	PaymentGateway      string `envconfig:"PAYMENT_GATEWAY" default:"mock" validate:"oneof=mock stripe"`
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" validate:"required_if=PaymentGateway stripe"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" validate:"required_if=PaymentGateway stripe"`
	Currency            string `envconfig:"CURRENCY" default:"GHS" validate:"len=3"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"15s" validate:"gt=0"`
	HoldTTL         time.Duration `envconfig:"HOLD_TTL" default:"15m" validate:"gt=0"`

	OtelEnabled       bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OtelCollectorAddr string `envconfig:"OTEL_COLLECTOR_ADDR" default:"localhost:4317"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
}

// LoadConfig reads .env.local when present, then the process environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env.local"}
	}
	// a missing env file is fine; the environment may already be set
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MongoURI substitutes the password placeholder in the connection string.
func (c *Config) MongoURI() string {
	return strings.Replace(c.MongoDBURI, "<password>", c.MongoDBPassword, 1)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
