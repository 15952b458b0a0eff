// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names accepted by MEETING_PROVIDER and MAIL_PROVIDER.
const (
	ProviderGoogle   = "google"
	ProviderDisabled = "disabled"
	ProviderGmail    = "gmail"
	ProviderLog      = "log"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	Port                          string `mapstructure:"PORT"`
	Env                           string `mapstructure:"APP_ENV"`
	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL                      string `mapstructure:"REDIS_URL"`
	AMQPURL                       string `mapstructure:"AMQP_URL"`
	AMQPExchange                  string `mapstructure:"AMQP_EXCHANGE"`
	AllowedOrigins                string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags                  string `mapstructure:"FEATURE_FLAGS"`

	// Google integrations
	MeetingProvider        string `mapstructure:"MEETING_PROVIDER"`
	MailProvider           string `mapstructure:"MAIL_PROVIDER"`
	MailFrom               string `mapstructure:"MAIL_FROM"`
	MailAsync              bool   `mapstructure:"MAIL_ASYNC"`
	GoogleClientSecretFile string `mapstructure:"GOOGLE_CLIENT_SECRET_FILE"`
	GoogleTokenFile        string `mapstructure:"GOOGLE_TOKEN_FILE"`
	GoogleCalendarID       string `mapstructure:"GOOGLE_CALENDAR_ID"`
	ProviderTimeoutSeconds int    `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	ProviderRatePerSecond  int    `mapstructure:"PROVIDER_RATE_PER_SECOND"`

	// Sessions
	SessionTimezone        string `mapstructure:"SESSION_TIMEZONE"`
	SessionDurationMinutes int    `mapstructure:"SESSION_DURATION_MINUTES"`
	WorkerConcurrency      int    `mapstructure:"WORKER_CONCURRENCY"`

	// Media
	MediaDir          string `mapstructure:"MEDIA_DIR"`
	MediaMaxUploadMB  int    `mapstructure:"MEDIA_MAX_UPLOAD_MB"`
	PublicMediaPrefix string `mapstructure:"PUBLIC_MEDIA_PREFIX"`

	// Tracing
	OTelEnabled  bool   `mapstructure:"OTEL_ENABLED"`
	OTelExporter string `mapstructure:"OTEL_EXPORTER"`
	OTelEndpoint string `mapstructure:"OTEL_ENDPOINT"`

	// Development bootstrap
	DevStaffEmail    string `mapstructure:"DEV_STAFF_EMAIL"`
	DevStaffPassword string `mapstructure:"DEV_STAFF_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "mindbridge")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "mindbridge")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "mindbridge.bookings")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "permissive_approval=off,post_auto_approve=off,session_reminders=on")

	viper.SetDefault("MEETING_PROVIDER", ProviderDisabled)
	viper.SetDefault("MAIL_PROVIDER", ProviderLog)
	viper.SetDefault("MAIL_FROM", "MindBridge Wellness Team <wellness@mindbridge.local>")
	viper.SetDefault("MAIL_ASYNC", true)
	viper.SetDefault("GOOGLE_CLIENT_SECRET_FILE", "credentials.json")
	viper.SetDefault("GOOGLE_TOKEN_FILE", "token.json")
	viper.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("PROVIDER_RATE_PER_SECOND", 5)

	viper.SetDefault("SESSION_TIMEZONE", "Africa/Kigali")
	viper.SetDefault("SESSION_DURATION_MINUTES", 60)
	viper.SetDefault("WORKER_CONCURRENCY", 10)

	viper.SetDefault("MEDIA_DIR", "/tmp/mindbridge/media")
	viper.SetDefault("MEDIA_MAX_UPLOAD_MB", 5)
	viper.SetDefault("PUBLIC_MEDIA_PREFIX", "/media")

	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER", "stdout")
	viper.SetDefault("OTEL_ENDPOINT", "localhost:4318")

	viper.SetDefault("DEV_STAFF_EMAIL", "wellness@alueducation.com")
	viper.SetDefault("DEV_STAFF_PASSWORD", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.MeetingProvider = strings.ToLower(strings.TrimSpace(c.MeetingProvider))
	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ProviderTimeout bounds a single call to an external collaborator.
func (c *Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// SessionDuration is the length of a counseling session.
func (c *Config) SessionDuration() time.Duration {
	if c.SessionDurationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

// SessionLocation resolves the timezone booking slots are expressed in.
func (c *Config) SessionLocation() (*time.Location, error) {
	name := c.SessionTimezone
	if name == "" {
		name = "Africa/Kigali"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load session timezone %q: %w", name, err)
	}
	return loc, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	if c.MediaMaxUploadMB < 0 {
		return errors.New("MEDIA_MAX_UPLOAD_MB must not be negative")
	}

	switch c.MeetingProvider {
	case "", ProviderGoogle, ProviderDisabled:
	default:
		return fmt.Errorf("unsupported MEETING_PROVIDER %q", c.MeetingProvider)
	}
	switch c.MailProvider {
	case "", ProviderGmail, ProviderLog:
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.MailProvider)
	}
	if c.usesGoogle() && (c.GoogleClientSecretFile == "" || c.GoogleTokenFile == "") {
		return errors.New("GOOGLE_CLIENT_SECRET_FILE and GOOGLE_TOKEN_FILE are required for google providers")
	}
	if _, err := c.SessionLocation(); err != nil {
		return err
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

func (c *Config) usesGoogle() bool {
	return c.MeetingProvider == ProviderGoogle || c.MailProvider == ProviderGmail
}
