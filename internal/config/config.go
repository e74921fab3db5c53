// Package config loads the service configuration from a .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver     string // postgres|sqlite
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string // empty disables redis
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type QueueConfig struct {
	MinutesPerPatient int
	Location          *time.Location
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

type Config struct {
	Env            string
	Port           string
	GinMode        string
	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	CORSOrigins    []string
	RateRPS        float64
	RateBurst      int

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Queue    QueueConfig
	OTEL     OTELConfig
}

func (c *Config) IsDev() bool { return c.Env == "development" }

// Load reads .env (unless ENV_CHEK is set, which marks an environment that is
// already provisioned), then binds environment variables over the defaults.
func Load() (*Config, error) {
	if os.Getenv("ENV_CHEK") == "" {
		// a missing .env is fine, the environment may carry everything
		_ = godotenv.Load()
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("SWAGGER_ENABLED", true)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_RPS", 10.0)
	v.SetDefault("RATE_BURST", 20)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "medqueue.db")

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_TTL", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)

	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("QUEUE_MINUTES_PER_PATIENT", 15)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SERVICE_NAME", "medqueue")
	v.SetDefault("OTEL_TRACES_SAMPLER_ARG", 1.0)
	return v
}

// FromViper builds and validates a Config from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:            strings.ToLower(v.GetString("ENV")),
		Port:           v.GetString("PORT"),
		GinMode:        strings.ToLower(v.GetString("GIN_MODE")),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogPretty:      v.GetBool("LOG_PRETTY"),
		SwaggerEnabled: v.GetBool("SWAGGER_ENABLED"),
		CORSOrigins:    splitCSV(v.GetString("CORS_ORIGINS")),
		RateRPS:        v.GetFloat64("RATE_RPS"),
		RateBurst:      v.GetInt("RATE_BURST"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			AccessTTL:     v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL:    v.GetDuration("JWT_REFRESH_TTL"),
		},
		Queue: QueueConfig{
			MinutesPerPatient: v.GetInt("QUEUE_MINUTES_PER_PATIENT"),
		},
		OTEL: OTELConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			SampleRatio: v.GetFloat64("OTEL_TRACES_SAMPLER_ARG"),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	loc, err := time.LoadLocation(v.GetString("CLINIC_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	cfg.Queue.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Name == "" {
			return errors.New("DB_NAME is required for the postgres driver")
		}
	case "sqlite":
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (postgres, sqlite)", c.Database.Driver)
	}
	if c.Queue.MinutesPerPatient <= 0 {
		return errors.New("QUEUE_MINUTES_PER_PATIENT must be > 0")
	}
	if c.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		if !c.IsDev() {
			return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required outside development")
		}
		// development only
		if c.JWT.AccessSecret == "" {
			c.JWT.AccessSecret = "dev-access-secret"
		}
		if c.JWT.RefreshSecret == "" {
			c.JWT.RefreshSecret = "dev-refresh-secret"
		}
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
