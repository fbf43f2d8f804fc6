package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Rules        RulesConfig
	Lifecycle    LifecycleConfig
	Availability AvailabilityConfig
	Notify       NotifyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RulesConfig holds the booking business-rule knobs shared across engines.
type RulesConfig struct {
	CancellationDeadline time.Duration
	GracePeriodDays      int
	PromotionMaxAttempts int
}

// LifecycleConfig controls the membership status batch job.
type LifecycleConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AvailabilityConfig tunes the cached class-availability reads.
type AvailabilityConfig struct {
	CacheTTL time.Duration
}

// NotifyConfig sizes the promotion notification worker pool.
type NotifyConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	gracePeriodDays := v.GetInt("RULES_GRACE_PERIOD_DAYS")
	if gracePeriodDays <= 0 {
		gracePeriodDays = 7
	}
	promotionAttempts := v.GetInt("RULES_PROMOTION_MAX_ATTEMPTS")
	cfg.Rules = RulesConfig{
		CancellationDeadline: parseDuration(v.GetString("RULES_CANCELLATION_DEADLINE"), time.Hour),
		GracePeriodDays:      gracePeriodDays,
		PromotionMaxAttempts: promotionAttempts,
	}

	cfg.Lifecycle = LifecycleConfig{
		Enabled:  v.GetBool("LIFECYCLE_ENABLED"),
		Interval: parseDuration(v.GetString("LIFECYCLE_INTERVAL"), 24*time.Hour),
	}

	cfg.Availability = AvailabilityConfig{
		CacheTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 30*time.Second),
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gymflow")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RULES_CANCELLATION_DEADLINE", "1h")
	v.SetDefault("RULES_GRACE_PERIOD_DAYS", 7)
	v.SetDefault("RULES_PROMOTION_MAX_ATTEMPTS", 0)

	v.SetDefault("LIFECYCLE_ENABLED", true)
	v.SetDefault("LIFECYCLE_INTERVAL", "24h")

	v.SetDefault("AVAILABILITY_CACHE_TTL", "30s")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
