package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Analytics AnalyticsConfig
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

// AnalyticsConfig tunes the learning-stats pipeline. The defaults mirror the
// request budget agreed with the dashboard team; raising the batch sizes
// raises peak concurrent reads against the document store.
type AnalyticsConfig struct {
	CourseBatchSize    int           `validate:"min=1"`
	StudentBatchSize   int           `validate:"min=1"`
	ActivitySampleSize int           `validate:"min=1"`
	ActivityWindowDays int           `validate:"min=1"`
	TopLessons         int           `validate:"min=1"`
	TopDropOffs        int           `validate:"min=1"`
	TopStudents        int           `validate:"min=1"`
	StageTimeout       time.Duration `validate:"min=1s"`
	CacheTTL           time.Duration
	WarmInterval       time.Duration
	WarmRetries        int
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

	cfg.Analytics = AnalyticsConfig{
		CourseBatchSize:    v.GetInt("STATS_COURSE_BATCH_SIZE"),
		StudentBatchSize:   v.GetInt("STATS_STUDENT_BATCH_SIZE"),
		ActivitySampleSize: v.GetInt("STATS_ACTIVITY_SAMPLE_SIZE"),
		ActivityWindowDays: v.GetInt("STATS_ACTIVITY_WINDOW_DAYS"),
		TopLessons:         v.GetInt("STATS_TOP_LESSONS"),
		TopDropOffs:        v.GetInt("STATS_TOP_DROPOFFS"),
		TopStudents:        v.GetInt("STATS_TOP_STUDENTS"),
		StageTimeout:       parseDuration(v.GetString("STATS_STAGE_TIMEOUT"), 30*time.Second),
		CacheTTL:           parseDuration(v.GetString("STATS_CACHE_TTL"), 10*time.Minute),
		WarmInterval:       parseDuration(v.GetString("STATS_WARM_INTERVAL"), 0),
		WarmRetries:        v.GetInt("STATS_WARM_RETRIES"),
	}

	if err := validator.New().Struct(cfg.Analytics); err != nil {
		return nil, fmt.Errorf("invalid analytics config: %w", err)
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
	v.SetDefault("DB_NAME", "lms_docs")
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

	v.SetDefault("STATS_COURSE_BATCH_SIZE", 5)
	v.SetDefault("STATS_STUDENT_BATCH_SIZE", 10)
	v.SetDefault("STATS_ACTIVITY_SAMPLE_SIZE", 30)
	v.SetDefault("STATS_ACTIVITY_WINDOW_DAYS", 14)
	v.SetDefault("STATS_TOP_LESSONS", 10)
	v.SetDefault("STATS_TOP_DROPOFFS", 8)
	v.SetDefault("STATS_TOP_STUDENTS", 10)
	v.SetDefault("STATS_STAGE_TIMEOUT", "30s")
	v.SetDefault("STATS_CACHE_TTL", "10m")
	v.SetDefault("STATS_WARM_INTERVAL", "0s")
	v.SetDefault("STATS_WARM_RETRIES", 2)
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
