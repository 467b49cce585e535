package config

import (
	"errors"
	"io/fs"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Export    ExportConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs the read-through cache for immutable schedule and availability payloads.
type CacheConfig struct {
	Enabled     bool
	TTL         time.Duration
	WarmWorkers int
}

// SchedulerConfig tunes the chain walker and the generator scoring function.
type SchedulerConfig struct {
	MaxChainDepth       int
	HistoryWorkers      int
	HistoryTimeout      time.Duration
	NeverScheduledWeeks int
	FlexibilityDivisor  float64
	LoadDivisor         float64
	RunLoadOffset       float64
	RunLoadExponent     float64
}

// ExportConfig shapes the grid report.
type ExportConfig struct {
	SlotsPerDay int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		TTL:         parseDuration(v.GetString("CACHE_TTL"), 24*time.Hour),
		WarmWorkers: v.GetInt("CACHE_WARM_WORKERS"),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxChainDepth:       v.GetInt("SCHEDULER_MAX_CHAIN_DEPTH"),
		HistoryWorkers:      historyWorkers(v.GetInt("SCHEDULER_HISTORY_WORKERS"), cfg.Database.MaxOpenConns),
		HistoryTimeout:      parseDuration(v.GetString("SCHEDULER_HISTORY_TIMEOUT"), 30*time.Second),
		NeverScheduledWeeks: v.GetInt("SCHEDULER_NEVER_SCHEDULED_WEEKS"),
		FlexibilityDivisor:  v.GetFloat64("SCHEDULER_FLEXIBILITY_DIVISOR"),
		LoadDivisor:         v.GetFloat64("SCHEDULER_LOAD_DIVISOR"),
		RunLoadOffset:       v.GetFloat64("SCHEDULER_RUN_LOAD_OFFSET"),
		RunLoadExponent:     v.GetFloat64("SCHEDULER_RUN_LOAD_EXPONENT"),
	}

	cfg.Export = ExportConfig{
		SlotsPerDay: v.GetInt("EXPORT_SLOTS_PER_DAY"),
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
	v.SetDefault("DB_NAME", "shift_rota")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("CACHE_WARM_WORKERS", 1)

	v.SetDefault("SCHEDULER_MAX_CHAIN_DEPTH", 10000)
	v.SetDefault("SCHEDULER_HISTORY_WORKERS", 4)
	v.SetDefault("SCHEDULER_HISTORY_TIMEOUT", "30s")
	v.SetDefault("SCHEDULER_NEVER_SCHEDULED_WEEKS", 100)
	v.SetDefault("SCHEDULER_FLEXIBILITY_DIVISOR", 20.0)
	v.SetDefault("SCHEDULER_LOAD_DIVISOR", 5.0)
	v.SetDefault("SCHEDULER_RUN_LOAD_OFFSET", 2.0)
	v.SetDefault("SCHEDULER_RUN_LOAD_EXPONENT", 3.0)

	v.SetDefault("EXPORT_SLOTS_PER_DAY", 5)
}

// historyWorkers bounds parallel history reads so a generator run, which already
// holds one pooled connection for its transaction, can always obtain another.
// Anything below two workers means reading through the transaction.
func historyWorkers(requested, maxOpenConns int) int {
	workers := requested
	if maxOpenConns > 0 && workers > maxOpenConns-1 {
		workers = maxOpenConns - 1
	}
	if workers < 2 {
		return 1
	}
	return workers
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
