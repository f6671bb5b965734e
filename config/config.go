package config

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultPath is where Load looks for the JSON config file.
var DefaultPath = filepath.Join("config", "config.json")

// AppConfig holds configuration grouped by concern. Secrets have no
// defaults and must come from the config file or the environment.
type AppConfig struct {
	App         AppSection        `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
}

type AppSection struct {
	Port               string   `mapstructure:"port" validate:"required,numeric"`
	GinMode            string   `mapstructure:"ginMode" validate:"oneof=debug release test"`
	GinLogPath         string   `mapstructure:"ginLogPath"`
	Timezone           string   `mapstructure:"timezone" validate:"required"`
	AuthSecret         string   `mapstructure:"authSecret"`
	AllowedOrigins     []string `mapstructure:"allowedOrigins"`
	RateLimitPerMinute int      `mapstructure:"rateLimitPerMinute" validate:"gte=1"`
	MetricsEnabled     bool     `mapstructure:"metricsEnabled"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	URI      string `mapstructure:"uri"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	// Path is the database file for the sqlite driver.
	Path string `mapstructure:"path"`
}

// RedisConfig leaves Redis disabled when Host is empty.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type CacheConfig struct {
	LocalSizeMB int           `mapstructure:"localSizeMB" validate:"gte=0"`
	TTL         time.Duration `mapstructure:"ttl"`
}

type LeaderboardConfig struct {
	Limit   int    `mapstructure:"limit" validate:"gte=1,lte=500"`
	SortKey string `mapstructure:"sortKey" validate:"oneof=points streak"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal silent"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := LoadFrom(DefaultPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	mu.Unlock()
	if !ok {
		return Load()
	}
	return cfg
}

// LoadFrom reads path (missing file is fine), then applies defaults and
// environment overrides, then validates.
// Precedence: environment -> config file -> defaults.
func LoadFrom(path string) (AppConfig, error) {
	v := viper.New()
	applyDefaults(v)
	if err := bindEnv(v); err != nil {
		return AppConfig{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return AppConfig{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	var out AppConfig
	if err := v.Unmarshal(&out); err != nil {
		return AppConfig{}, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	if err := Validate(out); err != nil {
		return AppConfig{}, err
	}
	return out, nil
}

// Validate checks field constraints and that the timezone resolves.
func Validate(c AppConfig) error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// applyDefaults sets sane defaults for every field that has one.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.ginMode", "release")
	v.SetDefault("app.ginLogPath", "logs/go_gin.log")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("app.allowedOrigins", []string{"*"})
	v.SetDefault("app.rateLimitPerMinute", 60)
	v.SetDefault("app.metricsEnabled", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "sobercast")
	v.SetDefault("database.path", "data/sobercast.db")

	v.SetDefault("redis.port", 6379)

	v.SetDefault("cache.localSizeMB", 8)
	v.SetDefault("cache.ttl", time.Minute)

	v.SetDefault("leaderboard.limit", 50)
	v.SetDefault("leaderboard.sortKey", "points")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 7)
}

// envKeys maps config keys onto the environment variables operators set.
var envKeys = map[string]string{
	"app.port":               "APP_PORT",
	"app.ginMode":            "GIN_MODE",
	"app.ginLogPath":         "GIN_LOG_PATH",
	"app.timezone":           "APP_TIMEZONE",
	"app.authSecret":         "AUTH_SECRET",
	"app.allowedOrigins":     "CORS_ALLOWED_ORIGINS",
	"app.rateLimitPerMinute": "RATE_LIMIT_PER_MINUTE",
	"app.metricsEnabled":     "METRICS_ENABLED",
	"database.driver":        "DB_DRIVER",
	"database.uri":           "DATABASE_URI",
	"database.host":          "DB_HOST",
	"database.port":          "DB_PORT",
	"database.user":          "DB_USER",
	"database.password":      "DB_PASSWORD",
	"database.name":          "DB_NAME",
	"database.path":          "DB_PATH",
	"redis.host":             "REDIS_HOST",
	"redis.port":             "REDIS_PORT",
	"redis.db":               "REDIS_DB",
	"redis.password":         "REDIS_PASSWORD",
	"cache.localSizeMB":      "CACHE_LOCAL_SIZE_MB",
	"cache.ttl":              "CACHE_TTL",
	"leaderboard.limit":      "LEADERBOARD_LIMIT",
	"leaderboard.sortKey":    "LEADERBOARD_SORT",
	"log.level":              "LOG_LEVEL",
	"log.path":               "LOG_PATH",
	"log.maxSizeMB":          "LOG_MAX_SIZE_MB",
	"log.maxBackups":         "LOG_MAX_BACKUPS",
	"log.maxAgeDays":         "LOG_MAX_AGE_DAYS",
	"log.compress":           "LOG_COMPRESS",
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}
