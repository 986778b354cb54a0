package config

import (
	"GuardianAngel/pkg/logger"
	"GuardianAngel/pkg/util"
	"log"
	"os"
	"time"
)

const DefaultBaseURL = "https://guardian-fwpg.onrender.com/api/v1"

// config/config.go
type Config struct {
	BaseURL           string        `env:"GUARDIAN_BASE_URL"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	SessionStore      string        `env:"SESSION_STORE"` // sqlite|memory
	SessionDB         string        `env:"SESSION_DB"`
	Log               logger.LogConfig
	Language          string        `env:"LANGUAGE"`
	PanicCooldown     time.Duration `env:"PANIC_COOLDOWN"`
	NearbyCacheTTL    time.Duration `env:"NEARBY_CACHE_TTL"`
	NearbyCacheSize   int           `env:"NEARBY_CACHE_SIZE"`
	HospitalsCacheTTL time.Duration `env:"HOSPITALS_CACHE_TTL"`
	RefreshMinDelay   time.Duration `env:"REFRESH_MIN_DELAY"`
	WatchSchedule     string        `env:"WATCH_SCHEDULE"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED"`
	MetricsAddr       string        `env:"METRICS_ADDR"` // 非空时 watch 期间导出 /metrics
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development" // 默认使用开发环境
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv builds a Config from the current process environment, applying defaults.
func FromEnv() *Config {
	cfg := &Config{
		BaseURL:        util.GetEnvOr("GUARDIAN_BASE_URL", DefaultBaseURL),
		RequestTimeout: util.GetDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		SessionStore:   util.GetEnvOr("SESSION_STORE", "sqlite"),
		SessionDB:      util.GetEnvOr("SESSION_DB", "guardian.db"),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Language:          util.GetEnvOr("LANGUAGE", "en"),
		PanicCooldown:     util.GetDurationEnv("PANIC_COOLDOWN", 10*time.Second),
		NearbyCacheTTL:    util.GetDurationEnv("NEARBY_CACHE_TTL", 0),
		NearbyCacheSize:   int(util.GetIntEnv("NEARBY_CACHE_SIZE")),
		HospitalsCacheTTL: util.GetDurationEnv("HOSPITALS_CACHE_TTL", 5*time.Minute),
		RefreshMinDelay:   util.GetDurationEnv("REFRESH_MIN_DELAY", time.Second),
		WatchSchedule:     util.GetEnvOr("WATCH_SCHEDULE", "@every 30s"),
		MetricsEnabled:    util.GetBoolEnv("METRICS_ENABLED"),
		MetricsAddr:       util.GetEnv("METRICS_ADDR"),
	}
	if cfg.NearbyCacheSize <= 0 {
		cfg.NearbyCacheSize = 32
	}
	return cfg
}
