package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds message queue settings.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// PlannerConfig holds the scheduling engine settings.
type PlannerConfig struct {
	// SweepInterval is how often the due-item sweeps run.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// ReviewWeekday is the weekday (0=Sunday..6=Saturday) on which weekly
	// review sessions are opened.
	ReviewWeekday int `yaml:"review_weekday"`
	// ReviewHour is the local hour at which review sessions are opened.
	ReviewHour int `yaml:"review_hour"`
	// AdherenceWindow is the number of trailing expected occurrences used
	// for adherence-rate computation. 0 means all occurrences since the
	// routine was created.
	AdherenceWindow int `yaml:"adherence_window"`
	// RemindTTL is how long a collaborator reminder is deduplicated for.
	RemindTTL time.Duration `yaml:"remind_ttl"`
}

// OverrideDBFromEnv overrides DB settings from environment variables.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv overrides MQ settings from environment variables.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv overrides Redis settings from environment variables.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv overrides server settings from environment variables.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverridePlannerFromEnv overrides planner settings from environment variables.
func OverridePlannerFromEnv(cfg *PlannerConfig) {
	if interval := os.Getenv("PLANNER_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.SweepInterval = d
		}
	}
	if weekday := os.Getenv("PLANNER_REVIEW_WEEKDAY"); weekday != "" {
		if w, err := strconv.Atoi(weekday); err == nil {
			cfg.ReviewWeekday = w
		}
	}
	if hour := os.Getenv("PLANNER_REVIEW_HOUR"); hour != "" {
		if h, err := strconv.Atoi(hour); err == nil {
			cfg.ReviewHour = h
		}
	}
	if window := os.Getenv("PLANNER_ADHERENCE_WINDOW"); window != "" {
		if n, err := strconv.Atoi(window); err == nil {
			cfg.AdherenceWindow = n
		}
	}
	if ttl := os.Getenv("PLANNER_REMIND_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.RemindTTL = d
		}
	}
}

// GetEnv returns the environment variable value, or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv returns the config environment (CONFIG_ENV, default "local").
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
