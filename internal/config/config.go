package config

import (
	"log"
	"time"

	"gopkg.in/yaml.v3"

	"routinekeeper/pkg/config"
)

type Config struct {
	DB      config.DBConfig      `yaml:"db"`
	MQ      config.MQConfig      `yaml:"mq"`
	Redis   config.RedisConfig   `yaml:"redis"`
	Server  config.ServerConfig  `yaml:"server"`
	Planner config.PlannerConfig `yaml:"planner"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Environment variables take highest priority.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverridePlannerFromEnv(&cfg.Planner)

	if cfg.Planner.SweepInterval <= 0 {
		cfg.Planner.SweepInterval = time.Minute
	}
	if cfg.Planner.RemindTTL <= 0 {
		cfg.Planner.RemindTTL = 24 * time.Hour
	}

	return &cfg
}
