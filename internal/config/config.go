package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Redis      RedisConfig      `json:"redis"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type MonitoringConfig struct {
	Source          string            `json:"source"`
	MetricsPerKey   int               `json:"metricsPerKey"`
	AlertCapacity   int               `json:"alertCapacity"`
	AlertRetention  string            `json:"alertRetention"`  // e.g. "168h"
	ReportInterval  string            `json:"reportInterval"`  // e.g. "1h"
	CleanupInterval string            `json:"cleanupInterval"` // e.g. "1h"
	RulesFile       string            `json:"rulesFile"`
	RuleCooldowns   map[string]string `json:"ruleCooldowns"` // rule id -> duration
	Thresholds      ThresholdConfig   `json:"thresholds"`
	Channels        ChannelConfig     `json:"channels"`
	Webhook         WebhookConfig     `json:"webhook"`
}

type ThresholdConfig struct {
	RenderWarnMs float64 `json:"renderWarnMs"`
	RenderCritMs float64 `json:"renderCritMs"`
	APIWarnMs    float64 `json:"apiWarnMs"`
	APICritMs    float64 `json:"apiCritMs"`
	MemoryWarnMB float64 `json:"memoryWarnMB"`
	MemoryCritMB float64 `json:"memoryCritMB"`
}

type ChannelConfig struct {
	Console   bool `json:"console"`
	Toast     bool `json:"toast"`
	Websocket bool `json:"websocket"`
	Webhook   bool `json:"webhook"`
}

type WebhookConfig struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"` // e.g. "30s"
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Monitoring: MonitoringConfig{
			Source:          getEnv("MONITOR_SOURCE", "perfmon"),
			MetricsPerKey:   getEnvInt("METRICS_PER_KEY", 100),
			AlertCapacity:   getEnvInt("ALERT_STORE_CAPACITY", 1000),
			AlertRetention:  getEnv("ALERT_RETENTION", "168h"),
			ReportInterval:  getEnv("REPORT_INTERVAL", "1h"),
			CleanupInterval: getEnv("CLEANUP_INTERVAL", "1h"),
			RulesFile:       getEnv("ALERT_RULES_CONFIG_FILE", ""),
			Thresholds: ThresholdConfig{
				RenderWarnMs: getEnvFloat("RENDER_WARN_MS", 16),
				RenderCritMs: getEnvFloat("RENDER_CRIT_MS", 50),
				APIWarnMs:    getEnvFloat("API_WARN_MS", 1000),
				APICritMs:    getEnvFloat("API_CRIT_MS", 2000),
				MemoryWarnMB: getEnvFloat("MEMORY_WARN_MB", 150),
				MemoryCritMB: getEnvFloat("MEMORY_CRIT_MB", 200),
			},
			Channels: ChannelConfig{
				Console:   getEnvBool("ALERT_CHANNEL_CONSOLE", true),
				Toast:     getEnvBool("ALERT_CHANNEL_TOAST", true),
				Websocket: getEnvBool("ALERT_CHANNEL_WEBSOCKET", true),
				Webhook:   getEnvBool("ALERT_CHANNEL_WEBHOOK", false),
			},
			Webhook: WebhookConfig{
				URL:     getEnv("ALERT_WEBHOOK_URL", ""),
				Timeout: getEnv("ALERT_WEBHOOK_TIMEOUT", "30s"),
			},
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Monitoring.Source == "" {
		cfg.Monitoring.Source = "perfmon"
	}
	if cfg.Monitoring.MetricsPerKey == 0 {
		cfg.Monitoring.MetricsPerKey = 100
	}
	if cfg.Monitoring.AlertCapacity == 0 {
		cfg.Monitoring.AlertCapacity = 1000
	}
	if cfg.Monitoring.AlertRetention == "" {
		cfg.Monitoring.AlertRetention = "168h"
	}
	if cfg.Monitoring.ReportInterval == "" {
		cfg.Monitoring.ReportInterval = "1h"
	}
	if cfg.Monitoring.CleanupInterval == "" {
		cfg.Monitoring.CleanupInterval = "1h"
	}
	if cfg.Monitoring.Webhook.Timeout == "" {
		cfg.Monitoring.Webhook.Timeout = "30s"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
