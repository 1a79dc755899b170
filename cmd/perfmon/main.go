package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/api"
	"github.com/rydeshare/perfmon/internal/config"
	"github.com/rydeshare/perfmon/internal/middleware"
	"github.com/rydeshare/perfmon/internal/monitoring"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/rydeshare/perfmon/internal/monitoring/metric"
	"github.com/rydeshare/perfmon/internal/monitoring/notify"
)

func main() {
	log.Info().Msg("Starting perfmon monitoring server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// optional shared cooldown cache; the pipeline works identically without it
	var cooldown alerting.Tracker = alerting.NewMemoryTracker()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cooldown = alerting.NewRedisTracker(rdb)
		defer rdb.Close()
	}

	var extraRules []*alerting.Rule
	if cfg.Monitoring.RulesFile != "" {
		rules, rerr := alerting.LoadRulesFile(cfg.Monitoring.RulesFile)
		if rerr != nil {
			log.Error().Err(rerr).Str("file", cfg.Monitoring.RulesFile).Msg("loading custom rules failed")
		} else {
			extraRules = rules
			log.Info().Int("count", len(rules)).Msg("loaded custom rules from config file")
		}
	}

	cooldownOverrides := map[string]time.Duration{}
	for id, raw := range cfg.Monitoring.RuleCooldowns {
		if d, perr := time.ParseDuration(raw); perr == nil {
			cooldownOverrides[id] = d
		} else {
			log.Warn().Str("rule_id", id).Str("value", raw).Msg("invalid cooldown override ignored")
		}
	}

	monitor := monitoring.New(monitoring.Options{
		Source:          cfg.Monitoring.Source,
		MetricsPerKey:   cfg.Monitoring.MetricsPerKey,
		AlertCapacity:   cfg.Monitoring.AlertCapacity,
		AlertRetention:  parseDuration(cfg.Monitoring.AlertRetention, 7*24*time.Hour),
		ReportInterval:  parseDuration(cfg.Monitoring.ReportInterval, time.Hour),
		CleanupInterval: parseDuration(cfg.Monitoring.CleanupInterval, time.Hour),
		Thresholds:      thresholdsFromConfig(&cfg.Monitoring.Thresholds),
		Cooldown:        cooldown,
		ExtraRules:      extraRules,
		RuleCooldowns:   cooldownOverrides,
		DisableConsole:  !cfg.Monitoring.Channels.Console,
		DisableToast:    !cfg.Monitoring.Channels.Toast,
	})

	hub := api.NewHub(monitor.Alerts())
	if cfg.Monitoring.Channels.Websocket {
		monitor.Notifier().Register(notify.NewWebsocketChannel(hub))
	}
	if cfg.Monitoring.Channels.Webhook && cfg.Monitoring.Webhook.URL != "" {
		monitor.Notifier().Register(notify.NewWebhookChannel(
			cfg.Monitoring.Webhook.URL,
			cfg.Monitoring.Source,
			parseDuration(cfg.Monitoring.Webhook.Timeout, 30*time.Second),
		))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go monitor.Run(ctx)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Authentication)
	api.Register(router, monitor, hub)

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start perfmon server failed.")
	}
	log.Info().Msg("perfmon server exit...")
}

func thresholdsFromConfig(t *config.ThresholdConfig) metric.Thresholds {
	return metric.Thresholds{
		RenderWarnMs: t.RenderWarnMs,
		RenderCritMs: t.RenderCritMs,
		APIWarnMs:    t.APIWarnMs,
		APICritMs:    t.APICritMs,
		MemoryWarnMB: t.MemoryWarnMB,
		MemoryCritMB: t.MemoryCritMB,
	}
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
