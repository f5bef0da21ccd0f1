package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - DESKHAND_RESYNC_INTERVAL (duration, e.g. "30m"; "0" disables re-sync)
// - DESKHAND_WORKSPACE_ROOT (path)
// - DESKHAND_NOTIFICATION_LEVEL ("all", "failure", "none")
// - DESKHAND_GENERIC_WEBHOOK_URL / DESKHAND_GOTIFY_URL / DESKHAND_GOTIFY_TOKEN
// - DESKHAND_METRICS_ENABLED (bool) / DESKHAND_METRICS_PORT (int)
// - DESKHAND_INFLUX_URL / _TOKEN / _ORG / _BUCKET / _INTERVAL
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyBasicEnv(cfg); err != nil {
		return err
	}
	if err := applyNotificationEnv(cfg); err != nil {
		return err
	}
	if err := applyMetricsEnv(cfg); err != nil {
		return err
	}
	return applyInfluxEnv(cfg)
}

func applyBasicEnv(cfg *Config) error {
	if v := os.Getenv("DESKHAND_RESYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DESKHAND_RESYNC_INTERVAL: %w", err)
		}
		cfg.ResyncInterval = d
	}
	if v := os.Getenv("DESKHAND_WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}
	return nil
}

func applyNotificationEnv(cfg *Config) error {
	if v := os.Getenv("DESKHAND_NOTIFICATION_LEVEL"); v != "" {
		cfg.NotificationLevel = v
	}
	if v := os.Getenv("DESKHAND_GENERIC_WEBHOOK_URL"); v != "" {
		cfg.GenericWebhookURL = v
	}
	if v := os.Getenv("DESKHAND_GOTIFY_URL"); v != "" {
		cfg.GotifyURL = v
	}
	if v := os.Getenv("DESKHAND_GOTIFY_TOKEN"); v != "" {
		cfg.GotifyToken = v
	}
	return nil
}

func applyMetricsEnv(cfg *Config) error {
	if v := os.Getenv("DESKHAND_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DESKHAND_METRICS_ENABLED: %w", err)
		}
		cfg.MetricsEnabled = b
	}
	if v := os.Getenv("DESKHAND_METRICS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DESKHAND_METRICS_PORT: %w", err)
		}
		cfg.MetricsPort = p
	}
	return nil
}

func applyInfluxEnv(cfg *Config) error {
	if v := os.Getenv("DESKHAND_INFLUX_URL"); v != "" {
		cfg.InfluxURL = v
	}
	if v := os.Getenv("DESKHAND_INFLUX_TOKEN"); v != "" {
		cfg.InfluxToken = v
	}
	if v := os.Getenv("DESKHAND_INFLUX_ORG"); v != "" {
		cfg.InfluxOrg = v
	}
	if v := os.Getenv("DESKHAND_INFLUX_BUCKET"); v != "" {
		cfg.InfluxBucket = v
	}
	if v := os.Getenv("DESKHAND_INFLUX_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DESKHAND_INFLUX_INTERVAL: %w", err)
		}
		cfg.InfluxInterval = d
	}
	return nil
}
