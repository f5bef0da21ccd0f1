package config_test

import (
	"testing"
	"time"

	"github.com/deskhand/deskhand/internal/config"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DESKHAND_RESYNC_INTERVAL", "15m")
	t.Setenv("DESKHAND_WORKSPACE_ROOT", "/tmp/ws")
	t.Setenv("DESKHAND_NOTIFICATION_LEVEL", "all")
	t.Setenv("DESKHAND_METRICS_ENABLED", "true")
	t.Setenv("DESKHAND_METRICS_PORT", "9300")
	t.Setenv("DESKHAND_INFLUX_URL", "http://influx:8086")
	t.Setenv("DESKHAND_INFLUX_BUCKET", "deskhand")
	t.Setenv("DESKHAND_INFLUX_INTERVAL", "2m")

	cfg := config.DefaultConfig()
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("env overrides failed: %v", err)
	}
	if cfg.ResyncInterval != 15*time.Minute {
		t.Fatalf("resync interval not applied: %v", cfg.ResyncInterval)
	}
	if cfg.WorkspaceRoot != "/tmp/ws" {
		t.Fatalf("workspace root not applied: %q", cfg.WorkspaceRoot)
	}
	if cfg.NotificationLevel != "all" {
		t.Fatalf("notification level not applied: %q", cfg.NotificationLevel)
	}
	if !cfg.MetricsEnabled || cfg.MetricsPort != 9300 {
		t.Fatalf("metrics env not applied: %+v", cfg)
	}
	if cfg.InfluxURL != "http://influx:8086" || cfg.InfluxBucket != "deskhand" || cfg.InfluxInterval != 2*time.Minute {
		t.Fatalf("influx env not applied: %+v", cfg)
	}
}

func TestApplyEnvOverridesRejectsBadValues(t *testing.T) {
	t.Setenv("DESKHAND_RESYNC_INTERVAL", "soon")
	if err := config.ApplyEnvOverrides(config.DefaultConfig()); err == nil {
		t.Fatal("expected error for bad duration")
	}
	t.Setenv("DESKHAND_RESYNC_INTERVAL", "")
	t.Setenv("DESKHAND_METRICS_PORT", "not-a-port")
	if err := config.ApplyEnvOverrides(config.DefaultConfig()); err == nil {
		t.Fatal("expected error for bad port")
	}
}
