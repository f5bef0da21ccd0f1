package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskhand/deskhand/internal/config"
	"github.com/deskhand/deskhand/internal/daemon"
	"github.com/deskhand/deskhand/internal/driver"
	"github.com/deskhand/deskhand/internal/logging"
	"github.com/deskhand/deskhand/internal/metrics"
	"github.com/deskhand/deskhand/internal/notify"
	"github.com/deskhand/deskhand/internal/registrar"
	"github.com/deskhand/deskhand/internal/registry"
)

func main() {
	cfgFile := flag.String("config", "", "Path to config file")
	containerList := flag.String("containers", "", "Path to a line-based container list (\"<NAME> <RUNTIME>\" per line)")
	resync := flag.Duration("resync-interval", 0, "Re-sync all containers periodically (0 disables)")
	runOnce := flag.Bool("run-once", false, "run one synchronization sweep and exit")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *cfgFile != "" {
		c, err := config.LoadConfigFromFile(*cfgFile)
		if err != nil {
			log.Fatalf("failed loading config: %v", err)
		}
		cfg = c
	}
	// the legacy list replaces any containers from the config file
	if *containerList != "" {
		if err := config.LoadContainerList(cfg, *containerList); err != nil {
			log.Fatalf("failed loading container list: %v", err)
		}
	}

	if err := config.ApplyEnvOverrides(cfg); err != nil {
		log.Fatalf("invalid environment configuration: %v", err)
	}

	// CLI flags have highest precedence
	if *resync > 0 {
		cfg.ResyncInterval = *resync
	}

	cleanup := initLogging()
	defer cleanup()

	for _, w := range cfg.Validate() {
		logging.Get().Warn().Msg(w)
	}

	initMetricsAndInflux(cfg)

	reg := createRegistryClientOrFatal()
	defer reg.Close()

	r := registrar.New(driver.NewShell(), reg, cfg.DefaultWorkspaceRoot())
	startDaemonAndWait(cfg, r, *runOnce)
}

// initLogging initializes the log subsystem from env and returns a cleanup func
func initLogging() func() {
	logLevel := os.Getenv("DESKHAND_LOG_LEVEL")
	logFile := os.Getenv("DESKHAND_LOG_FILE")
	cleanup, err := logging.Init(logFile, logLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	return cleanup
}

// initMetricsAndInflux starts the optional metrics server and Influx pusher
func initMetricsAndInflux(cfg *config.Config) {
	if cfg.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.PromHandler())
			mux.Handle("/status", metrics.JSONHandler())
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			logging.Get().Info().Str("addr", addr).Msg("starting metrics server")
			_ = http.ListenAndServe(addr, mux)
		}()
	}
	if cfg.InfluxURL != "" {
		go metrics.StartInfluxPusher(context.Background(), cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.InfluxInterval)
	}
}

// createRegistryClientOrFatal binds the desktop-entry daemon on the session
// bus or exits. Without the daemon there is nowhere to publish.
func createRegistryClientOrFatal() *registry.DBusClient {
	c, err := registry.NewDBusClient()
	if err != nil {
		logging.Get().Fatal().Err(err).Msg("failed to connect to the desktop-entry daemon; is it running on the session bus?")
	}
	return c
}

// buildNotifier assembles the notification sinks from config
func buildNotifier(cfg *config.Config) *notify.MultiNotifier {
	n := notify.NewMultiNotifier()
	if cfg.GenericWebhookURL != "" {
		n.Add(&notify.Generic{WebhookURL: cfg.GenericWebhookURL})
	}
	if cfg.GotifyURL != "" && cfg.GotifyToken != "" {
		n.Add(&notify.Gotify{ServerURL: cfg.GotifyURL, Token: cfg.GotifyToken})
	}
	return n
}

// startDaemonAndWait starts the daemon (or runs once) and waits for a
// shutdown signal. The process must stay resident: published entries are
// session-scoped and disappear when the bus connection drops.
func startDaemonAndWait(cfg *config.Config, r *registrar.Registrar, runOnce bool) {
	d := daemon.New(cfg, r, buildNotifier(cfg))
	if runOnce {
		logging.Get().Info().Msg("run-once: performing a single synchronization sweep")
		if err := d.RunOnce(context.Background()); err != nil {
			logging.Get().Error().Err(err).Msg("sweep completed with failures")
			os.Exit(1)
		}
		return
	}
	d.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Get().Info().Msg("shutdown signal received, retiring published entries")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(shutdownCtx); err != nil {
		logging.Get().Warn().Err(err).Msg("shutdown incomplete")
	}
}
